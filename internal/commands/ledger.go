package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage"
	"ledger/internal/worker"
)

func newClientsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(ctx context.Context, ledger *services.LedgerService) error {
				clients, err := ledger.ListClients(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, c := range clients {
					fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
				}
				return tw.Flush()
			})
		},
	}
}

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Print the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(ctx context.Context, ledger *services.LedgerService) error {
				b, err := ledger.AccountBalance(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), core.FormatAmount(b.Balance))
				return nil
			})
		},
	}
}

func newClientBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "client-balance <client-id>",
		Short: "Print the balance of every account of a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(ctx context.Context, ledger *services.LedgerService) error {
				cb, err := ledger.ClientBalances(ctx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (client %d)\n", cb.Client.Name, cb.Client.ID)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "ACCOUNT\tBALANCE\t")
				for _, a := range cb.Accounts {
					fmt.Fprintf(tw, "%d\t%s\t\n", a.AccountID, core.FormatAmount(a.Balance))
				}
				return tw.Flush()
			})
		},
	}
}

func newAuditCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <account-id>",
		Short: "Print the movement audit trail of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withRepository(cmd.Context(), func(ctx context.Context, repo *storage.SQLiteRepository) error {
				trail, err := worker.NewAuditWorker(repo).Trail(ctx, id)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RECORDED\tEVENT\tMOVEMENT\tTYPE\tAMOUNT\tBALANCE AFTER")
				for _, a := range trail {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
						a.RecordedAt.UTC().Format(time.RFC3339),
						a.Event,
						a.MovementID,
						a.MovementType,
						core.FormatAmount(a.Amount),
						core.FormatAmount(a.BalanceAfter))
				}
				return tw.Flush()
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}
