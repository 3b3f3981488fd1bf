// Package commands implements the ledgerctl administration CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledger/internal/services"
	"ledger/internal/storage"
)

const defaultDBPath = "./data/ledger.db"

type rootOptions struct {
	dbPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Administer a ledger database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	dbDefault := os.Getenv("SQLITE_DB_PATH")
	if dbDefault == "" {
		dbDefault = defaultDBPath
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", dbDefault, "path to the SQLite database (env SQLITE_DB_PATH)")

	rootCmd.AddCommand(
		newMigrateCommand(opts),
		newClientsCommand(opts),
		newBalanceCommand(opts),
		newClientBalanceCommand(opts),
		newAuditCommand(opts),
	)

	return rootCmd
}

// withRepository opens the database for the duration of fn.
func (o *rootOptions) withRepository(ctx context.Context, fn func(context.Context, *storage.SQLiteRepository) error) error {
	repo, err := storage.NewSQLiteRepository(o.dbPath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", o.dbPath, err)
	}
	defer repo.Close()
	return fn(ctx, repo)
}

// withLedger is withRepository for commands that go through the ledger service.
func (o *rootOptions) withLedger(ctx context.Context, fn func(context.Context, *services.LedgerService) error) error {
	return o.withRepository(ctx, func(ctx context.Context, repo *storage.SQLiteRepository) error {
		return fn(ctx, services.NewLedgerService(repo))
	})
}
