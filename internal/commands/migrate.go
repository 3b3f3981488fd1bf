package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ledger/internal/storage"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir := filepath.Dir(opts.dbPath); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating database directory: %w", err)
				}
			}
			if err := storage.RunMigrations(opts.dbPath); err != nil {
				return err
			}

			version, dirty, err := storage.MigrationVersion(opts.dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}
