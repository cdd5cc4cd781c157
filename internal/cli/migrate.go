package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coverlane/coverlane/internal/partnersrv/db/migrations"
)

var migrateVerify bool

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [flags]",
		Short: "Apply pending schema migrations to the partner store",
		Long: `Apply pending schema migrations to the partner store. Migrations already
recorded in the schema_migrations ledger are skipped, so the command is safe
to run repeatedly.

Examples:
  # Apply pending migrations
  coverctl migrate

  # Apply and verify the resulting schema
  coverctl migrate --verify`,
		RunE: runMigrate,
	}
	cmd.Flags().BoolVar(&migrateVerify, "verify", false, "Verify processing columns and indexes after migrating")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening partner store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if err := migrations.Apply(ctx, store); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	applied := len(migrations.All())
	if jsonOutput {
		printJSON(map[string]any{"migrations": applied, "status": "ok"})
	} else {
		okLabel.Printf("Schema is up to date (%d migrations)\n", applied)
	}

	if migrateVerify {
		return verifySchema(cmd)
	}
	return nil
}
