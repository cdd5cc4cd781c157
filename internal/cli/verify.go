package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coverlane/coverlane/internal/partnersrv/db/migrations"
)

func newVerifySchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-schema",
		Short: "Verify the processing columns and indexes on the products table",
		Long: `Verify that the processing-status columns and their indexes exist on the
products table. Reports anything missing and exits non-zero.

Examples:
  # Verify the schema
  coverctl verify-schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifySchema(cmd)
		},
	}
}

func verifySchema(cmd *cobra.Command) error {
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening partner store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	missingColumns, err := migrations.VerifyProcessingColumns(ctx, store)
	if err != nil {
		return fmt.Errorf("verifying columns: %w", err)
	}
	missingIndexes, err := migrations.VerifyIndexes(ctx, store)
	if err != nil {
		return fmt.Errorf("verifying indexes: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]any{
			"missing_columns": missingColumns,
			"missing_indexes": missingIndexes,
			"ok":              len(missingColumns) == 0 && len(missingIndexes) == 0,
		})
	} else {
		for _, c := range missingColumns {
			errorLabel.Printf("missing column: %s\n", c)
		}
		for _, i := range missingIndexes {
			errorLabel.Printf("missing index: %s\n", i)
		}
		if len(missingColumns) == 0 && len(missingIndexes) == 0 {
			okLabel.Println("Schema verified: all processing columns and indexes present")
		}
	}

	if len(missingColumns) > 0 || len(missingIndexes) > 0 {
		return fmt.Errorf("schema verification failed")
	}
	return nil
}
