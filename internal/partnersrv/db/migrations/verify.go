package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// processingColumns are the columns the product processing migration adds.
var processingColumns = []string{
	"processed",
	"processing_status",
	"processing_started_at",
	"processing_completed_at",
	"processing_error",
}

// VerifyProcessingColumns checks information_schema.columns for the processing
// sub-record on products. Returns the names of any missing columns; an empty
// slice means the migration is fully applied.
func VerifyProcessingColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = 'products'
		  AND column_name = ANY($1)
	`

	rows, err := db.QueryContext(ctx, query, pq.Array(processingColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query information_schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(processingColumns))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, col := range processingColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

// VerifyIndexes checks pg_indexes for the processing indexes on products.
// Returns the names of any missing indexes.
func VerifyIndexes(ctx context.Context, db *sql.DB) ([]string, error) {
	expected := []string{
		"idx_products_processed",
		"idx_products_processing_status",
		"idx_products_partner_processed",
		"idx_products_partner_processing_status",
	}

	query := `
		SELECT indexname
		FROM pg_indexes
		WHERE tablename = 'products'
		  AND indexname = ANY($1)
	`

	rows, err := db.QueryContext(ctx, query, pq.Array(expected))
	if err != nil {
		return nil, fmt.Errorf("failed to query pg_indexes: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(expected))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan index name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, idx := range expected {
		if !present[idx] {
			missing = append(missing, idx)
		}
	}
	return missing, nil
}
