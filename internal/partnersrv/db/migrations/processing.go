package migrations

import (
	"context"
	"database/sql"
)

// productProcessing adds the processing sub-record to products plus the
// indexes the worker's claim queries rely on. All statements carry
// IF NOT EXISTS guards so re-running the migration is error-free.
type productProcessing struct{}

func (m *productProcessing) Name() string {
	return "002_product_processing"
}

func (m *productProcessing) Up(ctx context.Context, tx *sql.Tx) error {
	query := `
		ALTER TABLE products ADD COLUMN IF NOT EXISTS processed BOOLEAN DEFAULT FALSE;
		ALTER TABLE products ADD COLUMN IF NOT EXISTS processing_status VARCHAR(50) DEFAULT 'pending';
		ALTER TABLE products ADD COLUMN IF NOT EXISTS processing_started_at TIMESTAMP;
		ALTER TABLE products ADD COLUMN IF NOT EXISTS processing_completed_at TIMESTAMP;
		ALTER TABLE products ADD COLUMN IF NOT EXISTS processing_error TEXT;

		CREATE INDEX IF NOT EXISTS idx_products_processed
			ON products(processed);
		CREATE INDEX IF NOT EXISTS idx_products_processing_status
			ON products(processing_status);
		CREATE INDEX IF NOT EXISTS idx_products_partner_processed
			ON products(partner_id, processed);
		CREATE INDEX IF NOT EXISTS idx_products_partner_processing_status
			ON products(partner_id, processing_status);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}
