package migrations

import (
	"context"
	"database/sql"
)

// baseSchema creates the three core tables. Partner deletion cascades to both
// products and insurance packages.
type baseSchema struct{}

func (m *baseSchema) Name() string {
	return "001_base_schema"
}

func (m *baseSchema) Up(ctx context.Context, tx *sql.Tx) error {
	query := `
		CREATE TABLE IF NOT EXISTS partners (
			partner_id UUID PRIMARY KEY,
			company_name VARCHAR(255) NOT NULL,
			website_url VARCHAR(500) NOT NULL,
			country VARCHAR(10) NOT NULL,
			status VARCHAR(50) DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS products (
			product_id UUID PRIMARY KEY,
			partner_id UUID NOT NULL REFERENCES partners(partner_id) ON DELETE CASCADE,
			product_name VARCHAR(500) NOT NULL,
			description TEXT,
			category VARCHAR(255),
			brand VARCHAR(255),
			price NUMERIC(10, 2) NOT NULL DEFAULT 0.0,
			currency VARCHAR(10) NOT NULL,
			product_url TEXT,
			image_url TEXT,
			source_website VARCHAR(255),
			in_stock BOOLEAN DEFAULT TRUE,
			scraped_at TIMESTAMP DEFAULT now(),
			raw_data BYTEA
		);

		CREATE TABLE IF NOT EXISTS insurance_packages (
			package_id UUID PRIMARY KEY,
			partner_id UUID NOT NULL REFERENCES partners(partner_id) ON DELETE CASCADE,
			product_id UUID REFERENCES products(product_id) ON DELETE CASCADE,
			package_name VARCHAR(255),
			guarantees JSONB NOT NULL,
			monthly_premium NUMERIC(10, 2),
			status VARCHAR(50) DEFAULT 'draft',
			ai_confidence NUMERIC(3, 2),
			created_by VARCHAR(50),
			approved_by UUID,
			approved_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT now()
		);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}
