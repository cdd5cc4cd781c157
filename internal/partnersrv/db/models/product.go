package models

import (
	"database/sql"
	"time"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

// Product is one scraped marketplace item owned by a partner. The processing
// sub-record (Processed, ProcessingStatus, timestamps, error) is written by the
// package generation worker.
type Product struct {
	ProductID   uuid.UUID `db:"product_id"`
	PartnerID   uuid.UUID `db:"partner_id"`
	ProductName string    `db:"product_name"`

	Description   sql.NullString `db:"description"`
	Category      sql.NullString `db:"category"`
	Brand         sql.NullString `db:"brand"`
	Price         float64        `db:"price"`
	Currency      string         `db:"currency"`
	ProductURL    sql.NullString `db:"product_url"`
	ImageURL      sql.NullString `db:"image_url"`
	SourceWebsite sql.NullString `db:"source_website"`
	InStock       bool           `db:"in_stock"`
	ScrapedAt     time.Time      `db:"scraped_at"`

	// RawData holds the scraped payload, snappy-compressed at rest.
	RawData []byte `db:"raw_data"`

	Processed             bool           `db:"processed"`
	ProcessingStatus      string         `db:"processing_status"`
	ProcessingStartedAt   sql.NullTime   `db:"processing_started_at"`
	ProcessingCompletedAt sql.NullTime   `db:"processing_completed_at"`
	ProcessingError       sql.NullString `db:"processing_error"`
}

// ProcessingStats aggregates pipeline progress over the products table.
type ProcessingStats struct {
	TotalProducts int64   `json:"total_products"`
	Processed     int64   `json:"processed"`
	Pending       int64   `json:"pending"`
	Processing    int64   `json:"processing"`
	Failed        int64   `json:"failed"`
	Eligible      int64   `json:"eligible"`
	EligibleRate  float64 `json:"eligible_rate"`
}
