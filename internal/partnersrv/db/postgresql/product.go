package postgresql

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/golang/snappy"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/common/uuid"
	dbconfig "github.com/coverlane/coverlane/internal/partnersrv/db/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

const productColumns = `
	product_id, partner_id, product_name, description, category, brand,
	price, currency, product_url, image_url, source_website, in_stock,
	scraped_at, raw_data, processed, processing_status,
	processing_started_at, processing_completed_at, processing_error
`

func compressRawData(data []byte) []byte {
	if !dbconfig.CompressRawPayloads || len(data) == 0 {
		return data
	}
	return snappy.Encode(nil, data)
}

func decompressRawData(ctx context.Context, data []byte) []byte {
	if !dbconfig.CompressRawPayloads || len(data) == 0 {
		return data
	}
	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to decompress product raw data")
		return data
	}
	return decoded
}

func scanProduct(ctx context.Context, row interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ProductID, &p.PartnerID, &p.ProductName, &p.Description, &p.Category, &p.Brand,
		&p.Price, &p.Currency, &p.ProductURL, &p.ImageURL, &p.SourceWebsite, &p.InStock,
		&p.ScrapedAt, &p.RawData, &p.Processed, &p.ProcessingStatus,
		&p.ProcessingStartedAt, &p.ProcessingCompletedAt, &p.ProcessingError,
	)
	if err != nil {
		return nil, err
	}
	p.RawData = decompressRawData(ctx, p.RawData)
	return &p, nil
}

func (pm *productManager) CreateProduct(ctx context.Context, product *models.Product) apperrors.Error {
	if product.ProductID == uuid.Nil {
		product.ProductID = uuid.New()
	}
	if product.PartnerID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("partner id is required")
	}
	if product.ProductName == "" {
		return dberror.ErrInvalidInput.Msg("product name is required")
	}
	if product.Currency == "" {
		return dberror.ErrInvalidInput.Msg("currency is required")
	}
	if product.Price < 0 {
		return dberror.ErrInvalidInput.Msg("price cannot be negative")
	}
	if product.ScrapedAt.IsZero() {
		product.ScrapedAt = time.Now().UTC()
	}
	if product.ProcessingStatus == "" {
		product.ProcessingStatus = string(partnercommon.ProcessingStatusPending)
	}

	query := `
		INSERT INTO products
			(product_id, partner_id, product_name, description, category, brand,
			 price, currency, product_url, image_url, source_website, in_stock,
			 scraped_at, raw_data, processed, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := pm.conn().ExecContext(ctx, query,
		product.ProductID, product.PartnerID, product.ProductName,
		product.Description, product.Category, product.Brand,
		product.Price, product.Currency, product.ProductURL,
		product.ImageURL, product.SourceWebsite, product.InStock,
		product.ScrapedAt, compressRawData(product.RawData),
		product.Processed, product.ProcessingStatus,
	)

	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped.Msg("unable to create product")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert product")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

func (pm *productManager) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, apperrors.Error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`

	product, err := scanProduct(ctx, pm.conn().QueryRowContext(ctx, query, productID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("product not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	return product, nil
}

// ListProducts returns products for a partner, newest scrape first. A zero
// partnerID lists across all partners; an empty processingStatus skips the
// status filter; limit <= 0 means no limit.
func (pm *productManager) ListProducts(ctx context.Context, partnerID uuid.UUID, processingStatus string, limit int) ([]*models.Product, apperrors.Error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}

	if partnerID != uuid.Nil {
		args = append(args, partnerID)
		query += ` AND partner_id = $1`
	}
	if processingStatus != "" {
		if !partnercommon.IsValidProcessingStatus(processingStatus) {
			return nil, dberror.ErrInvalidInput.Msg("invalid processing status")
		}
		args = append(args, processingStatus)
		query += ` AND processing_status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY scraped_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	return pm.queryProducts(ctx, query, args...)
}

// ListUnprocessedProducts returns products eligible for package generation:
// unprocessed, pending, priced above zero and carrying a currency.
func (pm *productManager) ListUnprocessedProducts(ctx context.Context, partnerID uuid.UUID, limit int) ([]*models.Product, apperrors.Error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE processed = FALSE
		  AND processing_status = 'pending'
		  AND price > 0
		  AND currency IS NOT NULL`
	args := []any{}

	if partnerID != uuid.Nil {
		args = append(args, partnerID)
		query += ` AND partner_id = $1`
	}
	query += ` ORDER BY scraped_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	return pm.queryProducts(ctx, query, args...)
}

// ClaimNextProduct atomically moves the newest eligible product to
// 'processing' and returns it. SKIP LOCKED keeps concurrent workers from
// claiming the same row. Returns ErrNotFound when nothing is claimable.
func (pm *productManager) ClaimNextProduct(ctx context.Context, partnerID uuid.UUID) (*models.Product, apperrors.Error) {
	tx, err := pm.conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer tx.Rollback()

	query := `
		SELECT product_id
		FROM products
		WHERE processed = FALSE
		  AND processing_status = 'pending'
		  AND price > 0
		  AND currency IS NOT NULL`
	args := []any{}
	if partnerID != uuid.Nil {
		args = append(args, partnerID)
		query += ` AND partner_id = $1`
	}
	query += `
		ORDER BY scraped_at DESC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	var productID uuid.UUID
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&productID); err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("no claimable products")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	update := `
		UPDATE products
		SET processing_status = 'processing',
		    processing_started_at = NOW(),
		    processing_error = NULL
		WHERE product_id = $1
		RETURNING ` + productColumns

	product, err := scanProduct(ctx, tx.QueryRowContext(ctx, update, productID))
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return product, nil
}

// MarkProductProcessing transitions a pending product to 'processing'. Returns
// ErrAlreadyClaimed if the product is no longer pending.
func (pm *productManager) MarkProductProcessing(ctx context.Context, productID uuid.UUID) apperrors.Error {
	query := `
		UPDATE products
		SET processing_status = 'processing',
		    processing_started_at = NOW(),
		    processing_error = NULL
		WHERE product_id = $1
		  AND processing_status = 'pending'
	`

	result, err := pm.conn().ExecContext(ctx, query, productID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		if _, gerr := pm.GetProduct(ctx, productID); gerr != nil {
			return gerr
		}
		return dberror.ErrAlreadyClaimed.Msg("product is not pending")
	}
	return nil
}

func (pm *productManager) MarkProductCompleted(ctx context.Context, productID uuid.UUID) apperrors.Error {
	query := `
		UPDATE products
		SET processed = TRUE,
		    processing_status = 'completed',
		    processing_completed_at = NOW(),
		    processing_error = NULL
		WHERE product_id = $1
	`

	result, err := pm.conn().ExecContext(ctx, query, productID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("product not found")
	}
	return nil
}

// MarkProductFailed records a terminal failure. The processed flag stays
// false: failed products do not count toward processing stats, and the claim
// query already skips them because their status is no longer 'pending'. The
// error text is kept for operators.
func (pm *productManager) MarkProductFailed(ctx context.Context, productID uuid.UUID, errMsg string) apperrors.Error {
	query := `
		UPDATE products
		SET processing_status = 'failed',
		    processing_completed_at = NOW(),
		    processing_error = $2
		WHERE product_id = $1
	`

	result, err := pm.conn().ExecContext(ctx, query, productID, errMsg)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("product not found")
	}
	return nil
}

func (pm *productManager) DeleteProduct(ctx context.Context, productID uuid.UUID) apperrors.Error {
	query := `DELETE FROM products WHERE product_id = $1`

	result, err := pm.conn().ExecContext(ctx, query, productID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("product not found")
	}
	return nil
}

func (pm *productManager) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, apperrors.Error) {
	rows, err := pm.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.Product
	for rows.Next() {
		product, err := scanProduct(ctx, rows)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan product row")
			return nil, dberror.ErrDatabase.Err(err)
		}
		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return result, nil
}
