package postgresql

import (
	"context"
	"strconv"
	"time"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
)

// GetProcessingStats aggregates pipeline progress over the products table and
// counts eligible packages. EligibleRate is eligible packages per processed
// product; zero when nothing has been processed yet.
func (pm *productManager) GetProcessingStats(ctx context.Context, partnerID uuid.UUID) (*models.ProcessingStats, apperrors.Error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE processed = TRUE),
			COUNT(*) FILTER (WHERE processing_status = 'pending'),
			COUNT(*) FILTER (WHERE processing_status = 'processing'),
			COUNT(*) FILTER (WHERE processing_status = 'failed')
		FROM products`
	args := []any{}
	if partnerID != uuid.Nil {
		args = append(args, partnerID)
		query += ` WHERE partner_id = $1`
	}

	var stats models.ProcessingStats
	err := pm.conn().QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalProducts, &stats.Processed, &stats.Pending, &stats.Processing, &stats.Failed,
	)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	eligibleQuery := `SELECT COUNT(*) FROM insurance_packages WHERE status = 'eligible'`
	eligibleArgs := []any{}
	if partnerID != uuid.Nil {
		eligibleArgs = append(eligibleArgs, partnerID)
		eligibleQuery += ` AND partner_id = $1`
	}
	if err := pm.conn().QueryRowContext(ctx, eligibleQuery, eligibleArgs...).Scan(&stats.Eligible); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	if stats.Processed > 0 {
		stats.EligibleRate = float64(stats.Eligible) / float64(stats.Processed)
	}

	return &stats, nil
}

// ListRecentActivity returns products whose processing finished since the
// given time, most recent first. Unprocessed products are excluded.
func (pm *productManager) ListRecentActivity(ctx context.Context, since time.Time, limit int) ([]*models.Product, apperrors.Error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE processed = TRUE
		  AND processing_completed_at >= $1
		ORDER BY processing_completed_at DESC`
	args := []any{since}

	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	return pm.queryProducts(ctx, query, args...)
}
