package postgresql

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

const packageColumns = `
	package_id, partner_id, product_id, package_name, guarantees,
	monthly_premium, status, ai_confidence, created_by, approved_by,
	approved_at, created_at
`

func scanPackage(row interface{ Scan(...any) error }) (*models.InsurancePackage, error) {
	var p models.InsurancePackage
	err := row.Scan(
		&p.PackageID, &p.PartnerID, &p.ProductID, &p.PackageName, &p.Guarantees,
		&p.MonthlyPremium, &p.Status, &p.AIConfidence, &p.CreatedBy, &p.ApprovedBy,
		&p.ApprovedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (pm *packageManager) CreatePackage(ctx context.Context, pkg *models.InsurancePackage) apperrors.Error {
	if pkg.PackageID == uuid.Nil {
		pkg.PackageID = uuid.New()
	}
	if pkg.PartnerID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("partner id is required")
	}
	if pkg.Guarantees.Status != pgtype.Present || len(pkg.Guarantees.Bytes) == 0 {
		return dberror.ErrInvalidInput.Msg("guarantees are required")
	}
	if pkg.Status == "" {
		pkg.Status = string(partnercommon.PackageStatusDraft)
	}
	if pkg.AIConfidence.Valid && (pkg.AIConfidence.Float64 < 0 || pkg.AIConfidence.Float64 > 1) {
		return dberror.ErrValueOutOfRange.Msg("ai confidence must be between 0 and 1")
	}

	query := `
		INSERT INTO insurance_packages
			(package_id, partner_id, product_id, package_name, guarantees,
			 monthly_premium, status, ai_confidence, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := pm.conn().QueryRowContext(ctx, query,
		pkg.PackageID, pkg.PartnerID, pkg.ProductID, pkg.PackageName,
		pkg.Guarantees, pkg.MonthlyPremium, pkg.Status,
		pkg.AIConfidence, pkg.CreatedBy,
	).Scan(&pkg.CreatedAt)

	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped.Msg("unable to create insurance package")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert insurance package")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

func (pm *packageManager) GetPackage(ctx context.Context, packageID uuid.UUID) (*models.InsurancePackage, apperrors.Error) {
	query := `SELECT ` + packageColumns + ` FROM insurance_packages WHERE package_id = $1`

	pkg, err := scanPackage(pm.conn().QueryRowContext(ctx, query, packageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("insurance package not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	return pkg, nil
}

// ListPackages returns packages newest first. A zero partnerID lists across
// all partners; an empty status skips the status filter.
func (pm *packageManager) ListPackages(ctx context.Context, partnerID uuid.UUID, status string) ([]*models.InsurancePackage, apperrors.Error) {
	query := `SELECT ` + packageColumns + ` FROM insurance_packages WHERE 1=1`
	args := []any{}

	if partnerID != uuid.Nil {
		args = append(args, partnerID)
		query += ` AND partner_id = $1`
	}
	if status != "" {
		args = append(args, status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	return pm.queryPackages(ctx, query, args...)
}

func (pm *packageManager) ListEligiblePackages(ctx context.Context, partnerID uuid.UUID) ([]*models.InsurancePackage, apperrors.Error) {
	return pm.ListPackages(ctx, partnerID, string(partnercommon.PackageStatusEligible))
}

// ListProductsWithPackages joins processed products to the packages generated
// for them, newest completion first.
func (pm *packageManager) ListProductsWithPackages(ctx context.Context, partnerID uuid.UUID, limit int) ([]*models.ProductWithPackage, apperrors.Error) {
	query := `
		SELECT
			p.product_id, p.partner_id, p.product_name, p.description, p.category, p.brand,
			p.price, p.currency, p.product_url, p.image_url, p.source_website, p.in_stock,
			p.scraped_at, p.raw_data, p.processed, p.processing_status,
			p.processing_started_at, p.processing_completed_at, p.processing_error,
			ip.package_id, ip.partner_id, ip.product_id, ip.package_name, ip.guarantees,
			ip.monthly_premium, ip.status, ip.ai_confidence, ip.created_by, ip.approved_by,
			ip.approved_at, ip.created_at
		FROM products p
		JOIN insurance_packages ip ON ip.product_id = p.product_id
		WHERE p.processed = TRUE`
	args := []any{}

	if partnerID != uuid.Nil {
		args = append(args, partnerID)
		query += ` AND p.partner_id = $1`
	}
	query += ` ORDER BY p.processing_completed_at DESC NULLS LAST`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := pm.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.ProductWithPackage
	for rows.Next() {
		var pw models.ProductWithPackage
		err := rows.Scan(
			&pw.Product.ProductID, &pw.Product.PartnerID, &pw.Product.ProductName,
			&pw.Product.Description, &pw.Product.Category, &pw.Product.Brand,
			&pw.Product.Price, &pw.Product.Currency, &pw.Product.ProductURL,
			&pw.Product.ImageURL, &pw.Product.SourceWebsite, &pw.Product.InStock,
			&pw.Product.ScrapedAt, &pw.Product.RawData, &pw.Product.Processed,
			&pw.Product.ProcessingStatus, &pw.Product.ProcessingStartedAt,
			&pw.Product.ProcessingCompletedAt, &pw.Product.ProcessingError,
			&pw.Package.PackageID, &pw.Package.PartnerID, &pw.Package.ProductID,
			&pw.Package.PackageName, &pw.Package.Guarantees, &pw.Package.MonthlyPremium,
			&pw.Package.Status, &pw.Package.AIConfidence, &pw.Package.CreatedBy,
			&pw.Package.ApprovedBy, &pw.Package.ApprovedAt, &pw.Package.CreatedAt,
		)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan product/package row")
			return nil, dberror.ErrDatabase.Err(err)
		}
		pw.Product.RawData = decompressRawData(ctx, pw.Product.RawData)
		result = append(result, &pw)
	}

	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return result, nil
}

// ApprovePackage marks an eligible package approved and records the approver.
// Only packages in 'eligible' status can be approved.
func (pm *packageManager) ApprovePackage(ctx context.Context, packageID uuid.UUID, approvedBy uuid.UUID) apperrors.Error {
	if approvedBy == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("approver id is required")
	}

	query := `
		UPDATE insurance_packages
		SET status = 'approved',
		    approved_by = $2,
		    approved_at = NOW()
		WHERE package_id = $1
		  AND status = 'eligible'
	`

	result, err := pm.conn().ExecContext(ctx, query, packageID, approvedBy)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped.Msg("unable to approve insurance package")
		}
		return dberror.ErrDatabase.Err(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		if _, gerr := pm.GetPackage(ctx, packageID); gerr != nil {
			return gerr
		}
		return dberror.ErrInvalidInput.Msg("package is not eligible for approval")
	}

	return nil
}

func (pm *packageManager) DeletePackage(ctx context.Context, packageID uuid.UUID) apperrors.Error {
	query := `DELETE FROM insurance_packages WHERE package_id = $1`

	result, err := pm.conn().ExecContext(ctx, query, packageID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("insurance package not found")
	}
	return nil
}

func (pm *packageManager) queryPackages(ctx context.Context, query string, args ...any) ([]*models.InsurancePackage, apperrors.Error) {
	rows, err := pm.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.InsurancePackage
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan insurance package row")
			return nil, dberror.ErrDatabase.Err(err)
		}
		result = append(result, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return result, nil
}
