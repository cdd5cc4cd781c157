package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

func (pm *partnerManager) CreatePartner(ctx context.Context, partner *models.Partner) apperrors.Error {
	if partner.PartnerID == uuid.Nil {
		partner.PartnerID = uuid.New()
	}
	if partner.CompanyName == "" {
		return dberror.ErrInvalidInput.Msg("company name is required")
	}
	if partner.WebsiteURL == "" {
		return dberror.ErrInvalidInput.Msg("website url is required")
	}
	if partner.Country == "" {
		return dberror.ErrInvalidInput.Msg("country is required")
	}
	if partner.Status == "" {
		partner.Status = string(partnercommon.PartnerStatusPending)
	}

	query := `
		INSERT INTO partners (partner_id, company_name, website_url, country, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING partner_id, created_at
	`

	err := pm.conn().QueryRowContext(ctx, query,
		partner.PartnerID,
		partner.CompanyName,
		partner.WebsiteURL,
		partner.Country,
		partner.Status,
	).Scan(&partner.PartnerID, &partner.CreatedAt)

	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped.Msg("unable to create partner")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert partner")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

func (pm *partnerManager) GetPartner(ctx context.Context, partnerID uuid.UUID) (*models.Partner, apperrors.Error) {
	query := `
		SELECT partner_id, company_name, website_url, country, status, created_at
		FROM partners
		WHERE partner_id = $1
	`

	var partner models.Partner
	err := pm.conn().QueryRowContext(ctx, query, partnerID).
		Scan(&partner.PartnerID, &partner.CompanyName, &partner.WebsiteURL, &partner.Country, &partner.Status, &partner.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("partner not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	return &partner, nil
}

func (pm *partnerManager) GetPartnerByName(ctx context.Context, companyName string) (*models.Partner, apperrors.Error) {
	if companyName == "" {
		return nil, dberror.ErrInvalidInput.Msg("company name is required")
	}

	query := `
		SELECT partner_id, company_name, website_url, country, status, created_at
		FROM partners
		WHERE company_name = $1
	`

	var partner models.Partner
	err := pm.conn().QueryRowContext(ctx, query, companyName).
		Scan(&partner.PartnerID, &partner.CompanyName, &partner.WebsiteURL, &partner.Country, &partner.Status, &partner.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("partner not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	return &partner, nil
}

// GetOrCreatePartner returns the partner with the given company name, creating
// it first if it does not exist. New partners created through ingestion are
// active immediately.
func (pm *partnerManager) GetOrCreatePartner(ctx context.Context, partner *models.Partner) (*models.Partner, apperrors.Error) {
	existing, err := pm.GetPartnerByName(ctx, partner.CompanyName)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	if partner.Status == "" {
		partner.Status = string(partnercommon.PartnerStatusActive)
	}
	if err := pm.CreatePartner(ctx, partner); err != nil {
		// Lost a race with a concurrent insert; fetch the winner.
		if isAlreadyExists(err) {
			return pm.GetPartnerByName(ctx, partner.CompanyName)
		}
		return nil, err
	}
	return partner, nil
}

func (pm *partnerManager) ListPartners(ctx context.Context) ([]*models.Partner, apperrors.Error) {
	query := `
		SELECT partner_id, company_name, website_url, country, status, created_at
		FROM partners
		ORDER BY created_at DESC
	`

	rows, err := pm.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.Partner
	for rows.Next() {
		var partner models.Partner
		err := rows.Scan(&partner.PartnerID, &partner.CompanyName, &partner.WebsiteURL, &partner.Country, &partner.Status, &partner.CreatedAt)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan partner row")
			return nil, dberror.ErrDatabase.Err(err)
		}
		result = append(result, &partner)
	}

	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	return result, nil
}

func (pm *partnerManager) UpdatePartnerStatus(ctx context.Context, partnerID uuid.UUID, status string) apperrors.Error {
	query := `
		UPDATE partners
		SET status = $2
		WHERE partner_id = $1
	`

	result, err := pm.conn().ExecContext(ctx, query, partnerID, status)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to update partner status")
		return dberror.ErrDatabase.Err(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("partner not found")
	}

	return nil
}

// DeletePartner removes the partner row. Products and insurance packages owned
// by the partner are removed by the schema's ON DELETE CASCADE.
func (pm *partnerManager) DeletePartner(ctx context.Context, partnerID uuid.UUID) apperrors.Error {
	query := `
		DELETE FROM partners
		WHERE partner_id = $1
	`

	result, err := pm.conn().ExecContext(ctx, query, partnerID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rowsAffected == 0 {
		return dberror.ErrNotFound.Msg("partner not found")
	}

	return nil
}
