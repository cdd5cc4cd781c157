package models

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

// InsurancePackage is a bundle of guarantees and premium terms offered for a
// partner's product. Packages start as drafts or AI output and move through an
// approval workflow; ApprovedBy records the operator who approved it.
type InsurancePackage struct {
	PackageID uuid.UUID     `db:"package_id"`
	PartnerID uuid.UUID     `db:"partner_id"`
	ProductID uuid.NullUUID `db:"product_id"`

	PackageName    sql.NullString  `db:"package_name"`
	Guarantees     pgtype.JSONB    `db:"guarantees"`
	MonthlyPremium sql.NullFloat64 `db:"monthly_premium"`
	Status         string          `db:"status"`
	AIConfidence   sql.NullFloat64 `db:"ai_confidence"`
	CreatedBy      sql.NullString  `db:"created_by"`
	ApprovedBy     uuid.NullUUID   `db:"approved_by"`
	ApprovedAt     sql.NullTime    `db:"approved_at"`
	CreatedAt      time.Time       `db:"created_at"`
}

// ProductWithPackage pairs a processed product with the insurance package
// generated for it.
type ProductWithPackage struct {
	Product Product
	Package InsurancePackage
}
