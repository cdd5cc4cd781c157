package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

func testPackage(partnerID, productID uuid.UUID) *models.InsurancePackage {
	return &models.InsurancePackage{
		PartnerID:      partnerID,
		ProductID:      uuid.NullUUID{UUID: productID, Valid: true},
		PackageName:    sql.NullString{String: "Device Protection", Valid: true},
		Guarantees:     pgtype.JSONB{Bytes: []byte(`{"theft": true, "breakage": true, "water_damage": false}`), Status: pgtype.Present},
		MonthlyPremium: sql.NullFloat64{Float64: 4.99, Valid: true},
		AIConfidence:   sql.NullFloat64{Float64: 0.95, Valid: true},
		CreatedBy:      sql.NullString{String: string(partnercommon.PackageCreatorAI), Valid: true},
	}
}

func TestCreatePackage(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("lexcorp-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "Smartwatch")
	require.NoError(t, DB(ctx).CreateProduct(ctx, product))

	pkg := testPackage(partner.PartnerID, product.ProductID)
	err := DB(ctx).CreatePackage(ctx, pkg)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, pkg.PackageID)
	assert.False(t, pkg.CreatedAt.IsZero())

	// Packages default to draft
	assert.Equal(t, string(partnercommon.PackageStatusDraft), pkg.Status)

	// Guarantees round-trip as JSON
	retrieved, err := DB(ctx).GetPackage(ctx, pkg.PackageID)
	require.NoError(t, err)
	var want, got map[string]any
	require.NoError(t, json.Unmarshal(pkg.Guarantees.Bytes, &want))
	require.NoError(t, json.Unmarshal(retrieved.Guarantees.Bytes, &got))
	assert.Equal(t, want, got)

	// Missing guarantees are rejected
	bad := testPackage(partner.PartnerID, product.ProductID)
	bad.Guarantees = pgtype.JSONB{Status: pgtype.Null}
	err = DB(ctx).CreatePackage(ctx, bad)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)

	// Confidence outside [0, 1] is rejected
	bad = testPackage(partner.PartnerID, product.ProductID)
	bad.AIConfidence = sql.NullFloat64{Float64: 1.5, Valid: true}
	err = DB(ctx).CreatePackage(ctx, bad)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrValueOutOfRange)

	// Unknown partner violates the foreign key
	bad = testPackage(uuid.New(), product.ProductID)
	err = DB(ctx).CreatePackage(ctx, bad)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidReference)

	// ProductID is optional: manually drafted packages have none
	manual := testPackage(partner.PartnerID, uuid.Nil)
	manual.ProductID = uuid.NullUUID{}
	manual.CreatedBy = sql.NullString{String: string(partnercommon.PackageCreatorHuman), Valid: true}
	err = DB(ctx).CreatePackage(ctx, manual)
	assert.NoError(t, err)
}

func TestListPackages(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("vandelay-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "Latex Gloves")
	require.NoError(t, DB(ctx).CreateProduct(ctx, product))

	eligible := testPackage(partner.PartnerID, product.ProductID)
	eligible.Status = string(partnercommon.PackageStatusEligible)
	require.NoError(t, DB(ctx).CreatePackage(ctx, eligible))

	notEligible := testPackage(partner.PartnerID, product.ProductID)
	notEligible.Status = string(partnercommon.PackageStatusNotEligible)
	notEligible.AIConfidence = sql.NullFloat64{Float64: 0.0, Valid: true}
	require.NoError(t, DB(ctx).CreatePackage(ctx, notEligible))

	// All packages for the partner
	packages, err := DB(ctx).ListPackages(ctx, partner.PartnerID, "")
	assert.NoError(t, err)
	assert.Len(t, packages, 2)

	// Eligible only
	packages, err = DB(ctx).ListEligiblePackages(ctx, partner.PartnerID)
	assert.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, eligible.PackageID, packages[0].PackageID)
}

func TestApprovePackage(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("duff-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "Beer Fridge")
	require.NoError(t, DB(ctx).CreateProduct(ctx, product))

	pkg := testPackage(partner.PartnerID, product.ProductID)
	pkg.Status = string(partnercommon.PackageStatusEligible)
	require.NoError(t, DB(ctx).CreatePackage(ctx, pkg))

	approver := uuid.New()
	err := DB(ctx).ApprovePackage(ctx, pkg.PackageID, approver)
	assert.NoError(t, err)

	retrieved, err := DB(ctx).GetPackage(ctx, pkg.PackageID)
	require.NoError(t, err)
	assert.Equal(t, string(partnercommon.PackageStatusApproved), retrieved.Status)
	assert.True(t, retrieved.ApprovedBy.Valid)
	assert.Equal(t, approver, retrieved.ApprovedBy.UUID)
	assert.True(t, retrieved.ApprovedAt.Valid)

	// Approving twice fails: the package is no longer eligible
	err = DB(ctx).ApprovePackage(ctx, pkg.PackageID, approver)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)

	// Draft packages cannot be approved
	draft := testPackage(partner.PartnerID, product.ProductID)
	require.NoError(t, DB(ctx).CreatePackage(ctx, draft))
	err = DB(ctx).ApprovePackage(ctx, draft.PackageID, approver)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)

	// Unknown package returns ErrNotFound
	err = DB(ctx).ApprovePackage(ctx, uuid.New(), approver)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestListProductsWithPackages(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("soylent-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "Meal Bar")
	require.NoError(t, DB(ctx).CreateProduct(ctx, product))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, product.ProductID))
	require.NoError(t, DB(ctx).MarkProductCompleted(ctx, product.ProductID))

	pkg := testPackage(partner.PartnerID, product.ProductID)
	pkg.Status = string(partnercommon.PackageStatusEligible)
	require.NoError(t, DB(ctx).CreatePackage(ctx, pkg))

	// An unprocessed product with a package must not appear
	unprocessed := testProduct(partner.PartnerID, "Prototype Bar")
	require.NoError(t, DB(ctx).CreateProduct(ctx, unprocessed))
	orphanPkg := testPackage(partner.PartnerID, unprocessed.ProductID)
	require.NoError(t, DB(ctx).CreatePackage(ctx, orphanPkg))

	rows, err := DB(ctx).ListProductsWithPackages(ctx, partner.PartnerID, 0)
	assert.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, product.ProductID, rows[0].Product.ProductID)
	assert.Equal(t, pkg.PackageID, rows[0].Package.PackageID)
}
