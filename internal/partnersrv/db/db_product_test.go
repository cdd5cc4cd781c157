package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

func testProduct(partnerID uuid.UUID, name string) *models.Product {
	return &models.Product{
		PartnerID:   partnerID,
		ProductName: name,
		Price:       129.99,
		Currency:    "EUR",
		InStock:     true,
		RawData:     []byte(`{"title":"` + name + `","source":"scraper"}`),
	}
}

func TestCreateProduct(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("stark-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "Arc Reactor")
	err := DB(ctx).CreateProduct(ctx, product)
	assert.NoError(t, err)

	// New products default to unprocessed / pending
	retrieved, err := DB(ctx).GetProduct(ctx, product.ProductID)
	assert.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.False(t, retrieved.Processed)
	assert.Equal(t, string(partnercommon.ProcessingStatusPending), retrieved.ProcessingStatus)
	assert.True(t, retrieved.InStock)

	// Raw payload round-trips through compression
	assert.Equal(t, product.RawData, retrieved.RawData)

	// Unknown partner violates the foreign key
	orphan := testProduct(uuid.New(), "Orphan")
	err = DB(ctx).CreateProduct(ctx, orphan)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidReference)

	// Missing currency is rejected before hitting the database
	bad := testProduct(partner.PartnerID, "No Currency")
	bad.Currency = ""
	err = DB(ctx).CreateProduct(ctx, bad)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestListUnprocessedProducts(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("oscorp-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	// Eligible: pending, priced, with currency
	eligible := testProduct(partner.PartnerID, "Eligible")
	require.NoError(t, DB(ctx).CreateProduct(ctx, eligible))

	// Ineligible: zero price
	free := testProduct(partner.PartnerID, "Free Sample")
	free.Price = 0
	require.NoError(t, DB(ctx).CreateProduct(ctx, free))

	// Ineligible: already completed
	done := testProduct(partner.PartnerID, "Done")
	require.NoError(t, DB(ctx).CreateProduct(ctx, done))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, done.ProductID))
	require.NoError(t, DB(ctx).MarkProductCompleted(ctx, done.ProductID))

	products, err := DB(ctx).ListUnprocessedProducts(ctx, partner.PartnerID, 0)
	assert.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, eligible.ProductID, products[0].ProductID)
}

func TestClaimNextProduct(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("tyrell-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	older := testProduct(partner.PartnerID, "Older")
	older.ScrapedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, DB(ctx).CreateProduct(ctx, older))

	newer := testProduct(partner.PartnerID, "Newer")
	newer.ScrapedAt = time.Now().UTC()
	require.NoError(t, DB(ctx).CreateProduct(ctx, newer))

	// Newest scrape is claimed first and moves to processing
	claimed, err := DB(ctx).ClaimNextProduct(ctx, partner.PartnerID)
	assert.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, newer.ProductID, claimed.ProductID)
	assert.Equal(t, string(partnercommon.ProcessingStatusProcessing), claimed.ProcessingStatus)
	assert.True(t, claimed.ProcessingStartedAt.Valid)

	// A second claim gets the remaining product, never the same one
	claimed2, err := DB(ctx).ClaimNextProduct(ctx, partner.PartnerID)
	assert.NoError(t, err)
	require.NotNil(t, claimed2)
	assert.Equal(t, older.ProductID, claimed2.ProductID)

	// Nothing left to claim
	_, err = DB(ctx).ClaimNextProduct(ctx, partner.PartnerID)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestMarkProductLifecycle(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("cyberdyne-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "T-800")
	require.NoError(t, DB(ctx).CreateProduct(ctx, product))

	// pending -> processing
	err := DB(ctx).MarkProductProcessing(ctx, product.ProductID)
	assert.NoError(t, err)

	// Re-claiming an in-flight product is rejected
	err = DB(ctx).MarkProductProcessing(ctx, product.ProductID)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyClaimed)

	// processing -> completed
	err = DB(ctx).MarkProductCompleted(ctx, product.ProductID)
	assert.NoError(t, err)

	retrieved, err := DB(ctx).GetProduct(ctx, product.ProductID)
	require.NoError(t, err)
	assert.True(t, retrieved.Processed)
	assert.Equal(t, string(partnercommon.ProcessingStatusCompleted), retrieved.ProcessingStatus)
	assert.True(t, retrieved.ProcessingCompletedAt.Valid)
	assert.False(t, retrieved.ProcessingError.Valid)

	// Failure path records the error and is terminal
	failing := testProduct(partner.PartnerID, "T-1000")
	require.NoError(t, DB(ctx).CreateProduct(ctx, failing))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, failing.ProductID))

	err = DB(ctx).MarkProductFailed(ctx, failing.ProductID, "generator timeout")
	assert.NoError(t, err)

	retrieved, err = DB(ctx).GetProduct(ctx, failing.ProductID)
	require.NoError(t, err)
	assert.False(t, retrieved.Processed)
	assert.Equal(t, string(partnercommon.ProcessingStatusFailed), retrieved.ProcessingStatus)
	assert.True(t, retrieved.ProcessingCompletedAt.Valid)
	assert.Equal(t, sql.NullString{String: "generator timeout", Valid: true}, retrieved.ProcessingError)

	// Failed products are not claimable again
	_, err = DB(ctx).ClaimNextProduct(ctx, partner.PartnerID)
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// Marking an unknown product returns ErrNotFound
	err = DB(ctx).MarkProductCompleted(ctx, uuid.New())
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestListProducts(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("weyland-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		p := testProduct(partner.PartnerID, name)
		p.ScrapedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, DB(ctx).CreateProduct(ctx, p))
	}

	// Newest scrape first
	products, err := DB(ctx).ListProducts(ctx, partner.PartnerID, "", 0)
	assert.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Gamma", products[0].ProductName)
	assert.Equal(t, "Alpha", products[2].ProductName)

	// Status filter
	products, err = DB(ctx).ListProducts(ctx, partner.PartnerID, string(partnercommon.ProcessingStatusPending), 2)
	assert.NoError(t, err)
	assert.Len(t, products, 2)

	// Invalid status is rejected
	_, err = DB(ctx).ListProducts(ctx, partner.PartnerID, "bogus", 0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestGetProcessingStats(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("massive-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	completed := testProduct(partner.PartnerID, "Completed")
	require.NoError(t, DB(ctx).CreateProduct(ctx, completed))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, completed.ProductID))
	require.NoError(t, DB(ctx).MarkProductCompleted(ctx, completed.ProductID))

	pending := testProduct(partner.PartnerID, "Pending")
	require.NoError(t, DB(ctx).CreateProduct(ctx, pending))

	failed := testProduct(partner.PartnerID, "Failed")
	require.NoError(t, DB(ctx).CreateProduct(ctx, failed))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, failed.ProductID))
	require.NoError(t, DB(ctx).MarkProductFailed(ctx, failed.ProductID, "boom"))

	pkg := testPackage(partner.PartnerID, completed.ProductID)
	pkg.Status = string(partnercommon.PackageStatusEligible)
	require.NoError(t, DB(ctx).CreatePackage(ctx, pkg))

	stats, err := DB(ctx).GetProcessingStats(ctx, partner.PartnerID)
	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Eligible)
	assert.InDelta(t, 1.0, stats.EligibleRate, 0.001)
}

func TestListRecentActivity(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ctx = newDb(t, ctx)
	defer DB(ctx).Close(ctx)

	partner := testPartner("aperture-" + uuid.New().String())
	require.NoError(t, DB(ctx).CreatePartner(ctx, partner))
	defer DB(ctx).DeletePartner(ctx, partner.PartnerID)

	product := testProduct(partner.PartnerID, "Portal Gun")
	require.NoError(t, DB(ctx).CreateProduct(ctx, product))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, product.ProductID))
	require.NoError(t, DB(ctx).MarkProductCompleted(ctx, product.ProductID))

	// Freshly scraped but never processed. Not activity.
	unprocessed := testProduct(partner.PartnerID, "Companion Cube")
	require.NoError(t, DB(ctx).CreateProduct(ctx, unprocessed))

	// Failed products are not processed either.
	failed := testProduct(partner.PartnerID, "Turret")
	require.NoError(t, DB(ctx).CreateProduct(ctx, failed))
	require.NoError(t, DB(ctx).MarkProductProcessing(ctx, failed.ProductID))
	require.NoError(t, DB(ctx).MarkProductFailed(ctx, failed.ProductID, "boom"))

	since := time.Now().UTC().Add(-time.Minute)
	activity, err := DB(ctx).ListRecentActivity(ctx, since, 10)
	assert.NoError(t, err)

	var foundCompleted, foundOther bool
	for _, p := range activity {
		switch p.ProductID {
		case product.ProductID:
			foundCompleted = true
		case unprocessed.ProductID, failed.ProductID:
			foundOther = true
		}
	}
	assert.True(t, foundCompleted, "recently completed product not in activity feed")
	assert.False(t, foundOther, "unprocessed product in activity feed")
}
