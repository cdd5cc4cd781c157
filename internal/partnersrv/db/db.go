// Package db provides the database interfaces and implementations for the
// partner service. It defines four interfaces:
// - PartnerManager: partner organizations
// - ProductManager: scraped products and their processing sub-record
// - PackageManager: insurance packages and the approval workflow
// - ConnectionManager: database connection lifecycle
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dbmanager"
	"github.com/coverlane/coverlane/internal/partnersrv/db/models"
	"github.com/coverlane/coverlane/internal/partnersrv/db/postgresql"
)

// PartnerManager handles partner organization rows.
// All operations require a valid context and may return apperrors.Error.
type PartnerManager interface {
	CreatePartner(ctx context.Context, partner *models.Partner) apperrors.Error
	GetPartner(ctx context.Context, partnerID uuid.UUID) (*models.Partner, apperrors.Error)
	GetPartnerByName(ctx context.Context, companyName string) (*models.Partner, apperrors.Error)
	GetOrCreatePartner(ctx context.Context, partner *models.Partner) (*models.Partner, apperrors.Error)
	ListPartners(ctx context.Context) ([]*models.Partner, apperrors.Error)
	UpdatePartnerStatus(ctx context.Context, partnerID uuid.UUID, status string) apperrors.Error
	DeletePartner(ctx context.Context, partnerID uuid.UUID) apperrors.Error
}

// ProductManager handles product rows and the processing lifecycle recorded on
// them. Claiming is atomic: concurrent workers never receive the same product.
type ProductManager interface {
	CreateProduct(ctx context.Context, product *models.Product) apperrors.Error
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, apperrors.Error)
	ListProducts(ctx context.Context, partnerID uuid.UUID, processingStatus string, limit int) ([]*models.Product, apperrors.Error)
	ListUnprocessedProducts(ctx context.Context, partnerID uuid.UUID, limit int) ([]*models.Product, apperrors.Error)
	ClaimNextProduct(ctx context.Context, partnerID uuid.UUID) (*models.Product, apperrors.Error)
	MarkProductProcessing(ctx context.Context, productID uuid.UUID) apperrors.Error
	MarkProductCompleted(ctx context.Context, productID uuid.UUID) apperrors.Error
	MarkProductFailed(ctx context.Context, productID uuid.UUID, errMsg string) apperrors.Error
	GetProcessingStats(ctx context.Context, partnerID uuid.UUID) (*models.ProcessingStats, apperrors.Error)
	ListRecentActivity(ctx context.Context, since time.Time, limit int) ([]*models.Product, apperrors.Error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) apperrors.Error
}

// PackageManager handles insurance package rows and the approval workflow.
type PackageManager interface {
	CreatePackage(ctx context.Context, pkg *models.InsurancePackage) apperrors.Error
	GetPackage(ctx context.Context, packageID uuid.UUID) (*models.InsurancePackage, apperrors.Error)
	ListPackages(ctx context.Context, partnerID uuid.UUID, status string) ([]*models.InsurancePackage, apperrors.Error)
	ListEligiblePackages(ctx context.Context, partnerID uuid.UUID) ([]*models.InsurancePackage, apperrors.Error)
	ListProductsWithPackages(ctx context.Context, partnerID uuid.UUID, limit int) ([]*models.ProductWithPackage, apperrors.Error)
	ApprovePackage(ctx context.Context, packageID uuid.UUID, approvedBy uuid.UUID) apperrors.Error
	DeletePackage(ctx context.Context, packageID uuid.UUID) apperrors.Error
}

// ConnectionManager handles the database connection lifecycle.
type ConnectionManager interface {
	// Close returns the connection to the pool.
	Close(ctx context.Context)
}

// Database combines all managers into a single interface. This allows for a
// unified database access layer while maintaining separation of concerns.
type Database interface {
	PartnerManager
	ProductManager
	PackageManager
	ConnectionManager
}

var pool dbmanager.Pool

// Init initializes the database connection pool. It panics if the pool cannot
// be created; the service cannot run without its store.
func Init() {
	ctx := log.Logger.WithContext(context.Background())
	pg := dbmanager.NewPool(ctx, "postgresql")
	if pg == nil {
		panic("unable to create db pool")
	}
	pool = pg
}

// Conn returns a new database connection from the pool.
func Conn(ctx context.Context) (dbmanager.PoolConn, error) {
	if pool != nil {
		conn, err := pool.Conn(ctx)
		if err == nil {
			return conn, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return nil, fmt.Errorf("database pool not initialized")
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "CoverlanePartnerDb"

// ConnCtx adds a database connection to the context.
// Returns an error if the connection cannot be established.
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, ctxDbKey, conn), nil
}

type partnerStoreDb struct {
	PartnerManager
	ProductManager
	PackageManager
	ConnectionManager
}

// DB returns a new database instance from the context. It expects a valid
// database connection in the context. Returns nil if none is found.
func DB(ctx context.Context) Database {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.PoolConn); ok {
		pm, prm, ipm, cm := postgresql.NewPartnerStoreDb(conn)
		return &partnerStoreDb{
			PartnerManager:    pm,
			ProductManager:    prm,
			PackageManager:    ipm,
			ConnectionManager: cm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}
