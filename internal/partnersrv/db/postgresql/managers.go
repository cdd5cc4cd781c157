// Package postgresql implements the partner store managers on PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"

	"github.com/coverlane/coverlane/internal/common/apperrors"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dberror"
	"github.com/coverlane/coverlane/internal/partnersrv/db/dbmanager"
)

// Partner Manager
type partnerManager struct {
	c dbmanager.PoolConn
}

func (pm *partnerManager) conn() *sql.Conn {
	return pm.c.Conn()
}

func newPartnerManager(c dbmanager.PoolConn) *partnerManager {
	return &partnerManager{c: c}
}

// Product Manager
type productManager struct {
	c dbmanager.PoolConn
}

func (pm *productManager) conn() *sql.Conn {
	return pm.c.Conn()
}

func newProductManager(c dbmanager.PoolConn) *productManager {
	return &productManager{c: c}
}

// Package Manager
type packageManager struct {
	c dbmanager.PoolConn
}

func (pm *packageManager) conn() *sql.Conn {
	return pm.c.Conn()
}

func newPackageManager(c dbmanager.PoolConn) *packageManager {
	return &packageManager{c: c}
}

// Connection Manager
type connectionManager struct {
	c dbmanager.PoolConn
}

func newConnectionManager(c dbmanager.PoolConn) *connectionManager {
	return &connectionManager{c: c}
}

func (cm *connectionManager) Close(ctx context.Context) {
	cm.c.Close(ctx)
}

// NewPartnerStoreDb returns the four managers over a single checked-out connection.
func NewPartnerStoreDb(c dbmanager.PoolConn) (*partnerManager, *productManager, *packageManager, *connectionManager) {
	return newPartnerManager(c), newProductManager(c), newPackageManager(c), newConnectionManager(c)
}

// mapPgError converts PostgreSQL error codes into typed database errors.
// Returns nil if err is not a *pgconn.PgError.
func mapPgError(err error) apperrors.Error {
	pgErr, ok := err.(*pgconn.PgError)
	if !ok {
		return nil
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return dberror.ErrAlreadyExists
	case "23503": // foreign_key_violation
		return dberror.ErrInvalidReference
	case "22003": // numeric_value_out_of_range
		return dberror.ErrValueOutOfRange
	case "22P02": // invalid_text_representation
		return dberror.ErrInvalidInput
	}
	return nil
}

func isNotFound(err apperrors.Error) bool {
	return err != nil && errors.Is(err, dberror.ErrNotFound)
}

func isAlreadyExists(err apperrors.Error) bool {
	return err != nil && errors.Is(err, dberror.ErrAlreadyExists)
}
