// Package dbmanager manages the PostgreSQL connection pool for the partner store.
// Connections are handed out one per request; callers must return them with
// Close so pool statistics stay accurate.
package dbmanager

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// Pool is a managed database connection pool.
type Pool interface {
	// Conn returns a new connection to the database.
	Conn(ctx context.Context) (PoolConn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
	// OpenConns returns the number of open connections in the pool.
	OpenConns() int
}

// PoolConn is a single database connection checked out of the pool.
// The connection is not concurrency safe and must be used by a single
// goroutine; the service uses one connection per request or worker claim.
type PoolConn interface {
	// Conn returns the underlying *sql.Conn. Do not close this directly;
	// use PoolConn.Close(ctx) so the pool accounting stays correct.
	Conn() *sql.Conn
	// Close returns the connection back to the pool.
	Close(ctx context.Context)
}

// NewPool returns a connection pool for the given database type. Only
// "postgresql" is supported.
func NewPool(ctx context.Context, dbtype string) Pool {
	switch dbtype {
	case "postgresql":
		db, err := NewPostgresqlDb()
		if err != nil || db == nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to create PostgreSQL pool")
			return nil
		}
		return db
	}
	return nil
}
