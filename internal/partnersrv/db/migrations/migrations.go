// Package migrations defines the partner store schema and the versioned
// migration runner that applies it. Every migration is written to be
// idempotent on its own (IF NOT EXISTS guards) and is additionally recorded
// in the schema_migrations ledger so it is skipped on subsequent runs.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migration is a single named schema change.
type Migration interface {
	// Name is the unique ledger name of the migration.
	Name() string
	// Up applies the migration inside the given transaction.
	Up(ctx context.Context, tx *sql.Tx) error
}

// All returns every migration in application order.
func All() []Migration {
	return []Migration{
		&baseSchema{},
		&productProcessing{},
	}
}

// Apply runs all pending migrations against db. Already applied migrations
// (per the schema_migrations ledger) are skipped.
func Apply(ctx context.Context, db *sql.DB) error {
	if err := ensureLedger(ctx, db); err != nil {
		return err
	}

	for _, m := range All() {
		applied, err := isApplied(ctx, db, m.Name())
		if err != nil {
			return err
		}
		if applied {
			log.Ctx(ctx).Debug().Str("migration", m.Name()).Msg("migration already applied, skipping")
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return err
		}
		log.Ctx(ctx).Info().Str("migration", m.Name()).Msg("migration applied")
	}

	return nil
}

func ensureLedger(ctx context.Context, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP NOT NULL
		);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var applied bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)", name).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback migration")
			}
		}
	}()

	if err = m.Up(ctx, tx); err != nil {
		return fmt.Errorf("migration %q failed: %w", m.Name(), err)
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (name, applied_at) VALUES ($1, current_timestamp)", m.Name()); err != nil {
		return fmt.Errorf("failed to mark migration %q as applied: %w", m.Name(), err)
	}

	return tx.Commit()
}
