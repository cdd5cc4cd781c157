package db

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/internal/partnersrv/config"
	dbconfig "github.com/coverlane/coverlane/internal/partnersrv/db/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db/migrations"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

var migrateOnce sync.Once

func applyMigrations(t *testing.T) {
	t.Helper()
	migrateOnce.Do(func() {
		sqlDB, err := sql.Open("pgx", dbconfig.PartnerStoreDsn())
		if err != nil {
			t.Fatalf("unable to open db for migrations: %v", err)
		}
		defer sqlDB.Close()
		ctx := log.Logger.WithContext(context.Background())
		if err := migrations.Apply(ctx, sqlDB); err != nil {
			t.Fatalf("unable to apply migrations: %v", err)
		}
	})
}

func newDb(t *testing.T, c ...context.Context) context.Context {
	t.Helper()
	config.TestInit()
	Init()
	applyMigrations(t)
	var ctx context.Context
	var err error
	if len(c) > 0 {
		ctx, err = ConnCtx(c[0])
	} else {
		ctx, err = ConnCtx(context.Background())
	}
	if err != nil {
		t.Fatalf("unable to get db connection: %v", err)
	}
	ctx = partnercommon.WithTestContext(ctx, true)
	return ctx
}

func TestMigrationsIdempotent(t *testing.T) {
	config.TestInit()

	sqlDB, err := sql.Open("pgx", dbconfig.PartnerStoreDsn())
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := log.Logger.WithContext(context.Background())

	// Running the full set twice must not error: the ledger skips applied
	// migrations and the DDL itself is guarded with IF NOT EXISTS.
	require.NoError(t, migrations.Apply(ctx, sqlDB))
	require.NoError(t, migrations.Apply(ctx, sqlDB))

	// Every migration must now be recorded in the ledger.
	for _, m := range migrations.All() {
		var applied bool
		err := sqlDB.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)", m.Name()).Scan(&applied)
		require.NoError(t, err)
		assert.True(t, applied, "migration %s not recorded", m.Name())
	}
}

func TestVerifySchema(t *testing.T) {
	config.TestInit()

	sqlDB, err := sql.Open("pgx", dbconfig.PartnerStoreDsn())
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := log.Logger.WithContext(context.Background())
	require.NoError(t, migrations.Apply(ctx, sqlDB))

	missing, err := migrations.VerifyProcessingColumns(ctx, sqlDB)
	require.NoError(t, err)
	assert.Empty(t, missing, "processing columns missing: %v", missing)

	missingIdx, err := migrations.VerifyIndexes(ctx, sqlDB)
	require.NoError(t, err)
	assert.Empty(t, missingIdx, "indexes missing: %v", missingIdx)
}

func TestClaimFilterUsesCompositeIndex(t *testing.T) {
	config.TestInit()

	sqlDB, err := sql.Open("pgx", dbconfig.PartnerStoreDsn())
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := log.Logger.WithContext(context.Background())
	require.NoError(t, migrations.Apply(ctx, sqlDB))

	conn, err := sqlDB.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	// Planner prefers a sequential scan on a near-empty table; turn it off
	// so the index choice shows in the plan.
	_, err = conn.ExecContext(ctx, "SET enable_seqscan = off")
	require.NoError(t, err)

	rows, err := conn.QueryContext(ctx, `
		EXPLAIN SELECT product_id FROM products
		WHERE partner_id = '00000000-0000-0000-0000-000000000001'::uuid
		  AND processed = FALSE`)
	require.NoError(t, err)
	defer rows.Close()

	var plan strings.Builder
	for rows.Next() {
		var line string
		require.NoError(t, rows.Scan(&line))
		plan.WriteString(line)
		plan.WriteString("\n")
	}
	require.NoError(t, rows.Err())
	assert.Contains(t, plan.String(), "idx_products_partner_processed", plan.String())
}
