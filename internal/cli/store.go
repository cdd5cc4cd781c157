package cli

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/partnersrv/db"
	dbconfig "github.com/coverlane/coverlane/internal/partnersrv/db/config"
)

// openStore opens a plain database handle for migration and admin statements.
func openStore() (*sql.DB, error) {
	return sql.Open("pgx", dbconfig.PartnerStoreDsn())
}

// connCtx returns a context carrying a pooled store connection and a release
// function. Used by commands that go through the db layer.
func connCtx() (context.Context, func(), error) {
	db.Init()
	ctx := log.Logger.WithContext(context.Background())
	ctx, err := db.ConnCtx(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ctx, func() { db.DB(ctx).Close(ctx) }, nil
}
