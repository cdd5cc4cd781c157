package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/logtrace"
	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	dbconfig "github.com/coverlane/coverlane/internal/partnersrv/db/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db/migrations"
	"github.com/coverlane/coverlane/internal/partnersrv/processor"
	"github.com/coverlane/coverlane/internal/partnersrv/server"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	if config.Config().ServerPort == "" {
		return fmt.Errorf("server port not defined")
	}

	db.Init()
	if err := applyMigrations(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	serverErrors, shutdownServer, err := createPartnerServer(ctx)
	if err != nil {
		return fmt.Errorf("creating partner server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

func applyMigrations(ctx context.Context) error {
	sqlDB, err := sql.Open("pgx", dbconfig.PartnerStoreDsn())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := migrations.Apply(ctx, sqlDB); err != nil {
		return err
	}

	missing, err := migrations.VerifyProcessingColumns(ctx, sqlDB)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema verification failed, missing columns: %v", missing)
	}
	return nil
}

func createPartnerServer(ctx context.Context) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer()
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers(processor.NewOpenAIGenerator(&config.Config().Generator))

	srv := &http.Server{
		Addr:              ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info().Str("port", config.Config().ServerPort).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}

func parseFlags() cmdoptions {
	opt := cmdoptions{}
	flag.StringVar(&opt.configFile, "config", "partnersrv.conf", "path to config file")
	flag.Parse()
	return opt
}
