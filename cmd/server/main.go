// Command server runs the HTTP scan API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/welldanyogia/mime-sentry/internal/api"
	"github.com/welldanyogia/mime-sentry/internal/config"
	"github.com/welldanyogia/mime-sentry/internal/logger"
	"github.com/welldanyogia/mime-sentry/internal/mime"
	"github.com/welldanyogia/mime-sentry/internal/quarantine"
	"github.com/welldanyogia/mime-sentry/internal/repository"
	"github.com/welldanyogia/mime-sentry/internal/scan"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.DefaultConfig())

	if err := cfg.Validate(); err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	db, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	repo := repository.NewReportRepo(db)

	var store *quarantine.Store
	if cfg.Quarantine.Enabled {
		store = quarantine.NewStore(cfg.Quarantine)
	}

	scanCfg := scan.Config{
		Options: mime.OptReportTruncHeader | mime.OptReport8BitInHeader |
			mime.OptReport8BitIn7BitBody | mime.OptReportEncodingDomain,
		Limits:        cfg.Scan.Limits(),
		MaxLineLength: cfg.Scan.MaxLineLength,
	}
	if cfg.Scan.Downgrade {
		scanCfg.Options |= mime.OptDowngrade
	}

	srv := api.NewServer(scanCfg, repo, store, db, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      srv.Router(cfg.Auth),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("HTTP API listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
