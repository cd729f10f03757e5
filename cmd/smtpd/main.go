// Command smtpd runs the SMTP ingress: it accepts messages, streams them
// through the MIME processor, records verdicts, and quarantines flagged
// originals.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/welldanyogia/mime-sentry/internal/config"
	"github.com/welldanyogia/mime-sentry/internal/logger"
	"github.com/welldanyogia/mime-sentry/internal/mime"
	"github.com/welldanyogia/mime-sentry/internal/quarantine"
	"github.com/welldanyogia/mime-sentry/internal/repository"
	"github.com/welldanyogia/mime-sentry/internal/scan"
	"github.com/welldanyogia/mime-sentry/internal/smtp"
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

	var store *quarantine.Store
	if cfg.Quarantine.Enabled {
		store = quarantine.NewStore(cfg.Quarantine)
	}

	scanner := scan.New(scan.Config{
		Options: mime.OptReportTruncHeader | mime.OptReport8BitInHeader |
			mime.OptReport8BitIn7BitBody | mime.OptReportEncodingDomain,
		Limits:        cfg.Scan.Limits(),
		MaxLineLength: cfg.Scan.MaxLineLength,
	}, log)

	processor := smtp.NewProcessor(smtp.ProcessorConfig{
		Scanner:    scanner,
		Repo:       repository.NewReportRepo(db),
		Quarantine: store,
		Logger:     log,
	})

	smtpCfg := &smtp.Config{
		Port:              cfg.SMTP.Port,
		Hostname:          cfg.SMTP.Hostname,
		MaxMessageSize:    cfg.SMTP.MaxMessageSize,
		MaxRecipients:     cfg.SMTP.MaxRecipients,
		ConnectionTimeout: cfg.SMTP.ConnectionTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := smtp.NewServer(smtpCfg, processor.ProcessData, log)
	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("smtp server failed", "error", err)
		os.Exit(1)
	}
}
