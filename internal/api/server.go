// Package api exposes the scanning gateway over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/welldanyogia/mime-sentry/internal/config"
	"github.com/welldanyogia/mime-sentry/internal/middleware"
	"github.com/welldanyogia/mime-sentry/internal/quarantine"
	"github.com/welldanyogia/mime-sentry/internal/repository"
	"github.com/welldanyogia/mime-sentry/internal/scan"
)

// Pinger is the health-check seam for the database handle.
type Pinger interface {
	Ping() error
}

// Server holds the handler dependencies.
type Server struct {
	scanner    *scan.Scanner
	preview    *scan.Scanner // rewriting scanner for previews
	repo       repository.ReportRepositoryInterface
	quarantine *quarantine.Store // nil when quarantine is disabled
	db         Pinger            // nil when running without a database
	sanitizer  *bluemonday.Policy
	maxBody    int64
	log        *slog.Logger
}

// NewServer wires the API. The preview scanner is derived from cfg with
// the processed rendition kept, so previews show the message as the
// processor emits it; the body is downgraded only when cfg.Options
// includes mime.OptDowngrade.
func NewServer(cfg scan.Config, repo repository.ReportRepositoryInterface,
	store *quarantine.Store, db Pinger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	previewCfg := cfg
	previewCfg.KeepRewritten = true
	return &Server{
		scanner:    scan.New(cfg, log),
		preview:    scan.New(previewCfg, log),
		repo:       repo,
		quarantine: store,
		db:         db,
		sanitizer:  bluemonday.UGCPolicy(),
		maxBody:    64 << 20,
		log:        log,
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router(authCfg config.AuthConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(s.log))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.TokenAuth(authCfg.TokenHash))
		r.Post("/scan", s.handleScan)
		r.Post("/preview", s.handlePreview)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports/{id}/download", s.handleDownload)
		r.Get("/stats", s.handleStats)
	})

	return r
}
