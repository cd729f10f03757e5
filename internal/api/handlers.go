package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/welldanyogia/mime-sentry/internal/metrics"
	"github.com/welldanyogia/mime-sentry/internal/quarantine"
	"github.com/welldanyogia/mime-sentry/internal/repository"
)

// handleScan accepts a raw message body, scans it, persists the report,
// and quarantines the original when the scan raised flags.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "message too large")
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "empty message")
		return
	}

	start := time.Now()
	result, err := s.scanner.Scan(r.Context(), raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	verdictLabel := "flagged"
	if result.Clean() {
		verdictLabel = "clean"
	}
	metrics.ObserveScan("http", verdictLabel, result.Anomalies,
		time.Since(start).Seconds(), result.MaxDepth, int(result.SizeBytes))

	report := &repository.ScanReport{
		ID:        uuid.New(),
		QueueID:   uuid.NewString(),
		Source:    "http",
		Verdict:   result.Verdict,
		Flags:     int64(result.Flags),
		Anomalies: result.Anomalies,
		Headers:   result.Headers,
		Parts:     result.Parts,
		MaxDepth:  result.MaxDepth,
		BodyBytes: result.BodyBytes,
		SizeBytes: result.SizeBytes,
	}

	if !result.Clean() && s.quarantine != nil {
		key := quarantine.Key(report.ID)
		if err := s.quarantine.Put(r.Context(), key, raw); err != nil {
			s.log.Error("quarantine store failed", "error", err)
		} else {
			report.QuarantineKey = &key
		}
	}

	if s.repo != nil {
		if err := s.repo.Create(r.Context(), report); err != nil {
			s.log.Error("report insert failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store report")
			return
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// previewResponse carries the sanitized rendition of a scanned message.
type previewResponse struct {
	Verdict   string   `json:"verdict"`
	Anomalies []string `json:"anomalies"`
	Preview   string   `json:"preview"`
}

// handlePreview scans with rewriting enabled and returns the body region
// with HTML stripped down to a safe subset. Untrusted mail goes straight
// to operator screens from here, hence the sanitizer.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "message too large")
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "empty message")
		return
	}

	result, err := s.preview.Scan(r.Context(), raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	rendition := string(result.Rewritten)
	body := rendition
	if i := strings.Index(rendition, "\n\n"); i >= 0 {
		body = rendition[i+2:]
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Verdict:   result.Verdict,
		Anomalies: result.Anomalies,
		Preview:   s.sanitizer.Sanitize(body),
	})
}

// handleListReports returns the most recent scan reports.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	reports, err := s.repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// handleGetReport returns one scan report by ID.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	report, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleDownload redirects to a presigned URL for the quarantined
// original of a flagged message.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.quarantine == nil {
		writeError(w, http.StatusNotFound, "quarantine is disabled")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	report, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if report.QuarantineKey == nil {
		writeError(w, http.StatusNotFound, "no quarantined original for this report")
		return
	}
	url, err := s.quarantine.PresignGet(r.Context(), *report.QuarantineKey, 15*time.Minute)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to presign download")
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleStats returns report counts per verdict.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.repo.CountByVerdict(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verdicts": counts})
}

// handleHealth reports liveness, and database reachability when a handle
// is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
