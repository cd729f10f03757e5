// Package repository persists scan reports in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrReportNotFound is returned when no report matches the given ID.
	ErrReportNotFound = errors.New("scan report not found")
)

// ScanReport is one persisted scan outcome.
type ScanReport struct {
	ID            uuid.UUID `db:"id" json:"id"`
	QueueID       string    `db:"queue_id" json:"queue_id"`
	Source        string    `db:"source" json:"source"` // smtp, http, cli
	Sender        *string   `db:"sender" json:"sender,omitempty"`
	Verdict       string    `db:"verdict" json:"verdict"`
	Flags         int64     `db:"flags" json:"-"`
	Anomalies     []string  `db:"-" json:"anomalies"`
	Headers       int       `db:"headers" json:"headers"`
	Parts         int       `db:"parts" json:"parts"`
	MaxDepth      int       `db:"max_depth" json:"max_depth"`
	BodyBytes     int64     `db:"body_bytes" json:"body_bytes"`
	SizeBytes     int64     `db:"size_bytes" json:"size_bytes"`
	QuarantineKey *string   `db:"quarantine_key" json:"quarantine_key,omitempty"`
	ReceivedAt    time.Time `db:"received_at" json:"received_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ReportRepositoryInterface defines the repository operations used by the
// transports and the API.
type ReportRepositoryInterface interface {
	Create(ctx context.Context, report *ScanReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScanReport, error)
	ListRecent(ctx context.Context, limit int) ([]ScanReport, error)
	CountByVerdict(ctx context.Context) (map[string]int64, error)
}

// ReportRepo implements ReportRepositoryInterface using PostgreSQL.
type ReportRepo struct {
	db *sqlx.DB
}

// NewReportRepo creates a new ReportRepo instance.
func NewReportRepo(db *sqlx.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create inserts a scan report. A zero ID or timestamp is filled in.
func (r *ReportRepo) Create(ctx context.Context, report *ScanReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.ReceivedAt.IsZero() {
		report.ReceivedAt = report.CreatedAt
	}

	query := `
		INSERT INTO scan_reports (
			id, queue_id, source, sender, verdict, flags,
			headers, parts, max_depth, body_bytes, size_bytes,
			quarantine_key, received_at, created_at
		) VALUES (
			:id, :queue_id, :source, :sender, :verdict, :flags,
			:headers, :parts, :max_depth, :body_bytes, :size_bytes,
			:quarantine_key, :received_at, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, report)
	return err
}

// GetByID fetches one report.
func (r *ReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*ScanReport, error) {
	var report ScanReport
	query := `SELECT * FROM scan_reports WHERE id = $1`
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// ListRecent returns the newest reports, most recent first.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]ScanReport, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	reports := []ScanReport{}
	query := `SELECT * FROM scan_reports ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &reports, query, limit); err != nil {
		return nil, err
	}
	return reports, nil
}

// CountByVerdict returns the number of stored reports per verdict.
func (r *ReportRepo) CountByVerdict(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT verdict, COUNT(*) FROM scan_reports GROUP BY verdict`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var verdict string
		var n int64
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, err
		}
		counts[verdict] = n
	}
	return counts, rows.Err()
}
