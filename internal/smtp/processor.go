package smtp

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/welldanyogia/mime-sentry/internal/metrics"
	"github.com/welldanyogia/mime-sentry/internal/quarantine"
	"github.com/welldanyogia/mime-sentry/internal/repository"
	"github.com/welldanyogia/mime-sentry/internal/scan"
)

// Processor runs the receive pipeline: scan, quarantine, record.
type Processor struct {
	scanner    *scan.Scanner
	repo       repository.ReportRepositoryInterface
	quarantine *quarantine.Store // nil when quarantine is disabled
	log        *slog.Logger
}

// ProcessorConfig holds the processor dependencies.
type ProcessorConfig struct {
	Scanner    *scan.Scanner
	Repo       repository.ReportRepositoryInterface
	Quarantine *quarantine.Store
	Logger     *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		scanner:    cfg.Scanner,
		repo:       cfg.Repo,
		quarantine: cfg.Quarantine,
		log:        log,
	}
}

// ProcessData scans one accepted message and persists the verdict. The
// message is never mutated on this path; rewriting belongs to outbound
// transports.
func (p *Processor) ProcessData(ctx context.Context, data *DataResult) (bool, error) {
	start := time.Now()
	result, err := p.scanner.Scan(ctx, data.Data)
	if err != nil {
		return false, err
	}

	verdictLabel := "flagged"
	if result.Clean() {
		verdictLabel = "clean"
	}
	metrics.ObserveScan("smtp", verdictLabel, result.Anomalies,
		time.Since(start).Seconds(), result.MaxDepth, int(result.SizeBytes))

	sender := data.MailFrom
	report := &repository.ScanReport{
		ID:         uuid.New(),
		QueueID:    data.QueueID,
		Source:     "smtp",
		Sender:     &sender,
		Verdict:    result.Verdict,
		Flags:      int64(result.Flags),
		Anomalies:  result.Anomalies,
		Headers:    result.Headers,
		Parts:      result.Parts,
		MaxDepth:   result.MaxDepth,
		BodyBytes:  result.BodyBytes,
		SizeBytes:  result.SizeBytes,
		ReceivedAt: data.ReceivedAt,
	}

	if !result.Clean() && p.quarantine != nil {
		key := quarantine.Key(report.ID)
		if err := p.quarantine.Put(ctx, key, data.Data); err != nil {
			p.log.Error("quarantine store failed",
				"queue_id", data.QueueID, "error", err)
		} else {
			report.QuarantineKey = &key
		}
	}

	if p.repo != nil {
		if err := p.repo.Create(ctx, report); err != nil {
			return !result.Clean(), err
		}
	}

	p.log.Info("message processed",
		"queue_id", data.QueueID,
		"sender", data.MailFrom,
		"recipients", len(data.Recipients),
		"verdict", result.Verdict,
	)
	return !result.Clean(), nil
}
