// Package scan runs one message through the streaming MIME processor and
// summarizes the outcome. It is the seam shared by every transport: the
// SMTP ingress, the HTTP API, and the command line driver all feed bytes
// here and act on the resulting report.
package scan

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/welldanyogia/mime-sentry/internal/logger"
	"github.com/welldanyogia/mime-sentry/internal/mime"
	"github.com/welldanyogia/mime-sentry/internal/record"
)

// Config selects processing behavior for a Scanner.
type Config struct {
	// Options are passed to the MIME processor unchanged.
	Options mime.Option
	// Limits bound per-message resources.
	Limits mime.Limits
	// MaxLineLength is the physical record length for framing.
	MaxLineLength int
	// KeepRewritten retains the processed rendition of the message in the
	// report. Useful together with mime.OptDowngrade.
	KeepRewritten bool
}

// DefaultConfig returns a scanner configuration with all anomaly
// reporting enabled and no content rewriting.
func DefaultConfig() Config {
	return Config{
		Options: mime.OptReportTruncHeader | mime.OptReport8BitInHeader |
			mime.OptReport8BitIn7BitBody | mime.OptReportEncodingDomain,
		Limits:        mime.DefaultLimits(),
		MaxLineLength: record.DefaultLineLength,
	}
}

// Report is the outcome of scanning one message.
type Report struct {
	Flags     mime.ErrorFlags `json:"-"`
	Anomalies []string        `json:"anomalies"`
	Verdict   string          `json:"verdict"` // "clean" or the worst anomaly text
	Headers   int             `json:"headers"`
	Parts     int             `json:"parts"`  // header blocks after multipart boundaries
	Nested    int             `json:"nested"` // nested message header blocks
	BodyLines int             `json:"body_lines"`
	BodyBytes int64           `json:"body_bytes"`
	MaxDepth  int             `json:"max_depth"`
	SizeBytes int64           `json:"size_bytes"`
	Rewritten []byte          `json:"-"`
}

// Clean reports whether the scan raised no anomaly flags.
func (r *Report) Clean() bool {
	return r.Flags == 0
}

// Scanner scans messages. A Scanner is safe for concurrent use; each scan
// runs on its own processor instance.
type Scanner struct {
	cfg Config
	log *slog.Logger
}

// New creates a Scanner.
func New(cfg Config, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{cfg: cfg, log: log}
}

// collector accumulates processor output into a Report. The processor
// consumes separator lines, so the rewritten rendition restores one blank
// line whenever header output gives way to body output.
type collector struct {
	report   *Report
	rewrite  *bytes.Buffer // nil unless the rendition is kept
	inHeader bool          // last output was header text
}

func (c *collector) HeaderOutput(class mime.HeaderClass, info *mime.HeaderInfo, line []byte) {
	c.report.Headers++
	if !c.inHeader {
		switch class {
		case mime.HeaderMultipart:
			c.report.Parts++
		case mime.HeaderNested:
			c.report.Nested++
		}
	}
	c.inHeader = true
	if c.rewrite != nil {
		c.rewrite.Write(line)
		c.rewrite.WriteByte('\n')
	}
}

func (c *collector) HeaderEnd() {
	if c.rewrite != nil {
		c.rewrite.WriteByte('\n')
	}
	c.inHeader = false
}

func (c *collector) BodyOutput(kind mime.RecordKind, line []byte) {
	if c.inHeader && c.rewrite != nil {
		c.rewrite.WriteByte('\n')
	}
	c.inHeader = false
	c.report.BodyBytes += int64(len(line))
	if kind == mime.TextComplete {
		c.report.BodyLines++
	}
	if c.rewrite != nil {
		c.rewrite.Write(line)
		if kind == mime.TextComplete {
			c.rewrite.WriteByte('\n')
		}
	}
}

func (c *collector) BodyEnd() {}

// Scan frames raw and runs it through the MIME processor, returning the
// collected report. Only I/O errors from the framer abort a scan; message
// anomalies are reported, never fatal.
func (s *Scanner) Scan(ctx context.Context, raw []byte) (*Report, error) {
	report := &Report{SizeBytes: int64(len(raw))}
	c := &collector{report: report}
	if s.cfg.KeepRewritten {
		c.rewrite = &bytes.Buffer{}
	}

	state := mime.New(s.cfg.Options, s.cfg.Limits, c)
	reader := record.NewReader(bytes.NewReader(raw), s.cfg.MaxLineLength)

	var flags mime.ErrorFlags
	for {
		kind, line, err := reader.Next()
		if err != nil {
			return nil, err
		}
		flags = state.Update(kind, line)
		if d := state.Depth(); d > report.MaxDepth {
			report.MaxDepth = d
		}
		if kind == mime.NonText {
			break
		}
	}

	report.Flags = flags
	report.Anomalies = flags.Names()
	if flags == 0 {
		report.Verdict = "clean"
	} else {
		report.Verdict = mime.ErrorText(flags)
	}
	if c.rewrite != nil {
		report.Rewritten = c.rewrite.Bytes()
	}

	log := logger.WithCorrelationID(ctx, s.log)
	log.Info("message scanned",
		slog.Int64("size_bytes", report.SizeBytes),
		slog.Int("headers", report.Headers),
		slog.Int("max_depth", report.MaxDepth),
		slog.String("verdict", report.Verdict),
	)
	return report, nil
}
