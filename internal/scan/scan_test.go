package scan

import (
	"context"
	"strings"
	"testing"

	"github.com/welldanyogia/mime-sentry/internal/mime"
)

func TestScanCleanMessage(t *testing.T) {
	raw := []byte("To: a@b\nSubject: hi\n\nhello\nworld\n")
	s := New(DefaultConfig(), nil)

	report, err := s.Scan(context.Background(), raw)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !report.Clean() || report.Verdict != "clean" {
		t.Errorf("verdict = %q, anomalies %v", report.Verdict, report.Anomalies)
	}
	if report.Headers != 2 {
		t.Errorf("headers = %d, want 2", report.Headers)
	}
	if report.BodyLines != 2 {
		t.Errorf("body lines = %d, want 2", report.BodyLines)
	}
	if report.SizeBytes != int64(len(raw)) {
		t.Errorf("size = %d", report.SizeBytes)
	}
}

func TestScanMultipartCounts(t *testing.T) {
	raw := []byte(strings.Join([]string{
		"Content-Type: multipart/mixed; boundary=X",
		"",
		"--X",
		"Content-Type: text/plain",
		"X-Part: one",
		"",
		"part one",
		"--X",
		"Content-Type: text/plain",
		"",
		"part two",
		"--X--",
		"",
	}, "\n"))
	s := New(DefaultConfig(), nil)

	report, err := s.Scan(context.Background(), raw)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Parts != 2 {
		t.Errorf("parts = %d, want 2", report.Parts)
	}
	if report.MaxDepth != 1 {
		t.Errorf("max depth = %d, want 1", report.MaxDepth)
	}
	if !report.Clean() {
		t.Errorf("anomalies = %v", report.Anomalies)
	}
}

func TestScanAnomalyVerdict(t *testing.T) {
	raw := []byte("Subject: caf\xe9\n\nbody\n")
	s := New(DefaultConfig(), nil)

	report, err := s.Scan(context.Background(), raw)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Flags&mime.Err8BitInHeader == 0 {
		t.Fatal("want Err8BitInHeader")
	}
	if report.Verdict != "improper use of 8-bit data in message header" {
		t.Errorf("verdict = %q", report.Verdict)
	}
	if len(report.Anomalies) != 1 || report.Anomalies[0] != "8bit-in-header" {
		t.Errorf("anomalies = %v", report.Anomalies)
	}
}

func TestScanRewriteDowngrades(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Options |= mime.OptDowngrade
	cfg.KeepRewritten = true
	s := New(cfg, nil)

	raw := []byte("Content-Transfer-Encoding: 8bit\nSubject: x\n\nh\xe9llo\n")
	report, err := s.Scan(context.Background(), raw)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := string(report.Rewritten)
	want := "Subject: x\nContent-Transfer-Encoding: quoted-printable\n\nh=E9llo\n"
	if got != want {
		t.Errorf("rewritten = %q, want %q", got, want)
	}
}

func TestScanHugeLineStaysBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLineLength = 64
	s := New(cfg, nil)

	raw := []byte("Subject: t\n\n" + strings.Repeat("y", 10000) + "\n")
	report, err := s.Scan(context.Background(), raw)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// One logical body line regardless of how many fragments carried it.
	if report.BodyLines != 1 {
		t.Errorf("body lines = %d, want 1", report.BodyLines)
	}
	if report.BodyBytes != 10000 {
		t.Errorf("body bytes = %d, want 10000", report.BodyBytes)
	}
}
