package smtp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		Port:              0,
		Hostname:          "test.local",
		MaxMessageSize:    4096,
		MaxRecipients:     2,
		ConnectionTimeout: 5 * time.Second,
	}
}

// client drives a session over an in-memory pipe: send writes one
// command line, expect reads one response line and checks its prefix.
type client struct {
	conn   net.Conn
	r      *bufio.Reader
	t      *testing.T
	server *Session
	done   chan struct{}
}

func startSession(t *testing.T, cfg *Config, handler DataHandler) *client {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	sess := NewSession(serverConn, cfg, handler)
	done := make(chan struct{})
	go func() {
		sess.Run()
		close(done)
	}()
	c := &client{
		conn:   clientConn,
		r:      bufio.NewReader(clientConn),
		t:      t,
		server: sess,
		done:   done,
	}
	t.Cleanup(func() {
		clientConn.Close()
		<-done
	})
	return c
}

func (c *client) expect(prefix string) string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("read: %v", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, prefix) {
		c.t.Fatalf("response %q, want prefix %q", line, prefix)
	}
	return line
}

func (c *client) send(line string) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func TestSessionDeliversScannableData(t *testing.T) {
	var got *DataResult
	handler := func(_ context.Context, data *DataResult) (bool, error) {
		got = data
		return false, nil
	}
	c := startSession(t, testConfig(), handler)

	c.expect("220 ")
	c.send("EHLO client.example")
	c.expect("250-test.local")
	c.expect("250-SIZE")
	c.expect("250 8BITMIME")
	c.send("MAIL FROM:<sender@example.org>")
	c.expect("250 ")
	c.send("RCPT TO:<rcpt@example.net>")
	c.expect("250 ")
	c.send("DATA")
	c.expect("354 ")
	c.send("Subject: hi")
	c.send("")
	c.send("..leading dot")
	c.send("body line")
	c.send(".")
	c.expect("250 OK queued as ")
	c.send("QUIT")
	c.expect("221 ")

	if got == nil {
		t.Fatal("handler never ran")
	}
	if got.MailFrom != "sender@example.org" {
		t.Errorf("mail from = %q", got.MailFrom)
	}
	if len(got.Recipients) != 1 || got.Recipients[0] != "rcpt@example.net" {
		t.Errorf("recipients = %v", got.Recipients)
	}
	want := "Subject: hi\n\n.leading dot\nbody line\n"
	if string(got.Data) != want {
		t.Errorf("data = %q, want %q", got.Data, want)
	}
	if got.QueueID == "" {
		t.Error("queue id missing")
	}
}

func TestSessionCommandSequencing(t *testing.T) {
	handler := func(_ context.Context, _ *DataResult) (bool, error) { return false, nil }
	c := startSession(t, testConfig(), handler)

	c.expect("220 ")
	c.send("MAIL FROM:<x@y>")
	c.expect("503 ") // no EHLO yet
	c.send("EHLO h")
	c.expect("250-")
	c.expect("250-")
	c.expect("250 ")
	c.send("RCPT TO:<x@y>")
	c.expect("503 ") // no MAIL yet
	c.send("DATA")
	c.expect("503 ") // no RCPT yet
	c.send("BOGUS")
	c.expect("500 ")
	c.send("QUIT")
	c.expect("221 ")
}

func TestSessionRecipientLimit(t *testing.T) {
	handler := func(_ context.Context, _ *DataResult) (bool, error) { return false, nil }
	c := startSession(t, testConfig(), handler)

	c.expect("220 ")
	c.send("HELO h")
	c.expect("250 ")
	c.send("MAIL FROM:<x@y>")
	c.expect("250 ")
	c.send("RCPT TO:<a@y>")
	c.expect("250 ")
	c.send("RCPT TO:<b@y>")
	c.expect("250 ")
	c.send("RCPT TO:<c@y>")
	c.expect("452 ")
	c.send("QUIT")
	c.expect("221 ")
}

func TestSessionRejectsFlaggedWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.RejectFlagged = true
	handler := func(_ context.Context, _ *DataResult) (bool, error) { return true, nil }
	c := startSession(t, cfg, handler)

	c.expect("220 ")
	c.send("HELO h")
	c.expect("250 ")
	c.send("MAIL FROM:<x@y>")
	c.expect("250 ")
	c.send("RCPT TO:<a@y>")
	c.expect("250 ")
	c.send("DATA")
	c.expect("354 ")
	c.send("Subject: bad")
	c.send(".")
	c.expect("550 ")
	c.send("QUIT")
	c.expect("221 ")
}

func TestSessionMessageTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessageSize = 16
	handled := false
	handler := func(_ context.Context, _ *DataResult) (bool, error) {
		handled = true
		return false, nil
	}
	c := startSession(t, cfg, handler)

	c.expect("220 ")
	c.send("HELO h")
	c.expect("250 ")
	c.send("MAIL FROM:<x@y>")
	c.expect("250 ")
	c.send("RCPT TO:<a@y>")
	c.expect("250 ")
	c.send("DATA")
	c.expect("354 ")
	c.send("this line alone is far beyond the sixteen byte limit")
	c.send("more")
	c.send(".")
	c.expect("552 ")
	if handled {
		t.Error("oversized message must not reach the handler")
	}
	c.send("QUIT")
	c.expect("221 ")
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		args   string
		prefix string
		want   string
		ok     bool
	}{
		{"FROM:<a@b>", "FROM:", "a@b", true},
		{"from:<a@b> SIZE=100", "FROM:", "a@b", true},
		{"FROM:<>", "FROM:", "", true}, // null reverse-path
		{"TO:<x@y>", "TO:", "x@y", true},
		{"TO:x@y", "TO:", "", false},
		{"SOMETHING", "FROM:", "", false},
	}
	for _, tt := range tests {
		got, ok := parsePath(tt.args, tt.prefix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parsePath(%q, %q) = %q,%v want %q,%v",
				tt.args, tt.prefix, got, ok, tt.want, tt.ok)
		}
	}
}
