package smtp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DataHandler processes one accepted message. The returned flagged value
// drives the final response when Config.RejectFlagged is set.
type DataHandler func(ctx context.Context, data *DataResult) (flagged bool, err error)

// Session handles a single SMTP connection
type Session struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	config  *Config
	handler DataHandler

	helloSeen  bool
	mailSeen   bool
	mailFrom   string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(conn net.Conn, config *Config, handler DataHandler) *Session {
	return &Session{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		config:  config,
		handler: handler,
	}
}

// Run drives the session until the client quits or the connection drops.
func (s *Session) Run() {
	defer s.conn.Close()

	s.sendResponse(CodeServiceReady, fmt.Sprintf("%s %s", s.config.Hostname, Responses[CodeServiceReady]))

	for {
		s.conn.SetDeadline(time.Now().Add(s.config.ConnectionTimeout))

		line, err := s.reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		cmd, args := parseCommand(line)
		if s.handleCommand(cmd, args) {
			return
		}
	}
}

// parseCommand splits an SMTP command line into verb and arguments
func parseCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToUpper(parts[0])
	args := ""
	if len(parts) > 1 {
		args = parts[1]
	}
	return cmd, args
}

// handleCommand dispatches one command; it returns true when the session
// should end.
func (s *Session) handleCommand(cmd, args string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleHello(cmd, args)
	case "MAIL":
		s.handleMailFrom(args)
	case "RCPT":
		s.handleRcptTo(args)
	case "DATA":
		s.handleData()
	case "RSET":
		s.resetTransaction()
		s.sendResponse(CodeOK, Responses[CodeOK])
	case "NOOP":
		s.sendResponse(CodeOK, Responses[CodeOK])
	case "QUIT":
		s.sendResponse(CodeServiceClosing, Responses[CodeServiceClosing])
		return true
	default:
		s.sendResponse(CodeSyntaxError, Responses[CodeSyntaxError])
	}
	return false
}

func (s *Session) handleHello(cmd, args string) {
	s.helloSeen = true
	s.resetTransaction()
	if cmd == "EHLO" {
		s.sendLine(fmt.Sprintf("250-%s", s.config.Hostname))
		s.sendLine(fmt.Sprintf("250-SIZE %d", s.config.MaxMessageSize))
		s.sendLine("250 8BITMIME")
		s.writer.Flush()
		return
	}
	s.sendResponse(CodeOK, s.config.Hostname)
}

func (s *Session) handleMailFrom(args string) {
	if !s.helloSeen {
		s.sendResponse(CodeBadSequence, Responses[CodeBadSequence])
		return
	}
	addr, ok := parsePath(args, "FROM:")
	if !ok {
		s.sendResponse(CodeSyntaxErrorParams, Responses[CodeSyntaxErrorParams])
		return
	}
	s.resetTransaction()
	s.mailSeen = true
	s.mailFrom = addr
	s.sendResponse(CodeOK, Responses[CodeOK])
}

func (s *Session) handleRcptTo(args string) {
	if !s.mailSeen {
		s.sendResponse(CodeBadSequence, Responses[CodeBadSequence])
		return
	}
	if len(s.recipients) >= s.config.MaxRecipients {
		s.sendResponse(CodeTooManyRecipients, Responses[CodeTooManyRecipients])
		return
	}
	addr, ok := parsePath(args, "TO:")
	if !ok || addr == "" {
		s.sendResponse(CodeSyntaxErrorParams, Responses[CodeSyntaxErrorParams])
		return
	}
	s.recipients = append(s.recipients, addr)
	s.sendResponse(CodeOK, Responses[CodeOK])
}

// parsePath extracts the address from "FROM:<a@b>" style arguments.
// ESMTP parameters after the path are ignored.
func parsePath(args, prefix string) (string, bool) {
	if !strings.HasPrefix(strings.ToUpper(args), prefix) {
		return "", false
	}
	rest := strings.TrimSpace(args[len(prefix):])
	open := strings.IndexByte(rest, '<')
	end := strings.IndexByte(rest, '>')
	if open < 0 || end < open {
		return "", false
	}
	return strings.TrimSpace(rest[open+1 : end]), true
}

func (s *Session) handleData() {
	if len(s.recipients) == 0 {
		s.sendResponse(CodeBadSequence, Responses[CodeBadSequence])
		return
	}
	s.sendResponse(CodeStartMailInput, Responses[CodeStartMailInput])

	data, err := s.readData()
	if err != nil {
		if err == errTooLarge {
			s.sendResponse(CodeMessageTooLarge, Responses[CodeMessageTooLarge])
			s.resetTransaction()
			return
		}
		s.sendResponse(CodeTempFailure, Responses[CodeTempFailure])
		return
	}

	result := &DataResult{
		Data:       data,
		QueueID:    uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		SizeBytes:  int64(len(data)),
		Recipients: s.recipients,
		MailFrom:   s.mailFrom,
	}

	flagged, err := s.handler(context.Background(), result)
	switch {
	case err != nil:
		s.sendResponse(CodeTempFailure, Responses[CodeTempFailure])
	case flagged && s.config.RejectFlagged:
		s.sendResponse(CodeRejectedContent, Responses[CodeRejectedContent])
	default:
		s.sendResponse(CodeOK, fmt.Sprintf("OK queued as %s", result.QueueID))
	}
	s.resetTransaction()
}

var errTooLarge = fmt.Errorf("message exceeds size limit")

// readData consumes the dot-terminated message body, unstuffing leading
// dots and normalizing CRLF to LF.
func (s *Session) readData() ([]byte, error) {
	var buf bytes.Buffer
	for {
		s.conn.SetDeadline(time.Now().Add(s.config.ConnectionTimeout))
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "." {
			return buf.Bytes(), nil
		}
		if strings.HasPrefix(line, ".") {
			line = line[1:]
		}
		if int64(buf.Len()+len(line)+1) > s.config.MaxMessageSize {
			// Drain to the terminating dot before reporting the failure.
			for {
				l, err := s.reader.ReadString('\n')
				if err != nil {
					return nil, err
				}
				if strings.TrimRight(l, "\r\n") == "." {
					return nil, errTooLarge
				}
			}
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func (s *Session) resetTransaction() {
	s.mailSeen = false
	s.mailFrom = ""
	s.recipients = nil
}

func (s *Session) sendLine(line string) {
	s.writer.WriteString(line)
	s.writer.WriteString("\r\n")
}

func (s *Session) sendResponse(code int, message string) {
	s.sendLine(fmt.Sprintf("%d %s", code, message))
	s.writer.Flush()
}
