// Package record frames a raw byte stream into the records the MIME
// processor consumes: complete lines, fragments of lines longer than the
// record length, and a final end-of-input record.
package record

import (
	"bufio"
	"io"

	"github.com/welldanyogia/mime-sentry/internal/mime"
)

// DefaultLineLength is the physical record length. Lines longer than this
// are delivered as TextContinued fragments followed by a TextComplete
// tail, which keeps memory bounded regardless of input.
const DefaultLineLength = 1024

// Reader turns an io.Reader into a record stream.
type Reader struct {
	r    *bufio.Reader
	buf  []byte
	done bool
}

// NewReader wraps r with the given maximum physical line length. A
// maxLine of zero or less selects DefaultLineLength.
func NewReader(r io.Reader, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = DefaultLineLength
	}
	return &Reader{
		r:   bufio.NewReader(r),
		buf: make([]byte, 0, maxLine),
	}
}

// Next returns the next record. The returned slice is only valid until
// the following call. Line terminators are stripped; both LF and CRLF
// framing are accepted. Input that ends without a line terminator is
// delivered as a complete line of its own. At end of input Next returns
// one NonText record, then io.EOF.
func (r *Reader) Next() (mime.RecordKind, []byte, error) {
	if r.done {
		return mime.NonText, nil, io.EOF
	}
	r.buf = r.buf[:0]
	for len(r.buf) < cap(r.buf) {
		c, err := r.r.ReadByte()
		if err == io.EOF {
			if len(r.buf) == 0 {
				r.done = true
				return mime.NonText, nil, nil
			}
			return mime.TextComplete, r.buf, nil
		}
		if err != nil {
			return mime.NonText, nil, err
		}
		if c == '\n' {
			if n := len(r.buf); n > 0 && r.buf[n-1] == '\r' {
				r.buf = r.buf[:n-1]
			}
			return mime.TextComplete, r.buf, nil
		}
		r.buf = append(r.buf, c)
	}
	return mime.TextContinued, r.buf, nil
}
