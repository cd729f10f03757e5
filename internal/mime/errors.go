package mime

// ErrorFlags is the cumulative set of anomalies seen while processing one
// message. Flags accumulate; they never abort processing.
type ErrorFlags uint

const (
	// ErrNesting: the multipart structure was nested past Limits.MaxDepth.
	ErrNesting ErrorFlags = 1 << iota
	// ErrTruncHeader: a message header was longer than Limits.HeaderLimit.
	ErrTruncHeader
	// Err8BitInHeader: a message header contains 8-bit data. This is
	// always illegal.
	Err8BitInHeader
	// Err8BitIn7BitBody: a header specifies (or defaults to) 7-bit
	// content, but the corresponding body contains 8-bit data.
	Err8BitIn7BitBody
	// ErrEncodingDomain: a message or multipart entity specifies the wrong
	// content transfer encoding domain, or specifies a transformation
	// (quoted-printable, base64) instead of a domain.
	ErrEncodingDomain

	errAll = ErrNesting | ErrTruncHeader | Err8BitInHeader |
		Err8BitIn7BitBody | ErrEncodingDomain
)

// ErrorText returns a one-line description for the given flags. When
// multiple flags are set it reports the most serious one. It panics on
// zero or unknown flags; those cannot arise from message input.
func ErrorText(flags ErrorFlags) string {
	switch {
	case flags == 0:
		panic("mime: ErrorText: there is no error")
	case flags&ErrNesting != 0:
		return "MIME nesting exceeds safety limit"
	case flags&ErrTruncHeader != 0:
		return "message header was truncated"
	case flags&Err8BitInHeader != 0:
		return "improper use of 8-bit data in message header"
	case flags&Err8BitIn7BitBody != 0:
		return "improper use of 8-bit data in message body"
	case flags&ErrEncodingDomain != 0:
		return "invalid message/* or multipart/* encoding domain"
	}
	panic("mime: ErrorText: unknown error flags")
}

// Names returns the symbolic names of all flags that are set, in severity
// order. Unlike ErrorText it tolerates zero flags.
func (f ErrorFlags) Names() []string {
	if f == 0 {
		return nil
	}
	var names []string
	if f&ErrNesting != 0 {
		names = append(names, "nesting")
	}
	if f&ErrTruncHeader != 0 {
		names = append(names, "truncated-header")
	}
	if f&Err8BitInHeader != 0 {
		names = append(names, "8bit-in-header")
	}
	if f&Err8BitIn7BitBody != 0 {
		names = append(names, "8bit-in-7bit-body")
	}
	if f&ErrEncodingDomain != 0 {
		names = append(names, "encoding-domain")
	}
	return names
}
