package mime

// HeaderKind classifies the headers the processor acts upon. Everything
// else is HeaderOther and passes through unchanged.
type HeaderKind int

const (
	HeaderOther HeaderKind = iota
	HeaderContentType
	HeaderContentTransferEncoding
	HeaderContentDisposition
	HeaderMimeVersion
	HeaderReceived
	HeaderMessageID
	HeaderSender
	HeaderRecipient
	HeaderSubjectLine
	HeaderDate
	HeaderReturnPath
)

// HeaderInfo describes a recognized message header. Name is the canonical
// spelling; its length equals the name length in the normalized header
// buffer, so the value starts at len(Name)+1.
type HeaderInfo struct {
	Name string
	Kind HeaderKind
}

// headerTable lists the headers we recognize, keyed by lowercase name.
// Only Content-Type and Content-Transfer-Encoding change processor state;
// the rest exist so callers can tell common RFC 822 headers apart without
// re-parsing.
var headerTable = map[string]*HeaderInfo{
	"content-type":              {Name: "Content-Type", Kind: HeaderContentType},
	"content-transfer-encoding": {Name: "Content-Transfer-Encoding", Kind: HeaderContentTransferEncoding},
	"content-disposition":       {Name: "Content-Disposition", Kind: HeaderContentDisposition},
	"content-description":       {Name: "Content-Description", Kind: HeaderOther},
	"content-id":                {Name: "Content-Id", Kind: HeaderOther},
	"mime-version":              {Name: "Mime-Version", Kind: HeaderMimeVersion},
	"received":                  {Name: "Received", Kind: HeaderReceived},
	"message-id":                {Name: "Message-Id", Kind: HeaderMessageID},
	"from":                      {Name: "From", Kind: HeaderSender},
	"sender":                    {Name: "Sender", Kind: HeaderSender},
	"reply-to":                  {Name: "Reply-To", Kind: HeaderSender},
	"to":                        {Name: "To", Kind: HeaderRecipient},
	"cc":                        {Name: "Cc", Kind: HeaderRecipient},
	"bcc":                       {Name: "Bcc", Kind: HeaderRecipient},
	"subject":                   {Name: "Subject", Kind: HeaderSubjectLine},
	"date":                      {Name: "Date", Kind: HeaderDate},
	"return-path":               {Name: "Return-Path", Kind: HeaderReturnPath},
}

// LookupHeader returns the descriptor for the header stored in buf, a
// normalized "Name:value" buffer, or nil when the name is not in the
// table.
func LookupHeader(buf []byte) *HeaderInfo {
	var name [64]byte
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if c == ':' {
			return headerTable[string(name[:i])]
		}
		if i >= len(name) {
			return nil
		}
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		name[i] = c
	}
	return nil
}

// IsHeader reports whether line begins with a syntactically valid RFC 822
// header field name, optionally followed by whitespace, then a colon. It
// returns the length of the name, or 0. The obsolete "Name :" form is
// accepted; the caller normalizes it to "Name:".
func IsHeader(line []byte) int {
	n := 0
	afterName := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ':':
			if n > 0 {
				return n
			}
			return 0
		case c == ' ' || c == '\t':
			if n == 0 {
				return 0
			}
			afterName = true
		case c < 0x21 || c >= 0x7f:
			// control, other whitespace, DEL, or non-ASCII
			return 0
		default:
			if afterName {
				return 0
			}
			n++
		}
	}
	return 0
}
