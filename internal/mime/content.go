package mime

// tspecials is the RFC 2045 token delimiter set for Content-Type values.
const tspecials = "()<>@,;:\\\"/[]?="

// applyContentType interprets a completed Content-Type header and updates
// the current media type. For multipart types every boundary attribute
// pushes a context onto the stack: senders have been seen declaring
// several boundary strings on one header to hide content, and accepting
// each one keeps the embedded headers visible as long as only one of the
// same-level strings is actually used. The attribute value type is
// deliberately ignored; a quoted string and a bare atom are treated alike.
func (s *State) applyContentType(info *HeaderInfo) {
	tok := s.tokens[:]
	n, pos := ScanTokens(tok, s.out, len(info.Name)+1, tspecials, ';')
	if n <= 0 {
		s.ctype = CTypeOther
		return
	}
	switch {
	case tok[0].Match("text"):
		s.ctype = CTypeText
		if n >= 3 && tok[1].Is('/') && tok[2].Match("plain") {
			s.stype = STypePlain
		} else {
			s.stype = STypeOther
		}

	case tok[0].Match("message"):
		// message/* body parts start with another block of message
		// headers. The partial and external-body subtypes must be
		// recognized exactly: they cannot be subjected to 8-bit to 7-bit
		// conversion.
		s.ctype = CTypeMessage
		s.stype = STypeOther
		if n >= 3 && tok[1].Is('/') {
			switch {
			case tok[2].Match("rfc822"):
				s.stype = STypeRFC822
			case tok[2].Match("partial"):
				s.stype = STypePartial
			case tok[2].Match("external-body"):
				s.stype = STypeExternalBody
			}
		}

	case tok[0].Match("multipart"):
		s.ctype = CTypeMultipart
		// multipart/digest parts default to message/rfc822; any other
		// multipart defaults its parts to text/plain.
		defCType, defSType := CTypeText, STypePlain
		if n >= 3 && tok[1].Is('/') && tok[2].Match("digest") {
			defCType, defSType = CTypeMessage, STypeRFC822
		}
		for {
			n, pos = ScanTokens(tok, s.out, pos, tspecials, ';')
			if n < 0 {
				break
			}
			if n >= 3 && tok[0].Match("boundary") && tok[1].Is('=') &&
				tok[2].Kind == TokenAtom {
				s.push(defCType, defSType, tok[2].Value)
			}
		}

	default:
		s.ctype = CTypeOther
	}
}

// encodingTable maps RFC 2045 Content-Transfer-Encoding names to the
// internal encoding and its 7/8/binary domain projection.
var encodingTable = []struct {
	name     string
	encoding Encoding
	domain   Encoding
}{
	{"7bit", Enc7Bit, Enc7Bit},
	{"8bit", Enc8Bit, Enc8Bit},
	{"binary", EncBinary, EncBinary},
	{"quoted-printable", EncQuotedPrintable, Enc7Bit},
	{"base64", EncBase64, Enc7Bit},
}

// applyContentEncoding interprets a completed Content-Transfer-Encoding
// header. The encoding domain is never set to anything other than 7bit,
// 8bit, or binary, even when the input is unrecognized.
func (s *State) applyContentEncoding(info *HeaderInfo) {
	tok := s.tokens[:1]
	n, _ := ScanTokens(tok, s.out, len(info.Name)+1, "", 0)
	if n <= 0 || tok[0].Kind != TokenAtom {
		return
	}
	for _, e := range encodingTable {
		if tok[0].Match(e.name) {
			s.encoding = e.encoding
			s.domain = e.domain
			return
		}
	}
}
