package mime

import (
	"bytes"
	"fmt"
)

var closeDelim = []byte("--")

// Update advances the processor with one input record and returns the
// anomaly flags accumulated so far. Records must arrive in message order;
// the final record of a message must be NonText, which flushes all
// buffered state and triggers the body-end hook.
func (s *State) Update(kind RecordKind, line []byte) ErrorFlags {
	// Flush any partial logical line that is still buffered before taking
	// end-of-input actions, so no line straddles the end of the stream.
	if kind == NonText && s.prevKind == TextContinued {
		s.step(TextComplete, nil)
	}
	return s.step(kind, line)
}

// step processes exactly one record. The machine is kept simple for the
// sake of robustness: it knows about headers and bodies, understands that
// multipart entities hold body parts that start with their own headers,
// and that message entities open with a nested header block. Everything
// else passes through.
func (s *State) step(kind RecordKind, line []byte) ErrorFlags {
	isText := kind == TextComplete || kind == TextContinued

	switch s.phase {
	case HeaderPrimary, HeaderMultipart, HeaderNested:
		if len(s.out) > 0 {
			if isText {
				// The previous record left an unterminated line.
				if s.prevKind == TextContinued {
					s.appendHeader(line)
					s.prevKind = kind
					return s.errs
				}
				// A fresh line starting with whitespace folds into the
				// buffered header.
				if len(line) > 0 && asciiSpace(line[0]) {
					s.appendHeader([]byte{'\n'})
					s.appendHeader(line)
					s.prevKind = kind
					return s.errs
				}
			}

			// No continuation applies, so the buffered header is complete.
			// Interpret it, then hand it to the output hook, which is
			// explicitly allowed to modify the text. A content transfer
			// encoding header is held back while a downgrade is pending:
			// the proper replacement depends on the content type header
			// and is emitted at the end of the header block.
			info := LookupHeader(s.out)
			if s.opts&OptDisableMime == 0 && info != nil {
				switch info.Kind {
				case HeaderContentType:
					s.applyContentType(info)
				case HeaderContentTransferEncoding:
					s.applyContentEncoding(info)
				}
			}
			if s.opts&OptReport8BitInHeader != 0 && s.errs&Err8BitInHeader == 0 {
				for _, c := range s.out {
					if c&0x80 != 0 {
						s.errs |= Err8BitInHeader
						break
					}
				}
			}
			if info == nil || info.Kind != HeaderContentTransferEncoding ||
				s.opts&OptDowngrade == 0 || s.domain == Enc7Bit {
				s.handler.HeaderOutput(s.phase, info, s.out)
			}
			s.out = s.out[:0]
		}

		// With past header information out of the way, see whether this
		// record begins a new message header. The obsolete "name space
		// colon" form is normalized to "name colon".
		if isText {
			if h := IsHeader(line); h > 0 {
				s.appendHeader(line[:h])
				rest := line[h:]
				for len(rest) > 0 && asciiSpace(rest[0]) {
					rest = rest[1:]
				}
				s.appendHeader(rest)
				s.prevKind = kind
				return s.errs
			}
		}

		// This record terminates the header block. When converting 8-bit
		// to 7-bit mail, this is the place to emit the corrected content
		// transfer encoding header: message and multipart entities take a
		// domain, leaf entities take the transformation.
		if s.opts&OptDowngrade != 0 && s.domain != Enc7Bit {
			s.out = append(s.out, "Content-Transfer-Encoding: "...)
			if s.ctype == CTypeMessage || s.ctype == CTypeMultipart {
				s.out = append(s.out, "7bit"...)
			} else {
				s.out = append(s.out, "quoted-printable"...)
			}
			s.handler.HeaderOutput(s.phase, nil, s.out)
			s.out = s.out[:0]
		}

		if s.phase == HeaderPrimary {
			s.handler.HeaderEnd()
		}

		// Composite entities must specify an identity encoding; a
		// transformation, or the wrong domain on fragmented messages,
		// is an anomaly.
		if s.opts&OptReportEncodingDomain != 0 {
			switch s.ctype {
			case CTypeMessage:
				if s.stype == STypePartial || s.stype == STypeExternalBody {
					if s.domain != Enc7Bit {
						s.errs |= ErrEncodingDomain
					}
				} else if s.encoding != s.domain {
					s.errs |= ErrEncodingDomain
				}
			case CTypeMultipart:
				if s.encoding != s.domain {
					s.errs |= ErrEncodingDomain
				}
			}
		}

		if isText {
			if len(line) == 0 {
				// The empty separator line. Find out whether the content
				// that follows starts with its own message headers, and
				// set the encoding information for a multipart prolog.
				switch s.ctype {
				case CTypeMessage:
					if s.stype == STypeRFC822 || s.opts&OptRecurseAllMessage != 0 {
						s.setEntity(HeaderNested, CTypeText, STypePlain, Enc7Bit, Enc7Bit)
					} else {
						s.phase = phaseBody
					}
				case CTypeMultipart:
					s.setEntity(phaseBody, CTypeOther, STypeOther, Enc7Bit, Enc7Bit)
				default:
					s.phase = phaseBody
				}
				s.prevKind = kind
				return s.errs
			}
			// Invalid input: body text with no separator. Force out one
			// blank line, then treat this record as body content, leaving
			// type and encoding untouched.
			s.handler.BodyOutput(TextComplete, nil)
			s.phase = phaseBody
		} else {
			s.phase = phaseBody
		}
		// The terminating record falls through into body processing.

	case phaseBody:
		// handled below

	default:
		panic(fmt.Sprintf("mime: unknown parser phase: %d", s.phase))
	}

	if isText {
		// The 8-bit scan runs before boundary matching so that delimiter
		// lines cannot cancel the check on adjacent content. The scan is
		// myopic: it is not aware of enclosing entity encodings.
		if s.opts&OptReport8BitIn7BitBody != 0 && s.encoding == Enc7Bit &&
			s.errs&Err8BitIn7BitBody == 0 {
			for _, c := range line {
				if c&0x80 != 0 {
					s.errs |= Err8BitIn7BitBody
					break
				}
			}
		}

		// Boundary matching. Never on a record that continues an
		// unterminated line, and never inside a part whose push was refused. Trailing bytes after
		// the delimiter are ignored, both because some senders append
		// cruft and because the stored boundary may have been truncated.
		if len(s.stack) > 0 && s.prevKind != TextContinued &&
			len(line) >= 2 && line[0] == '-' && line[1] == '-' {
			rest := line[2:]
			for i := len(s.stack) - 1; i >= 0; i-- {
				entry := s.stack[i]
				if !bytes.HasPrefix(rest, entry.value) {
					continue
				}
				// Entries nested inside the matched part are abandoned.
				s.stack = s.stack[:i+1]
				if bytes.HasPrefix(rest[len(entry.value):], closeDelim) {
					s.pop()
					s.setEntity(phaseBody, CTypeOther, STypeOther, Enc7Bit, Enc7Bit)
				} else {
					s.setEntity(HeaderMultipart, entry.defCType, entry.defSType, Enc7Bit, Enc7Bit)
				}
				break
			}
		}

		// Emission runs last so that delimiter lines are never encoded:
		// a matched boundary resets the domain to 7bit above.
		if s.opts&OptDowngrade != 0 && s.domain != Enc7Bit {
			s.downgrade(kind, line)
		} else {
			s.handler.BodyOutput(kind, line)
		}
	} else {
		// Not a text record: the last opportunity to send pending output.
		s.handler.BodyEnd()
	}

	s.prevKind = kind
	return s.errs
}
