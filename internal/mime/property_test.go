package mime

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyDepthNeverExceedsLimit checks that for any number of
// declared boundaries the nesting level stays within the configured
// maximum, and that refused pushes raise the nesting flag.
func TestPropertyDepthNeverExceedsLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxDepth := rapid.IntRange(1, 5).Draw(t, "maxDepth")
		declared := rapid.IntRange(0, 12).Draw(t, "declared")

		var header strings.Builder
		header.WriteString("Content-Type: multipart/mixed")
		for i := 0; i < declared; i++ {
			fmt.Fprintf(&header, "; boundary=b%d", i)
		}

		limits := DefaultLimits()
		limits.MaxDepth = maxDepth
		s := New(OptNone, limits, &recorder{})
		s.Update(TextComplete, []byte(header.String()))
		flags := s.Update(TextComplete, nil)

		if s.Depth() > maxDepth {
			t.Fatalf("depth %d exceeds limit %d", s.Depth(), maxDepth)
		}
		wantFlag := declared > maxDepth
		if gotFlag := flags&ErrNesting != 0; gotFlag != wantFlag {
			t.Fatalf("ErrNesting = %v with %d declared, limit %d", gotFlag, declared, maxDepth)
		}
	})
}

// TestPropertyBodyBytesConserved checks that pass-through body content is
// delivered exactly once, unmodified and in order.
func TestPropertyBodyBytesConserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 40), 0, 20).Draw(t, "lines")

		rec := &recorder{}
		s := New(OptNone, DefaultLimits(), rec)
		s.Update(TextComplete, []byte("Subject: t"))
		s.Update(TextComplete, nil)
		for _, line := range lines {
			s.Update(TextComplete, line)
		}
		s.Update(NonText, nil)

		bodies := rec.bodies()
		if len(bodies) != len(lines) {
			t.Fatalf("got %d body records, want %d", len(bodies), len(lines))
		}
		for i := range lines {
			if bodies[i] != string(lines[i]) {
				t.Fatalf("body[%d] = %q, want %q", i, bodies[i], lines[i])
			}
		}
	})
}

// TestPropertyDomainProjection checks that the encoding domain never
// leaves {7bit, 8bit, binary}, whatever the header says.
func TestPropertyDomainProjection(t *testing.T) {
	valid := []string{"7bit", "8bit", "binary", "quoted-printable", "base64",
		"7BIT", "Quoted-Printable", "BASE64"}
	rapid.Check(t, func(t *rapid.T) {
		var value string
		if rapid.Bool().Draw(t, "useValid") {
			value = rapid.SampledFrom(valid).Draw(t, "value")
		} else {
			value = rapid.StringMatching(`[a-zA-Z0-9-]{1,20}`).Draw(t, "value")
		}

		s := New(OptNone, DefaultLimits(), &recorder{})
		s.Update(TextComplete, []byte("Content-Transfer-Encoding: "+value))
		s.Update(TextComplete, nil)

		switch s.domain {
		case Enc7Bit, Enc8Bit, EncBinary:
		default:
			t.Fatalf("domain = %v for %q", s.domain, value)
		}
		if s.encoding == EncQuotedPrintable || s.encoding == EncBase64 {
			if s.domain != Enc7Bit {
				t.Fatalf("transformation %v must project to 7bit, got %v", s.encoding, s.domain)
			}
		}
	})
}

// TestPropertyUpdateIsCumulative checks that flags only ever accumulate
// and that repeating the offending input never clears or re-counts them.
func TestPropertyUpdateIsCumulative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 1, 30), 1, 10).Draw(t, "lines")

		s := New(OptReport8BitIn7BitBody|OptReport8BitInHeader, DefaultLimits(), &recorder{})
		s.Update(TextComplete, []byte("Subject: t"))
		s.Update(TextComplete, nil)

		var prev ErrorFlags
		for _, line := range lines {
			got := s.Update(TextComplete, line)
			if got&prev != prev {
				t.Fatalf("flags went backwards: %b -> %b", prev, got)
			}
			prev = got
		}
		// Feeding the same lines again changes nothing.
		for _, line := range lines {
			if got := s.Update(TextComplete, line); got != prev {
				t.Fatalf("flags changed on repeat: %b -> %b", prev, got)
			}
		}
	})
}

// TestPropertyHeaderReconstruction checks that the bytes delivered for a
// folded header are the input fragments joined with newlines.
func TestPropertyHeaderReconstruction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9-]{0,12}`).Draw(t, "name")
		value := rapid.StringMatching(`[!-~]( ?[!-~]){0,15}`).Draw(t, "value")
		folds := rapid.SliceOfN(rapid.StringMatching(`[ \t][!-~]{1,15}`), 0, 3).Draw(t, "folds")

		rec := &recorder{}
		s := New(OptNone, DefaultLimits(), rec)
		first := name + ": " + value
		s.Update(TextComplete, []byte(first))
		for _, f := range folds {
			s.Update(TextComplete, []byte(f))
		}
		s.Update(TextComplete, nil)

		want := first
		for _, f := range folds {
			want += "\n" + f
		}
		heads := rec.heads()
		if len(heads) != 1 {
			t.Fatalf("head count = %d (name %q value %q)", len(heads), name, value)
		}
		if heads[0].data != want {
			t.Fatalf("header = %q, want %q", heads[0].data, want)
		}
	})
}

// TestPropertyDowngradeOutputValid checks that downgraded output is
// well-formed quoted-printable and decodes back to the input.
func TestPropertyDowngradeOutputValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 120), 1, 8).Draw(t, "lines")

		rec := &recorder{}
		s := New(OptDowngrade, DefaultLimits(), rec)
		s.Update(TextComplete, []byte("Content-Transfer-Encoding: 8bit"))
		s.Update(TextComplete, nil)
		for _, line := range lines {
			s.Update(TextComplete, line)
		}
		s.Update(NonText, nil)

		records := rec.bodies()
		for i, r := range records {
			if len(r) > 76 {
				t.Fatalf("record %d is %d bytes", i, len(r))
			}
			for j := 0; j < len(r); j++ {
				c := r[j]
				if c == '=' {
					if j == len(r)-1 {
						continue // soft line break
					}
					if j+2 >= len(r) || !isUpperHex(r[j+1]) || !isUpperHex(r[j+2]) {
						t.Fatalf("record %d has bad escape at %d: %q", i, j, r)
					}
					j += 2
					continue
				}
				if c != '\t' && (c < 32 || c > 126) {
					t.Fatalf("record %d has illegal literal 0x%02x: %q", i, c, r)
				}
			}
		}

		decoded := decodeQPRecords(records)
		if len(decoded) != len(lines) {
			t.Fatalf("decoded %d logical lines, want %d", len(decoded), len(lines))
		}
		for i := range lines {
			if decoded[i] != string(lines[i]) {
				t.Fatalf("line %d: decoded %q, want %q", i, decoded[i], lines[i])
			}
		}
	})
}

func isUpperHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	if c >= 'A' {
		return c - 'A' + 10
	}
	return c - '0'
}

// decodeQPRecords reassembles quoted-printable records into logical lines,
// honoring soft line breaks.
func decodeQPRecords(records []string) []string {
	var lines []string
	var cur strings.Builder
	for _, r := range records {
		soft := false
		for j := 0; j < len(r); j++ {
			c := r[j]
			if c == '=' {
				if j == len(r)-1 {
					soft = true
					break
				}
				cur.WriteByte(hexVal(r[j+1])<<4 | hexVal(r[j+2]))
				j += 2
				continue
			}
			cur.WriteByte(c)
		}
		if !soft {
			lines = append(lines, cur.String())
			cur.Reset()
		}
	}
	return lines
}
