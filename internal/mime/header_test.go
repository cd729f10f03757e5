package mime

import "testing"

func TestIsHeader(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"Subject: hi", 7},
		{"Subject:hi", 7},
		{"Subject : hi", 7}, // obsolete form: name, whitespace, colon
		{"X-Loop\t:", 6},
		{"Content-Type: text/plain", 12},
		{":empty-name", 0},
		{" Subject: folded", 0}, // leading whitespace is a continuation
		{"\tSubject: folded", 0},
		{"no colon here", 0},
		{"Bad Name: x", 0}, // space inside the name
		{"Subj\x80ect: x", 0},
		{"Sub\x01ject: x", 0},
		{"", 0},
		{"--boundary", 0}, // no colon
	}
	for _, tt := range tests {
		if got := IsHeader([]byte(tt.line)); got != tt.want {
			t.Errorf("IsHeader(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestLookupHeader(t *testing.T) {
	info := LookupHeader([]byte("CONTENT-TYPE: text/plain"))
	if info == nil || info.Kind != HeaderContentType {
		t.Fatalf("CONTENT-TYPE lookup = %+v, want ContentType kind", info)
	}
	if len(info.Name) != len("Content-Type") {
		t.Errorf("descriptor name %q must be as long as the header name", info.Name)
	}

	info = LookupHeader([]byte("content-transfer-encoding: 8bit"))
	if info == nil || info.Kind != HeaderContentTransferEncoding {
		t.Fatalf("content-transfer-encoding lookup = %+v", info)
	}

	if LookupHeader([]byte("X-Custom: v")) != nil {
		t.Error("unknown header should have no descriptor")
	}
	if LookupHeader([]byte("no colon")) != nil {
		t.Error("missing colon should have no descriptor")
	}
}
