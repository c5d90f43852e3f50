package pagination

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.FixedZone("JST", 9*3600))
	for _, id := range []string{"hn-1", "ledge-a,b", "42"} {
		got, gotID, err := DecodeCursor(EncodeCursor(ts, id))
		if err != nil {
			t.Fatalf("DecodeCursor(%q): %v", id, err)
		}
		if !got.Equal(ts) || got.Location() != time.UTC {
			t.Fatalf("timestamp mismatch: %v", got)
		}
		if gotID != id {
			t.Fatalf("id mismatch: got %q want %q", gotID, id)
		}
	}
}

func TestDecodeCursorErrors(t *testing.T) {
	t.Parallel()

	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%"},
		{"no separator", enc("2025-03-01T00:00:00Z")},
		{"empty id", enc("2025-03-01T00:00:00Z,")},
		{"bad time", enc("yesterday,hn-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeCursor(tt.cursor); err == nil {
				t.Fatalf("expected error for %q", tt.cursor)
			}
		})
	}
}
