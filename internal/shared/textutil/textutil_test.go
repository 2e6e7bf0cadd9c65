package textutil_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"geethika.lk/app/internal/shared/textutil"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"\u0dc1\u0dca\u0dbb\u0dd3", 2, "\u0dc1\u0dca"},
		{"abc", 0, "abc"},
		{"", 4, ""},
	}
	for _, tc := range tests {
		if got := textutil.Truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("Truncate(%q, %d): expected %q, got %q", tc.in, tc.n, tc.want, got)
		}
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	in := strings.Repeat("ශ", 200)
	got := textutil.Truncate(in, 167)
	if !utf8.ValidString(got) {
		t.Fatalf("Expected valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != 167 {
		t.Errorf("Expected 167 runes, got %d", n)
	}
}
