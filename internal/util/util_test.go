package util

import (
	"bytes"
	"testing"
)

func TestCopyBytes(t *testing.T) {
	a := []byte{1, 2, 3}
	copied := CopyBytes(a)
	if !bytes.Equal(a, copied) {
		t.Error("CopyBytes failed")
	}
	copied[0] = 0xFF
	if a[0] == 0xFF {
		t.Error("CopyBytes should return a new slice")
	}
	if CopyBytes(nil) != nil {
		t.Error("CopyBytes(nil) should be nil")
	}
	if got := CopyBytes([]byte{}); got == nil || len(got) != 0 {
		t.Error("CopyBytes should keep empty slices non-nil")
	}
}

func TestNormalize(t *testing.T) {
	normalized := Normalize("cafe\u0301") // é in NFD
	if normalized != "caf\u00e9" {
		t.Errorf("Normalize failed, got %q", normalized)
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plain":                   "plain",
		"tab\tand\nnewline":       "tab and newline",
		"\x1b[31mred\x1b[0m":      "[31mred[0m",
		"bell\a":                  "bell",
		"bad\xffutf8":             "bad�utf8",
		"cafe\u0301":              "caf\u00e9",
		"\u0085next line control": "next line control",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("12345678"); got != "12345678" {
		t.Errorf("ShortID kept length 8 = %q", got)
	}
	if got := ShortID("6f1c2a9e-3b4d-4e5f"); got != "6f1c2a9e..." {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID(""); got != "" {
		t.Errorf("ShortID empty = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate with no limit = %q", got)
	}
}
