package indexer

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t\n  ", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"trailing spaces", "a   \nb\t", "a\nb"},
		{"blank runs collapse", "a\n\n\n\n\nb", "a\n\nb"},
		{"single break kept", "a\n\nb", "a\n\nb"},
		{"nul removed", "a\x00b", "ab"},
		{"leading indentation kept", "a\n  b", "a\n  b"},
		{"trimmed", "\n\n  hello  \n\n", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
