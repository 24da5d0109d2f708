package indexer

import (
	"strings"
)

// Normalize prepares extracted text for chunking: line endings become "\n", NUL bytes and
// trailing whitespace on each line are dropped, runs of blank lines collapse to a single
// paragraph break, and the result is trimmed.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f\v")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}
