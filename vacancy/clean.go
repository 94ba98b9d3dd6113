package vacancy

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanField strips HTML markup from a raw CSV value, turns line breaks into
// "; " separators and collapses runs of whitespace into single spaces.
func CleanField(s string) string {
	if strings.IndexByte(s, '<') >= 0 {
		s = stripTags(s)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "; ")
	return strings.Join(strings.Fields(s), " ")
}

// stripTags keeps only the text tokens of s. Entities are left as written so
// that "&lt;" in plain text survives a round trip through the cleaner.
func stripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Raw())
		}
	}
}
