package preview

import (
	"errors"
	"strings"
)

// ErrNoHead is returned when a document has no "head>" marker to slice on.
var ErrNoHead = errors.New("document has no head section")

// HeadSection slices the head out of a document with plain string splits:
// the text after the first "head>", minus everything from its last "</".
// This is not an HTML parser; markers inside comments, scripts or attribute
// values are matched like any other text.
func HeadSection(doc string) (string, error) {
	parts := strings.Split(doc, "head>")
	if len(parts) < 2 {
		return "", ErrNoHead
	}
	segs := strings.Split(parts[1], "</")
	return strings.Join(segs[:len(segs)-1], "</"), nil
}

// Tokenize splits head on '<' and returns, in order, every chunk that
// mentions "meta" or "link" anywhere, re-prefixed with '<'. End of input
// closes the final chunk.
func Tokenize(head string) []string {
	var (
		out []string
		acc strings.Builder
	)
	emit := func() {
		if s := acc.String(); strings.Contains(s, "meta") || strings.Contains(s, "link") {
			out = append(out, "<"+s)
		}
		acc.Reset()
	}

	for _, r := range head {
		if r == '<' {
			emit()
			continue
		}
		acc.WriteRune(r)
	}
	emit()
	return out
}
