package mrz

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes characters and drops their combining marks, so an
// OCR output like "É" becomes "E".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize cleans up common OCR artifacts before validation: diacritics are
// stripped, letters uppercased and spaces removed, while line structure is
// preserved. It deliberately does not touch characters that remain outside
// the MRZ charset afterwards; those still fail the strict parse.
func Normalize(raw string) string {
	cleaned, _, err := transform.String(stripMarks, raw)
	if err != nil {
		cleaned = raw
	}

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		switch {
		case r == ' ' || r == '\t':
			// OCR tends to insert spurious whitespace between glyphs.
		case r >= 'a' && r <= 'z':
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
