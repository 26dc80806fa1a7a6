package common

import (
	"strings"
	"unicode"
)

// NormalizePlate converts OCR or hand-typed plate text into the canonical
// form: upper case, alphanumerics only, groups separated by single spaces.
func NormalizePlate(raw string) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.ToUpper(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// CompactPlate strips every space from a canonical plate.
func CompactPlate(plate string) string {
	return strings.ReplaceAll(plate, " ", "")
}

// PlateKey is the form plates are stored and compared in: canonical and
// compacted, so "ka-01 ab 1234" and "KA01AB1234" are the same vehicle.
func PlateKey(raw string) string {
	return CompactPlate(NormalizePlate(raw))
}
