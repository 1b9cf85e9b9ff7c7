package report

import (
	"regexp"
	"strings"
	"unicode"
)

// elevationSuffix matches a height qualifier such as " 2M" or " 10M" after title-casing.
var elevationSuffix = regexp.MustCompile(` \d+M\b`)

// humanize turns an upstream field name into a label:
// "temperature_2m_max" becomes "Temperature Max".
func humanize(name string) string {
	return elevationSuffix.ReplaceAllString(titleCase(strings.ReplaceAll(name, "_", " ")), "")
}

// titleCase upper-cases each letter that follows a non-letter and lower-cases
// the rest, so "10m" becomes "10M".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
