package geodata

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes to NFD, removes combining marks and recomposes.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName converts a municipality name to the canonical join key:
// accent-stripped, uppercased, space-trimmed. The establishment table and
// the boundary file disagree on accents and casing, so both sides are
// normalized before the choropleth join.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	out, _, err := transform.String(stripAccents, name)
	if err != nil {
		out = name
	}
	return strings.ToUpper(strings.TrimSpace(out))
}
