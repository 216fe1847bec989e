package versions

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9.-]+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slug produces the directory-safe form of a version name: diacritics
// are decomposed and dropped, everything is lowercased, and anything
// outside [a-z0-9.-] becomes a dash.
func Slug(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, name)
	if err != nil {
		ascii = name
	}

	s := strings.ToLower(ascii)
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
