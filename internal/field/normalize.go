package field

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	requiredMarkerRe = regexp.MustCompile(`\(\s*(required|optional)\s*\)|\*`)
	nonWordRe        = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	hexRunRe         = regexp.MustCompile(`[0-9a-f]{6,}`)
	digitRunRe       = regexp.MustCompile(`[0-9]+`)
	longDigitRunRe   = regexp.MustCompile(`[0-9]{3,}`)
	idSeparatorRe    = regexp.MustCompile(`[^a-z0-9#]+`)
	camelBoundaryRe  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SanitizeText strips markup and collapses whitespace while keeping case
// and punctuation.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeLabel reduces a visible label to a stable comparison form:
// markup removed, accents folded, case folded, required markers and
// punctuation dropped, whitespace collapsed.
func NormalizeLabel(s string) string {
	s = SanitizeText(s)
	if s == "" {
		return ""
	}
	s = foldText(s)
	s = requiredMarkerRe.ReplaceAllString(s, " ")
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeIDFragment reduces a structural identifier to its stable part.
// Generated suffixes differ between page loads and companies, so runs of
// three or more digits and hex ids collapse to "#". Short ordinals such as
// the 1 in addressLine1 are kept.
func NormalizeIDFragment(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	id = hexRunRe.ReplaceAllStringFunc(id, func(run string) string {
		if strings.ContainsAny(run, "0123456789") {
			return "#"
		}
		return run
	})
	id = longDigitRunRe.ReplaceAllString(id, "#")
	id = idSeparatorRe.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}

// IdentifierWords turns "phoneNumber--extension" into "phone number extension"
// for use as classifier context.
func IdentifierWords(id string) string {
	id = camelBoundaryRe.ReplaceAllString(id, "$1 $2")
	id = strings.ToLower(id)
	id = digitRunRe.ReplaceAllString(id, " ")
	id = nonWordRe.ReplaceAllString(id, " ")
	return strings.Join(strings.Fields(id), " ")
}

func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
