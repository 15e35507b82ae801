package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Prefix namespaces every tessellation key. Bump the version when the
// cached payload shape changes.
const Prefix = "h3cities:v1:fc"

// Key addresses one tessellation result. Place variants that differ
// only in case or spacing share a key.
func Key(place string, res int) string {
	norm := NormalizePlace(place)
	safe := sanitizeForKey(norm)

	const maxPlaceTextLen = 120
	if len(safe) > maxPlaceTextLen {
		safe = safe[:maxPlaceTextLen]
	}

	sum := xxhash.Sum64String(norm)

	return fmt.Sprintf("%s:%d:%s:p=%016x", Prefix, res, safe, sum)
}

// NormalizePlace lowercases place and collapses whitespace runs.
func NormalizePlace(place string) string {
	return strings.ToLower(collapseWhitespace(place))
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r) || r == ',':
			out = '_'
		case isAlphaNum(r) || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of whitespace to a single space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
