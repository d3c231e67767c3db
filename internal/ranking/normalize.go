package ranking

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// featuringGroup matches a parenthesised or bracketed credit such as "(feat. Bon Iver)" or "[ft Drake]".
var featuringGroup = regexp.MustCompile(`(?i)[\(\[]\s*(?:featuring|feat\.?|ft\.?)(?:[^\pL\pN_\)\]][^\)\]]*)?[\)\]]`)

// markers are tried in order; dotted forms come before their bare prefix.
var markers = []string{"featuring", "feat.", "feat", "ft.", "ft"}

// Normalize turns a raw title into a search query.
//
// Featuring groups and whole-word markers are removed, then whitespace runs collapse to a single space.
func Normalize(title string) string {
	title = featuringGroup.ReplaceAllString(title, " ")
	title = stripMarkers(title)
	return strings.Join(strings.Fields(title), " ")
}

// stripMarkers replaces every whole-word featuring marker with a space.
//
// A marker must not be preceded by a word character. Bare markers ("feat", "ft", "featuring")
// must also not be followed by one; dotted markers end on a non-word character already.
func stripMarkers(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if n := markerAt(s, i); n > 0 {
			b.WriteByte(' ')
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// markerAt returns the length of the marker starting at s[i], or 0.
func markerAt(s string, i int) int {
	if prev, _ := utf8.DecodeLastRuneInString(s[:i]); i > 0 && isWord(prev) {
		return 0
	}

	for _, m := range markers {
		end := i + len(m)
		if end > len(s) || !strings.EqualFold(s[i:end], m) {
			continue
		}
		if next, _ := utf8.DecodeRuneInString(s[end:]); !strings.HasSuffix(m, ".") && end < len(s) && isWord(next) {
			continue
		}
		return len(m)
	}
	return 0
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
