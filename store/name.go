package store

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	nameMaxWords = 7
	nameMaxRunes = 50
)

// stripPolicy removes all markup, leaving plain text. Shared; bluemonday
// policies are safe for concurrent use.
var stripPolicy = bluemonday.StrictPolicy()

// DeriveName builds a short display name from snippet content: markup
// stripped, whitespace collapsed, truncated to the first few words within
// a rune budget, with a trailing ellipsis when anything was cut.
func DeriveName(content string) string {
	plain := html.UnescapeString(stripPolicy.Sanitize(content))
	words := strings.Fields(plain)
	if len(words) == 0 {
		return "Untitled Snippet"
	}

	var b strings.Builder
	used := 0
	for i, w := range words {
		if i == nameMaxWords {
			break
		}
		sep := 0
		if i > 0 {
			sep = 1
		}
		n := utf8.RuneCountInString(w)
		if i > 0 && used+sep+n > nameMaxRunes {
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		if n > nameMaxRunes { // single word longer than the whole budget
			b.WriteString(truncateRunes(w, nameMaxRunes))
			used = nameMaxRunes
			break
		}
		b.WriteString(w)
		used += sep + n
	}

	name := b.String()
	if name != strings.Join(words, " ") {
		name += "..."
	}
	return name
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
