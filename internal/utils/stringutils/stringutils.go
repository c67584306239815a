package stringutils

import (
	"fmt"
	"strings"
	"unicode"
)

// INClause builds positional placeholders for an IN (...) list. The first
// placeholder is $start, so the list can follow other arguments in the query.
func INClause[T any](list []T, start int) (placeholders []string, args []any) {
	placeholders = make([]string, len(list))
	args = make([]any, len(list))
	for i, id := range list {
		placeholders[i] = fmt.Sprintf("$%d", i+start)
		args[i] = id
	}

	return placeholders, args
}

// Slugify lower-cases s and joins its runs of letters and digits with single
// hyphens. Everything else is dropped.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '\'' || r == '"' || r == '`':
			// apostrophes and quotes vanish: "don't" -> "dont"
		default:
			pendingHyphen = true
		}
	}

	return b.String()
}
