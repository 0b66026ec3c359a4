package protect

import (
	"path"
	"strings"
	"unicode"
)

// matchGlob matches a slash-separated path against a pattern where **
// matches zero or more whole segments and other segments use path.Match.
func matchGlob(p, pattern string) bool {
	return matchSegments(strings.Split(p, "/"), strings.Split(pattern, "/"))
}

func matchSegments(parts, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		pattern = pattern[1:]

		if head == "**" {
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(parts); i++ {
				if matchSegments(parts[i:], pattern) {
					return true
				}
			}
			return false
		}

		if len(parts) == 0 {
			return false
		}
		if ok, err := path.Match(head, parts[0]); err != nil || !ok {
			return false
		}
		parts = parts[1:]
	}
	return len(parts) == 0
}

// words splits a path into lower-case alphanumeric words.
func words(p string) []string {
	return strings.FieldsFunc(strings.ToLower(p), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
