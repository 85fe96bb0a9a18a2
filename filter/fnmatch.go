package filter

import (
	"strings"

	"github.com/gobwas/glob"
)

// compileFnmatch compiles a pattern with fnmatch(3) semantics and no flags:
// '*' and '?' also match '/', braces and commas are plain characters, and
// a bracket expression that does not parse is taken literally.
func compileFnmatch(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(quoteGlob(pattern, "{},]", true))
	if err == nil {
		return g, nil
	}
	return glob.Compile(quoteGlob(pattern, "{},[]", false))
}

// quoteGlob backslash-escapes every byte of pattern found in chars. Existing
// escapes are kept. With keepClasses set, complete bracket expressions are
// copied unchanged.
func quoteGlob(pattern, chars string, keepClasses bool) string {
	var b strings.Builder
	b.Grow(len(pattern) + 8)

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			if i+1 == len(pattern) {
				// a trailing backslash matches itself
				b.WriteString(`\\`)
				continue
			}
			b.WriteByte(c)
			i++
			b.WriteByte(pattern[i])
		case c == '[' && keepClasses:
			end := classEnd(pattern, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(pattern[i : end+1])
			i = end
		case strings.IndexByte(chars, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// classEnd returns the index of the ']' closing the bracket expression that
// starts at open, or -1.
func classEnd(pattern string, open int) int {
	i := open + 1
	if i < len(pattern) && pattern[i] == '!' {
		i++
	}
	// a ']' right after the opening bracket is a member
	if i < len(pattern) && pattern[i] == ']' {
		i++
	}
	for ; i < len(pattern); i++ {
		if pattern[i] == ']' {
			return i
		}
	}
	return -1
}
