// Package envexpr expands ${env.KEY} expressions against the process
// environment.
package envexpr

import (
	"os"
	"strings"
	"unicode"
)

// Expand replaces every ${env.KEY} occurrence in value with the
// environment variable KEY, or the empty string when KEY is unset. A key
// may contain letters, digits and underscores; an expression with any
// other character is kept as literal text, except that its ${env. prefix
// is consumed so nested expressions after it still expand.
func Expand(value string) string {
	const prefix = "${env."
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(value[i:], prefix)
		if idx < 0 {
			b.WriteString(value[i:])
			break
		}

		b.WriteString(value[i : i+idx])
		startKey := i + idx + len(prefix)

		endKey := strings.IndexByte(value[startKey:], '}')
		if endKey < 0 {
			// no closing brace, the rest is literal
			b.WriteString(value[i+idx:])
			break
		}

		key := value[startKey : startKey+endKey]
		if validKey(key) {
			b.WriteString(os.Getenv(key))
			i = startKey + endKey + 1
			continue
		}

		// keep the invalid expression literal but resume scanning right
		// after the prefix
		b.WriteString(value[i+idx : startKey])
		i = startKey
	}

	return b.String()
}

func validKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
