// ABOUTME: Command line tokenizer shared by the router and the framework command table.
// ABOUTME: Splits on whitespace except inside double-quoted spans.

package router

import (
	"strings"
	"unicode"
)

// Tokenize splits line into a verb and its arguments. Double quotes group
// whitespace into one token and are stripped; an unterminated quote runs to
// the end of the line. ok is false when the line holds no tokens.
func Tokenize(line string) (verb string, args []string, ok bool) {
	var (
		tokens   []string
		buf      strings.Builder
		inQuotes bool
	)
	flush := func() {
		if token := strings.TrimSpace(buf.String()); token != "" {
			tokens = append(tokens, token)
		}
		buf.Reset()
	}

	for _, r := range line {
		switch {
		case r == '"':
			if inQuotes {
				flush()
			}
			inQuotes = !inQuotes
		case unicode.IsSpace(r) && !inQuotes:
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()

	if len(tokens) == 0 {
		return "", nil, false
	}
	return tokens[0], tokens[1:], true
}
