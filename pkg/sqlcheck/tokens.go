package sqlcheck

import "strings"

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// tokenize splits sql into identifier/keyword words, quoted identifiers,
// and single-character punctuation. String literals and comments are
// consumed and emit no tokens.
func tokenize(sql string) []token {
	var toks []token

	i := 0
	for i < len(sql) {
		c := sql[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := i + 2
			for end+1 < len(sql) && !(sql[end] == '*' && sql[end+1] == '/') {
				end++
			}
			if end+1 < len(sql) {
				i = end + 2
			} else {
				i = len(sql)
			}

		case c == '\'':
			i++
			for i < len(sql) {
				if sql[i] == '\'' {
					if i+1 < len(sql) && sql[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}

		case c == '"' || c == '`':
			closer := c
			start := i + 1
			j := start
			for j < len(sql) && sql[j] != closer {
				j++
			}
			toks = append(toks, token{kind: tokenQuoted, text: sql[start:j], pos: i})
			if j < len(sql) {
				j++
			}
			i = j

		case c == '[':
			start := i + 1
			j := start
			for j < len(sql) && sql[j] != ']' {
				j++
			}
			toks = append(toks, token{kind: tokenQuoted, text: sql[start:j], pos: i})
			if j < len(sql) {
				j++
			}
			i = j

		case c == '$':
			if end, _, ok := scanDollarQuote(sql, i); ok {
				i = end
				continue
			}
			fallthrough

		case isWordByte(c):
			start := i
			for i < len(sql) && isWordByte(sql[i]) {
				i++
			}
			toks = append(toks, token{kind: tokenWord, text: sql[start:i], pos: start})

		default:
			toks = append(toks, token{kind: tokenPunct, text: string(c), pos: i})
			i++
		}
	}

	return toks
}

// scanDollarQuote reports whether a dollar-quoted literal ($$...$$ or
// $tag$...$tag$) opens at s[i] and returns the index just past its
// closing delimiter. An unterminated literal runs to the end with
// terminated false. $1-style parameters are not quote openers.
func isTagByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func scanDollarQuote(s string, i int) (end int, terminated, ok bool) {
	j := i + 1
	for j < len(s) && isTagByte(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false, false
	}
	if j > i+1 && s[i+1] >= '0' && s[i+1] <= '9' {
		return 0, false, false
	}

	delim := s[i : j+1]
	rest := strings.Index(s[j+1:], delim)
	if rest < 0 {
		return len(s), false, true
	}
	return j + 1 + rest + len(delim), true, true
}

// isKeyword reports whether tok is the given bare keyword,
// case-insensitively. Quoted identifiers are never keywords.
func isKeyword(tok token, upper string) bool {
	if tok.kind != tokenWord || len(tok.text) != len(upper) {
		return false
	}
	for i := 0; i < len(upper); i++ {
		c := tok.text[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != upper[i] {
			return false
		}
	}
	return true
}

// skipBalancedParens advances past the parenthesized group opening at
// toks[i] (which must be "(") and returns the index after the closing
// paren. Runs to the end on unbalanced input.
func skipBalancedParens(toks []token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		if toks[i].kind != tokenPunct {
			continue
		}
		switch toks[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}
