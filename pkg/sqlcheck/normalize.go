// Package sqlcheck provides the SQL validation helpers used by the
// agent workflow: whitespace normalization, statement-type detection, a
// dialect-aware syntax surface check, and table-reference extraction.
package sqlcheck

import "strings"

// NormalizeWhitespace collapses whitespace runs outside quoted string
// literals to single spaces and trims the ends. Quoted substrings pass
// through byte-for-byte, so literal spacing such as 'hello   world'
// survives normalization.
func NormalizeWhitespace(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	pendingSpace := false

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		switch state {
		case stateNormal:
			switch c {
			case ' ', '\t', '\n', '\r':
				if b.Len() > 0 {
					pendingSpace = true
				}
				continue
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '$':
				// Dollar-quoted literals pass through byte-for-byte like
				// the other string forms.
				if end, _, ok := scanDollarQuote(sql, i); ok {
					if pendingSpace {
						b.WriteByte(' ')
						pendingSpace = false
					}
					b.WriteString(sql[i:end])
					i = end - 1
					continue
				}
			}
		case stateSingleQuote:
			// SQL standard escape '' reads as exit-then-reenter, which
			// keeps the scan correct without lookahead.
			if c == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
			}
		}

		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteByte(c)
	}

	return b.String()
}

// StripTrailingSemicolon removes one trailing semicolon plus
// surrounding whitespace.
func StripTrailingSemicolon(sql string) string {
	sql = strings.TrimRight(sql, " \t\n\r")
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimRight(strings.TrimSuffix(sql, ";"), " \t\n\r")
	}
	return sql
}
