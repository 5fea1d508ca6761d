package sqlcheck

import (
	"fmt"
	"strings"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// SyntaxError is a structured syntax-surface failure with an
// approximate byte offset into the statement (-1 when not applicable).
type SyntaxError struct {
	Message  string
	Position int
}

func (e *SyntaxError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s (near offset %d)", e.Message, e.Position)
	}
	return e.Message
}

// CheckSyntax runs the dialect-aware surface check on one statement:
// non-empty, a single statement, read-only shape, balanced quotes and
// parentheses, and no quoting style foreign to the dialect. It is not a
// full parse; the live engine remains the authority on grammar, and its
// verdict feeds the repair loop.
func CheckSyntax(sql string, dialect models.Dialect) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &SyntaxError{Message: "empty statement", Position: -1}
	}

	body := StripTrailingSemicolon(trimmed)

	if typ := DetectStatementType(body); typ != StatementSelect {
		return &SyntaxError{
			Message:  fmt.Sprintf("only read-only SELECT statements are allowed, got %s", typ),
			Position: 0,
		}
	}

	if pos := semicolonOutsideStrings(body); pos >= 0 {
		return &SyntaxError{Message: "multiple SQL statements are not allowed", Position: pos}
	}

	return checkBalance(body, dialect)
}

// semicolonOutsideStrings returns the offset of the first semicolon
// outside string literals and quoted identifiers, or -1.
func semicolonOutsideStrings(sql string) int {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	for i := 0; i < len(sql); i++ {
		switch state {
		case stateNormal:
			switch sql[i] {
			case ';':
				return i
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '$':
				if end, _, ok := scanDollarQuote(sql, i); ok {
					i = end - 1
				}
			}
		case stateSingleQuote:
			if sql[i] == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if sql[i] == '"' {
				state = stateNormal
			}
		}
	}
	return -1
}

// checkBalance verifies quote termination, parenthesis balance, and
// dialect-legal identifier quoting.
func checkBalance(sql string, dialect models.Dialect) error {
	depth := 0
	var lastOpen int

	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			end := closeQuote(sql, i, '\'')
			if end < 0 {
				return &SyntaxError{Message: "unterminated string literal", Position: i}
			}
			i = end

		case '"':
			end := closeQuote(sql, i, '"')
			if end < 0 {
				return &SyntaxError{Message: "unterminated quoted identifier", Position: i}
			}
			i = end

		case '`':
			if dialect != models.DialectMySQL {
				return &SyntaxError{
					Message:  fmt.Sprintf("backtick-quoted identifiers are not valid %s syntax", dialect),
					Position: i,
				}
			}
			end := closeQuote(sql, i, '`')
			if end < 0 {
				return &SyntaxError{Message: "unterminated quoted identifier", Position: i}
			}
			i = end

		case '[':
			// Bracket quoting is SQL Server only; elsewhere brackets are
			// expression syntax (e.g. array subscripts) and stay out of
			// the balance check.
			if dialect == models.DialectSQLServer {
				end := strings.IndexByte(sql[i+1:], ']')
				if end < 0 {
					return &SyntaxError{Message: "unterminated bracketed identifier", Position: i}
				}
				i += end + 1
			}

		case '$':
			end, terminated, ok := scanDollarQuote(sql, i)
			if !ok {
				continue
			}
			if !terminated {
				return &SyntaxError{Message: "unterminated dollar-quoted literal", Position: i}
			}
			i = end - 1

		case '(':
			depth++
			lastOpen = i

		case ')':
			depth--
			if depth < 0 {
				return &SyntaxError{Message: "unmatched closing parenthesis", Position: i}
			}
		}
	}

	if depth > 0 {
		return &SyntaxError{Message: "unclosed parenthesis", Position: lastOpen}
	}

	return nil
}

// closeQuote returns the index of the closing quote for the region
// opening at sql[start], honoring the doubled-quote escape, or -1.
func closeQuote(sql string, start int, quote byte) int {
	for i := start + 1; i < len(sql); i++ {
		if sql[i] != quote {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == quote {
			i++
			continue
		}
		return i
	}
	return -1
}
