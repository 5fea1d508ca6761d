package sqlcheck

import "strings"

// clauseKeywords are words that terminate a FROM list or an alias
// position.
var clauseKeywords = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "FETCH": true, "WINDOW": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "CROSS": true, "OUTER": true, "NATURAL": true,
	"ON": true, "USING": true, "SET": true, "FOR": true,
	"WITH": true, "AS": true,
}

// fromFunctions take FROM as an argument separator inside their call.
var fromFunctions = map[string]bool{
	"EXTRACT": true, "SUBSTRING": true, "TRIM": true,
	"POSITION": true, "OVERLAY": true,
}

// ExtractTables returns the table identifiers referenced by FROM and
// JOIN clauses, excluding names introduced by a WITH clause (those are
// statement-local, not schema tables). Schema-qualified names yield the
// final segment; duplicates collapse case-insensitively with first-seen
// casing preserved, in order of first appearance.
func ExtractTables(sql string) []string {
	toks := tokenize(sql)
	ctes := cteNames(toks)

	var tables []string
	seen := make(map[string]bool)

	add := func(name string) {
		if name == "" {
			return
		}
		lower := strings.ToLower(name)
		if ctes[lower] || seen[lower] {
			return
		}
		seen[lower] = true
		tables = append(tables, name)
	}

	// The scan visits every token, including those inside subqueries and
	// CTE bodies, so nested FROM clauses contribute their tables too.
	for i := 0; i < len(toks); i++ {
		// EXTRACT(YEAR FROM col) and friends use FROM as an argument
		// separator; their argument lists carry no table references.
		if toks[i].kind == tokenWord && fromFunctions[strings.ToUpper(toks[i].text)] &&
			i+1 < len(toks) && toks[i+1].kind == tokenPunct && toks[i+1].text == "(" {
			i = skipBalancedParens(toks, i+1) - 1
			continue
		}
		if isKeyword(toks[i], "FROM") {
			// IS [NOT] DISTINCT FROM compares expressions; its right-hand
			// operand is a column, not a table reference.
			if i > 0 && isKeyword(toks[i-1], "DISTINCT") {
				continue
			}
			collectFromList(toks, i+1, add)
		} else if isKeyword(toks[i], "JOIN") {
			collectTableRef(toks, i+1, add)
		}
	}

	return tables
}

// collectFromList consumes the comma-separated table references after
// FROM and returns the index of the first token past the list.
func collectFromList(toks []token, i int, add func(string)) int {
	for {
		i = collectTableRef(toks, i, add)
		if i >= len(toks) || toks[i].kind != tokenPunct || toks[i].text != "," {
			return i
		}
		i++
	}
}

// collectTableRef consumes one table reference (possibly a derived
// table) plus its alias and returns the index after it.
func collectTableRef(toks []token, i int, add func(string)) int {
	if i >= len(toks) {
		return i
	}

	// Derived table: FROM ( SELECT ... ) alias contributes no schema table.
	if toks[i].kind == tokenPunct {
		if toks[i].text == "(" {
			i = skipBalancedParens(toks, i)
			return skipAlias(toks, i)
		}
		return i
	}

	if toks[i].kind == tokenWord && clauseKeywords[strings.ToUpper(toks[i].text)] {
		return i
	}

	// Name, possibly schema-qualified: keep the final segment.
	name := toks[i].text
	i++
	for i+1 < len(toks) &&
		toks[i].kind == tokenPunct && toks[i].text == "." &&
		toks[i+1].kind != tokenPunct {
		name = toks[i+1].text
		i += 2
	}

	// Table-valued function call, not a table.
	if i < len(toks) && toks[i].kind == tokenPunct && toks[i].text == "(" {
		i = skipBalancedParens(toks, i)
		return skipAlias(toks, i)
	}

	add(name)
	return skipAlias(toks, i)
}

// skipAlias consumes an optional [AS] alias after a table reference.
func skipAlias(toks []token, i int) int {
	if i < len(toks) && isKeyword(toks[i], "AS") {
		i++
		if i < len(toks) && toks[i].kind != tokenPunct {
			i++
		}
		return i
	}
	if i < len(toks) && toks[i].kind != tokenPunct &&
		!(toks[i].kind == tokenWord && clauseKeywords[strings.ToUpper(toks[i].text)]) {
		i++
	}
	return i
}

// cteNames collects the names bound by WITH clauses anywhere in the
// statement, lowercased. A WITH immediately followed by "(" is a table
// hint (e.g. WITH (NOLOCK)), not a CTE list.
func cteNames(toks []token) map[string]bool {
	names := make(map[string]bool)

	for i := 0; i < len(toks); i++ {
		if !isKeyword(toks[i], "WITH") {
			continue
		}
		j := i + 1
		if j < len(toks) && isKeyword(toks[j], "RECURSIVE") {
			j++
		}
		if j >= len(toks) || toks[j].kind == tokenPunct {
			continue
		}

		for j < len(toks) && toks[j].kind != tokenPunct {
			name := strings.ToLower(toks[j].text)
			j++

			// Optional column list before AS.
			if j < len(toks) && toks[j].kind == tokenPunct && toks[j].text == "(" {
				j = skipBalancedParens(toks, j)
			}
			if j >= len(toks) || !isKeyword(toks[j], "AS") {
				break
			}
			j++
			if j >= len(toks) || toks[j].kind != tokenPunct || toks[j].text != "(" {
				break
			}
			names[name] = true
			j = skipBalancedParens(toks, j)

			if j < len(toks) && toks[j].kind == tokenPunct && toks[j].text == "," {
				j++
				continue
			}
			break
		}
		i = j - 1
	}

	return names
}
