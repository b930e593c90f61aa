// Package sqlast is a hand-rolled T-SQL batch/statement parser. It trades
// full-grammar fidelity for a pragmatic recursive-descent-over-regex style:
// batches are split on the GO separator, each batch is split into top-level
// statements, and each statement is classified by its leading keywords. No
// Go library in the retrieval pack models T-SQL's batch separator, stored
// routines, or MERGE, so this package exists to fill that gap. Embedded SQL
// snippets recovered by internal/inlinesql are classified with the same
// Classify function.
package sqlast

import "strings"

// QualifiedName is a schema-qualified T-SQL object name.
type QualifiedName struct {
	Schema string
	Name   string
}

// String renders the qualified name as "schema.name".
func (q QualifiedName) String() string {
	if q.Schema == "" {
		return q.Name
	}
	return q.Schema + "." + q.Name
}

// IsTemp reports whether name (before qualification parsing) denotes a
// temp table or table variable, which spec §4.2 says must be ignored.
func IsTemp(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "@")
}

// stripDelims removes bracket/quote delimiters from a single identifier
// part: [Name], "Name", or bare Name.
func stripDelims(part string) string {
	part = strings.TrimSpace(part)
	if len(part) >= 2 {
		if part[0] == '[' && part[len(part)-1] == ']' {
			return part[1 : len(part)-1]
		}
		if part[0] == '"' && part[len(part)-1] == '"' {
			return part[1 : len(part)-1]
		}
	}
	return part
}

// ParseQualifiedName splits a possibly dotted, possibly bracket/quote
// delimited identifier into schema and name, defaulting schema to "dbo"
// when only one part is present. Database-qualified names ("db.schema.name")
// keep only the trailing schema.name pair, matching spec §4.2's
// "{db}.{schema}.{name} with schema defaulting to dbo" key rule collapsed to
// the schema.name the rest of the graph keys on.
func ParseQualifiedName(raw string) QualifiedName {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, ";,")
	parts := splitDotted(raw)
	for i, p := range parts {
		parts[i] = stripDelims(p)
	}
	switch len(parts) {
	case 0:
		return QualifiedName{Schema: "dbo", Name: raw}
	case 1:
		return QualifiedName{Schema: "dbo", Name: parts[0]}
	default:
		n := len(parts)
		return QualifiedName{Schema: parts[n-2], Name: parts[n-1]}
	}
}

// splitDotted splits on '.' that is not inside a bracketed or quoted part.
func splitDotted(raw string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	inQuote := false
	for _, r := range raw {
		switch r {
		case '[':
			depth++
			cur.WriteRune(r)
		case ']':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case '.':
			if depth == 0 && !inQuote {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
