// Package resolve centralizes the best-effort name-resolution heuristics
// used across internal/efgraph and internal/inlinesql: case-insensitive
// comparison and the asymmetric "name" vs "name+s" pluralization guess
// described in spec.md §9. Keeping both in one place avoids the heuristic
// drifting between call sites that should (or should not) try the plural
// form.
package resolve

import "strings"

// EqualFold reports whether a and b are equal ignoring case.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// EqualFoldOrPlural reports whether a equals b, or a equals b with a
// trailing "s" appended, ignoring case. Per spec.md §9 this pluralization
// guess is applied only at the specific call sites that already try it in
// the source component being ported — callers that should not try the
// plural form must use EqualFold instead, not this function.
func EqualFoldOrPlural(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	return strings.EqualFold(a, b+"s")
}

// SimpleName returns the last "."-separated segment of a possibly
// dotted/namespaced identifier.
func SimpleName(full string) string {
	if i := strings.LastIndex(full, "."); i >= 0 {
		return full[i+1:]
	}
	return full
}

// TableRef is a resolved (schema, table) pair.
type TableRef struct {
	Schema string
	Table  string
}

// String renders "schema.table".
func (t TableRef) String() string {
	return t.Schema + "." + t.Table
}

// EntityMap maps an entity type name (as seen verbatim, both full and
// simple forms are inserted by callers) to its resolved table.
type EntityMap map[string]TableRef

// Lookup tries, in order: exact match on full name, exact match on simple
// name, case-insensitive match on either. It never tries the plural
// heuristic — that is applied explicitly by LookupWithPlural at the call
// sites spec.md §4.3 lists as trying it.
func (m EntityMap) Lookup(fullName string) (TableRef, bool) {
	if t, ok := m[fullName]; ok {
		return t, true
	}
	simple := SimpleName(fullName)
	if t, ok := m[simple]; ok {
		return t, true
	}
	for k, t := range m {
		if EqualFold(k, fullName) || EqualFold(k, simple) {
			return t, true
		}
	}
	return TableRef{}, false
}

// LookupWithPlural is Lookup, followed by a retry against every key with
// "s" appended to the candidate name (the ±"s" heuristic spec.md §4.3
// documents for the entity→table resolution order).
func (m EntityMap) LookupWithPlural(fullName string) (TableRef, bool) {
	if t, ok := m.Lookup(fullName); ok {
		return t, true
	}
	simple := SimpleName(fullName)
	for k, t := range m {
		if EqualFoldOrPlural(k, fullName) || EqualFoldOrPlural(k, simple) {
			return t, true
		}
	}
	return TableRef{}, false
}
