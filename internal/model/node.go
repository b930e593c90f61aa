package model

import "fmt"

// Node is a single vertex in the knowledge graph. Key is the composite
// identity "{qualifier}.{name}|{kind}" described in spec §3.
type Node struct {
	Key      string
	Kind     Kind
	Name     string
	Schema   string // DB schema, or a language tag such as "csharp"
	File     string
	Batch    int // -1 when not applicable to this node
	Domain   string
	BodyPath string // relative path under the output dir; "" if none
}

// NoBatch marks a node or edge as not belonging to a specific T-SQL batch.
const NoBatch = -1

// MakeKey builds the composite node key for a qualifier ("schema.name" or
// "csharp:Ns.Type[.Member]") and kind.
func MakeKey(qualifier string, kind Kind) string {
	return fmt.Sprintf("%s|%s", qualifier, kind)
}

// Edge is a directed relation between two node keys.
type Edge struct {
	From     string
	To       string
	Relation Relation
	ToKind   Kind // the kind the target was tagged with at emission time
	File     string
	Batch    int
}
