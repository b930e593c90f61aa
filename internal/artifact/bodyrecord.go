// Package artifact serializes the finalized graph to the on-disk artifact
// set: graph/nodes.csv, graph/edges.csv, graph/graph.json,
// docs/sql_bodies.jsonl, docs/bodies/*, and manifest.json. It also hosts the
// optional additive graph-mirror sinks (Neo4j, Postgres, Oracle).
package artifact

// BodyRecord is one line of docs/sql_bodies.jsonl. Fields vary by kind;
// kind, key, file, bodyPath, and body are present on every record (spec
// §4.6).
type BodyRecord struct {
	Kind           string               `json:"kind"`
	Key            string               `json:"key"`
	Namespace      string               `json:"namespace,omitempty"`
	TypeFullName   string               `json:"typeFullName,omitempty"`
	MethodFullName string               `json:"methodFullName,omitempty"`
	File           string               `json:"file"`
	BodyPath       string               `json:"bodyPath"`
	Body           string               `json:"body"`
	Operations     *MigrationOperations `json:"operations,omitempty"`
}

// MigrationOperations is the structured per-migration operation summary
// spec §4.4 requires alongside the raw Up() body.
type MigrationOperations struct {
	CreatesTables    []string `json:"createsTables"`
	DropsTables      []string `json:"dropsTables"`
	AddsColumns      []string `json:"addsColumns"`
	DropsColumns     []string `json:"dropsColumns"`
	RenamesColumns   []string `json:"renamesColumns"`
	AddsForeignKeys  []string `json:"addsForeignKeys"`
	DropsForeignKeys []string `json:"dropsForeignKeys"`
	CreatesIndexes   []string `json:"createsIndexes"`
	DropsIndexes     []string `json:"dropsIndexes"`
}
