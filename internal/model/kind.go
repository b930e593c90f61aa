// Package model holds the shared graph data structures: nodes, edges, and
// the concurrent store that accumulates them during a build.
package model

// Kind is the enumerated node kind. Placeholder kinds (TableOrView, Unknown)
// are reconciled into a concrete kind by GraphModel.Finalize.
type Kind string

const (
	KindTable       Kind = "TABLE"
	KindView        Kind = "VIEW"
	KindProc        Kind = "PROC"
	KindFunc        Kind = "FUNC"
	KindTrigger     Kind = "TRIGGER"
	KindType        Kind = "TYPE"
	KindSequence    Kind = "SEQUENCE"
	KindSynonym     Kind = "SYNONYM"
	KindDeploy      Kind = "DEPLOY"
	KindBatch       Kind = "BATCH"
	KindDbSet       Kind = "DBSET"
	KindEntity      Kind = "ENTITY"
	KindMethod      Kind = "METHOD"
	KindMigration   Kind = "MIGRATION"
	KindTableOrView Kind = "TABLE_OR_VIEW"
	KindUnknown     Kind = "UNKNOWN"
)

// BodyBearing reports whether nodes of this kind have their source text
// preserved to a side file under docs/bodies.
func (k Kind) BodyBearing() bool {
	switch k {
	case KindTable, KindView, KindProc, KindFunc, KindTrigger, KindType, KindSequence,
		KindEntity, KindMigration:
		return true
	default:
		return false
	}
}

// Placeholder reports whether this kind is a tentative reference kind that
// GraphModel.Finalize should try to reconcile against a defined node.
func (k Kind) Placeholder() bool {
	return k == KindUnknown || k == KindTableOrView
}

// Relation is the enumerated edge relation.
type Relation string

const (
	RelReadsFrom   Relation = "ReadsFrom"
	RelWritesTo    Relation = "WritesTo"
	RelExecutes    Relation = "Executes"
	RelUses        Relation = "Uses"
	RelMapsTo      Relation = "MapsTo"
	RelSchemaChange Relation = "SchemaChange"
	RelForeignKey  Relation = "ForeignKey"
	RelSynonymFor  Relation = "SynonymFor"
	RelOn          Relation = "On"
)

// Domain labels used for Node.Domain beyond a file's top-level folder name.
const (
	DomainCode           = "code"
	DomainEF             = "ef"
	DomainCodeInlineSQL  = "code-inline-sql"
	DomainDB             = "db"
	DomainExternal       = "(external)"
)
