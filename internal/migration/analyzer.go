// Package migration implements the MigrationAnalyzer described in
// spec.md §4.4: it detects EF-style migration classes, classifies each call
// in their Up() method into a typed schema operation, and emits MIGRATION
// nodes and SchemaChange/ForeignKey edges into a shared
// internal/model.GraphModel. A lexical fallback path activates only when
// the primary analyzer finds zero migrations.
package migration

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"codegraph/internal/artifact"
	"codegraph/internal/csast"
	"codegraph/internal/model"
)

// OpKind classifies one invocation inside a migration's Up() method.
type OpKind string

const (
	OpCreateTable    OpKind = "CreateTable"
	OpDropTable      OpKind = "DropTable"
	OpAddColumn      OpKind = "AddColumn"
	OpDropColumn     OpKind = "DropColumn"
	OpRenameColumn   OpKind = "RenameColumn"
	OpAddForeignKey  OpKind = "AddForeignKey"
	OpDropForeignKey OpKind = "DropForeignKey"
	OpCreateIndex    OpKind = "CreateIndex"
	OpDropIndex      OpKind = "DropIndex"
	OpRawSql         OpKind = "RawSql"
	OpTouchTable     OpKind = "TouchTable"
	OpUnknown        OpKind = "Unknown"
)

// Op is one classified operation from a migration's Up() method.
type Op struct {
	Kind           OpKind
	Table          string
	Schema         string
	Column         string
	NewColumn      string
	PrincipalTable string
	FKName         string
	IndexName      string
	Raw            string
}

// Builder scans configured migration roots (or, if empty, falls back to the
// caller's code roots) for migration classes.
type Builder struct {
	Model  *model.GraphModel
	Bodies *artifact.BodyWriter
}

// NewBuilder constructs a Builder.
func NewBuilder(m *model.GraphModel, bw *artifact.BodyWriter) *Builder {
	return &Builder{Model: m, Bodies: bw}
}

var migrationAttrSuffix = "UpdateMigration"

// isMigrationClass implements spec.md §4.4's migration-class test: the name
// contains "Migration" and/or it carries an attribute whose simple name
// ends with "UpdateMigration".
func isMigrationClass(cls csast.ClassDecl) bool {
	if strings.Contains(cls.Name, "Migration") {
		return true
	}
	for _, a := range cls.Attributes {
		if strings.HasSuffix(a.Name, migrationAttrSuffix) {
			return true
		}
	}
	return false
}

// Build walks files for migration classes and returns the count found, so
// callers can decide whether to run the lexical fallback.
func (b *Builder) Build(files []*csast.File, relPaths map[*csast.File]string) int {
	found := 0
	for _, f := range files {
		for _, cls := range f.Classes() {
			if !isMigrationClass(cls) {
				continue
			}
			found++
			b.processMigration(f, cls, relPaths[f])
		}
	}
	return found
}

func (b *Builder) processMigration(f *csast.File, cls csast.ClassDecl, relFile string) {
	up, ok := findMethod(cls, "Up")
	if !ok {
		return
	}

	migKey := model.MakeKey("csharp:"+cls.FullName(), model.KindMigration)
	inserted := b.Model.TryAddNode(model.Node{
		Key: migKey, Kind: model.KindMigration, Name: cls.Name, Schema: "csharp",
		File: relFile, Batch: model.NoBatch, Domain: model.DomainEF,
	})

	ops := classifyInvocations(f, up)

	for _, op := range ops {
		switch op.Kind {
		case OpCreateTable, OpDropTable, OpTouchTable, OpCreateIndex, OpDropIndex:
			b.emitSchemaChange(migKey, op.Schema, op.Table, relFile)
		case OpAddForeignKey:
			// TODO(spec.md §9): the operation's Schema field is observed
			// but intentionally discarded here — both ends of the
			// child→principal ForeignKey edge always canonicalize to "dbo", reproducing the source's
			// documented-but-likely-unintended behavior.
			childKey := model.MakeKey("dbo."+op.Table, model.KindTable)
			parentKey := model.MakeKey("dbo."+op.PrincipalTable, model.KindTable)
			b.Model.TryAddNode(model.Node{Key: childKey, Kind: model.KindTable, Name: op.Table, Schema: "dbo", File: relFile, Batch: model.NoBatch, Domain: model.DomainEF})
			b.Model.TryAddNode(model.Node{Key: parentKey, Kind: model.KindTable, Name: op.PrincipalTable, Schema: "dbo", File: relFile, Batch: model.NoBatch, Domain: model.DomainEF})
			b.Model.AddEdge(model.Edge{From: childKey, To: parentKey, Relation: model.RelForeignKey, ToKind: model.KindTable, File: relFile, Batch: model.NoBatch})
		}
	}

	if inserted && b.Bodies != nil {
		b.emitBody(f, cls, up, migKey, relFile, ops)
	}
}

func (b *Builder) emitSchemaChange(migKey, schema, table, relFile string) {
	if table == "" {
		return
	}
	// TODO(spec.md §9): default schema is always "dbo" even when an
	// operation carried an explicit schema argument; kept faithful to the
	// source's documented quirk rather than using the op's own schema.
	tableKey := model.MakeKey("dbo."+table, model.KindTable)
	b.Model.TryAddNode(model.Node{Key: tableKey, Kind: model.KindTable, Name: table, Schema: "dbo", File: relFile, Batch: model.NoBatch, Domain: model.DomainEF})
	b.Model.AddEdge(model.Edge{From: migKey, To: tableKey, Relation: model.RelSchemaChange, ToKind: model.KindTable, File: relFile, Batch: model.NoBatch})
}

func findMethod(cls csast.ClassDecl, name string) (csast.MethodDecl, bool) {
	for _, m := range cls.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return csast.MethodDecl{}, false
}

// classifyInvocations walks the invocation expressions inside up's body and
// classifies each per spec.md §4.4's operation-syntax table. Every
// invocation inside the body is visited in document order, nested ones
// included; only those whose method name is one of the operations below are
// classified, so other calls (such as nameof()) are skipped and produce no
// Op.
func classifyInvocations(f *csast.File, up csast.MethodDecl) []Op {
	var ops []Op
	if up.Body == nil {
		return ops
	}
	for _, inv := range invocationsIn(f, up.Body) {
		switch inv.MethodName {
		case "CreateTable":
			ops = append(ops, opCreateTable(inv))
		case "DropTable":
			ops = append(ops, opDropTable(inv))
		case "AddColumn":
			ops = append(ops, opAddColumn(inv))
		case "DropColumn":
			ops = append(ops, opDropColumn(inv))
		case "RenameColumn":
			ops = append(ops, opRenameColumn(inv))
		case "AddForeignKey":
			ops = append(ops, opAddForeignKey(inv))
		case "DropForeignKey":
			ops = append(ops, opDropForeignKey(inv))
		case "CreateIndex":
			ops = append(ops, opCreateIndex(inv))
		case "DropIndex":
			ops = append(ops, opDropIndex(inv))
		case "Sql":
			ops = append(ops, opRawSql(inv))
		case "Table":
			if op, ok := opTouchTable(inv); ok {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

// invocationsIn returns every invocation_expression whose node falls inside
// body's span, using File.Invocations and filtering by byte offset (the
// wrapper doesn't expose a scoped query, so scoping is done here).
func invocationsIn(f *csast.File, body *sitter.Node) []csast.Invocation {
	var out []csast.Invocation
	for _, inv := range f.Invocations() {
		if inv.Node == nil {
			continue
		}
		if inv.Node.StartByte() >= body.StartByte() && inv.Node.EndByte() <= body.EndByte() {
			out = append(out, inv)
		}
	}
	return out
}

func argAt(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}

func strArg(args []string, i int) string {
	v := argAt(args, i)
	if s, ok := csast.ArgStringLiteral(v); ok {
		return s
	}
	return ""
}

func opCreateTable(inv csast.Invocation) Op {
	return Op{Kind: OpCreateTable, Table: strArg(inv.Args, 0), Schema: namedOrDefault(inv.Args, "schema", "dbo")}
}

func opDropTable(inv csast.Invocation) Op {
	return Op{Kind: OpDropTable, Table: strArg(inv.Args, 0), Schema: namedOrDefault(inv.Args, "schema", "dbo")}
}

func opAddColumn(inv csast.Invocation) Op {
	return Op{Kind: OpAddColumn, Column: strArg(inv.Args, 0), Table: strArg(inv.Args, 1), Schema: namedOrDefault(inv.Args, "schema", "dbo")}
}

func opDropColumn(inv csast.Invocation) Op {
	return Op{Kind: OpDropColumn, Column: strArg(inv.Args, 0), Table: strArg(inv.Args, 1), Schema: namedOrDefault(inv.Args, "schema", "dbo")}
}

func opRenameColumn(inv csast.Invocation) Op {
	return Op{Kind: OpRenameColumn, Column: strArg(inv.Args, 0), NewColumn: strArg(inv.Args, 1), Table: strArg(inv.Args, 2), Schema: namedOrDefault(inv.Args, "schema", "dbo")}
}

func opAddForeignKey(inv csast.Invocation) Op {
	op := Op{
		Kind:           OpAddForeignKey,
		FKName:         strArg(inv.Args, 0),
		Table:          strArg(inv.Args, 1),
		Schema:         namedOrDefault(inv.Args, "schema", "dbo"),
		PrincipalTable: namedStr(inv.Args, "principalTable"),
	}
	if op.PrincipalTable == "" && len(inv.Args) > 2 {
		op.PrincipalTable = strArg(inv.Args, 2)
	}
	return op
}

func opDropForeignKey(inv csast.Invocation) Op {
	return Op{Kind: OpDropForeignKey, FKName: strArg(inv.Args, 0), Table: strArg(inv.Args, 1), Schema: namedOrDefault(inv.Args, "schema", "dbo")}
}

func opCreateIndex(inv csast.Invocation) Op {
	op := Op{
		Kind:      OpCreateIndex,
		IndexName: strArg(inv.Args, 0),
		Table:     namedStr(inv.Args, "table"),
		Schema:    namedOrDefault(inv.Args, "schema", "dbo"),
	}
	if op.Table == "" && len(inv.Args) > 1 {
		op.Table = strArg(inv.Args, 1)
	}
	return op
}

func opDropIndex(inv csast.Invocation) Op {
	op := Op{
		Kind:      OpDropIndex,
		IndexName: strArg(inv.Args, 0),
		Table:     namedStr(inv.Args, "table"),
		Schema:    namedOrDefault(inv.Args, "schema", "dbo"),
	}
	if op.Table == "" && len(inv.Args) > 1 {
		op.Table = strArg(inv.Args, 1)
	}
	return op
}

func opRawSql(inv csast.Invocation) Op {
	return Op{Kind: OpRawSql, Raw: strArg(inv.Args, 0)}
}

var reNameofArg = regexp.MustCompile(`^\s*nameof\(\s*(\w+)\s*\)\s*$`)

func opTouchTable(inv csast.Invocation) (Op, bool) {
	if len(inv.Args) == 0 {
		return Op{}, false
	}
	arg := strings.TrimSpace(inv.Args[0])
	if m := reNameofArg.FindStringSubmatch(arg); m != nil {
		return Op{Kind: OpTouchTable, Table: m[1]}, true
	}
	if s, ok := csast.ArgStringLiteral(arg); ok {
		return Op{Kind: OpTouchTable, Table: s}, true
	}
	return Op{}, false
}

func namedOrDefault(args []string, name, def string) string {
	if v, ok := csast.ArgNamed(args, name); ok {
		if s, ok := csast.ArgStringLiteral(v); ok {
			return s
		}
	}
	return def
}

func namedStr(args []string, name string) string {
	if v, ok := csast.ArgNamed(args, name); ok {
		if s, ok := csast.ArgStringLiteral(v); ok {
			return s
		}
	}
	return ""
}

var rePrincipalTableToken = regexp.MustCompile(`principalTable\W+"([^"]+)"`)

func (b *Builder) emitBody(f *csast.File, cls csast.ClassDecl, up csast.MethodDecl, migKey, relFile string, ops []Op) {
	content := f.Text(up.Node)
	relName := fmt.Sprintf("Migration.%s.MIGRATION.cs", cls.FullName())
	bodyPath, err := b.Bodies.WriteBody(relName, content)
	if err != nil {
		log.Printf("migration: writing body for %s: %v", migKey, err)
		return
	}
	b.Model.EnrichNode(migKey, func(n *model.Node) { n.BodyPath = bodyPath })

	summary := summarize(ops)
	if err := b.Bodies.AppendJSONL(artifact.BodyRecord{
		Kind: string(model.KindMigration), Key: migKey, TypeFullName: cls.FullName(),
		File: relFile, BodyPath: bodyPath, Body: content, Operations: summary,
	}); err != nil {
		log.Printf("migration: appending jsonl for %s: %v", migKey, err)
	}
}

func canon(schema, table string) string {
	if schema == "" {
		schema = "dbo"
	}
	return schema + "." + table
}

func summarize(ops []Op) *artifact.MigrationOperations {
	s := &artifact.MigrationOperations{}
	for _, op := range ops {
		switch op.Kind {
		case OpCreateTable:
			s.CreatesTables = append(s.CreatesTables, canon(op.Schema, op.Table))
		case OpDropTable:
			s.DropsTables = append(s.DropsTables, canon(op.Schema, op.Table))
		case OpAddColumn:
			s.AddsColumns = append(s.AddsColumns, canon(op.Schema, op.Table)+"."+op.Column)
		case OpDropColumn:
			s.DropsColumns = append(s.DropsColumns, canon(op.Schema, op.Table)+"."+op.Column)
		case OpRenameColumn:
			s.RenamesColumns = append(s.RenamesColumns, fmt.Sprintf("%s.%s->%s", canon(op.Schema, op.Table), op.Column, op.NewColumn))
		case OpAddForeignKey:
			principal := op.PrincipalTable
			if principal == "" {
				if m := rePrincipalTableToken.FindStringSubmatch(op.Raw); m != nil {
					principal = m[1]
				}
			}
			s.AddsForeignKeys = append(s.AddsForeignKeys, fmt.Sprintf("%s->%s.%s (%s)", canon(op.Schema, op.Table), "dbo", principal, op.FKName))
		case OpDropForeignKey:
			s.DropsForeignKeys = append(s.DropsForeignKeys, fmt.Sprintf("%s.%s", canon(op.Schema, op.Table), op.FKName))
		case OpCreateIndex:
			s.CreatesIndexes = append(s.CreatesIndexes, fmt.Sprintf("%s.%s", canon(op.Schema, op.Table), op.IndexName))
		case OpDropIndex:
			s.DropsIndexes = append(s.DropsIndexes, fmt.Sprintf("%s.%s", canon(op.Schema, op.Table), op.IndexName))
		}
	}
	return s
}

// Fallback activates only when Build found zero migrations: a lexical
// regex scan of raw C# source for /class\s+(\w*Migration)\b/ and
// /Schema\.Table\(\s*(?:nameof\(\s*(\w+)\s*\)|"([^"]+)")\s*\)/.
func Fallback(m *model.GraphModel, sources map[string]string) {
	classRe := regexp.MustCompile(`class\s+(\w*Migration)\b`)
	tableRe := regexp.MustCompile(`Schema\.Table\(\s*(?:nameof\(\s*(\w+)\s*\)|"([^"]+)")\s*\)`)

	for relFile, src := range sources {
		cm := classRe.FindStringSubmatch(src)
		if cm == nil {
			continue
		}
		className := cm[1]
		migKey := model.MakeKey("csharp:"+className, model.KindMigration)
		m.TryAddNode(model.Node{
			Key: migKey, Kind: model.KindMigration, Name: className, Schema: "csharp",
			File: relFile, Batch: model.NoBatch, Domain: model.DomainEF,
		})
		for _, tm := range tableRe.FindAllStringSubmatch(src, -1) {
			table := tm[1]
			if table == "" {
				table = tm[2]
			}
			if table == "" {
				continue
			}
			tableKey := model.MakeKey("dbo."+table, model.KindTable)
			m.TryAddNode(model.Node{Key: tableKey, Kind: model.KindTable, Name: table, Schema: "dbo", File: relFile, Batch: model.NoBatch, Domain: model.DomainEF})
			m.AddEdge(model.Edge{From: migKey, To: tableKey, Relation: model.RelSchemaChange, ToKind: model.KindTable, File: relFile, Batch: model.NoBatch})
		}
	}
}
