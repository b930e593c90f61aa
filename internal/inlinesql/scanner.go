// Package inlinesql implements the InlineSqlScanner described in
// spec.md §4.5: it locates SQL string literals passed to known "hot"
// method names (or matching a SQL-verb heuristic), parses each recovered
// literal's referenced objects, and projects method→object references into
// a shared internal/model.GraphModel.
package inlinesql

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"codegraph/internal/artifact"
	"codegraph/internal/csast"
	"codegraph/internal/model"
	"codegraph/internal/resolve"
	"codegraph/internal/sqlast"
)

// Origin records why a literal was treated as SQL.
type Origin string

const (
	OriginHotMethod         Origin = "HotMethod"
	OriginExtraHotMethod    Origin = "ExtraHotMethod"
	OriginHeuristicFallback Origin = "HeuristicFallback"
)

// builtinHotMethods is the fixed list of call-site method names whose
// string argument is treated as SQL.
var builtinHotMethods = map[string]bool{
	"Query": true, "QueryAsync": true, "Execute": true, "ExecuteAsync": true,
	"ExecuteScalar": true, "ExecuteScalarAsync": true, "ExecuteReader": true,
	"ExecuteReaderAsync": true, "FromSqlRaw": true, "FromSqlInterpolated": true,
}

var sqlVerbPrefix = regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE|MERGE|WITH|EXEC|CREATE|ALTER|DROP)\b`)

// Artifact is one discovered inline-SQL literal.
type Artifact struct {
	File           string
	Line           int
	MethodFullName string
	Origin         Origin
	SQL            string
}

// Config carries spec.md §6's inline-SQL options.
type Config struct {
	ExtraHotMethods []string
}

// Builder scans parsed C# files for inline SQL literals.
type Builder struct {
	Model  *model.GraphModel
	Bodies *artifact.BodyWriter
	Config Config

	extraHot map[string]bool
}

// NewBuilder constructs a Builder.
func NewBuilder(m *model.GraphModel, bw *artifact.BodyWriter, cfg Config) *Builder {
	extra := make(map[string]bool, len(cfg.ExtraHotMethods))
	for _, name := range cfg.ExtraHotMethods {
		extra[name] = true
	}
	return &Builder{Model: m, Bodies: bw, Config: cfg, extraHot: extra}
}

type rawLiteral struct {
	node   *sitter.Node
	sql    string
	origin Origin
}

// Build scans files for inline SQL call sites and literal heuristic matches,
// grouping the resulting artifacts by owning method and projecting them
// onto the graph.
func (b *Builder) Build(files []*csast.File, relPaths map[*csast.File]string) {
	byMethod := map[string][]Artifact{}
	methodFile := map[string]string{}

	for _, f := range files {
		relFile := relPaths[f]
		for _, raw := range b.scanFile(f) {
			methodFullName, line := resolveOwningMethod(f, raw.node)
			if methodFullName == "" {
				continue
			}
			art := Artifact{File: relFile, Line: line, MethodFullName: methodFullName, Origin: raw.origin, SQL: raw.sql}
			byMethod[methodFullName] = append(byMethod[methodFullName], art)
			methodFile[methodFullName] = relFile
		}
	}

	for methodFullName, arts := range byMethod {
		methodKey := model.MakeKey("csharp:"+methodFullName, model.KindMethod)
		b.Model.TryAddNode(model.Node{
			Key: methodKey, Kind: model.KindMethod, Name: resolve.SimpleName(methodFullName),
			Schema: "csharp", File: methodFile[methodFullName], Batch: model.NoBatch, Domain: model.DomainCodeInlineSQL,
		})

		for _, art := range arts {
			b.projectArtifact(methodKey, art)
		}
	}
}

// scanFile finds every hot-method-call literal and every heuristic-fallback
// literal in f, deduplicated by node identity.
func (b *Builder) scanFile(f *csast.File) []rawLiteral {
	var out []rawLiteral
	captured := map[*sitter.Node]bool{}

	for _, inv := range f.Invocations() {
		hot, origin := b.classifyCallSite(inv.MethodName)
		if !hot {
			continue
		}
		for _, argText := range inv.Args {
			if s, ok := csast.ArgStringLiteral(argText); ok {
				// The argument_list's raw text doesn't carry a node
				// reference; re-find the matching string literal node
				// within this invocation's span to anchor a line number.
				if n := findLiteralNode(f, inv, s); n != nil {
					captured[n] = true
					out = append(out, rawLiteral{node: n, sql: s, origin: origin})
				}
			}
		}
	}

	for _, sl := range f.StringLiterals() {
		if captured[sl.Node] {
			continue
		}
		if !sqlVerbPrefix.MatchString(strings.TrimSpace(sl.Text)) {
			continue
		}
		out = append(out, rawLiteral{node: sl.Node, sql: sl.Text, origin: OriginHeuristicFallback})
	}

	return out
}

// findLiteralNode locates the string-literal node inside inv's argument
// list whose text matches sql, used to recover a line number for a hot-
// method argument already extracted as raw text.
func findLiteralNode(f *csast.File, inv csast.Invocation, sql string) *sitter.Node {
	for _, sl := range f.StringLiterals() {
		if sl.Node == nil || inv.Node == nil {
			continue
		}
		if sl.Node.StartByte() < inv.Node.StartByte() || sl.Node.EndByte() > inv.Node.EndByte() {
			continue
		}
		if sl.Text == sql {
			return sl.Node
		}
	}
	return nil
}

// classifyCallSite reports whether methodName is a configured hot method
// and which origin tag applies.
func (b *Builder) classifyCallSite(methodName string) (bool, Origin) {
	if builtinHotMethods[methodName] {
		return true, OriginHotMethod
	}
	if b.extraHot[methodName] {
		return true, OriginExtraHotMethod
	}
	return false, ""
}

// resolveOwningMethod finds the method enclosing node. If the file's own
// enclosing-method walk misses (e.g. a top-level statement), it falls back
// to the method whose line span is nearest to node's line; with no methods
// at all, it returns "" and the caller skips the artifact, per spec.md
// §4.5's recovery rule.
func resolveOwningMethod(f *csast.File, node *sitter.Node) (string, int) {
	line := f.Line(node)
	if md, ok := f.FindEnclosingMethod(node); ok {
		if cls, ok := f.FindEnclosingClass(md.Node); ok {
			return cls.FullName() + "." + md.Name, line
		}
		return md.Name, line
	}

	cls, ok := f.FindEnclosingClass(node)
	if !ok {
		return "", line
	}
	var best *csast.MethodDecl
	bestDist := -1
	for i := range cls.Methods {
		m := &cls.Methods[i]
		dist := 0
		switch {
		case line < m.StartLine:
			dist = m.StartLine - line
		case line > m.EndLine:
			dist = line - m.EndLine
		}
		if bestDist == -1 || dist < bestDist {
			best, bestDist = m, dist
		}
	}
	if best == nil {
		return "", line
	}
	return cls.FullName() + "." + best.Name, line
}

func (b *Builder) projectArtifact(methodKey string, art Artifact) {
	refs := referencedObjects(art.SQL)
	for _, ref := range refs {
		b.Model.AddEdge(model.Edge{
			From: methodKey, To: model.MakeKey(ref.String(), model.KindTableOrView),
			Relation: model.RelReadsFrom, ToKind: model.KindTableOrView, File: art.File,
		})
	}

	for _, fk := range foreignKeyRefs(art.SQL, refs) {
		b.Model.AddEdge(model.Edge{
			From: model.MakeKey(fk.child.String(), model.KindTable), To: model.MakeKey(fk.parent.String(), model.KindTable),
			Relation: model.RelForeignKey, ToKind: model.KindTable, File: art.File,
		})
	}

	if b.Bodies == nil {
		return
	}
	relName := fmt.Sprintf("InlineSql.%s.L%d.sql", methodSimple(methodKey), art.Line)
	bodyPath, err := b.Bodies.WriteBody(relName, art.SQL)
	if err != nil {
		log.Printf("inlinesql: writing body for %s:%d: %v", art.File, art.Line, err)
		return
	}
	if err := b.Bodies.AppendJSONL(artifact.BodyRecord{
		Kind: "InlineSQL", Key: fmt.Sprintf("%s|inline@%s:L%d", methodKey, art.File, art.Line),
		MethodFullName: strings.TrimSuffix(strings.TrimPrefix(methodKey, "csharp:"), "|METHOD"),
		File:           art.File, BodyPath: bodyPath, Body: art.SQL,
	}); err != nil {
		log.Printf("inlinesql: appending jsonl for %s:%d: %v", art.File, art.Line, err)
	}
}

func methodSimple(methodKey string) string {
	base := strings.TrimSuffix(strings.TrimPrefix(methodKey, "csharp:"), "|METHOD")
	return base
}

// referencedObjects reuses the plain regex-based FROM/JOIN extraction
// internal/sqlast already implements for T-SQL batches: the snippets
// recovered here are single statements with the same FROM/JOIN/REFERENCES
// shape sqlast.Classify already parses for whole .sql files, so the same
// text-pattern scan that drives SqlGraphBuilder's ReadsFrom extraction is
// reused here rather than introducing a second SQL grammar for the same
// job.
func referencedObjects(sql string) []sqlast.QualifiedName {
	stmt := sqlast.Classify(sql)
	seen := map[string]bool{}
	var out []sqlast.QualifiedName
	add := func(qs []sqlast.QualifiedName) {
		for _, q := range qs {
			k := strings.ToLower(q.String())
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, q)
		}
	}
	add(stmt.ReadsFrom)
	add(stmt.WritesTo)
	return out
}

type fkRef struct {
	child, parent sqlast.QualifiedName
}

var reForeignKeyRef = regexp.MustCompile(`(?is)FOREIGN\s+KEY\s*\([^)]*\)\s*REFERENCES\s+([\w\[\]"\.]+)`)

// foreignKeyRefs extracts each FOREIGN KEY ... REFERENCES target in sql,
// per spec.md §4.5, with the child side being the object declared in the
// same snippet (the CREATE/ALTER TABLE target); a snippet that declares no
// object uses its first referenced/written object, if any.
func foreignKeyRefs(sql string, declared []sqlast.QualifiedName) []fkRef {
	var child sqlast.QualifiedName
	if stmt := sqlast.Classify(sql); stmt.Name != "" {
		child = sqlast.QualifiedName{Schema: stmt.Schema, Name: stmt.Name}
	} else if len(declared) > 0 {
		child = declared[0]
	} else {
		return nil
	}
	var out []fkRef
	for _, m := range reForeignKeyRef.FindAllStringSubmatch(sql, -1) {
		parent := sqlast.ParseQualifiedName(m[1])
		out = append(out, fkRef{child: child, parent: parent})
	}
	return out
}
