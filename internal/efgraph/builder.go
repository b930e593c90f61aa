// Package efgraph implements the C#/EF analyzer described in spec.md §4.3:
// it walks parsed C# syntax trees to derive entity/table mappings, DbSet<T>
// bindings, entity detection, and Fluent-API foreign keys, emitting DBSET/
// ENTITY/TABLE nodes and MapsTo/ForeignKey edges into a shared
// internal/model.GraphModel.
package efgraph

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"codegraph/internal/artifact"
	"codegraph/internal/csast"
	"codegraph/internal/model"
	"codegraph/internal/resolve"
)

// Config carries the options spec.md §6 lists for this stage: the
// configured entity base types that enable POCO-as-entity detection.
type Config struct {
	EntityBaseTypes []string
}

// Builder walks a set of parsed C# files and populates a shared graph.
type Builder struct {
	Model  *model.GraphModel
	Bodies *artifact.BodyWriter
	Config Config

	entityMap      resolve.EntityMap
	entityByDbSet  map[string]bool // simple type names reached via a DbSet<T>
	emittedEntity  map[string]bool // full class names already written as ENTITY bodies
}

// NewBuilder constructs a Builder.
func NewBuilder(m *model.GraphModel, bw *artifact.BodyWriter, cfg Config) *Builder {
	return &Builder{
		Model:         m,
		Bodies:        bw,
		Config:        cfg,
		entityMap:     resolve.EntityMap{},
		entityByDbSet: map[string]bool{},
		emittedEntity: map[string]bool{},
	}
}

// Build runs the full four-stage EF analysis (entity mappings, DbSet
// bindings, entity detection, Fluent FKs) over files, each paired with its
// relative path and domain for node attribution.
func (b *Builder) Build(files []*csast.File, relPaths map[*csast.File]string) {
	// Stage 1: entity mappings table, from [Table] attributes and Fluent
	// ToTable chains, across all files first so DbSet/entity resolution in
	// later stages sees the complete map.
	for _, f := range files {
		b.collectTableAttributeMappings(f)
		b.collectFluentToTableMappings(f)
	}

	// Stage 2: DbSet bindings.
	for _, f := range files {
		b.collectDbSetBindings(f, relPaths[f])
	}

	// Stage 3: entity detection (depends on entityByDbSet from stage 2 and
	// entityMap from stage 1).
	for _, f := range files {
		b.collectEntities(f, relPaths[f])
	}

	// Stage 4: Fluent-API foreign keys.
	for _, f := range files {
		b.collectFluentForeignKeys(f, relPaths[f])
	}
}

func (b *Builder) collectTableAttributeMappings(f *csast.File) {
	for _, cls := range f.Classes() {
		for _, attr := range cls.Attributes {
			if attr.Name != "Table" {
				continue
			}
			args := f.AttributeArgs(attr)
			if len(args) == 0 {
				continue
			}
			table, ok := csast.ArgStringLiteral(args[0])
			if !ok {
				continue
			}
			schema := "dbo"
			if v, ok := csast.ArgNamed(args[1:], "Schema"); ok {
				if s, ok := csast.ArgStringLiteral(v); ok {
					schema = s
				}
			}
			b.entityMap[cls.FullName()] = resolve.TableRef{Schema: schema, Table: table}
			b.entityMap[cls.Name] = resolve.TableRef{Schema: schema, Table: table}
		}
	}
}

func (b *Builder) collectFluentToTableMappings(f *csast.File) {
	for _, inv := range f.Invocations() {
		if inv.MethodName != "ToTable" {
			continue
		}
		chain := f.ReceiverChain(inv)
		entityType := entityTypeInChain(f, chain)
		if entityType == "" || len(inv.Args) == 0 {
			continue
		}
		table, ok := csast.ArgStringLiteral(inv.Args[0])
		if !ok {
			continue
		}
		schema := "dbo"
		if len(inv.Args) > 1 {
			if s, ok := csast.ArgStringLiteral(inv.Args[1]); ok {
				schema = s
			}
		}
		b.entityMap[entityType] = resolve.TableRef{Schema: schema, Table: table}
		b.entityMap[resolve.SimpleName(entityType)] = resolve.TableRef{Schema: schema, Table: table}
	}
}

// entityTypeInChain finds the type argument of the Entity<T>() call within
// a receiver chain gathered by ReceiverChain.
func entityTypeInChain(f *csast.File, chain []csast.Invocation) string {
	for _, step := range chain {
		if step.MethodName == "Entity" && len(step.TypeArgs) == 1 {
			return step.TypeArgs[0]
		}
	}
	return ""
}

func (b *Builder) collectDbSetBindings(f *csast.File, relFile string) {
	for _, cls := range f.Classes() {
		for _, prop := range cls.Properties {
			t, ok := dbSetTypeArg(prop.TypeText)
			if !ok {
				continue
			}
			dbsetKey := model.MakeKey(fmt.Sprintf("csharp:%s.%s", cls.Name, prop.Name), model.KindDbSet)
			b.Model.TryAddNode(model.Node{
				Key: dbsetKey, Kind: model.KindDbSet, Name: prop.Name, Schema: "csharp",
				File: relFile, Batch: model.NoBatch, Domain: model.DomainEF,
			})

			ref, ok := b.entityMap.Lookup(t)
			if !ok {
				ref = resolve.TableRef{Schema: "dbo", Table: resolve.SimpleName(t)}
			}
			tableKey := model.MakeKey(ref.String(), model.KindTable)
			b.Model.TryAddNode(model.Node{
				Key: tableKey, Kind: model.KindTable, Name: ref.Table, Schema: ref.Schema,
				File: relFile, Batch: model.NoBatch, Domain: model.DomainEF,
			})
			b.Model.AddEdge(model.Edge{From: dbsetKey, To: tableKey, Relation: model.RelMapsTo, ToKind: model.KindTable, File: relFile, Batch: model.NoBatch})

			b.entityByDbSet[resolve.SimpleName(t)] = true
		}
	}
}

// dbSetTypeArg reports whether typeText textually begins with DbSet< or
// IDbSet< and, if so, returns the single type argument inside the angle
// brackets.
func dbSetTypeArg(typeText string) (string, bool) {
	typeText = strings.TrimSpace(typeText)
	for _, prefix := range []string{"DbSet<", "IDbSet<"} {
		if strings.HasPrefix(typeText, prefix) && strings.HasSuffix(typeText, ">") {
			return strings.TrimSpace(typeText[len(prefix) : len(typeText)-1]), true
		}
	}
	return "", false
}

func (b *Builder) collectEntities(f *csast.File, relFile string) {
	for _, cls := range f.Classes() {
		if !b.isEntity(cls) {
			continue
		}

		entityKey := model.MakeKey("csharp:"+cls.Name, model.KindEntity)
		inserted := b.Model.TryAddNode(model.Node{
			Key: entityKey, Kind: model.KindEntity, Name: cls.Name, Schema: "csharp",
			File: relFile, Batch: model.NoBatch, Domain: model.DomainEF,
		})

		if inserted && !b.emittedEntity[cls.FullName()] {
			b.emittedEntity[cls.FullName()] = true
			b.emitEntityBody(f, cls, entityKey, relFile)
		}

		ref, ok := b.resolveEntityTable(cls)
		if !ok {
			continue
		}
		tableKey := model.MakeKey(ref.String(), model.KindTable)
		b.Model.TryAddNode(model.Node{
			Key: tableKey, Kind: model.KindTable, Name: ref.Table, Schema: ref.Schema,
			File: relFile, Batch: model.NoBatch, Domain: model.DomainEF,
		})
		b.Model.AddEdge(model.Edge{From: entityKey, To: tableKey, Relation: model.RelMapsTo, ToKind: model.KindTable, File: relFile, Batch: model.NoBatch})
	}
}

// isEntity implements spec.md §4.3's entity-detection test: the class
// appears in the DbSet set, or its first base-list type textually matches a
// configured entity base type (exact full, exact simple, simple-vs-simple).
func (b *Builder) isEntity(cls csast.ClassDecl) bool {
	if b.entityByDbSet[cls.Name] {
		return true
	}
	if len(cls.BaseTypes) == 0 {
		return false
	}
	base := cls.BaseTypes[0]
	baseSimple := resolve.SimpleName(base)
	for _, ebt := range b.Config.EntityBaseTypes {
		ebtSimple := resolve.SimpleName(ebt)
		if base == ebt || base == ebtSimple || baseSimple == ebtSimple {
			return true
		}
	}
	return false
}

// resolveEntityTable implements the best-effort resolution order of
// spec.md §4.3: entity map (direct, then case-insensitive/±"s"); [Table]
// attribute; any pre-existing TABLE node with matching name (±"s"); and, if
// the class came from a DbSet, default dbo.{SimpleName}.
func (b *Builder) resolveEntityTable(cls csast.ClassDecl) (resolve.TableRef, bool) {
	if ref, ok := b.entityMap.Lookup(cls.FullName()); ok {
		return ref, true
	}
	if ref, ok := b.entityMap.LookupWithPlural(cls.Name); ok {
		return ref, true
	}
	// [Table] attributes are already folded into entityMap in stage 1, so a
	// miss there falls straight through to TABLE-node lookup.
	if n, ok := b.Model.FindByBaseName("dbo." + cls.Name); ok && n.Kind == model.KindTable {
		return resolve.TableRef{Schema: n.Schema, Table: n.Name}, true
	}
	if n, ok := b.Model.FindByBaseName("dbo." + cls.Name + "s"); ok && n.Kind == model.KindTable {
		return resolve.TableRef{Schema: n.Schema, Table: n.Name}, true
	}
	if b.entityByDbSet[cls.Name] {
		// TODO(spec.md §9/§4.3): this default-fallback path is the one the
		// spec does NOT list as trying the "+s" plural guess; keep it exact.
		return resolve.TableRef{Schema: "dbo", Table: cls.Name}, true
	}
	return resolve.TableRef{}, false
}

func (b *Builder) emitEntityBody(f *csast.File, cls csast.ClassDecl, entityKey, relFile string) {
	if b.Bodies == nil {
		return
	}
	content := f.Text(cls.Node)
	relName := fmt.Sprintf("Poco.%s.ENTITY.cs", cls.FullName())
	bodyPath, err := b.Bodies.WriteBody(relName, content)
	if err != nil {
		log.Printf("efgraph: writing entity body for %s: %v", entityKey, err)
		return
	}
	b.Model.EnrichNode(entityKey, func(n *model.Node) { n.BodyPath = bodyPath })
	if err := b.Bodies.AppendJSONL(artifact.BodyRecord{
		Kind: string(model.KindEntity), Key: entityKey, Namespace: cls.Namespace,
		TypeFullName: cls.FullName(), File: relFile, BodyPath: bodyPath, Body: content,
	}); err != nil {
		log.Printf("efgraph: appending jsonl for %s: %v", entityKey, err)
	}
}

// collectFluentForeignKeys implements spec.md §4.3's Fluent-API FK
// detection: a chain ending in HasForeignKey, walked leftward to find its
// HasOne/HasMany segment and the related type, then further leftward to the
// enclosing Entity<T>() call.
func (b *Builder) collectFluentForeignKeys(f *csast.File, relFile string) {
	for _, inv := range f.Invocations() {
		if inv.MethodName != "HasForeignKey" {
			continue
		}
		chain := f.ReceiverChain(inv)

		var nav string
		var isHasMany bool
		var found bool
		for _, step := range chain {
			switch step.MethodName {
			case "HasOne":
				nav, found = navTypeFromStep(step)
				isHasMany = false
			case "HasMany":
				nav, found = navTypeFromStep(step)
				isHasMany = true
			}
			if found {
				break
			}
		}
		if !found {
			continue
		}
		outerEntity := entityTypeInChain(f, chain)
		if outerEntity == "" {
			continue
		}

		var childType, parentType string
		if isHasMany {
			childType, parentType = nav, outerEntity
		} else {
			childType, parentType = outerEntity, nav
		}

		childRef, ok1 := b.resolveTypeToTable(childType)
		parentRef, ok2 := b.resolveTypeToTable(parentType)
		if !ok1 || !ok2 {
			continue
		}

		childKey := model.MakeKey(childRef.String(), model.KindTable)
		parentKey := model.MakeKey(parentRef.String(), model.KindTable)
		b.Model.TryAddNode(model.Node{Key: childKey, Kind: model.KindTable, Name: childRef.Table, Schema: childRef.Schema, File: relFile, Batch: model.NoBatch, Domain: model.DomainEF})
		b.Model.TryAddNode(model.Node{Key: parentKey, Kind: model.KindTable, Name: parentRef.Table, Schema: parentRef.Schema, File: relFile, Batch: model.NoBatch, Domain: model.DomainEF})
		b.Model.AddEdge(model.Edge{From: childKey, To: parentKey, Relation: model.RelForeignKey, ToKind: model.KindTable, File: relFile, Batch: model.NoBatch})
	}
}

// resolveTypeToTable resolves a C# type name to its table via the entity
// map, falling back to dbo.{SimpleName}.
func (b *Builder) resolveTypeToTable(typeName string) (resolve.TableRef, bool) {
	if ref, ok := b.entityMap.Lookup(typeName); ok {
		return ref, true
	}
	return resolve.TableRef{Schema: "dbo", Table: resolve.SimpleName(typeName)}, true
}

var reLambdaMember = regexp.MustCompile(`^\s*\w+\s*=>\s*\w+\.(\w+)\s*$`)

// navTypeFromStep extracts the related navigation type from a HasOne/HasMany
// call: either its generic type argument, or a simple lambda-body member
// access "c => c.Nav" (the navigation property's declared type is not
// resolvable without full type inference, so the property name itself is
// returned as the candidate related-entity simple name, matching spec.md
// §4.3's "simple lambda body" recovery).
func navTypeFromStep(step csast.Invocation) (string, bool) {
	if len(step.TypeArgs) == 1 {
		return step.TypeArgs[0], true
	}
	for _, a := range step.Args {
		if m := reLambdaMember.FindStringSubmatch(a); m != nil {
			return m[1], true
		}
	}
	return "", false
}
