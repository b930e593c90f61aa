// internal/model/graph.go

package model

import (
	"sort"
	"strings"
	"sync"
)

// GraphModel is the concurrent node/edge store shared by every visitor. It
// is safe for concurrent TryAddNode/AddEdge calls from many goroutines; the
// three-pass Finalize must run only after all stages have finished writing.
type GraphModel struct {
	mu    sync.Mutex
	nodes map[string]Node // keyed by strings.ToLower(Key)
	order []string        // lower-cased keys in first-insertion order

	edgeMu sync.Mutex
	edges  []Edge
}

// NewGraphModel returns an empty, ready-to-use store.
func NewGraphModel() *GraphModel {
	return &GraphModel{
		nodes: make(map[string]Node),
	}
}

// TryAddNode inserts node if its key is not already present (case-insensitive
// comparison) and reports whether the insertion happened. It never overwrites
// an existing node; callers that want to enrich an existing node must use
// EnrichNode at a well-defined merge point instead.
func (g *GraphModel) TryAddNode(n Node) bool {
	lk := strings.ToLower(n.Key)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[lk]; exists {
		return false
	}
	g.nodes[lk] = n
	g.order = append(g.order, lk)
	return true
}

// EnrichNode fills in fields on an existing node that are currently empty,
// without touching fields that already carry a value. It is a no-op if the
// key is absent. Used at the well-defined merge points spec §3 allows (e.g.
// TABLE node domain/file enrichment from a later-discovered EF mapping).
func (g *GraphModel) EnrichNode(key string, fill func(*Node)) {
	lk := strings.ToLower(key)

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[lk]
	if !ok {
		return
	}
	before := n
	fill(&n)
	n.Key = before.Key
	if before.Kind != "" {
		n.Kind = before.Kind
	}
	if before.Name != "" {
		n.Name = before.Name
	}
	if before.Batch != NoBatch {
		n.Batch = before.Batch
	}
	if before.File != "" {
		n.File = before.File
	}
	if before.Domain != "" {
		n.Domain = before.Domain
	}
	if before.BodyPath != "" {
		n.BodyPath = before.BodyPath
	}
	if before.Schema != "" {
		n.Schema = before.Schema
	}
	g.nodes[lk] = n
}

// HasNode reports whether a node with this exact key (case-insensitive)
// exists.
func (g *GraphModel) HasNode(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.nodes[strings.ToLower(key)]
	return ok
}

// FindByBaseName returns the first node whose key, with its trailing
// "|KIND" suffix stripped, matches base (case-insensitive), regardless of
// that node's own kind. Used both by kind resolution and by best-effort
// table-name lookups elsewhere.
func (g *GraphModel) FindByBaseName(base string) (Node, bool) {
	lb := strings.ToLower(base)

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, lk := range g.order {
		n := g.nodes[lk]
		if strings.ToLower(baseOf(n.Key)) == lb {
			return n, true
		}
	}
	return Node{}, false
}

func baseOf(key string) string {
	if i := strings.LastIndex(key, "|"); i >= 0 {
		return key[:i]
	}
	return key
}

// AddEdge appends an edge with no uniqueness check; deduplication happens in
// Finalize.
func (g *GraphModel) AddEdge(e Edge) {
	g.edgeMu.Lock()
	defer g.edgeMu.Unlock()
	g.edges = append(g.edges, e)
}

// Nodes returns a stable, key-sorted snapshot of all nodes.
func (g *GraphModel) Nodes() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Node, 0, len(g.nodes))
	for _, lk := range g.order {
		out = append(out, g.nodes[lk])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Edges returns a stable, (from,to,relation)-sorted snapshot of all edges.
func (g *GraphModel) Edges() []Edge {
	g.edgeMu.Lock()
	es := make([]Edge, len(g.edges))
	copy(es, g.edges)
	g.edgeMu.Unlock()

	sort.Slice(es, func(i, j int) bool {
		if es[i].From != es[j].From {
			return es[i].From < es[j].From
		}
		if es[i].To != es[j].To {
			return es[i].To < es[j].To
		}
		return es[i].Relation < es[j].Relation
	})
	return es
}

// Finalize performs the three post-processing passes described in spec §4.1:
// kind resolution on placeholder targets, (from,to,relation) deduplication,
// and backfill of minimal (external) nodes for unresolved edge targets.
func (g *GraphModel) Finalize() {
	g.resolvePlaceholderKinds()
	g.dedupEdges()
	g.backfillMissingTargets()
}

// resolvePlaceholderKinds rewrites each edge's To key from a placeholder
// kind (UNKNOWN, TABLE_OR_VIEW) to the kind of a defined node sharing the
// same base name, if one exists.
func (g *GraphModel) resolvePlaceholderKinds() {
	g.edgeMu.Lock()
	defer g.edgeMu.Unlock()

	for i := range g.edges {
		e := &g.edges[i]
		if !e.ToKind.Placeholder() {
			continue
		}
		base := baseOf(e.To)
		if n, ok := g.FindByBaseName(base); ok && n.Kind != e.ToKind {
			e.To = MakeKey(base, n.Kind)
			e.ToKind = n.Kind
		}
	}
}

// dedupEdges collapses edges identical in (From, To, Relation).
func (g *GraphModel) dedupEdges() {
	g.edgeMu.Lock()
	defer g.edgeMu.Unlock()

	seen := make(map[string]bool, len(g.edges))
	out := g.edges[:0]
	for _, e := range g.edges {
		k := strings.ToLower(e.From) + "\x00" + strings.ToLower(e.To) + "\x00" + string(e.Relation)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	g.edges = out
}

// backfillMissingTargets inserts a minimal (external) node for every edge
// target absent from the node set, so that every edge resolves to a node in
// the final output (spec §3 invariant).
func (g *GraphModel) backfillMissingTargets() {
	g.edgeMu.Lock()
	targets := make([]Edge, len(g.edges))
	copy(targets, g.edges)
	g.edgeMu.Unlock()

	for _, e := range targets {
		if g.HasNode(e.To) {
			continue
		}
		schema, name := splitQualifier(baseOf(e.To))
		g.TryAddNode(Node{
			Key:    e.To,
			Kind:   e.ToKind,
			Name:   name,
			Schema: schema,
			Domain: DomainExternal,
			Batch:  NoBatch,
		})
	}
}

// splitQualifier splits a "schema.name" qualifier into its two parts,
// defaulting schema to "dbo" when the qualifier carries none (a bare C#
// identifier is tagged with the "csharp" schema instead).
func splitQualifier(qualifier string) (schema, name string) {
	if strings.HasPrefix(qualifier, "csharp:") {
		return "csharp", strings.TrimPrefix(qualifier, "csharp:")
	}
	parts := strings.Split(qualifier, ".")
	if len(parts) == 1 {
		return "dbo", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], "."), parts[len(parts)-1]
}
