package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryAddNodeInsertOrSkip(t *testing.T) {
	g := NewGraphModel()

	key := MakeKey("dbo.Customer", KindTable)
	require.True(t, g.TryAddNode(Node{Key: key, Kind: KindTable, Name: "Customer", Schema: "dbo", Batch: NoBatch}))
	require.False(t, g.TryAddNode(Node{Key: key, Kind: KindTable, Name: "SomethingElse", Schema: "dbo", Batch: NoBatch}))

	// Case-insensitive key equality.
	require.False(t, g.TryAddNode(Node{Key: "DBO.CUSTOMER|TABLE", Kind: KindTable, Batch: NoBatch}))

	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	require.Equal(t, "Customer", nodes[0].Name)
}

func TestFinalizeResolvesPlaceholderKind(t *testing.T) {
	g := NewGraphModel()
	tableKey := MakeKey("dbo.Customer", KindTable)
	require.True(t, g.TryAddNode(Node{Key: tableKey, Kind: KindTable, Name: "Customer", Schema: "dbo", Batch: NoBatch}))

	placeholder := MakeKey("dbo.Customer", KindTableOrView)
	g.AddEdge(Edge{From: MakeKey("csharp:Foo.Bar", KindMethod), To: placeholder, Relation: RelReadsFrom, ToKind: KindTableOrView, Batch: NoBatch})

	g.Finalize()

	edges := g.Edges()
	require.Len(t, edges, 1)
	require.Equal(t, tableKey, edges[0].To)
	require.Equal(t, KindTable, edges[0].ToKind)
}

func TestFinalizeDedupsEdges(t *testing.T) {
	g := NewGraphModel()
	from := MakeKey("csharp:A", KindEntity)
	to := MakeKey("dbo.Customer", KindTable)
	g.AddEdge(Edge{From: from, To: to, Relation: RelMapsTo, ToKind: KindTable, Batch: NoBatch})
	g.AddEdge(Edge{From: from, To: to, Relation: RelMapsTo, ToKind: KindTable, Batch: NoBatch})
	g.AddEdge(Edge{From: from, To: to, Relation: RelForeignKey, ToKind: KindTable, Batch: NoBatch})

	g.Finalize()

	edges := g.Edges()
	require.Len(t, edges, 2)
}

func TestFinalizeBackfillsMissingTargets(t *testing.T) {
	g := NewGraphModel()
	from := MakeKey("csharp:InlineSqlSample.RawSql.LoadCustomers", KindMethod)
	to := MakeKey("dbo.Customer", KindTableOrView)
	g.AddEdge(Edge{From: from, To: to, Relation: RelReadsFrom, ToKind: KindTableOrView, Batch: NoBatch})

	g.Finalize()

	require.True(t, g.HasNode(to))
	n, ok := g.FindByBaseName("dbo.Customer")
	require.True(t, ok)
	require.Equal(t, DomainExternal, n.Domain)
	require.Equal(t, "Customer", n.Name)
	require.Equal(t, "dbo", n.Schema)
}

func TestEnrichNodeNeverClobbersSetFields(t *testing.T) {
	g := NewGraphModel()
	key := MakeKey("dbo.Customer", KindTable)
	g.TryAddNode(Node{Key: key, Kind: KindTable, Name: "Customer", File: "001_CreateCustomer.sql", Batch: NoBatch})

	g.EnrichNode(key, func(n *Node) {
		n.File = "should-not-apply.sql"
		n.Domain = DomainEF
	})

	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	require.Equal(t, "001_CreateCustomer.sql", nodes[0].File)
	require.Equal(t, DomainEF, nodes[0].Domain)
}
