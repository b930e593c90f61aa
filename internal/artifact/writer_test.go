package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteGraphRoundTrip(t *testing.T) {
	outDir := t.TempDir()

	nodes := []NodeRow{
		{Key: "dbo.Customer|TABLE", Kind: "TABLE", Name: "Customer", Schema: "dbo", File: "sql/001_Customer.sql", Batch: 0, Domain: "db", BodyPath: "docs/bodies/dbo.Customer.TABLE.sql"},
		{Key: "dbo.GetCustomer|PROC", Kind: "PROC", Name: "GetCustomer", Schema: "dbo", File: "sql/002_GetCustomer.sql", Batch: 0, Domain: "db", BodyPath: "docs/bodies/dbo.GetCustomer.PROC.sql"},
	}
	edges := []EdgeRow{
		{From: "dbo.GetCustomer|PROC", To: "dbo.Customer|TABLE", Relation: "ReadsFrom", ToKind: "TABLE", File: "sql/002_GetCustomer.sql", Batch: 0},
	}

	require.NoError(t, WriteGraph(outDir, nodes, edges))

	got, err := ReadGraph(outDir)
	require.NoError(t, err)
	require.Equal(t, nodes, got.Nodes)
	require.Equal(t, edges, got.Edges)

	jsonBytes, err := os.ReadFile(filepath.Join(outDir, "graph", "graph.json"))
	require.NoError(t, err)
	var g Graph
	require.NoError(t, json.Unmarshal(jsonBytes, &g))
	require.Equal(t, nodes, g.Nodes)
	require.Equal(t, edges, g.Edges)
}

func TestWriteManifest(t *testing.T) {
	outDir := t.TempDir()
	m := Manifest{
		Schema: 1, BuiltAt: "2026-08-01T00:00:00Z", SQLRoot: "sql", CodeRoots: []string{"src"},
		Counts: ManifestCounts{Nodes: 2, Edges: 1, Docs: 2},
	}
	require.NoError(t, WriteManifest(outDir, m))

	data, err := os.ReadFile(filepath.Join(outDir, "manifest.json"))
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, m, got)
}
