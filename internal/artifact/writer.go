package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// NodeRow and EdgeRow mirror the exact CSV column sets spec.md §4.6
// prescribes, so graph.json (built from these, not from model.Node/Edge
// directly) and nodes.csv/edges.csv round-trip byte-for-byte.
type NodeRow struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Schema   string `json:"schema"`
	File     string `json:"file"`
	Batch    int    `json:"batch"`
	Domain   string `json:"domain"`
	BodyPath string `json:"body_path"`
}

type EdgeRow struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
	ToKind   string `json:"to_kind"`
	File     string `json:"file"`
	Batch    int    `json:"batch"`
}

// Graph is the { "nodes": [...], "edges": [...] } shape graph.json persists.
type Graph struct {
	Nodes []NodeRow `json:"nodes"`
	Edges []EdgeRow `json:"edges"`
}

// Manifest is manifest.json's shape, per spec.md §4.6.
type Manifest struct {
	Schema   int          `json:"schema"`
	BuiltAt  string       `json:"builtAt"`
	SQLRoot  string       `json:"sqlRoot"`
	CodeRoots []string    `json:"codeRoots"`
	Counts   ManifestCounts `json:"counts"`
}

type ManifestCounts struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
	Docs  int `json:"docs"`
}

// WriteGraph writes graph/nodes.csv, graph/edges.csv, and graph/graph.json
// under outDir, rows already sorted by the caller (model.GraphModel.Nodes/
// Edges return sorted snapshots).
func WriteGraph(outDir string, nodes []NodeRow, edges []EdgeRow) error {
	graphDir := filepath.Join(outDir, "graph")
	if err := os.MkdirAll(graphDir, 0o755); err != nil {
		return fmt.Errorf("creating graph dir: %w", err)
	}

	if err := writeNodesCSV(filepath.Join(graphDir, "nodes.csv"), nodes); err != nil {
		return err
	}
	if err := writeEdgesCSV(filepath.Join(graphDir, "edges.csv"), edges); err != nil {
		return err
	}
	if err := writeGraphJSON(filepath.Join(graphDir, "graph.json"), nodes, edges); err != nil {
		return err
	}
	return nil
}

func writeNodesCSV(path string, nodes []NodeRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating nodes.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"key", "kind", "name", "schema", "file", "batch", "domain", "body_path"}); err != nil {
		return fmt.Errorf("writing nodes.csv header: %w", err)
	}
	for _, n := range nodes {
		row := []string{
			n.Key, n.Kind, n.Name, n.Schema, filepath.ToSlash(n.File),
			strconv.Itoa(n.Batch), n.Domain, filepath.ToSlash(n.BodyPath),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing nodes.csv row %s: %w", n.Key, err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeEdgesCSV(path string, edges []EdgeRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating edges.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"from", "to", "relation", "to_kind", "file", "batch"}); err != nil {
		return fmt.Errorf("writing edges.csv header: %w", err)
	}
	for _, e := range edges {
		row := []string{
			e.From, e.To, e.Relation, e.ToKind, filepath.ToSlash(e.File), strconv.Itoa(e.Batch),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing edges.csv row %s->%s: %w", e.From, e.To, err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeGraphJSON(path string, nodes []NodeRow, edges []EdgeRow) error {
	g := Graph{Nodes: nodes, Edges: edges}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling graph.json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing graph.json: %w", err)
	}
	return nil
}

// ReadGraph re-parses nodes.csv/edges.csv, used by the round-trip test and
// by anything that wants to verify graph.json agrees with the CSV pair.
func ReadGraph(outDir string) (Graph, error) {
	var g Graph

	nodesF, err := os.Open(filepath.Join(outDir, "graph", "nodes.csv"))
	if err != nil {
		return g, fmt.Errorf("opening nodes.csv: %w", err)
	}
	defer nodesF.Close()
	nr := csv.NewReader(nodesF)
	records, err := nr.ReadAll()
	if err != nil {
		return g, fmt.Errorf("reading nodes.csv: %w", err)
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		batch, _ := strconv.Atoi(rec[5])
		g.Nodes = append(g.Nodes, NodeRow{Key: rec[0], Kind: rec[1], Name: rec[2], Schema: rec[3], File: rec[4], Batch: batch, Domain: rec[6], BodyPath: rec[7]})
	}

	edgesF, err := os.Open(filepath.Join(outDir, "graph", "edges.csv"))
	if err != nil {
		return g, fmt.Errorf("opening edges.csv: %w", err)
	}
	defer edgesF.Close()
	er := csv.NewReader(edgesF)
	records, err = er.ReadAll()
	if err != nil {
		return g, fmt.Errorf("reading edges.csv: %w", err)
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		batch, _ := strconv.Atoi(rec[5])
		g.Edges = append(g.Edges, EdgeRow{From: rec[0], To: rec[1], Relation: rec[2], ToKind: rec[3], File: rec[4], Batch: batch})
	}
	return g, nil
}

// WriteManifest writes manifest.json.
func WriteManifest(outDir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest.json: %w", err)
	}
	return nil
}
