package artifact

import "codegraph/internal/model"

// NodeRows converts a sorted model.Node snapshot to the CSV/JSON row shape.
func NodeRows(nodes []model.Node) []NodeRow {
	rows := make([]NodeRow, len(nodes))
	for i, n := range nodes {
		rows[i] = NodeRow{
			Key: n.Key, Kind: string(n.Kind), Name: n.Name, Schema: n.Schema,
			File: n.File, Batch: n.Batch, Domain: n.Domain, BodyPath: n.BodyPath,
		}
	}
	return rows
}

// EdgeRows converts a sorted model.Edge snapshot to the CSV/JSON row shape.
func EdgeRows(edges []model.Edge) []EdgeRow {
	rows := make([]EdgeRow, len(edges))
	for i, e := range edges {
		rows[i] = EdgeRow{
			From: e.From, To: e.To, Relation: string(e.Relation), ToKind: string(e.ToKind),
			File: e.File, Batch: e.Batch,
		}
	}
	return rows
}
