package inlinesql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"codegraph/internal/artifact"
	"codegraph/internal/csast"
	"codegraph/internal/model"
)

func parseCSFile(t *testing.T, path, src string) *csast.File {
	t.Helper()
	f, err := csast.Parse(path, []byte(src))
	require.NoError(t, err)
	return f
}

const repoSource = `
namespace Shop.Data {
    public class OrderRepository {
        public void LoadOrders(IDbConnection conn) {
            conn.Query("SELECT * FROM dbo.Orders WHERE CustomerId = @id");
        }

        public void SeedLegacy(IDbConnection conn) {
            string sql = "SELECT * FROM dbo.LegacyCustomers";
            conn.Execute(sql);
        }
    }
}
`

func TestS6HotMethodLiteralProjectsReadsFromEdge(t *testing.T) {
	f := parseCSFile(t, "OrderRepository.cs", repoSource)

	bw, err := artifact.NewBodyWriter(t.TempDir())
	require.NoError(t, err)
	defer bw.Close()

	m := model.NewGraphModel()
	b := NewBuilder(m, bw, Config{})
	b.Build([]*csast.File{f}, map[*csast.File]string{f: "Data/OrderRepository.cs"})
	m.Finalize()

	var methodNode model.Node
	var foundMethod bool
	for _, n := range m.Nodes() {
		if n.Kind == model.KindMethod && n.Name == "LoadOrders" {
			methodNode = n
			foundMethod = true
		}
	}
	require.True(t, foundMethod, "expected a METHOD node for LoadOrders")

	var foundEdge bool
	for _, e := range m.Edges() {
		if e.Relation == model.RelReadsFrom && e.From == methodNode.Key {
			foundEdge = true
		}
	}
	require.True(t, foundEdge, "expected a ReadsFrom edge from LoadOrders to the queried table")
}

func TestS6HeuristicFallbackOnLocalVariable(t *testing.T) {
	f := parseCSFile(t, "OrderRepository.cs", repoSource)

	bw, err := artifact.NewBodyWriter(t.TempDir())
	require.NoError(t, err)
	defer bw.Close()

	m := model.NewGraphModel()
	b := NewBuilder(m, bw, Config{})
	b.Build([]*csast.File{f}, map[*csast.File]string{f: "Data/OrderRepository.cs"})
	m.Finalize()

	var foundLegacyEdge bool
	for _, n := range m.Nodes() {
		if n.Name == "SeedLegacy" {
			for _, e := range m.Edges() {
				if e.From == n.Key && e.Relation == model.RelReadsFrom {
					foundLegacyEdge = true
				}
			}
		}
	}
	require.True(t, foundLegacyEdge, "expected the sql-verb heuristic to pick up the local-variable literal passed to Execute")
}
