package sqlgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"codegraph/internal/artifact"
	"codegraph/internal/model"
)

func newTestBuilder(t *testing.T) (*Builder, *model.GraphModel) {
	t.Helper()
	outDir := t.TempDir()
	bw, err := artifact.NewBodyWriter(outDir)
	require.NoError(t, err)
	t.Cleanup(func() { bw.Close() })

	m := model.NewGraphModel()
	return NewBuilder(m, bw, 2), m
}

func writeSQL(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestS1CreateTableOnly(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, root, "001_CreateCustomer.sql", "CREATE TABLE dbo.Customer (Id INT NOT NULL PRIMARY KEY, Name NVARCHAR(100) NOT NULL);\nGO\n")

	b, m := newTestBuilder(t)
	_, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	m.Finalize()

	nodes := m.Nodes()
	var foundTable, foundEntity, foundMigration bool
	for _, n := range nodes {
		if n.Key == model.MakeKey("dbo.Customer", model.KindTable) {
			foundTable = true
		}
		if n.Kind == model.KindEntity {
			foundEntity = true
		}
		if n.Kind == model.KindMigration {
			foundMigration = true
		}
	}
	require.True(t, foundTable)
	require.False(t, foundEntity)
	require.False(t, foundMigration)
}

func TestS2ForeignKeyInCreateTable(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, root, "001_Parent.sql", "CREATE TABLE dbo.Parent (Id INT NOT NULL PRIMARY KEY);\nGO\n")
	writeSQL(t, root, "002_Child.sql", "CREATE TABLE dbo.Child (Id INT NOT NULL PRIMARY KEY, ParentId INT NOT NULL, CONSTRAINT FK_Child_Parent FOREIGN KEY (ParentId) REFERENCES dbo.Parent(Id));\nGO\n")

	b, m := newTestBuilder(t)
	_, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	m.Finalize()

	require.True(t, m.HasNode(model.MakeKey("dbo.Parent", model.KindTable)))
	require.True(t, m.HasNode(model.MakeKey("dbo.Child", model.KindTable)))

	var found bool
	for _, e := range m.Edges() {
		if e.From == model.MakeKey("dbo.Child", model.KindTable) &&
			e.To == model.MakeKey("dbo.Parent", model.KindTable) &&
			e.Relation == model.RelForeignKey {
			found = true
		}
	}
	require.True(t, found)
}

func TestPreDeploymentSynthesizesDeployNode(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, root, "PreDeployment.sql", "PRINT 'starting';\nGO\n")

	b, m := newTestBuilder(t)
	_, err := b.Build(context.Background(), root)
	require.NoError(t, err)

	var foundDeploy bool
	for _, n := range m.Nodes() {
		if n.Kind == model.KindDeploy {
			foundDeploy = true
		}
	}
	require.True(t, foundDeploy)
}

func TestBodyEmittedForCreateView(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, root, "001_View.sql", "CREATE VIEW dbo.ActiveCustomers AS SELECT c.Id FROM dbo.Customer c WHERE c.IsActive = 1;\nGO\n")

	b, m := newTestBuilder(t)
	_, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	m.Finalize()

	n, ok := m.FindByBaseName("dbo.ActiveCustomers")
	require.True(t, ok)
	require.NotEmpty(t, n.BodyPath)

	var readsFrom bool
	for _, e := range m.Edges() {
		if e.From == n.Key && e.Relation == model.RelReadsFrom {
			readsFrom = true
		}
	}
	require.True(t, readsFrom)
}
