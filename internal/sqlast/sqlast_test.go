package sqlast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreprocessStripsDirectivesAndSubstitutesVars(t *testing.T) {
	src := ":setvar DatabaseName \"Foo\"\n:r .\\Tables\\Customer.sql\nSELECT TOP $(N) * FROM dbo.Customer;\n"
	out := Preprocess(src)
	require.NotContains(t, out, ":setvar")
	require.NotContains(t, out, ":r ")
	require.Contains(t, out, "TOP 0 *")
}

func TestSplitBatchesOnGo(t *testing.T) {
	src := "CREATE TABLE dbo.A (Id INT);\nGO\nCREATE TABLE dbo.B (Id INT);\nGO\n"
	batches := SplitBatches(src)
	require.Len(t, batches, 2)
	require.Equal(t, 0, batches[0].Index)
	require.Contains(t, batches[0].Text, "dbo.A")
	require.Contains(t, batches[1].Text, "dbo.B")
}

func TestSplitBatchesIgnoresGoInsideString(t *testing.T) {
	src := "SELECT 'GO to the store';\nGO\n"
	batches := SplitBatches(src)
	require.Len(t, batches, 1)
}

func TestClassifyCreateTableS1(t *testing.T) {
	stmt := Classify(`CREATE TABLE dbo.Customer (Id INT NOT NULL PRIMARY KEY, Name NVARCHAR(100) NOT NULL)`)
	require.Equal(t, StmtCreateTable, stmt.Kind)
	require.Equal(t, "dbo", stmt.Schema)
	require.Equal(t, "Customer", stmt.Name)
	require.Empty(t, stmt.ForeignKeyTargets)
}

func TestClassifyCreateTableWithForeignKeyS2(t *testing.T) {
	stmt := Classify(`CREATE TABLE dbo.Child (Id INT NOT NULL PRIMARY KEY, ParentId INT NOT NULL, CONSTRAINT FK_Child_Parent FOREIGN KEY (ParentId) REFERENCES dbo.Parent(Id))`)
	require.Equal(t, StmtCreateTable, stmt.Kind)
	require.Equal(t, "Child", stmt.Name)
	require.Len(t, stmt.ForeignKeyTargets, 1)
	require.Equal(t, "dbo.Parent", stmt.ForeignKeyTargets[0].String())
}

func TestClassifyCreateTrigger(t *testing.T) {
	stmt := Classify("CREATE TRIGGER dbo.trg_Audit ON dbo.Customer AFTER INSERT AS BEGIN SELECT 1 END")
	require.Equal(t, StmtCreateTrigger, stmt.Kind)
	require.Equal(t, "trg_Audit", stmt.Name)
	require.Equal(t, "Customer", stmt.TargetName)
}

func TestClassifyMergeReadsAndWrites(t *testing.T) {
	stmt := Classify("MERGE INTO dbo.Target AS t USING dbo.Source AS s ON t.Id = s.Id WHEN MATCHED THEN UPDATE SET t.Name = s.Name")
	require.Equal(t, StmtMerge, stmt.Kind)
	require.Equal(t, []QualifiedName{{Schema: "dbo", Name: "Target"}}, stmt.WritesTo)
	require.Equal(t, []QualifiedName{{Schema: "dbo", Name: "Source"}}, stmt.ReadsFrom)
}

func TestClassifyIgnoresTempAndTableVariables(t *testing.T) {
	tables := referencedTables("SELECT * FROM #TempTable t JOIN @TableVar v ON 1=1 JOIN dbo.Real r ON 1=1")
	require.Len(t, tables, 1)
	require.Equal(t, "dbo.Real", tables[0].String())
}

func TestSplitStatementsKeepsProcBodyIntact(t *testing.T) {
	batch := "CREATE PROCEDURE dbo.DoThing AS\nBEGIN\n  SELECT 1;\n  SELECT 2;\nEND"
	stmts := SplitStatements(batch)
	require.Len(t, stmts, 1)
}

func TestSplitStatementsSplitsOnTopLevelSemicolons(t *testing.T) {
	batch := "INSERT INTO dbo.A VALUES (1);\nINSERT INTO dbo.B VALUES (2);"
	stmts := SplitStatements(batch)
	require.Len(t, stmts, 2)
}
