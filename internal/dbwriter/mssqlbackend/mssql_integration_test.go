package mssqlbackend

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/5342/C5SIGMA/internal/dbwriter"
)

// mssqlTestDSN returns the DSN from C5SIGMA_TEST_MSSQL_DSN, skipping the
// test when it isn't set rather than failing — no SQL Server instance is
// expected to be reachable in a plain `go test` run.
func mssqlTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("C5SIGMA_TEST_MSSQL_DSN")
	if dsn == "" {
		t.Skip("C5SIGMA_TEST_MSSQL_DSN not set, skipping SQL Server integration test")
	}
	return dsn
}

func TestBackend_CreateTableAndInsertRow(t *testing.T) {
	dsn := mssqlTestDSN(t)
	ctx := context.Background()

	b := New()
	require.NoError(t, b.Connect(ctx, dsn))
	defer b.Close()

	table := "c5sigma_it_create_insert"
	def := &dbwriter.TableDefinition{
		Name: table,
		Columns: map[string]dbwriter.ColumnDefinition{
			"greeting": {Name: "greeting", Semantic: dbwriter.SemanticString, SQLPrecision: 250},
		},
	}
	require.NoError(t, b.CreateTable(ctx, def))

	id, err := b.InsertRow(ctx, table, []string{"greeting"}, []any{"hello"})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := b.IntrospectTable(ctx, table)
	require.NoError(t, err)
	require.Contains(t, got.Columns, "greeting")
}

func TestBackend_AddColumnThenAlterColumnWidens(t *testing.T) {
	dsn := mssqlTestDSN(t)
	ctx := context.Background()

	b := New()
	require.NoError(t, b.Connect(ctx, dsn))
	defer b.Close()

	table := "c5sigma_it_widen"
	def := &dbwriter.TableDefinition{Name: table, Columns: map[string]dbwriter.ColumnDefinition{}}
	require.NoError(t, b.CreateTable(ctx, def))

	col := dbwriter.ColumnDefinition{Name: "note", Semantic: dbwriter.SemanticString, SQLPrecision: 250}
	require.NoError(t, b.AddColumn(ctx, table, col))

	col.SQLPrecision = 2000
	require.NoError(t, b.AlterColumn(ctx, table, col))

	got, err := b.IntrospectTable(ctx, table)
	require.NoError(t, err)
	require.Equal(t, 2000, got.Columns["note"].SQLPrecision)
}

func TestBackend_AddForeignKeyLinksTables(t *testing.T) {
	dsn := mssqlTestDSN(t)
	ctx := context.Background()

	b := New()
	require.NoError(t, b.Connect(ctx, dsn))
	defer b.Close()

	parent := "c5sigma_it_parent"
	child := "c5sigma_it_child"
	require.NoError(t, b.CreateTable(ctx, &dbwriter.TableDefinition{Name: parent, Columns: map[string]dbwriter.ColumnDefinition{}}))
	require.NoError(t, b.CreateTable(ctx, &dbwriter.TableDefinition{Name: child, Columns: map[string]dbwriter.ColumnDefinition{}}))
	require.NoError(t, b.AddColumn(ctx, child, dbwriter.ColumnDefinition{Name: "parent_" + parent, Semantic: dbwriter.SemanticInt64}))

	require.NoError(t, b.AddForeignKey(ctx, child, "parent_"+parent, parent))
}
