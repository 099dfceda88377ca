package dbwriter

import (
	"context"
	"fmt"
)

// fakeBackend is an in-memory Backend used by the writer's unit tests; it
// never introspects an external catalog, so every table starts unseen.
type fakeBackend struct {
	tables         map[string]*TableDefinition
	rows           map[string][][]any
	nextID         int64
	ddlCalls       []string
	forceInsertErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tables: make(map[string]*TableDefinition),
		rows:   make(map[string][][]any),
	}
}

func (f *fakeBackend) Connect(ctx context.Context, dsn string) error { return nil }
func (f *fakeBackend) Close() error                                  { return nil }

func (f *fakeBackend) IntrospectTable(ctx context.Context, table string) (*TableDefinition, error) {
	if def, ok := f.tables[table]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("table %q not found", table)
}

func (f *fakeBackend) CreateTable(ctx context.Context, def *TableDefinition) error {
	f.ddlCalls = append(f.ddlCalls, "create:"+def.Name)
	cp := *def
	cp.Columns = map[string]ColumnDefinition{}
	for k, v := range def.Columns {
		cp.Columns[k] = v
	}
	f.tables[def.Name] = &cp
	return nil
}

func (f *fakeBackend) AddColumn(ctx context.Context, table string, col ColumnDefinition) error {
	f.ddlCalls = append(f.ddlCalls, "addcol:"+table+"."+col.Name)
	f.tables[table].Columns[col.Name] = col
	return nil
}

func (f *fakeBackend) AlterColumn(ctx context.Context, table string, col ColumnDefinition) error {
	f.ddlCalls = append(f.ddlCalls, "altercol:"+table+"."+col.Name)
	f.tables[table].Columns[col.Name] = col
	return nil
}

func (f *fakeBackend) AddForeignKey(ctx context.Context, table, column, refTable string) error {
	f.ddlCalls = append(f.ddlCalls, "fk:"+table+"."+column+"->"+refTable)
	return nil
}

func (f *fakeBackend) InsertRow(ctx context.Context, table string, cols []string, vals []any) (int64, error) {
	if f.forceInsertErr != nil {
		return 0, f.forceInsertErr
	}
	f.nextID++
	f.rows[table] = append(f.rows[table], vals)
	return f.nextID, nil
}

func (f *fakeBackend) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (f *fakeBackend) SQLType(sem SemanticType, precision int) (string, int) {
	switch sem {
	case SemanticString:
		return "VARCHAR", precision
	case SemanticInt32:
		return "INT", 0
	case SemanticInt64:
		return "BIGINT", 0
	case SemanticBigNumeric:
		return "NUMERIC", 20
	case SemanticBoolean:
		return "BIT", 0
	case SemanticFloat:
		return "FLOAT", 0
	case SemanticTimestamp:
		return "DATETIME2", 7
	default:
		return "VARCHAR", precision
	}
}
