// Package dbwriter consumes flattened rows off the row queue and writes
// them to a SQL database whose schema is discovered and evolved on the
// fly, through a narrow per-dialect Backend.
package dbwriter

import "context"

// ColumnDefinition is one discovered or evolving column.
type ColumnDefinition struct {
	Name         string
	Semantic     SemanticType
	SQLType      string
	SQLPrecision int
}

// TableDefinition is the writer's view of a table's current shape, as
// introspected from the database or built up during a run.
type TableDefinition struct {
	Name    string
	Columns map[string]ColumnDefinition
}

// Backend is the narrow per-dialect interface the writer drives. Two
// concrete backends ship: mysqlbackend and mssqlbackend.
type Backend interface {
	Connect(ctx context.Context, dsn string) error
	Close() error
	IntrospectTable(ctx context.Context, table string) (*TableDefinition, error)
	CreateTable(ctx context.Context, def *TableDefinition) error
	AddColumn(ctx context.Context, table string, col ColumnDefinition) error
	AlterColumn(ctx context.Context, table string, col ColumnDefinition) error
	AddForeignKey(ctx context.Context, table, column, refTable string) error
	InsertRow(ctx context.Context, table string, cols []string, vals []any) (int64, error)
	QuoteIdentifier(name string) string
	SQLType(semantic SemanticType, precision int) (sqlType string, sqlPrecision int)
}

// SemanticType is the writer-facing classification driving SQL type
// selection; it mirrors catalog.FieldType plus the writer's own bignumeric
// bucket. There is no array bucket: a multi-value array is classified as
// SemanticString holding its rendered form.
type SemanticType int

const (
	SemanticUnknown SemanticType = iota
	SemanticBoolean
	SemanticInt32
	SemanticInt64
	SemanticBigNumeric
	SemanticFloat
	SemanticTimestamp
	SemanticDuration
	SemanticString
	SemanticBytes
	SemanticGUID
)
