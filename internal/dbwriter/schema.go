package dbwriter

import (
	"context"
)

// idColumn is the auto-increment primary key every data table carries.
const idColumn = "_id"

// ensureTable returns the cached definition for table, introspecting or
// creating it (with just the primary key) the first time it is seen.
func (w *Writer) ensureTable(ctx context.Context, table string) (*TableDefinition, error) {
	if def, ok := w.tables[table]; ok {
		return def, nil
	}
	def, err := w.backend.IntrospectTable(ctx, table)
	if err == nil && def != nil {
		w.tables[table] = def
		return def, nil
	}
	def = &TableDefinition{Name: table, Columns: map[string]ColumnDefinition{}}
	if err := w.backend.CreateTable(ctx, def); err != nil {
		return nil, err
	}
	if w.metrics != nil {
		w.metrics.RecordDDL("create_table", "ok")
	}
	w.tables[table] = def
	return def, nil
}

// ensureColumn adds or widens column `name` in `table` to accommodate a
// value of the given semantic type and precision, returning the column's
// current (possibly just-widened) definition.
func (w *Writer) ensureColumn(ctx context.Context, table, name string, sem SemanticType, precision int) (ColumnDefinition, error) {
	def := w.tables[table]
	current, exists := def.Columns[name]
	if !exists {
		sqlType, sqlPrecision := w.backend.SQLType(sem, precision)
		col := ColumnDefinition{Name: name, Semantic: sem, SQLType: sqlType, SQLPrecision: sqlPrecision}
		if err := w.backend.AddColumn(ctx, table, col); err != nil {
			return ColumnDefinition{}, err
		}
		if w.metrics != nil {
			w.metrics.RecordDDL("add_column", "ok")
		}
		def.Columns[name] = col
		return col, nil
	}

	widened := widen(current, sem, precision, w.cfg.EightBitStrings)
	if widened.Semantic == current.Semantic && widened.SQLPrecision == current.SQLPrecision {
		return current, nil
	}
	sqlType, sqlPrecision := w.backend.SQLType(widened.Semantic, widened.SQLPrecision)
	widened.SQLType = sqlType
	widened.SQLPrecision = sqlPrecision
	if err := w.backend.AlterColumn(ctx, table, widened); err != nil {
		return ColumnDefinition{}, err
	}
	if w.metrics != nil {
		w.metrics.RecordDDL("alter_column", "ok")
	}
	def.Columns[name] = widened
	return widened, nil
}

// ensureParentForeignKey adds a FOREIGN KEY from table's parent_<parentTable>
// column to parentTable(_id), the first time table is written under that
// parent. Names carry a random suffix to avoid collisions across runs.
func (w *Writer) ensureParentForeignKey(ctx context.Context, table, parentTable string) error {
	if w.cfg.DisableForeignKeys {
		return nil
	}
	key := table + "->" + parentTable
	if w.fkAdded[key] {
		return nil
	}
	column := "parent_" + parentTable
	if err := w.backend.AddForeignKey(ctx, table, column, parentTable); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.RecordDDL("add_foreign_key", "ok")
	}
	w.fkAdded[key] = true
	return nil
}

// ensureSourceFileForeignKey adds table's foreign key to sourcefile(_id) the
// first time a row in table carries _sourcefileid.
func (w *Writer) ensureSourceFileForeignKey(ctx context.Context, table string) error {
	if w.cfg.DisableForeignKeys {
		return nil
	}
	if w.sourceFileFKAdded[table] {
		return nil
	}
	if err := w.backend.AddForeignKey(ctx, table, "_sourcefileid", sourceFileTable); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.RecordDDL("add_foreign_key", "ok")
	}
	w.sourceFileFKAdded[table] = true
	return nil
}
