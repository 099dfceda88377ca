package dbwriter

import "context"

// sourceFileTable is the fixed name of the table tracking acquired
// capture-file paths.
const sourceFileTable = "sourcefile"

// sourceFileIndex caches path -> _id so repeat rows for the same capture
// file don't re-query the database.
type sourceFileIndex struct {
	ids map[string]int64
}

func newSourceFileIndex() *sourceFileIndex {
	return &sourceFileIndex{ids: make(map[string]int64)}
}

// acquireSourceFileID returns the sourcefile table's _id for path, inserting a new row
// the first time path is seen in this run.
func (w *Writer) acquireSourceFileID(ctx context.Context, path string) (int64, error) {
	if id, ok := w.sourceFiles.ids[path]; ok {
		return id, nil
	}
	if err := w.ensureSourceFileTable(ctx); err != nil {
		return 0, err
	}
	id, err := w.backend.InsertRow(ctx, sourceFileTable, []string{"path"}, []any{path})
	if err != nil {
		return 0, err
	}
	w.sourceFiles.ids[path] = id
	return id, nil
}

func (w *Writer) ensureSourceFileTable(ctx context.Context) error {
	if w.tables[sourceFileTable] != nil {
		return nil
	}
	def, err := w.backend.IntrospectTable(ctx, sourceFileTable)
	if err == nil && def != nil {
		w.tables[sourceFileTable] = def
		return nil
	}
	def = &TableDefinition{
		Name: sourceFileTable,
		Columns: map[string]ColumnDefinition{
			"path": {Name: "path", Semantic: SemanticString, SQLPrecision: 4000},
		},
	}
	if err := w.backend.CreateTable(ctx, def); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.RecordDDL("create_table", "ok")
	}
	w.tables[sourceFileTable] = def
	return nil
}
