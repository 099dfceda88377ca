package dbwriter

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/5342/C5SIGMA/internal/metric"
	"github.com/5342/C5SIGMA/internal/pdml"
	"github.com/5342/C5SIGMA/internal/rowqueue"
	"github.com/5342/C5SIGMA/internal/xerrors"
)

// maxConsecutiveFailures is the failure-streak length at which the writer
// refuses further enqueues and reports itself fatal.
const maxConsecutiveFailures = 3

// Config controls writer behavior that isn't part of the Backend contract.
type Config struct {
	DisableForeignKeys bool
	DropByteColumns    bool
	EightBitStrings    bool
}

// rowContext carries the per-packet state threaded through one packet's row
// tree: the acquired sourcefile id, packet number, and timestamp, all
// derived from the packet's geninfo row and injected into every sibling row.
type rowContext struct {
	sourceFileID int64
	number       int64
	timestamp    string
	haveContext  bool
}

// Writer is the single background consumer described by the async writer
// design: it dequeues flattened rows, evolves the schema on the fly, and
// inserts, never running concurrently with itself.
type Writer struct {
	backend Backend
	filter  *Filter
	cfg     Config
	logger  *slog.Logger
	metrics *metric.Metrics

	tables            map[string]*TableDefinition
	fkAdded           map[string]bool
	sourceFileFKAdded map[string]bool
	sourceFiles       *sourceFileIndex

	consecutiveFailures int
	fatal               error

	rowsWritten int64
	rowsDropped int64
}

// RowsWritten returns the running count of rows this writer has committed,
// for a caller (the run summary) that wants a total without reaching into
// the per-table Prometheus vector.
func (w *Writer) RowsWritten() int64 {
	return atomic.LoadInt64(&w.rowsWritten)
}

// RowsDropped returns the running count of rows whose insert failed. Rows
// of tables denied by the filter are not counted.
func (w *Writer) RowsDropped() int64 {
	return atomic.LoadInt64(&w.rowsDropped)
}

// NewWriter constructs a Writer. filter may be nil, in which case every
// table and column is allowed.
func NewWriter(backend Backend, filter *Filter, cfg Config, logger *slog.Logger, metrics *metric.Metrics) *Writer {
	if filter == nil {
		filter = NoopFilter()
	}
	return &Writer{
		backend:           backend,
		filter:            filter,
		cfg:               cfg,
		logger:            logger,
		metrics:           metrics,
		tables:            make(map[string]*TableDefinition),
		fkAdded:           make(map[string]bool),
		sourceFileFKAdded: make(map[string]bool),
		sourceFiles:       newSourceFileIndex(),
	}
}

// Run drains q until it observes the shutdown sentinel or the writer goes
// fatal. It is meant to run as the pipeline's single background goroutine.
func (w *Writer) Run(ctx context.Context, q *rowqueue.Queue) error {
	var ctxState rowContext
	for {
		row, ok := q.Dequeue()
		if !ok {
			continue // poll wake with nothing ready; shutdown arrives as the nil sentinel
		}
		if row == nil {
			return nil // drained the shutdown sentinel
		}
		if w.fatal != nil {
			return w.fatal
		}
		w.processTopLevelRow(ctx, row, &ctxState)
	}
}

// processTopLevelRow handles one dequeued row tree (one top-level proto's
// row, with its nested child rows), updating ctxState from a geninfo row
// and applying it to every row in the tree.
func (w *Writer) processTopLevelRow(ctx context.Context, row *pdml.DataRow, ctxState *rowContext) {
	if row.Table == "geninfo" {
		*ctxState = rowContext{} // a geninfo row starts a new packet
		w.beginPacketContext(ctx, row, ctxState)
	}
	if _, err := w.writeRowTree(ctx, row, 0, "", *ctxState); err != nil {
		w.recordFailure(err)
	} else {
		w.consecutiveFailures = 0
	}
}

// beginPacketContext extracts file/number/timestamp from the geninfo row
// and acquires the sourcefile id, per step 3 of the writer algorithm.
func (w *Writer) beginPacketContext(ctx context.Context, row *pdml.DataRow, ctxState *rowContext) {
	path, _ := row.Columns["file"].(string)
	if path == "" {
		return
	}
	id, err := w.acquireSourceFileID(ctx, path)
	if err != nil {
		w.logger.Warn("acquire sourcefile id failed", "path", path, "error", err)
		return
	}
	if v, ok := row.Columns["num"]; ok {
		_, _, val := classifyValue(v)
		switch n := val.(type) {
		case int64:
			ctxState.number = n
		case uint64:
			ctxState.number = int64(n)
		}
	}
	if v, ok := row.Columns["timestamp"]; ok {
		_, _, val := classifyValue(v)
		if s, ok := val.(string); ok {
			ctxState.timestamp = s
		}
	}
	ctxState.sourceFileID = id
	ctxState.haveContext = true
}

// writeRowTree writes row (after its own parentID is known), then recurses
// depth-first into its child row sets so every child carries the just-
// inserted parent's _id. It returns the inserted row's _id.
func (w *Writer) writeRowTree(ctx context.Context, row *pdml.DataRow, parentID int64, parentTable string, ctxState rowContext) (int64, error) {
	if !w.filter.AllowsTable(row.Table) {
		// Denied tables are not written, but children may still be allowed.
		for _, set := range row.Rows {
			for _, child := range set.Rows {
				if _, err := w.writeRowTree(ctx, child, 0, "", ctxState); err != nil {
					w.logger.Warn("child of denied table failed", "table", set.Table, "error", err)
				}
			}
		}
		return 0, nil
	}

	if _, err := w.ensureTable(ctx, row.Table); err != nil {
		return 0, err
	}

	cols := []string{}
	vals := []any{}

	if parentTable != "" {
		parentCol := "parent_" + parentTable
		col, err := w.ensureColumn(ctx, row.Table, parentCol, SemanticInt64, 0)
		if err != nil {
			return 0, err
		}
		if err := w.ensureParentForeignKey(ctx, row.Table, parentTable); err != nil {
			w.logger.Warn("add parent foreign key failed", "table", row.Table, "parent", parentTable, "error", err)
		}
		cols = append(cols, col.Name)
		vals = append(vals, parentID)
	}

	if ctxState.haveContext {
		sfCol, err := w.ensureColumn(ctx, row.Table, "_sourcefileid", SemanticInt64, 0)
		if err != nil {
			return 0, err
		}
		if err := w.ensureSourceFileForeignKey(ctx, row.Table); err != nil {
			w.logger.Warn("add sourcefile foreign key failed", "table", row.Table, "error", err)
		}
		cols = append(cols, sfCol.Name)
		vals = append(vals, ctxState.sourceFileID)

		numCol, err := w.ensureColumn(ctx, row.Table, "_number", SemanticInt64, 0)
		if err != nil {
			return 0, err
		}
		cols = append(cols, numCol.Name)
		vals = append(vals, ctxState.number)

		tsCol, err := w.ensureColumn(ctx, row.Table, "_timestamp", SemanticTimestamp, 0)
		if err != nil {
			return 0, err
		}
		cols = append(cols, tsCol.Name)
		vals = append(vals, ctxState.timestamp)
	}

	for _, name := range row.Order {
		if !w.filter.AllowsColumn(name) {
			continue
		}
		sem, precision, value := classifyValue(row.Columns[name])
		if sem == SemanticBytes && w.cfg.DropByteColumns {
			continue
		}
		escaped := escapeIdentifier(name)
		col, err := w.ensureColumn(ctx, row.Table, escaped, sem, precision)
		if err != nil {
			return 0, err
		}
		bound, truncated := formatForInsert(value, col.Semantic, col.SQLPrecision)
		if truncated {
			w.logger.Warn("string value truncated", "table", row.Table, "column", escaped)
		}
		cols = append(cols, col.Name)
		vals = append(vals, bound)
	}

	start := time.Now()
	id, err := w.backend.InsertRow(ctx, row.Table, cols, vals)
	if w.metrics != nil {
		w.metrics.ObserveInsertDuration(row.Table, time.Since(start))
	}
	if err != nil {
		atomic.AddInt64(&w.rowsDropped, 1)
		if w.metrics != nil {
			w.metrics.RecordRowDropped(row.Table)
		}
		return 0, err
	}
	atomic.AddInt64(&w.rowsWritten, 1)
	if w.metrics != nil {
		w.metrics.RecordRowWritten(row.Table)
	}

	for _, set := range row.Rows {
		for _, child := range set.Rows {
			if _, err := w.writeRowTree(ctx, child, id, row.Table, ctxState); err != nil {
				w.logger.Warn("child row failed", "table", set.Table, "error", err)
			}
		}
	}

	return id, nil
}

// recordFailure tracks the three-consecutive-failures rule: past the
// threshold the writer refuses further enqueues by surfacing a fatal error
// to the next Run caller.
func (w *Writer) recordFailure(err error) {
	w.logger.Warn("row write failed", "error", err)
	if w.metrics != nil {
		w.metrics.RecordError("dbwriter", xerrors.Classify(err).String())
	}
	w.consecutiveFailures++
	if w.consecutiveFailures >= maxConsecutiveFailures {
		w.fatal = xerrors.WrapFatal(xerrors.ErrWriterFatal, "dbwriter", "Run",
			"three consecutive row write failures")
	}
}
