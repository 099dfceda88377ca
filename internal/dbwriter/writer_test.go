package dbwriter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/5342/C5SIGMA/internal/pdml"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriter_CreatesTableAndInsertsColumns(t *testing.T) {
	backend := newFakeBackend()
	w := NewWriter(backend, nil, Config{}, testLogger(), nil)

	row := &pdml.DataRow{
		Table:   "tcp",
		Columns: map[string]any{"tcp.srcport": "443"},
		Order:   []string{"tcp.srcport"},
	}
	id, err := w.writeRowTree(context.Background(), row, 0, "", rowContext{})
	if err != nil {
		t.Fatalf("writeRowTree: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if _, ok := backend.tables["tcp"].Columns["tcp_srcport"]; !ok {
		t.Errorf("expected escaped column tcp_srcport, got %v", backend.tables["tcp"].Columns)
	}
}

func TestWriter_ParentForeignKeyAndColumn(t *testing.T) {
	backend := newFakeBackend()
	w := NewWriter(backend, nil, Config{}, testLogger(), nil)

	parentID, err := w.writeRowTree(context.Background(), &pdml.DataRow{Table: "ip", Columns: map[string]any{}}, 0, "", rowContext{})
	if err != nil {
		t.Fatalf("parent writeRowTree: %v", err)
	}

	child := &pdml.DataRow{Table: "ip_opt", Columns: map[string]any{"x": "1"}, Order: []string{"x"}}
	_, err = w.writeRowTree(context.Background(), child, parentID, "ip", rowContext{})
	if err != nil {
		t.Fatalf("child writeRowTree: %v", err)
	}

	col, ok := backend.tables["ip_opt"].Columns["parent_ip"]
	if !ok {
		t.Fatalf("expected parent_ip column, got %v", backend.tables["ip_opt"].Columns)
	}
	if col.Semantic != SemanticInt64 {
		t.Errorf("parent_ip semantic = %v, want SemanticInt64", col.Semantic)
	}
	found := false
	for _, call := range backend.ddlCalls {
		if call == "fk:ip_opt.parent_ip->ip" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a parent foreign key DDL call, got %v", backend.ddlCalls)
	}
}

func TestWriter_DeniedTableSkipsWriteButRecursesChildren(t *testing.T) {
	backend := newFakeBackend()
	filter, errs := LoadFilter(strings.NewReader(`<filter><tables><deny tableName="^secret$"/></tables></filter>`))
	if len(errs) != 0 {
		t.Fatalf("LoadFilter errs: %v", errs)
	}
	w := NewWriter(backend, filter, Config{}, testLogger(), nil)

	child := &pdml.DataRow{Table: "visible", Columns: map[string]any{"a": "1"}, Order: []string{"a"}}
	row := &pdml.DataRow{
		Table:   "secret",
		Columns: map[string]any{"a": "1"},
		Order:   []string{"a"},
		Rows:    []*pdml.ChildRowSet{{Table: "visible", Rows: []*pdml.DataRow{child}}},
	}

	id, err := w.writeRowTree(context.Background(), row, 0, "", rowContext{})
	if err != nil {
		t.Fatalf("writeRowTree: %v", err)
	}
	if id != 0 {
		t.Errorf("denied table row returned id %d, want 0 (not written)", id)
	}
	if _, ok := backend.tables["secret"]; ok {
		t.Errorf("denied table %q should not have been created", "secret")
	}
	if _, ok := backend.tables["visible"]; !ok {
		t.Errorf("child of denied table should still be written")
	}
}

func TestWriter_ThreeConsecutiveFailuresGoesFatal(t *testing.T) {
	backend := newFakeBackend()
	backend.forceInsertErr = errors.New("forced insert failure")
	w := NewWriter(backend, nil, Config{}, testLogger(), nil)

	var ctxState rowContext
	row := &pdml.DataRow{Table: "x", Columns: map[string]any{}}
	for i := 0; i < 3; i++ {
		w.processTopLevelRow(context.Background(), row, &ctxState)
	}
	if w.fatal == nil {
		t.Fatalf("expected writer to be fatal after three consecutive failures")
	}
}

func TestWiden_ColumnWidensAcrossInserts(t *testing.T) {
	backend := newFakeBackend()
	w := NewWriter(backend, nil, Config{}, testLogger(), nil)

	row1 := &pdml.DataRow{Table: "t", Columns: map[string]any{"c": "short"}, Order: []string{"c"}}
	if _, err := w.writeRowTree(context.Background(), row1, 0, "", rowContext{}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	row2 := &pdml.DataRow{Table: "t", Columns: map[string]any{"c": string(long)}, Order: []string{"c"}}
	if _, err := w.writeRowTree(context.Background(), row2, 0, "", rowContext{}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	col := backend.tables["t"].Columns["c"]
	if col.SQLPrecision < 300 {
		t.Errorf("SQLPrecision = %d, want widened to at least 300", col.SQLPrecision)
	}
}
