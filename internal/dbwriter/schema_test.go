package dbwriter

import (
	"context"
	"log/slog"
	"testing"
)

func newTestWriter(backend Backend) *Writer {
	return NewWriter(backend, NoopFilter(), Config{}, slog.Default(), nil)
}

func TestEnsureColumn_FirstWriteAddsColumn(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend()
	w := newTestWriter(fb)

	if _, err := w.ensureTable(ctx, "tcp"); err != nil {
		t.Fatalf("ensureTable: %v", err)
	}
	if _, err := w.ensureColumn(ctx, "tcp", "flags", SemanticString, 250); err != nil {
		t.Fatalf("ensureColumn: %v", err)
	}

	want := []string{"create:tcp", "addcol:tcp.flags"}
	if len(fb.ddlCalls) != len(want) {
		t.Fatalf("ddlCalls = %v, want %v", fb.ddlCalls, want)
	}
}

func TestEnsureColumn_RepeatedIdenticalValueIssuesNoDDL(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend()
	w := newTestWriter(fb)

	if _, err := w.ensureTable(ctx, "tcp"); err != nil {
		t.Fatalf("ensureTable: %v", err)
	}
	if _, err := w.ensureColumn(ctx, "tcp", "flags", SemanticString, 250); err != nil {
		t.Fatalf("ensureColumn (first write): %v", err)
	}

	before := len(fb.ddlCalls)

	// A second value with an unchanged semantic and precision must be a
	// no-op: writing the same 200-character string again should never
	// trigger an ALTER COLUMN.
	for i := 0; i < 50; i++ {
		if _, err := w.ensureColumn(ctx, "tcp", "flags", SemanticString, 200); err != nil {
			t.Fatalf("ensureColumn (repeat %d): %v", i, err)
		}
	}

	if len(fb.ddlCalls) != before {
		t.Errorf("ddlCalls grew from %d to %d on unchanged values, want no new DDL; calls = %v",
			before, len(fb.ddlCalls), fb.ddlCalls)
	}
}

func TestEnsureColumn_WideningValueAltersExactlyOnce(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend()
	w := newTestWriter(fb)

	if _, err := w.ensureTable(ctx, "tcp"); err != nil {
		t.Fatalf("ensureTable: %v", err)
	}
	if _, err := w.ensureColumn(ctx, "tcp", "payload", SemanticString, 250); err != nil {
		t.Fatalf("ensureColumn (first write): %v", err)
	}

	before := len(fb.ddlCalls)

	// A 300-character value forces the column from the 250 bucket to 500.
	col, err := w.ensureColumn(ctx, "tcp", "payload", SemanticString, 300)
	if err != nil {
		t.Fatalf("ensureColumn (widen): %v", err)
	}
	if col.SQLPrecision != 500 {
		t.Errorf("SQLPrecision = %d, want 500", col.SQLPrecision)
	}
	if len(fb.ddlCalls) != before+1 {
		t.Errorf("ddlCalls = %v, want exactly one new ALTER COLUMN after widening", fb.ddlCalls)
	}

	// Re-inserting the same 300-character value must not alter again.
	beforeSecond := len(fb.ddlCalls)
	if _, err := w.ensureColumn(ctx, "tcp", "payload", SemanticString, 300); err != nil {
		t.Fatalf("ensureColumn (repeat after widen): %v", err)
	}
	if len(fb.ddlCalls) != beforeSecond {
		t.Errorf("ddlCalls grew from %d to %d on a repeated post-widen value", beforeSecond, len(fb.ddlCalls))
	}
}
