// Package pdml streams a dissector's packet-description XML into a tree of
// TreeNodes, one packet at a time, and flattens each tree into relational
// DataRows ready for the writer.
package pdml

import "github.com/5342/C5SIGMA/internal/valuetype"

// TreeNode is one <proto> or <field> element, with its children already
// pruned to the expected child set for its tag.
type TreeNode struct {
	Tag      string // "packet", "proto", or "field"
	Name     string
	ShowName string
	Show     string
	Value    string
	Size     int
	Pos      int
	Hide     bool

	ProtocolName string // set once, from the first proto-type node in the packet
	Typed        *valuetype.Result

	Children []*TreeNode
}

// DataRow is one flattened relational row with its child rows, keyed by the
// table they belong to.
type DataRow struct {
	Table   string
	Columns map[string]any
	Order   []string // column insertion order, for deterministic inserts
	Rows    []*ChildRowSet
}

// ChildRowSet groups the rows produced by one recursion step, all destined
// for the same child table.
type ChildRowSet struct {
	Table string
	Rows  []*DataRow
}

func (d *DataRow) set(key string, value any) {
	if _, exists := d.Columns[key]; !exists {
		d.Order = append(d.Order, key)
		d.Columns[key] = value
		return
	}
	// repeated column name: convert to (or append to) a multi-value array
	existing := d.Columns[key]
	if arr, ok := existing.([]any); ok {
		d.Columns[key] = append(arr, value)
		return
	}
	d.Columns[key] = []any{existing, value}
}

func (d *DataRow) addChildRow(table string, row *DataRow) {
	for _, set := range d.Rows {
		if set.Table == table {
			set.Rows = append(set.Rows, row)
			return
		}
	}
	d.Rows = append(d.Rows, &ChildRowSet{Table: table, Rows: []*DataRow{row}})
}

func newDataRow(table string) *DataRow {
	return &DataRow{Table: table, Columns: make(map[string]any)}
}

// HasContent reports whether the row carries any column or any child row
// (step 6 of the flattening algorithm: a row with neither is discarded).
func (d *DataRow) HasContent() bool {
	return len(d.Columns) > 0 || len(d.Rows) > 0
}
