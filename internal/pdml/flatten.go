package pdml

import (
	"strings"

	"github.com/5342/C5SIGMA/internal/fixups"
)

// Flatten converts root into zero or one DataRow, applying the six-step
// algorithm recursively. tableNamePrefix is the dotted naming prefix
// inherited from the parent row (empty at the packet's top level).
func Flatten(root *TreeNode, tableNamePrefix string) (*DataRow, bool) {
	return flattenNode(root, tableNamePrefix, "")
}

// FlattenPacket flattens every top-level proto under packet into its own
// top-level row and orders the result so the geninfo-derived row, carrying
// the source file path, comes first — it marks the end of packet parsing
// for the writer. tableNamePrefix is applied to every derived table name.
func FlattenPacket(packet *TreeNode, filePath string, tableNamePrefix string) []*DataRow {
	var rows []*DataRow
	var geninfoRow *DataRow

	for _, proto := range packet.Children {
		row, ok := Flatten(proto, tableNamePrefix)
		if !ok {
			continue
		}
		if proto.Name == "geninfo" {
			row.set("file", filePath)
			geninfoRow = row
			continue
		}
		rows = append(rows, row)
	}

	if geninfoRow != nil {
		rows = append([]*DataRow{geninfoRow}, rows...)
	}
	return rows
}

// flattenNode implements one recursion step. parentRowName is the filtered
// name of the enclosing row, used to build the nameless "_group" fallback.
func flattenNode(node *TreeNode, tableNamePrefix, parentRowName string) (*DataRow, bool) {
	rowName := rowNameOf(node, parentRowName)
	tableName := fixups.CombineNames(tableNamePrefix, rowName)
	row := newDataRow(tableName)

	namelessLeaves, namelessBranches, namedLeaves, namedBranches := partitionChildren(node.Children)

	for i, leaf := range namelessLeaves {
		child := newDataRow(tableName + "._value")
		child.set("_index", i)
		setTypedColumn(child, "_value", leaf)
		row.addChildRow(tableName+"._value", child)
	}

	for _, leaf := range namedLeaves {
		col := filterName(leaf.Name)
		setTypedColumn(row, col, leaf)
	}

	for i, branch := range namelessBranches {
		childRow, ok := flattenNode(branch, tableName, rowName)
		if !ok {
			continue
		}
		childRow.set("_index", i)
		row.addChildRow(childRow.Table, childRow)
	}

	for _, branch := range namedBranches {
		childRow, ok := flattenNode(branch, tableName, rowName)
		if !ok {
			continue
		}
		row.addChildRow(childRow.Table, childRow)
	}

	if node.Typed != nil {
		row.set("_value", typedValueForStorage(node))
		if node.Typed.Label != "" {
			row.set("_string", node.Typed.Label)
		}
	}

	if !row.HasContent() {
		return nil, false
	}
	return row, true
}

// rowNameOf derives step 2's row name: the node's own filtered name, or a
// synthetic "<parent>._group"/"_group" fallback when nameless.
func rowNameOf(node *TreeNode, parentRowName string) string {
	if node.Name != "" {
		return filterName(node.Name)
	}
	if parentRowName != "" {
		return parentRowName + "._group"
	}
	return "_group"
}

// filterName keeps lowercase alphanumerics; '.', space, '_', '-' map to
// '.'; anything else is dropped.
func filterName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		case r == '.', r == ' ', r == '_', r == '-':
			b.WriteByte('.')
		}
	}
	return b.String()
}

// partitionChildren splits node children into nameless/named leaves
// (no grandchildren) and nameless/named branches (have grandchildren),
// preserving declaration order within each group.
func partitionChildren(children []*TreeNode) (namelessLeaves, namelessBranches, namedLeaves, namedBranches []*TreeNode) {
	for _, c := range children {
		isLeaf := len(c.Children) == 0
		switch {
		case isLeaf && c.Name == "":
			namelessLeaves = append(namelessLeaves, c)
		case isLeaf:
			namedLeaves = append(namedLeaves, c)
		case c.Name == "":
			namelessBranches = append(namelessBranches, c)
		default:
			namedBranches = append(namedBranches, c)
		}
	}
	return
}

func setTypedColumn(row *DataRow, col string, node *TreeNode) {
	row.set(col, typedValueForStorage(node))
	if node.Typed != nil && node.Typed.Label != "" {
		row.set(col+"_string", node.Typed.Label)
	}
}

func typedValueForStorage(node *TreeNode) any {
	if node.Typed == nil {
		return node.Value
	}
	return node.Typed.Value
}
