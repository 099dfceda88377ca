package pdml

import "testing"

func leaf(name, show string) *TreeNode {
	return &TreeNode{Tag: "field", Name: name, Show: show, Value: show}
}

func TestFlatten_NamelessLeavesProduceValueChildRows(t *testing.T) {
	opts := &TreeNode{
		Tag:      "proto",
		Name:     "opts",
		Children: []*TreeNode{leaf("", "a"), leaf("", "b"), leaf("", "c")},
	}

	row, ok := Flatten(opts, "")
	if !ok {
		t.Fatalf("Flatten returned ok=false, want a row")
	}
	if row.Table != "opts" {
		t.Errorf("Table = %q, want %q", row.Table, "opts")
	}
	if len(row.Columns) != 0 {
		t.Errorf("Columns = %v, want none", row.Columns)
	}
	if len(row.Rows) != 1 {
		t.Fatalf("Rows = %d child tables, want 1", len(row.Rows))
	}
	valueRows := row.Rows[0]
	if valueRows.Table != "opts._value" {
		t.Errorf("child table = %q, want %q", valueRows.Table, "opts._value")
	}
	if len(valueRows.Rows) != 3 {
		t.Fatalf("child rows = %d, want 3", len(valueRows.Rows))
	}
	wantValues := []string{"a", "b", "c"}
	for i, child := range valueRows.Rows {
		if child.Columns["_index"] != i {
			t.Errorf("child[%d] _index = %v, want %d", i, child.Columns["_index"], i)
		}
		if child.Columns["_value"] != wantValues[i] {
			t.Errorf("child[%d] _value = %v, want %q", i, child.Columns["_value"], wantValues[i])
		}
	}
}

func TestFlatten_NamedLeavesBecomeColumns(t *testing.T) {
	proto := &TreeNode{
		Tag:      "proto",
		Name:     "tcp",
		Children: []*TreeNode{leaf("tcp.srcport", "443"), leaf("tcp.dstport", "51820")},
	}
	row, ok := Flatten(proto, "")
	if !ok {
		t.Fatalf("Flatten returned ok=false")
	}
	if row.Columns["tcp.srcport"] != "443" {
		t.Errorf("tcp.srcport = %v, want %q", row.Columns["tcp.srcport"], "443")
	}
	if row.Columns["tcp.dstport"] != "51820" {
		t.Errorf("tcp.dstport = %v, want %q", row.Columns["tcp.dstport"], "51820")
	}
}

func TestFlatten_RepeatedColumnNameBecomesArray(t *testing.T) {
	proto := &TreeNode{
		Tag:      "proto",
		Name:     "opt",
		Children: []*TreeNode{leaf("opt.tag", "1"), leaf("opt.tag", "2")},
	}
	row, ok := Flatten(proto, "")
	if !ok {
		t.Fatalf("Flatten returned ok=false")
	}
	arr, isArray := row.Columns["opt.tag"].([]any)
	if !isArray {
		t.Fatalf("opt.tag = %v (%T), want []any", row.Columns["opt.tag"], row.Columns["opt.tag"])
	}
	if len(arr) != 2 || arr[0] != "1" || arr[1] != "2" {
		t.Errorf("opt.tag = %v, want [1 2]", arr)
	}
}

func TestFlatten_EmptyRowReturnsNoRow(t *testing.T) {
	proto := &TreeNode{Tag: "proto", Name: "empty"}
	_, ok := Flatten(proto, "")
	if ok {
		t.Errorf("Flatten returned ok=true for a node with no columns or children")
	}
}

func TestFlatten_NamedBranchRecursesWithoutIndex(t *testing.T) {
	branch := &TreeNode{Tag: "proto", Name: "ip.flags", Children: []*TreeNode{leaf("ip.flags.df", "1")}}
	proto := &TreeNode{Tag: "proto", Name: "ip", Children: []*TreeNode{branch}}

	row, ok := Flatten(proto, "")
	if !ok {
		t.Fatalf("Flatten returned ok=false")
	}
	if len(row.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(row.Rows))
	}
	child := row.Rows[0].Rows[0]
	if _, has := child.Columns["_index"]; has {
		t.Errorf("named branch child row carries _index, want none")
	}
}

func TestFlatten_NamelessBranchRecursesWithIndex(t *testing.T) {
	b1 := &TreeNode{Tag: "proto", Children: []*TreeNode{leaf("x", "1")}}
	b2 := &TreeNode{Tag: "proto", Children: []*TreeNode{leaf("x", "2")}}
	proto := &TreeNode{Tag: "proto", Name: "group", Children: []*TreeNode{b1, b2}}

	row, ok := Flatten(proto, "")
	if !ok {
		t.Fatalf("Flatten returned ok=false")
	}
	if len(row.Rows) != 1 {
		t.Fatalf("Rows = %d child tables, want 1 (both nameless branches share a table)", len(row.Rows))
	}
	childSet := row.Rows[0]
	if len(childSet.Rows) != 2 {
		t.Fatalf("child rows = %d, want 2", len(childSet.Rows))
	}
	for i, c := range childSet.Rows {
		if c.Columns["_index"] != i {
			t.Errorf("child[%d] _index = %v, want %d", i, c.Columns["_index"], i)
		}
	}
}

func TestFilterName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tcp.srcport", "tcp.srcport"},
		{"Foo Bar-Baz_qux", "foo.bar.baz.qux"},
		{"A!!B", "ab"},
	}
	for _, tt := range tests {
		got := filterName(tt.in)
		if got != tt.want {
			t.Errorf("filterName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlattenPacket_GeninfoRowFirstWithFileColumn(t *testing.T) {
	geninfo := &TreeNode{Tag: "proto", Name: "geninfo", Children: []*TreeNode{leaf("geninfo.num", "1")}}
	eth := &TreeNode{Tag: "proto", Name: "eth", Children: []*TreeNode{leaf("eth.type", "0x0800")}}
	packet := &TreeNode{Tag: "packet", Children: []*TreeNode{eth, geninfo}}

	rows := FlattenPacket(packet, "/captures/one.pcap", "")
	if len(rows) != 2 {
		t.Fatalf("FlattenPacket returned %d rows, want 2", len(rows))
	}
	if rows[0].Table != "geninfo" {
		t.Fatalf("rows[0].Table = %q, want %q (geninfo must be first)", rows[0].Table, "geninfo")
	}
	if rows[0].Columns["file"] != "/captures/one.pcap" {
		t.Errorf("rows[0].Columns[file] = %v, want the capture path", rows[0].Columns["file"])
	}
}
