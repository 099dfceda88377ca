package catalog

import (
	"strings"
	"testing"
)

func TestLoader_LoadProtocols(t *testing.T) {
	data := "Ethernet\teth\teth\nInternet Protocol\tip\tip\n"
	l := NewLoader(nil)
	if err := l.LoadProtocols(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadProtocols: %v", err)
	}

	p, ok := l.Registry.Protocol("eth")
	if !ok {
		t.Fatalf("expected protocol eth to be registered")
	}
	if p.LongName != "Ethernet" {
		t.Errorf("LongName = %q, want %q", p.LongName, "Ethernet")
	}
}

func TestLoader_LoadProtocols_MergeLongName(t *testing.T) {
	data := "Ethernet\teth\teth\nEthernet II\teth\teth\n"
	l := NewLoader(nil)
	if err := l.LoadProtocols(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadProtocols: %v", err)
	}

	p, _ := l.Registry.Protocol("eth")
	want := "Ethernet / Ethernet II"
	if p.LongName != want {
		t.Errorf("LongName = %q, want %q", p.LongName, want)
	}
}

func TestLoader_LoadProtocols_FilterNameConflictSkipsLine(t *testing.T) {
	data := "Ethernet\teth\teth\nEthernet\teth\tdifferent\n"
	l := NewLoader(nil)
	if err := l.LoadProtocols(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadProtocols: %v", err)
	}

	p, _ := l.Registry.Protocol("eth")
	if p.FilterName != "eth" {
		t.Errorf("FilterName = %q, want first-registered %q", p.FilterName, "eth")
	}
}

func TestLoader_LoadFields_PAutoRegistersParent(t *testing.T) {
	l := NewLoader(nil)
	if err := l.LoadFields(strings.NewReader("P\tTransmission Control Protocol\ttcp\n")); err != nil {
		t.Fatalf("LoadFields: %v", err)
	}

	p, ok := l.Registry.Protocol("tcp")
	if !ok {
		t.Fatalf("expected protocol tcp to be auto-registered")
	}
	if p.FilterName != "tcp" {
		t.Errorf("FilterName = %q, want lowercased shortName %q", p.FilterName, "tcp")
	}
}

func TestLoader_LoadFields_UnknownParentProtocolFailsLine(t *testing.T) {
	l := NewLoader(nil)
	line := "F\tSource Port\ttcp.srcport\tFT_UINT16\ttcp\t\tBASE_DEC\t\n"
	if err := l.LoadFields(strings.NewReader(line)); err != nil {
		t.Fatalf("LoadFields: %v", err)
	}

	if _, ok := l.Registry.Field("tcp.srcport"); ok {
		t.Errorf("expected field to be rejected: parent protocol tcp was never registered")
	}
}

func TestLoader_LoadFields_RegistersAfterParent(t *testing.T) {
	l := NewLoader(nil)
	data := "P\tTransmission Control Protocol\ttcp\n"
	if err := l.LoadFields(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadFields: %v", err)
	}
	line := "F\tSource Port\ttcp.srcport\tFT_UINT16\ttcp\tsrc port\tBASE_DEC\t\n"
	if err := l.LoadFields(strings.NewReader(line)); err != nil {
		t.Fatalf("LoadFields: %v", err)
	}

	f, ok := l.Registry.Field("tcp.srcport")
	if !ok {
		t.Fatalf("expected field tcp.srcport to be registered")
	}
	if f.Type != FieldTypeUint16 {
		t.Errorf("Type = %v, want %v", f.Type, FieldTypeUint16)
	}
	if f.DisplayBase != BaseDec {
		t.Errorf("DisplayBase = %v, want %v", f.DisplayBase, BaseDec)
	}
}

func TestLoader_LoadFields_UnknownTypeTokenSkipsLine(t *testing.T) {
	l := NewLoader(nil)
	_ = l.LoadFields(strings.NewReader("P\tTCP\ttcp\n"))
	line := "F\tWeird\ttcp.weird\tFT_NUM_TYPES\ttcp\t\t\t\n"
	if err := l.LoadFields(strings.NewReader(line)); err != nil {
		t.Fatalf("LoadFields: %v", err)
	}
	if _, ok := l.Registry.Field("tcp.weird"); ok {
		t.Errorf("expected field with unknown type token to be rejected")
	}
}

func TestLoader_LoadFields_TypeConflictKeepsFirst(t *testing.T) {
	l := NewLoader(nil)
	_ = l.LoadFields(strings.NewReader("P\tTCP\ttcp\n"))
	_ = l.LoadFields(strings.NewReader("F\tSrc\ttcp.srcport\tFT_UINT16\ttcp\t\t\t\n"))
	_ = l.LoadFields(strings.NewReader("F\tSrc\ttcp.srcport\tFT_UINT32\ttcp\t\t\t\n"))

	f, _ := l.Registry.Field("tcp.srcport")
	if f.Type != FieldTypeUint16 {
		t.Errorf("Type = %v, want first-registered %v (conflict must not overwrite)", f.Type, FieldTypeUint16)
	}
}

func TestLoader_LoadValues(t *testing.T) {
	l := NewLoader(nil)
	data := "V\tx.code\t10\tten\nR\tx.code\t20\t30\tmid\nT\tx.flag\tset\tclear\n"
	if err := l.LoadValues(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadValues: %v", err)
	}

	if label, ok := l.Registry.LookupLabel("x.code", 10); !ok || label != "ten" {
		t.Errorf("LookupLabel(10) = (%q, %v), want (\"ten\", true)", label, ok)
	}
	if label, ok := l.Registry.LookupLabel("x.code", 25); !ok || label != "mid" {
		t.Errorf("LookupLabel(25) = (%q, %v), want (\"mid\", true)", label, ok)
	}
	if _, ok := l.Registry.LookupLabel("x.code", 99); ok {
		t.Errorf("LookupLabel(99) should not match")
	}

	if label, ok := l.Registry.LookupBoolLabel("x.flag", true); !ok || label != "set" {
		t.Errorf("LookupBoolLabel(true) = (%q, %v), want (\"set\", true)", label, ok)
	}
	if label, ok := l.Registry.LookupBoolLabel("x.flag", false); !ok || label != "clear" {
		t.Errorf("LookupBoolLabel(false) = (%q, %v), want (\"clear\", true)", label, ok)
	}
}

func TestLoader_LoadValues_HexAndAmpH(t *testing.T) {
	l := NewLoader(nil)
	data := "V\tx.code\t0x1F\thex\nV\tx.code2\t&h1F\tamph\n"
	if err := l.LoadValues(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadValues: %v", err)
	}
	if label, ok := l.Registry.LookupLabel("x.code", 31); !ok || label != "hex" {
		t.Errorf("LookupLabel(31) = (%q, %v), want (\"hex\", true)", label, ok)
	}
	if label, ok := l.Registry.LookupLabel("x.code2", 31); !ok || label != "amph" {
		t.Errorf("LookupLabel(31) = (%q, %v), want (\"amph\", true)", label, ok)
	}
}

func TestLoader_LoadDecodes_ReadAndDiscard(t *testing.T) {
	l := NewLoader(nil)
	data := "foo\tbar\nbaz\tqux\n"
	if err := l.LoadDecodes(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadDecodes: %v", err)
	}
	// No model object is produced; this exercises the read-and-discard path
	// without asserting on any Registry state.
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0x1F", 31},
		{"&h1F", 31},
		{"31", 31},
	}
	for _, tt := range tests {
		got, err := ParseInt(tt.in)
		if err != nil {
			t.Fatalf("ParseInt(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
