package pdml

import (
	"context"
	"io"
	"strings"
	"testing"
)

const samplePDML = `<?xml version="1.0"?>
<pdml>
  <packet>
    <proto name="geninfo">
      <field name="geninfo.numpackets" show="1"/>
    </proto>
    <proto name="frame">
      <field name="frame.number" show="1"/>
      <proto name="eth">
        <field name="eth.type" show="0x0800"/>
      </proto>
    </proto>
  </packet>
</pdml>`

func TestReader_Next_ReturnsOnePacketPerCall(t *testing.T) {
	r := NewReader(strings.NewReader(samplePDML), nil, nil, nil)
	packet, err := r.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if packet.Tag != "packet" {
		t.Fatalf("Tag = %q, want packet", packet.Tag)
	}

	_, err = r.Next(context.Background())
	if err != io.EOF {
		t.Fatalf("second Next err = %v, want io.EOF", err)
	}
}

func TestReader_NestedProtoPromotedToPacketSibling(t *testing.T) {
	r := NewReader(strings.NewReader(samplePDML), nil, nil, nil)
	packet, err := r.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	// geninfo, frame, and the nested eth proto must all be direct children
	// of packet after promotion.
	if len(packet.Children) != 3 {
		t.Fatalf("packet.Children = %d, want 3 (geninfo, frame, eth promoted)", len(packet.Children))
	}
	names := map[string]bool{}
	for _, c := range packet.Children {
		names[c.Name] = true
		if c.Tag != "proto" {
			t.Errorf("child %q has tag %q, want proto", c.Name, c.Tag)
		}
	}
	for _, want := range []string{"geninfo", "frame", "eth"} {
		if !names[want] {
			t.Errorf("expected promoted/top-level proto %q among packet children", want)
		}
	}

	for _, c := range packet.Children {
		if c.Name == "frame" {
			if len(c.Children) != 1 || c.Children[0].Name != "frame.number" {
				t.Errorf("frame proto children after promotion+pruning = %v, want only frame.number field", c.Children)
			}
		}
	}
}

func TestReader_ChildTypePruning(t *testing.T) {
	xmlData := `<pdml><packet>
		<proto name="x">
			<field name="x.a" show="1"/>
		</proto>
	</packet></pdml>`
	r := NewReader(strings.NewReader(xmlData), nil, nil, nil)
	packet, err := r.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(packet.Children) != 1 {
		t.Fatalf("packet.Children = %d, want 1", len(packet.Children))
	}
	proto := packet.Children[0]
	if len(proto.Children) != 1 || proto.Children[0].Tag != "field" {
		t.Errorf("proto.Children = %v, want a single field", proto.Children)
	}
}

func TestReader_MalformedPacketIsSkipped(t *testing.T) {
	xmlData := `<pdml>
		<packet><proto name="broken"></packet>
		<packet><proto name="ok"><field name="ok.f" show="1"/></proto></packet>
	</pdml>`
	r := NewReader(strings.NewReader(xmlData), nil, nil, nil)
	packet, err := r.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(packet.Children) != 1 || packet.Children[0].Name != "ok" {
		t.Fatalf("expected the reader to skip the malformed packet and return the next valid one, got %+v", packet)
	}
}
