package pdml

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"strconv"

	"github.com/5342/C5SIGMA/internal/fixups"
	"github.com/5342/C5SIGMA/internal/valuetype"
)

// expectedChildren is the child-type pruning table: after a node's children
// are built, children whose tag isn't in this set are dropped — this is
// what removes the dissector's <showname>-like sibling noise.
var expectedChildren = map[string]string{
	"packet": "proto",
	"proto":  "field",
	"field":  "field",
}

// Reader streams <packet> subtrees from a pdml document, holding at most
// one packet's tree in memory at a time.
type Reader struct {
	dec    *xml.Decoder
	fixups *fixups.Engine
	typer  *valuetype.Typer
	logger *slog.Logger
}

// NewReader returns a Reader over r. fixupsEngine and typer may be nil, in
// which case fixups/typing are skipped (useful for tree-shape-only tests).
func NewReader(r io.Reader, fixupsEngine *fixups.Engine, typer *valuetype.Typer, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{dec: xml.NewDecoder(r), fixups: fixupsEngine, typer: typer, logger: logger}
}

// Next returns the next <packet> subtree, or io.EOF at stream end. A
// malformed packet is logged and skipped; the reader advances to the next
// <packet> start tag rather than failing the whole stream.
func (r *Reader) Next(ctx context.Context) (*TreeNode, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "packet" {
			continue
		}

		node, err := r.buildPacket(start)
		if err != nil {
			r.logger.Warn("pdml: skipping malformed packet", "error", err)
			continue
		}
		pruneChildren(node)
		return node, nil
	}
}

// buildPacket consumes a <packet> subtree. Nested <proto> elements (a
// <proto> appearing inside another <proto>'s body) are promoted to be
// siblings at the packet level rather than nested children, per the
// dissector's documented XML shape.
func (r *Reader) buildPacket(start xml.StartElement) (*TreeNode, error) {
	packet := &TreeNode{Tag: start.Name.Local}
	applyAttrs(packet, start.Attr)

	protocolName := ""
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "proto" {
				if err := r.skip(t); err != nil {
					return nil, err
				}
				continue
			}
			if protocolName == "" {
				protocolName = attrValue(t.Attr, "name")
			}
			if err := r.buildProto(t, protocolName, &packet.Children); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return packet, nil
			}
		}
	}
}

// buildProto consumes a <proto> subtree, appending itself to out. Any
// nested <proto> it encounters is built independently and appended to the
// same out slice (promotion), not to its own Children.
func (r *Reader) buildProto(start xml.StartElement, protocolName string, out *[]*TreeNode) error {
	node := &TreeNode{Tag: start.Name.Local, ProtocolName: protocolName}
	applyAttrs(node, start.Attr)

	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "proto":
				if err := r.buildProto(t, protocolName, out); err != nil {
					return err
				}
			case "field":
				child, err := r.buildField(t, protocolName)
				if err != nil {
					return err
				}
				node.Children = append(node.Children, child)
			default:
				if err := r.skip(t); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				r.finalize(node)
				*out = append(*out, node)
				return nil
			}
		}
	}
}

// buildField consumes a <field> subtree; field children nest normally (no
// promotion applies at this level).
func (r *Reader) buildField(start xml.StartElement, protocolName string) (*TreeNode, error) {
	node := &TreeNode{Tag: start.Name.Local, ProtocolName: protocolName}
	applyAttrs(node, start.Attr)

	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "field" {
				if err := r.skip(t); err != nil {
					return nil, err
				}
				continue
			}
			child, err := r.buildField(t, protocolName)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				r.finalize(node)
				return node, nil
			}
		}
	}
}

// skip discards an element's subtree; used for XML noise outside the
// expected packet/proto/field shape (comments and PIs are skipped by the
// decoder itself).
func (r *Reader) skip(start xml.StartElement) error {
	depth := 1
	for depth > 0 {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// finalize applies fixups and, for field nodes, the value typer, once a
// node's end tag is reached; its children have already been finalized.
func (r *Reader) finalize(node *TreeNode) {
	if r.fixups != nil {
		attrs := &fixups.Attrs{
			ProtocolName: node.ProtocolName,
			Name:         node.Name,
			ShowName:     node.ShowName,
			Show:         node.Show,
			Value:        node.Value,
		}
		r.fixups.Apply(attrs)
		node.Name = attrs.Name
		node.ShowName = attrs.ShowName
		node.Show = attrs.Show
		node.Value = attrs.Value
	}

	if node.Tag == "field" && r.typer != nil {
		result := r.typer.Type(node.Name, node.Name, node.Show, node.Value)
		node.Typed = &result
	}
}

func applyAttrs(node *TreeNode, attrs []xml.Attr) {
	for _, a := range attrs {
		switch a.Name.Local {
		case "name":
			node.Name = a.Value
		case "showname":
			node.ShowName = a.Value
		case "show":
			node.Show = a.Value
		case "value":
			node.Value = a.Value
		case "size":
			node.Size, _ = strconv.Atoi(a.Value)
		case "pos":
			node.Pos, _ = strconv.Atoi(a.Value)
		case "hide":
			node.Hide = a.Value == "yes"
		}
	}
}

func attrValue(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// pruneChildren drops children whose tag isn't in the expected child set
// for node's tag, recursively. With promotion already applied during
// building, this mainly guards against any remaining non-field noise under
// proto/field nodes.
func pruneChildren(node *TreeNode) {
	expected, ok := expectedChildren[node.Tag]
	if !ok {
		return
	}
	kept := node.Children[:0]
	for _, c := range node.Children {
		if c.Tag == expected {
			kept = append(kept, c)
		}
	}
	node.Children = kept
	for _, c := range node.Children {
		pruneChildren(c)
	}
}
