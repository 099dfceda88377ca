// Package valuetype converts raw dissector attribute strings into typed
// values, consulting the schema registry for a field's semantic type and
// value-string tables.
package valuetype

import (
	"net"
	"time"

	"github.com/5342/C5SIGMA/internal/catalog"
)

// Kind tags the variant a TypedValue carries. It mirrors catalog.FieldType
// plus a multi-value array wrapper for fields with repeated occurrences.
type Kind int

const (
	KindBoolean Kind = iota
	KindUint
	KindInt
	KindFloat32
	KindFloat64
	KindTimestamp
	KindDuration
	KindText
	KindBytes
	KindIPAddress
	KindGUID
	KindArray
)

// TypedValue is the tagged variant produced by the typer and consumed by
// the writer's column-value union. Exactly one payload field is meaningful
// for a given Kind, except KindArray which nests other TypedValues.
type TypedValue struct {
	Kind Kind

	Bool     bool
	UintVal  uint64
	UintBits int // 8/16/32/64, smallest that fits
	IntVal   int64
	IntBits  int
	Float32  float32
	Float64  float64
	Time     time.Time
	Duration time.Duration
	Text     string
	Bytes    []byte
	IP       net.IP
	GUID     string
	Array    []TypedValue
}

// textValue wraps s as a text-typed value, used on every degrade path.
func textValue(s string) TypedValue {
	return TypedValue{Kind: KindText, Text: s}
}

// Result bundles the typed value with its optional label, exactly what
// Typer.Type returns for one node.
type Result struct {
	Value TypedValue
	Label string // empty means no label
}

// fieldTypeOf resolves a field's semantic type, defaulting to text when the
// field is unknown to the registry.
func fieldTypeOf(reg *catalog.Registry, fieldShortName string) catalog.FieldType {
	f, ok := reg.Field(fieldShortName)
	if !ok {
		return catalog.FieldTypeText
	}
	return f.Type
}
