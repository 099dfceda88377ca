// Package catalog holds the in-memory schema model (Protocol, Field,
// ValueString) and the loader that populates it from the four tab-delimited
// catalogs a dissector run emits before any packet is parsed.
package catalog

import "fmt"

// FieldType is the closed set of semantic types a Field can carry.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeBoolean
	FieldTypeUint8
	FieldTypeUint16
	FieldTypeUint32
	FieldTypeUint64
	FieldTypeInt8
	FieldTypeInt16
	FieldTypeInt32
	FieldTypeInt64
	FieldTypeFloat32
	FieldTypeFloat64
	FieldTypeTimestamp
	FieldTypeDuration
	FieldTypeText
	FieldTypeBytes
	FieldTypeIPAddress
	FieldTypeGUID
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeBoolean:
		return "boolean"
	case FieldTypeUint8:
		return "uint8"
	case FieldTypeUint16:
		return "uint16"
	case FieldTypeUint32:
		return "uint32"
	case FieldTypeUint64:
		return "uint64"
	case FieldTypeInt8:
		return "int8"
	case FieldTypeInt16:
		return "int16"
	case FieldTypeInt32:
		return "int32"
	case FieldTypeInt64:
		return "int64"
	case FieldTypeFloat32:
		return "float32"
	case FieldTypeFloat64:
		return "float64"
	case FieldTypeTimestamp:
		return "timestamp"
	case FieldTypeDuration:
		return "duration"
	case FieldTypeText:
		return "text"
	case FieldTypeBytes:
		return "bytes"
	case FieldTypeIPAddress:
		return "ip_address"
	case FieldTypeGUID:
		return "guid"
	default:
		return "unknown"
	}
}

// DisplayBase is a rendering hint attached to numeric fields.
type DisplayBase int

const (
	BaseNone DisplayBase = iota
	BaseDec
	BaseHex
	BaseOct
)

// Protocol is a stable, case-insensitive-keyed schema node. Fields refer to
// it by shortName, never by pointer, so the registry can own both by value
// without cyclic back-references (see DESIGN.md).
type Protocol struct {
	ShortName  string
	LongName   string
	FilterName string
}

// merge combines two descriptors for the same shortName: differing
// longNames concatenate with " / "; filterName conflicts fail.
func (p *Protocol) merge(other Protocol) error {
	if p.FilterName != other.FilterName && other.FilterName != "" && p.FilterName != "" {
		return fmt.Errorf("filter name conflict for protocol %q: %q vs %q",
			p.ShortName, p.FilterName, other.FilterName)
	}
	if p.LongName != other.LongName && other.LongName != "" {
		if p.LongName == "" {
			p.LongName = other.LongName
		} else {
			p.LongName = p.LongName + " / " + other.LongName
		}
	}
	if p.FilterName == "" {
		p.FilterName = other.FilterName
	}
	return nil
}

// Field is a stable schema node owned by the registry, keyed by shortName.
// ParentShortName is a read-only lookup key into the registry's protocols,
// never an owning pointer.
type Field struct {
	ShortName       string
	LongName        string
	Description     string
	DisplayBase     DisplayBase
	Bitmask         string
	Type            FieldType
	ParentShortName string
	Values          []ValueString
}

// merge combines two descriptors for the same shortName. The parent
// protocol and the semantic type must not change across merges.
func (f *Field) merge(other Field) error {
	if f.ParentShortName != other.ParentShortName {
		return fmt.Errorf("field %q parent protocol conflict: %q vs %q",
			f.ShortName, f.ParentShortName, other.ParentShortName)
	}
	if f.Type != other.Type {
		return fmt.Errorf("field %q type conflict: %s vs %s", f.ShortName, f.Type, other.Type)
	}
	if f.LongName == "" {
		f.LongName = other.LongName
	}
	if f.Description == "" {
		f.Description = other.Description
	}
	if f.DisplayBase == BaseNone {
		f.DisplayBase = other.DisplayBase
	}
	if f.Bitmask == "" {
		f.Bitmask = other.Bitmask
	}
	return nil
}

// ValueStringKind tags the three shapes a ValueString entry can take.
type ValueStringKind int

const (
	ValueStringSingle ValueStringKind = iota
	ValueStringRange
	ValueStringBoolean
)

// ValueString is a tagged variant over the three shapes a value-string entry
// can take; Kind selects which fields are meaningful. Entries are keyed by
// (fieldShortName, Kind, key) at the registry level.
type ValueString struct {
	Kind ValueStringKind

	// Single
	Value int64
	Label string

	// Range
	Lo        int64
	Hi        int64
	Inclusive bool

	// Boolean
	TrueLabel  string
	FalseLabel string
}
