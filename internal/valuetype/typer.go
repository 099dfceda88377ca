package valuetype

import (
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/5342/C5SIGMA/internal/catalog"
)

// Typer converts raw (show, value) attribute pairs into typed values,
// consulting a Registry for the field's semantic type and value-string
// tables.
type Typer struct {
	Registry *catalog.Registry
	Logger   *slog.Logger
}

// NewTyper returns a Typer backed by reg.
func NewTyper(reg *catalog.Registry, logger *slog.Logger) *Typer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Typer{Registry: reg, Logger: logger}
}

// Type converts (show, value) into a typed value plus optional label, never
// returning an error: every failure path degrades to text per step 4.
func (t *Typer) Type(fieldShortName, name, show, value string) Result {
	ft := fieldTypeOf(t.Registry, fieldShortName)

	field, _ := t.Registry.Field(fieldShortName)
	var base catalog.DisplayBase
	if field != nil {
		base = field.DisplayBase
	}

	tv, ok := t.dispatch(ft, base, name, show, value)
	if !ok {
		return Result{Value: tv}
	}

	label := t.lookupLabel(fieldShortName, ft, tv)
	return Result{Value: tv, Label: label}
}

// dispatch converts show/value by the field's semantic type. ok is false
// when the degrade path was taken; the returned TypedValue is still valid
// text.
func (t *Typer) dispatch(ft catalog.FieldType, base catalog.DisplayBase, name, show, value string) (TypedValue, bool) {
	switch ft {
	case catalog.FieldTypeBoolean:
		switch show {
		case "1":
			return TypedValue{Kind: KindBoolean, Bool: true}, true
		case "0":
			return TypedValue{Kind: KindBoolean, Bool: false}, true
		default:
			return t.degrade(name, show, value), false
		}

	case catalog.FieldTypeUint8, catalog.FieldTypeUint16, catalog.FieldTypeUint32, catalog.FieldTypeUint64:
		return t.dispatchUnsigned(ft, base, name, show, value)

	case catalog.FieldTypeInt8, catalog.FieldTypeInt16, catalog.FieldTypeInt32, catalog.FieldTypeInt64:
		return t.dispatchSigned(ft, base, name, show, value)

	case catalog.FieldTypeFloat32:
		f, err := strconv.ParseFloat(show, 32)
		if err != nil {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindFloat32, Float32: float32(f)}, true

	case catalog.FieldTypeFloat64:
		f, err := strconv.ParseFloat(show, 64)
		if err != nil {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindFloat64, Float64: f}, true

	case catalog.FieldTypeTimestamp:
		ts, err := parseAbsoluteTime(show)
		if err != nil {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindTimestamp, Time: ts}, true

	case catalog.FieldTypeDuration:
		secs, err := strconv.ParseFloat(show, 64)
		if err != nil {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindDuration, Duration: time.Duration(secs * float64(time.Second))}, true

	case catalog.FieldTypeBytes:
		if value == "" {
			return TypedValue{Kind: KindBytes, Bytes: []byte{}}, true
		}
		b, err := hex.DecodeString(value)
		if err != nil {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindBytes, Bytes: b}, true

	case catalog.FieldTypeIPAddress:
		if ip := net.ParseIP(show); ip != nil {
			return TypedValue{Kind: KindIPAddress, IP: ip}, true
		}
		b, err := hex.DecodeString(value)
		if err != nil || (len(b) != 4 && len(b) != 16) {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindIPAddress, IP: net.IP(b)}, true

	case catalog.FieldTypeGUID:
		if !looksLikeGUID(show) {
			return t.degrade(name, show, value), false
		}
		return TypedValue{Kind: KindGUID, GUID: strings.ToLower(show)}, true

	default:
		return textValue(show), true
	}
}

func (t *Typer) dispatchUnsigned(ft catalog.FieldType, base catalog.DisplayBase, name, show, value string) (TypedValue, bool) {
	if base == catalog.BaseNone {
		return t.degrade(name, show, value), false
	}
	var v uint64
	var err error
	if base == catalog.BaseHex {
		v, err = parseHexLittleEndian(show)
	} else {
		v, err = strconv.ParseUint(show, 10, 64)
	}
	if err != nil {
		return t.degrade(name, show, value), false
	}
	return TypedValue{Kind: KindUint, UintVal: v, UintBits: smallestUintWidth(v, ft)}, true
}

func (t *Typer) dispatchSigned(ft catalog.FieldType, base catalog.DisplayBase, name, show, value string) (TypedValue, bool) {
	if base == catalog.BaseNone {
		return t.degrade(name, show, value), false
	}
	var v int64
	var err error
	if base == catalog.BaseHex {
		var u uint64
		u, err = parseHexLittleEndian(show)
		v = int64(u)
	} else {
		v, err = strconv.ParseInt(show, 10, 64)
	}
	if err != nil {
		return t.degrade(name, show, value), false
	}
	return TypedValue{Kind: KindInt, IntVal: v, IntBits: smallestIntWidth(v, ft)}, true
}

// parseHexLittleEndian decodes show as a hexadecimal byte sequence
// reinterpreted as little-endian, padded to 8 bytes.
func parseHexLittleEndian(show string) (uint64, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(show, "0x"), "0X")
	if len(clean)%2 != 0 {
		clean = "0" + clean
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return 0, err
	}
	padded := make([]byte, 8)
	if len(b) > 8 {
		padded = b[len(b)-8:]
	} else {
		// right-align raw bytes before reinterpreting as little-endian
		copy(padded[8-len(b):], b)
	}
	// the source bytes are big-endian on the wire; interpret the padded
	// buffer as little-endian
	reversed := make([]byte, 8)
	for i := range padded {
		reversed[i] = padded[7-i]
	}
	return binary.LittleEndian.Uint64(reversed), nil
}

func smallestUintWidth(v uint64, declared catalog.FieldType) int {
	switch {
	case v <= 0xFF:
		return 8
	case v <= 0xFFFF:
		return 16
	case v <= 0xFFFFFFFF:
		return 32
	default:
		return 64
	}
}

func smallestIntWidth(v int64, declared catalog.FieldType) int {
	switch {
	case v >= -0x80 && v <= 0x7F:
		return 8
	case v >= -0x8000 && v <= 0x7FFF:
		return 16
	case v >= -0x80000000 && v <= 0x7FFFFFFF:
		return 32
	default:
		return 64
	}
}

// absoluteTimeLayout is the dissector's timestamp format, "MMM d, yyyy
// HH:mm:ss.fffffff", assumed local time and converted to UTC.
const absoluteTimeLayout = "Jan 2, 2006 15:04:05.0000000"

func parseAbsoluteTime(show string) (time.Time, error) {
	// truncate fractional digits beyond 7 before parsing
	show = truncateFractionalSeconds(show, 7)
	t, err := time.ParseInLocation(absoluteTimeLayout, show, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func truncateFractionalSeconds(show string, maxDigits int) string {
	dot := strings.LastIndexByte(show, '.')
	if dot < 0 {
		return show
	}
	end := dot + 1 + maxDigits
	if end >= len(show) {
		return show
	}
	return show[:end]
}

func looksLikeGUID(show string) bool {
	s := strings.Trim(show, "{}")
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return false
	}
	lens := []int{8, 4, 4, 4, 12}
	for i, p := range parts {
		if len(p) != lens[i] {
			return false
		}
		if _, err := hex.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}

// degrade produces the text-typed fallback: typedValue is value when show
// is a suffix of name (case-insensitive), else show; never carries a label.
func (t *Typer) degrade(name, show, value string) TypedValue {
	if name != "" && value != "" && strings.HasSuffix(strings.ToLower(name), strings.ToLower(show)) {
		return textValue(value)
	}
	return textValue(show)
}

// lookupLabel consults the field's value-string table for tv, if any.
func (t *Typer) lookupLabel(fieldShortName string, ft catalog.FieldType, tv TypedValue) string {
	switch tv.Kind {
	case KindBoolean:
		label, ok := t.Registry.LookupBoolLabel(fieldShortName, tv.Bool)
		if !ok {
			return ""
		}
		return label
	case KindUint:
		label, ok := t.Registry.LookupLabel(fieldShortName, int64(tv.UintVal))
		if !ok {
			return ""
		}
		return label
	case KindInt:
		label, ok := t.Registry.LookupLabel(fieldShortName, tv.IntVal)
		if !ok {
			return ""
		}
		return label
	default:
		return ""
	}
}
