package dbwriter

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/5342/C5SIGMA/internal/valuetype"
)

// timestampLayout is the value-serialization format for timestamp columns,
// independent of any single backend's native datetime literal syntax.
const timestampLayout = "2006-01-02 15:04:05.0000000"

// classifyValue maps one column's raw cell (a string, a valuetype.TypedValue,
// or a []any for repeated occurrences) to the semantic bucket and precision
// the widening lattice needs, plus the value ready for parameter binding.
func classifyValue(v any) (SemanticType, int, any) {
	switch val := v.(type) {
	case []any:
		// An array degrades to its rendered string form; precision is the
		// length of that rendering.
		s := renderArray(val)
		return SemanticString, len(s), s
	case valuetype.TypedValue:
		return classifyTyped(val)
	case string:
		return SemanticString, len(val), val
	default:
		s := fmt.Sprint(val)
		return SemanticString, len(s), s
	}
}

func classifyTyped(tv valuetype.TypedValue) (SemanticType, int, any) {
	switch tv.Kind {
	case valuetype.KindBoolean:
		return SemanticBoolean, 0, tv.Bool
	case valuetype.KindUint:
		if tv.UintBits >= 64 {
			return SemanticBigNumeric, 0, tv.UintVal
		}
		return SemanticInt64, 0, tv.UintVal
	case valuetype.KindInt:
		if tv.IntBits > 32 {
			return SemanticInt64, 0, tv.IntVal
		}
		return SemanticInt32, 0, tv.IntVal
	case valuetype.KindFloat32:
		return SemanticFloat, 0, tv.Float32
	case valuetype.KindFloat64:
		return SemanticFloat, 0, tv.Float64
	case valuetype.KindTimestamp:
		return SemanticTimestamp, 0, tv.Time.UTC().Format(timestampLayout)
	case valuetype.KindDuration:
		return SemanticDuration, 0, tv.Duration.Seconds()
	case valuetype.KindBytes:
		s := hex.EncodeToString(tv.Bytes)
		return SemanticBytes, len(s), s
	case valuetype.KindIPAddress:
		s := tv.IP.String()
		return SemanticString, len(s), s
	case valuetype.KindGUID:
		return SemanticGUID, len(tv.GUID), tv.GUID
	case valuetype.KindArray:
		rendered := renderTypedArray(tv.Array)
		return SemanticString, len(rendered), rendered
	default:
		return SemanticString, len(tv.Text), tv.Text
	}
}

// renderArray renders a repeated-column []any as "{ a, b, ... }".
func renderArray(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		_, _, rendered := classifyValue(v)
		parts[i] = fmt.Sprint(rendered)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func renderTypedArray(vals []valuetype.TypedValue) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		_, _, rendered := classifyTyped(v)
		parts[i] = fmt.Sprint(rendered)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// formatForInsert converts a classified value into its final bound form,
// applying string truncation to precision p when the target column is a
// terminal string(p). truncated reports whether truncation occurred.
func formatForInsert(value any, sem SemanticType, precision int) (bound any, truncated bool) {
	if sem != SemanticString {
		return value, false
	}
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	if precision > 0 && len(s) > precision {
		return s[:precision], true
	}
	return s, false
}
