package catalog

import "strings"

// fieldTypeFromToken maps a dissector type token to the
// closed semantic type set. ok is false for FT_NUM_TYPES or any token the
// table doesn't recognize, in which case the caller must fail the line.
func fieldTypeFromToken(token string) (FieldType, bool) {
	switch strings.ToUpper(token) {
	case "FT_BOOLEAN":
		return FieldTypeBoolean, true
	case "FT_UINT8":
		return FieldTypeUint8, true
	case "FT_UINT16":
		return FieldTypeUint16, true
	case "FT_UINT24", "FT_UINT32":
		return FieldTypeUint32, true
	case "FT_UINT64":
		return FieldTypeUint64, true
	case "FT_INT8":
		return FieldTypeInt8, true
	case "FT_INT16":
		return FieldTypeInt16, true
	case "FT_INT24", "FT_INT32":
		return FieldTypeInt32, true
	case "FT_INT64":
		return FieldTypeInt64, true
	case "FT_FLOAT":
		return FieldTypeFloat32, true
	case "FT_DOUBLE":
		return FieldTypeFloat64, true
	case "FT_ABSOLUTE_TIME":
		return FieldTypeTimestamp, true
	case "FT_RELATIVE_TIME":
		return FieldTypeDuration, true
	case "FT_STRING", "FT_STRINGZ", "FT_EBCDIC", "FT_UINT_STRING":
		return FieldTypeText, true
	case "FT_BYTES", "FT_UINT_BYTES":
		return FieldTypeBytes, true
	case "FT_IPV4", "FT_IPV6":
		return FieldTypeIPAddress, true
	case "FT_GUID":
		return FieldTypeGUID, true
	case "FT_ETHER", "FT_IPXNET", "FT_OID", "FT_PCRE", "FT_NONE", "FT_PROTOCOL":
		return FieldTypeText, true
	case "FT_EUI64":
		return FieldTypeUint64, true
	case "FT_FRAMENUM":
		return FieldTypeUint32, true
	default:
		return FieldTypeUnknown, false
	}
}

// displayBaseFromToken maps a dissector display-base token to DisplayBase.
// Unknown tokens degrade to BaseNone rather than failing the line: the
// display base only affects numeric parsing fallback behavior, never schema
// correctness.
func displayBaseFromToken(token string) DisplayBase {
	switch strings.ToUpper(token) {
	case "BASE_DEC":
		return BaseDec
	case "BASE_HEX", "BASE_HEX_DEC":
		return BaseHex
	case "BASE_OCT":
		return BaseOct
	case "BASE_NONE":
		return BaseNone
	default:
		return BaseNone
	}
}
