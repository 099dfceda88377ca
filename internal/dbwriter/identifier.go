package dbwriter

import "strings"

// maxIdentifierLength is the longest table/column name a backend will
// accept before middle-elision truncation kicks in.
const maxIdentifierLength = 96

// elisionMarker is inserted in place of the removed middle span.
const elisionMarker = "___"

// escapeIdentifier rewrites any non-letter-non-digit rune to '_', then
// truncates names over maxIdentifierLength by removing a contiguous span
// near the middle and inserting elisionMarker, so the first and last
// segments of the original name remain readable. The result is
// deterministic for the same input.
func escapeIdentifier(name string) string {
	escaped := escapeRunes(name)
	if len(escaped) <= maxIdentifierLength {
		return escaped
	}
	return elideMiddle(escaped)
}

func escapeRunes(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// elideMiddle removes a contiguous span near the center of s so the
// result, including elisionMarker, is exactly maxIdentifierLength long.
func elideMiddle(s string) string {
	keep := maxIdentifierLength - len(elisionMarker)
	head := keep / 2
	tail := keep - head
	return s[:head] + elisionMarker + s[len(s)-tail:]
}
