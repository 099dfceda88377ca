package fixups

import "strings"

// Normalize lowercases letters and digits, collapses any run of other
// characters to a single '.', and trims a trailing '.'.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSep = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
			lastWasSep = false
		default:
			if !lastWasSep && b.Len() > 0 {
				b.WriteByte('.')
			}
			lastWasSep = true
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}

// CombineNames merges a naming prefix with a row name, eliding the longest
// contiguous dotted suffix of prefix that equals a dotted prefix of suffix.
// "a.b.c" + "b.c.d" -> "a.b.c.d"; never leaves two identical adjacent
// dotted segments at the join boundary.
func CombineNames(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	if suffix == "" {
		return prefix
	}

	prefixSegs := strings.Split(prefix, ".")
	suffixSegs := strings.Split(suffix, ".")

	maxOverlap := len(prefixSegs)
	if len(suffixSegs) < maxOverlap {
		maxOverlap = len(suffixSegs)
	}

	overlap := 0
	for n := maxOverlap; n > 0; n-- {
		if segsEqual(prefixSegs[len(prefixSegs)-n:], suffixSegs[:n]) {
			overlap = n
			break
		}
	}

	combined := append(append([]string{}, prefixSegs...), suffixSegs[overlap:]...)
	return strings.Join(combined, ".")
}

func segsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
