package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseInt accepts decimal and hexadecimal integers, where hex may be
// spelled with either a "0x" or "&h" prefix: parseInt("0x1F") ==
// parseInt("&h1F") == 31.
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "0x"):
		return strconv.ParseInt(s[2:], 16, 64)
	case strings.HasPrefix(lower, "&h"):
		return strconv.ParseInt(s[2:], 16, 64)
	default:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parseInt: %q is neither decimal nor 0x/&h hex: %w", s, err)
		}
		return v, nil
	}
}
