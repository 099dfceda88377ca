package fixups

import (
	_ "embed"
)

// sigmMagic is the four-byte header preceding the deflate payload of the
// built-in rule file: 'S' 'I' 'G' 'M'.
var sigmMagic = [4]byte{0x53, 0x49, 0x47, 0x4D}

//go:embed builtin_rules.bin
var builtinRulesCompressed []byte
