package ptrauth

//go:generate stringer -type=Key -output key_string.go

import (
	"fmt"
	"strings"
)

// Key selects one of the four arm64e signing contexts.
type Key uint8

const (
	ASIA Key = iota // instruction address, key A
	ASIB            // instruction address, key B
	ASDA            // data address, key A
	ASDB            // data address, key B
)

// ABI names for the keys.
const (
	ProcessIndependentCode = ASIA
	ProcessDependentCode   = ASIB
	ProcessIndependentData = ASDA
	ProcessDependentData   = ASDB
	FunctionPointer        = ProcessIndependentCode
)

// Valid reports whether k names one of the four keys.
func (k Key) Valid() bool {
	return k <= ASDB
}

// ParseKey parses a key name (asia, ib, da, ...) or its numeric value.
func ParseKey(s string) (Key, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "as") {
	case "ia", "0":
		return ASIA, nil
	case "ib", "1":
		return ASIB, nil
	case "da", "2":
		return ASDA, nil
	case "db", "3":
		return ASDB, nil
	}
	return 0, fmt.Errorf("invalid pointer-auth key %q (expected one of asia, asib, asda, asdb)", s)
}
