// Package utils holds small helpers shared by the swiftbridge commands.
package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

const normalPadding = 3

// ConvertStrToInt converts an input string to uint64. Hex is accepted with or
// without a 0x prefix; anything that is not valid hex is read as decimal.
func ConvertStrToInt(intStr string) (uint64, error) {
	intStr = strings.ToLower(strings.TrimSpace(intStr))
	if intStr == "" {
		return 0, fmt.Errorf("empty integer")
	}

	if strings.HasPrefix(intStr, "0x") || strings.ContainsAny(intStr, "abcdef") {
		if out, err := strconv.ParseUint(strings.TrimPrefix(intStr, "0x"), 16, 64); err == nil {
			return out, nil
		}
		log.Warn("assuming given integer is in decimal")
	}
	return strconv.ParseUint(intStr, 10, 64)
}

// ConvertStrToUint16 is ConvertStrToInt for 16-bit discriminators.
func ConvertStrToUint16(intStr string) (uint16, error) {
	v, err := ConvertStrToInt(intStr)
	if err != nil {
		return 0, err
	}
	if v > 0xffff {
		return 0, fmt.Errorf("%#x does not fit in 16 bits", v)
	}
	return uint16(v), nil
}

// Indent indents apex log line to supplied level
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}
