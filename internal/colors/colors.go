// Package colors provides the swiftbridge output palette.
//
// fatih/color already disables colors when stdout is not a terminal; Init lets
// the --color flag force them back on.
package colors

import "github.com/fatih/color"

// Init overrides the auto-detected color setting when forceColor is non-nil.
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Address renders raw and signed pointer values.
func Address() *color.Color { return color.New(color.Faint, color.FgCyan) }

// Discriminator renders ptrauth discriminators and keys.
func Discriminator() *color.Color { return color.New(color.FgMagenta) }

// Symbol renders mangled and demangled names.
func Symbol() *color.Color { return color.New(color.Bold, color.FgHiBlue) }

// Set renders a value witness flag that is present.
func Set() *color.Color { return color.New(color.FgGreen) }

// Unset renders a value witness flag that is absent.
func Unset() *color.Color { return color.New(color.Faint) }
