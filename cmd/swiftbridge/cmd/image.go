/*
Copyright © 2024-2026 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/blacktop/go-macho"
	"github.com/blacktop/swiftbridge/pkg/ptrauth"
	"github.com/blacktop/swiftbridge/pkg/swiftrt"
	"golang.org/x/term"
)

// unsignedAccessor returns the raw entry of an accessor found with dlsym.
// On arm64e dlsym hands back a pointer already signed as a function pointer;
// MetadataAccessor expects a raw address and signs it itself.
func unsignedAccessor(auth ptrauth.Authenticator, fn uintptr) uintptr {
	return auth.Strip(fn, ptrauth.FunctionPointer)
}

// accessorSymbol is a Swift type metadata accessor exported by an image.
type accessorSymbol struct {
	Name    string // as passed to dlsym
	Address uint64 // unslid
}

// openMachO opens path, picking the slice matching arch from a universal file
// or prompting for one when arch is empty.
func openMachO(path, arch string) (*macho.File, func() error, error) {
	machoPath := filepath.Clean(path)

	fat, err := macho.OpenFat(machoPath)
	if err != nil && err != macho.ErrNotFat {
		return nil, nil, err
	}
	if err == macho.ErrNotFat {
		m, err := macho.Open(machoPath)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}

	var options []string
	var shortOptions []string
	for _, a := range fat.Arches {
		options = append(options, fmt.Sprintf("%s, %s", a.CPU, a.SubCPU.String(a.CPU)))
		shortOptions = append(shortOptions, strings.ToLower(a.SubCPU.String(a.CPU)))
	}

	if len(arch) > 0 {
		for i, opt := range shortOptions {
			if strings.Contains(strings.ToLower(opt), strings.ToLower(arch)) {
				return fat.Arches[i].File, fat.Close, nil
			}
		}
		fat.Close()
		return nil, nil, fmt.Errorf("--arch '%s' not found in: %s", arch, strings.Join(shortOptions, ", "))
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fat.Close()
		return nil, nil, fmt.Errorf("universal MachO needs --arch when not run interactively (one of: %s)", strings.Join(shortOptions, ", "))
	}

	choice := 0
	prompt := &survey.Select{
		Message: "Detected a universal MachO file, please select an architecture to analyze:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		fat.Close()
		return nil, nil, err
	}
	return fat.Arches[choice].File, fat.Close, nil
}

// dlsymName drops the C-level underscore Mach-O adds to every symbol.
func dlsymName(name string) string {
	return strings.TrimPrefix(name, "_")
}

// isMetadataAccessor reports whether name (dlsym form) is a Swift type
// metadata accessor: a $s-mangled entity ending in the Ma operator.
func isMetadataAccessor(name string) bool {
	return (strings.HasPrefix(name, "$s") || strings.HasPrefix(name, "$S")) && strings.HasSuffix(name, "Ma")
}

// isTypeMetadata reports whether name (dlsym form) is direct type metadata
// (the N operator).
func isTypeMetadata(name string) bool {
	return strings.HasPrefix(name, "$s") && strings.HasSuffix(name, "N")
}

func metadataAccessors(m *macho.File) []accessorSymbol {
	if m.Symtab == nil {
		return nil
	}
	seen := make(map[string]bool)
	var syms []accessorSymbol
	for _, sym := range m.Symtab.Syms {
		name := dlsymName(sym.Name)
		if sym.Value == 0 || seen[name] || !isMetadataAccessor(name) {
			continue
		}
		seen[name] = true
		syms = append(syms, accessorSymbol{Name: name, Address: sym.Value})
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms
}

func parseMetadataState(s string) (swiftrt.MetadataState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "complete":
		return swiftrt.StateComplete, nil
	case "non-transitive", "nontransitive":
		return swiftrt.StateNonTransitiveComplete, nil
	case "layout":
		return swiftrt.StateLayoutComplete, nil
	case "abstract":
		return swiftrt.StateAbstract, nil
	}
	return 0, fmt.Errorf("unknown metadata state %q (complete, non-transitive, layout, abstract)", s)
}
