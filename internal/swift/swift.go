// Package swift demangles Swift symbols by calling into the toolchain's
// libswiftDemangle.
//
// The library ships without headers. The node-tree path reproduces the C++
// layouts of swift::Demangle::Context, llvm::StringRef and std::string and
// resolves the mangled C++ entry points at runtime, so it only works against a
// library build whose layout matches.
package swift

//go:generate stringer -type=Status -trimprefix=Status -output status_string.go

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

var (
	// ErrEmptyName is returned when there is no symbol to demangle.
	ErrEmptyName = errors.New("no mangled name given")
	// ErrLibraryUnavailable is returned when libswiftDemangle could not be loaded.
	ErrLibraryUnavailable = errors.New("libswiftDemangle not available")
	// ErrSymbolMissing is returned when a required entry point is not exported.
	ErrSymbolMissing = errors.New("libswiftDemangle entry point not found")
	// ErrABIMismatch is returned when the canary demangle does not produce the expected tree.
	ErrABIMismatch = errors.New("libswiftDemangle layout does not match")
	// ErrDemangleFailed is returned when the library does not recognize the name.
	ErrDemangleFailed = errors.New("failed to demangle symbol")
)

// Status is where the bridge is in its load lifecycle.
type Status uint8

const (
	StatusUnloaded Status = iota
	StatusLoaded
	StatusFailed
)

// Purpose names one of the library entry points the bridge needs.
type Purpose string

const (
	ContextConstructor   Purpose = "context-ctor"
	ContextDestructor    Purpose = "context-dtor"
	DemangleSymbolAsNode Purpose = "demangle-symbol-as-node"
	NodeTreeAsString     Purpose = "node-tree-as-string"
)

// Purposes lists the required entry points in resolution order.
var Purposes = []Purpose{ContextConstructor, ContextDestructor, DemangleSymbolAsNode, NodeTreeAsString}

// SymbolTable maps each entry point to the symbol names to try, in order.
type SymbolTable map[Purpose][]string

// DefaultSymbols returns the Itanium-mangled names used by Swift 5.x/6.x
// toolchains. demangleSymbolAsNode took an llvm::StringRef historically; newer
// builds take a std::string_view, which libstdc++ lays out length first.
// getNodeTreeAsString carries the B5cxx11 tag when built against the libstdc++
// C++11 string ABI.
func DefaultSymbols() SymbolTable {
	return SymbolTable{
		ContextConstructor: {"_ZN5swift8Demangle7ContextC1Ev"},
		ContextDestructor:  {"_ZN5swift8Demangle7ContextD1Ev"},
		DemangleSymbolAsNode: {
			"_ZN5swift8Demangle7Context20demangleSymbolAsNodeEN4llvm9StringRefE",
			"_ZN5swift8Demangle7Context20demangleSymbolAsNodeENSt3__117basic_string_viewIcNS2_11char_traitsIcEEEE",
			"_ZN5swift8Demangle7Context20demangleSymbolAsNodeESt17basic_string_viewIcSt11char_traitsIcEE",
		},
		NodeTreeAsString: {
			"_ZN5swift8Demangle19getNodeTreeAsStringEPNS0_4NodeE",
			"_ZN5swift8Demangle19getNodeTreeAsStringB5cxx11EPNS0_4NodeE",
		},
	}
}

// StringLayout is the field order of the two-word string argument
// demangleSymbolAsNode takes.
type StringLayout uint8

const (
	// PointerFirst is llvm::StringRef and libc++ std::string_view.
	PointerFirst StringLayout = iota
	// LengthFirst is libstdc++ std::string_view ({_M_len, _M_str}).
	LengthFirst
)

// stringLayoutOf returns the argument layout implied by a demangleSymbolAsNode symbol.
func stringLayoutOf(symbol string) StringLayout {
	if strings.Contains(symbol, "St17basic_string_view") {
		return LengthFirst
	}
	return PointerFirst
}

// treeSymbols keeps the getNodeTreeAsString candidates whose std::string return
// type matches the one this package was compiled with.
func treeSymbols(candidates []string, cxx11 bool) []string {
	var out []string
	for _, name := range candidates {
		if strings.Contains(name, "B5cxx11") == cxx11 {
			out = append(out, name)
		}
	}
	return out
}

// layoutMismatch checks the sizes and alignment of the reconstructed Context
// and string argument against the target word size.
func layoutMismatch(ctxSize, ctxAlign, refSize uintptr) error {
	word := unsafe.Sizeof(uintptr(0))
	switch {
	case ctxSize != word:
		return fmt.Errorf("%w: context is %d bytes, want %d", ErrABIMismatch, ctxSize, word)
	case ctxAlign != word:
		return fmt.Errorf("%w: context is %d-byte aligned, want %d", ErrABIMismatch, ctxAlign, word)
	case refSize != 2*word:
		return fmt.Errorf("%w: string argument is %d bytes, want %d", ErrABIMismatch, refSize, 2*word)
	}
	return nil
}

// Canary is demangled right after the entry points resolve; the tree must
// contain Want or the load is treated as failed.
type Canary struct {
	Name string
	Want string
}

// Config controls where the library is looked for and what is resolved in it.
type Config struct {
	// Paths are tried in order; a bare file name goes through the platform's
	// dynamic loader search.
	Paths     []string
	Symbols   SymbolTable
	Canary    Canary
	CacheSize int
}

// DefaultPaths returns the candidate library locations for the running OS.
func DefaultPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Xcode.app/Contents/Developer/Toolchains/XcodeDefault.xctoolchain/usr/lib/libswiftDemangle.dylib",
			"/Applications/Xcode.app/Contents/Frameworks/libswiftDemangle.dylib",
			"/Library/Developer/CommandLineTools/usr/lib/libswiftDemangle.dylib",
			"libswiftDemangle.dylib",
		}
	default:
		return []string{
			"/usr/lib/libswiftDemangle.so",
			"libswiftDemangle.so",
		}
	}
}

// DefaultConfig returns the configuration used by the package level functions.
func DefaultConfig() *Config {
	return &Config{
		Paths:   DefaultPaths(),
		Symbols: DefaultSymbols(),
		Canary:  Canary{Name: "_TtSi", Want: "Int"},
	}
}

// Verify fills unset fields with defaults and rejects unusable settings.
func (c *Config) Verify() error {
	if len(c.Paths) == 0 {
		c.Paths = DefaultPaths()
	}
	if c.Symbols == nil {
		c.Symbols = DefaultSymbols()
	}
	defaults := DefaultSymbols()
	for _, p := range Purposes {
		if len(c.Symbols[p]) == 0 {
			c.Symbols[p] = defaults[p]
		}
	}
	for p := range c.Symbols {
		if !p.valid() {
			return fmt.Errorf("unknown libswiftDemangle symbol purpose %q", p)
		}
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("invalid demangle cache size %d", c.CacheSize)
	}
	return nil
}

func (p Purpose) valid() bool {
	for _, known := range Purposes {
		if p == known {
			return true
		}
	}
	return false
}

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Default returns the process-wide bridge, creating it from DefaultConfig on first use.
func Default() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		b, err := New(DefaultConfig())
		if err != nil {
			panic(fmt.Sprintf("swift: default config rejected: %v", err))
		}
		defaultBridge = b
	}
	return defaultBridge
}

// SetDefault replaces the process-wide bridge with one built from conf.
func SetDefault(conf *Config) error {
	b, err := New(conf)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultBridge = b
	defaultMu.Unlock()
	return nil
}

// NodeTree renders the demangled node tree of name with the default bridge.
func NodeTree(name string) (string, error) {
	return Default().NodeTree(name)
}

// Demangle demangles input with the default bridge.
func Demangle(input string) (string, error) {
	return Default().Demangle(input)
}

// DemangleSimple demangles input to its simplified form with the default bridge.
func DemangleSimple(input string) (string, error) {
	return Default().DemangleSimple(input)
}

// DemangleBlob demangles every symbol-looking word in blob with the default bridge.
func DemangleBlob(blob string) string {
	return replaceSymbols(blob, Default().Demangle)
}

// DemangleSimpleBlob is DemangleBlob with simplified output.
func DemangleSimpleBlob(blob string) string {
	return replaceSymbols(blob, Default().DemangleSimple)
}

var words = regexp.MustCompile(`\b(_\$s)?\w+\b`)

// replaceSymbols swaps each word for its demangled form, leaving words that
// fail to demangle untouched.
func replaceSymbols(blob string, demangle func(string) (string, error)) string {
	return words.ReplaceAllStringFunc(blob, func(s string) string {
		out, err := demangle(s)
		if err != nil {
			return s
		}
		return out
	})
}
