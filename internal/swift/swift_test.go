package swift

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

func TestConfigVerify(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{name: "empty gets defaults", conf: Config{}},
		{name: "partial symbols", conf: Config{Symbols: SymbolTable{NodeTreeAsString: {"_Z3fooPv"}}}},
		{name: "unknown purpose", conf: Config{Symbols: SymbolTable{"remangle": {"_Z3barv"}}}, wantErr: true},
		{name: "negative cache", conf: Config{CacheSize: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Verify()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(tt.conf.Paths) == 0 {
				t.Error("Verify() left Paths empty")
			}
			for _, p := range Purposes {
				if len(tt.conf.Symbols[p]) == 0 {
					t.Errorf("Verify() left %s without candidates", p)
				}
			}
		})
	}
}

func TestVerifyKeepsOverrides(t *testing.T) {
	conf := Config{Symbols: SymbolTable{NodeTreeAsString: {"_Z3fooPv"}}}
	if err := conf.Verify(); err != nil {
		t.Fatal(err)
	}
	if got := conf.Symbols[NodeTreeAsString]; len(got) != 1 || got[0] != "_Z3fooPv" {
		t.Errorf("override replaced: %v", got)
	}
}

func TestDefaultSymbols(t *testing.T) {
	syms := DefaultSymbols()
	for _, p := range Purposes {
		for _, name := range syms[p] {
			if !strings.HasPrefix(name, "_ZN5swift8Demangle") {
				t.Errorf("%s candidate %q is not a swift::Demangle symbol", p, name)
			}
		}
	}
}

func TestStringLayoutOf(t *testing.T) {
	tests := []struct {
		symbol string
		want   StringLayout
	}{
		{symbol: "_ZN5swift8Demangle7Context20demangleSymbolAsNodeEN4llvm9StringRefE", want: PointerFirst},
		{symbol: "_ZN5swift8Demangle7Context20demangleSymbolAsNodeENSt3__117basic_string_viewIcNS2_11char_traitsIcEEEE", want: PointerFirst},
		{symbol: "_ZN5swift8Demangle7Context20demangleSymbolAsNodeESt17basic_string_viewIcSt11char_traitsIcEE", want: LengthFirst},
	}
	for _, tt := range tests {
		if got := stringLayoutOf(tt.symbol); got != tt.want {
			t.Errorf("stringLayoutOf(%q) = %d, want %d", tt.symbol, got, tt.want)
		}
	}
	// every default candidate must map to a layout the bridge can marshal
	layouts := map[StringLayout]bool{}
	for _, name := range DefaultSymbols()[DemangleSymbolAsNode] {
		layouts[stringLayoutOf(name)] = true
	}
	if !layouts[PointerFirst] || !layouts[LengthFirst] {
		t.Errorf("default demangle candidates cover layouts %v, want both", layouts)
	}
}

func TestTreeSymbols(t *testing.T) {
	const (
		plain = "_ZN5swift8Demangle19getNodeTreeAsStringEPNS0_4NodeE"
		cxx11 = "_ZN5swift8Demangle19getNodeTreeAsStringB5cxx11EPNS0_4NodeE"
	)
	tests := []struct {
		name  string
		cxx11 bool
		want  []string
	}{
		{name: "libc++ or old libstdc++ string", cxx11: false, want: []string{plain}},
		{name: "libstdc++ cxx11 string", cxx11: true, want: []string{cxx11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := treeSymbols(DefaultSymbols()[NodeTreeAsString], tt.cxx11)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("treeSymbols() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := treeSymbols([]string{plain}, true); len(got) != 0 {
		t.Errorf("treeSymbols() kept %v for a cxx11 build", got)
	}
}

func TestLayoutMismatch(t *testing.T) {
	word := unsafe.Sizeof(uintptr(0))
	tests := []struct {
		name                      string
		ctxSize, ctxAlign, refLen uintptr
		wantErr                   bool
	}{
		{name: "matching", ctxSize: word, ctxAlign: word, refLen: 2 * word},
		{name: "context too large", ctxSize: 2 * word, ctxAlign: word, refLen: 2 * word, wantErr: true},
		{name: "context under-aligned", ctxSize: word, ctxAlign: 4, refLen: 2 * word, wantErr: true},
		{name: "string ref one word", ctxSize: word, ctxAlign: word, refLen: word, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := layoutMismatch(tt.ctxSize, tt.ctxAlign, tt.refLen)
			if (err != nil) != tt.wantErr {
				t.Fatalf("layoutMismatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrABIMismatch) {
				t.Errorf("layoutMismatch() error = %v, want ErrABIMismatch", err)
			}
		})
	}
}

func TestDefaultPathsOrder(t *testing.T) {
	paths := DefaultPaths()
	last := paths[len(paths)-1]
	if strings.Contains(last, "/") {
		t.Errorf("last candidate %q should be a bare library name", last)
	}
	if !strings.HasPrefix(paths[0], "/") {
		t.Errorf("first candidate %q should be an absolute toolchain path", paths[0])
	}
}

func TestReplaceSymbols(t *testing.T) {
	fake := func(s string) (string, error) {
		if strings.HasPrefix(s, "_$s") {
			return "demangled(" + s[3:] + ")", nil
		}
		return "", fmt.Errorf("not mangled")
	}
	tests := []struct {
		name string
		blob string
		want string
	}{
		{name: "single", blob: "_$sSi", want: "demangled(Si)"},
		{name: "mixed", blob: "call _$sSS to x", want: "call demangled(SS) to x"},
		{name: "none", blob: "plain text", want: "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := replaceSymbols(tt.blob, fake); got != tt.want {
				t.Errorf("replaceSymbols() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNodeTreeEmptyName(t *testing.T) {
	b, err := New(&Config{Paths: []string{"/nonexistent/libswiftDemangle.dylib"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.NodeTree(""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("NodeTree(\"\") error = %v, want ErrEmptyName", err)
	}
	if b.Attempts() != 0 {
		t.Errorf("empty name triggered %d load attempts", b.Attempts())
	}
}

func TestLoadFailureIsRetried(t *testing.T) {
	b, err := New(&Config{Paths: []string{"/nonexistent/a/libswiftDemangle.dylib", "/nonexistent/b/libswiftDemangle.so"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Status(); got != StatusUnloaded {
		t.Fatalf("Status() = %s, want Unloaded", got)
	}
	for i := 1; i <= 3; i++ {
		if _, err := b.NodeTree("_TtSi"); !errors.Is(err, ErrLibraryUnavailable) {
			t.Fatalf("call %d: error = %v, want ErrLibraryUnavailable", i, err)
		}
		if got := b.Attempts(); got != i {
			t.Errorf("call %d: Attempts() = %d, want %d", i, got, i)
		}
		if got := b.Status(); got != StatusFailed {
			t.Errorf("call %d: Status() = %s, want Failed", i, got)
		}
	}
}

func TestConcurrentLoadAttempts(t *testing.T) {
	b, err := New(&Config{Paths: []string{"/nonexistent/libswiftDemangle.dylib"}})
	if err != nil {
		t.Fatal(err)
	}
	const callers = 16
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			if _, err := b.NodeTree("_TtSi"); !errors.Is(err, ErrLibraryUnavailable) {
				return fmt.Errorf("NodeTree() error = %v, want ErrLibraryUnavailable", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := b.Attempts(); got != callers {
		t.Errorf("Attempts() = %d, want one per caller (%d)", got, callers)
	}
}
