//go:build cgo && (darwin || linux)

package swift

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ebitengine/purego"
	"golang.org/x/sync/errgroup"
)

// fake libswiftDemangle builds, keyed by variant
var (
	fakes    = map[string]string{}
	fakeErrs = map[string]error{}
)

const (
	variantStringRef  = "stringref"
	variantStringView = "stringview"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "swiftbridge-fake")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for variant, defines := range map[string][]string{
		variantStringRef:  nil,
		variantStringView: {"-DFAKE_STRING_VIEW"},
	} {
		fakes[variant], fakeErrs[variant] = buildFake(dir, variant, defines...)
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func buildFake(dir, variant string, defines ...string) (string, error) {
	cxx := strings.Fields(os.Getenv("CXX"))
	if len(cxx) == 0 {
		cxx = []string{"c++"}
	}
	ext := ".so"
	if runtime.GOOS == "darwin" {
		ext = ".dylib"
	}
	out := filepath.Join(dir, "libswiftDemangle-"+variant+ext)

	var args []string
	args = append(args, cxx[1:]...)
	args = append(args, "-std=c++17", "-shared", "-fPIC", "-o", out)
	args = append(args, defines...)
	args = append(args, filepath.Join("testdata", "fakedemangle.cpp"))
	if output, err := exec.Command(cxx[0], args...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", cxx[0], err, output)
	}
	return out, nil
}

// fakeCounters reads the call bookkeeping of a fake library.
type fakeCounters struct {
	CtorCalls  func() int32
	DtorCalls  func() int32
	LastLength func() uintptr
}

func fakeLibrary(t *testing.T, variant string) (string, *fakeCounters) {
	t.Helper()
	if err := fakeErrs[variant]; err != nil {
		t.Skipf("could not build fake libswiftDemangle: %v", err)
	}
	path := fakes[variant]
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { purego.Dlclose(lib) })
	var c fakeCounters
	purego.RegisterLibFunc(&c.CtorCalls, lib, "fake_ctor_calls")
	purego.RegisterLibFunc(&c.DtorCalls, lib, "fake_dtor_calls")
	purego.RegisterLibFunc(&c.LastLength, lib, "fake_last_length")
	return path, &c
}

func fakeConfig(path string) *Config {
	conf := DefaultConfig()
	conf.Paths = []string{"/nonexistent/libswiftDemangle" + filepath.Ext(path), path}
	return conf
}

func newBridge(t *testing.T, conf *Config) *Bridge {
	t.Helper()
	b, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestNodeTree(t *testing.T) {
	tests := []struct {
		variant  string
		wantView bool
	}{
		{variant: variantStringRef, wantView: false},
		{variant: variantStringView, wantView: true},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			path, fake := fakeLibrary(t, tt.variant)
			b := newBridge(t, fakeConfig(path))

			first, err := b.NodeTree("_TtSi")
			if err != nil {
				t.Fatalf("NodeTree() error = %v", err)
			}
			if !strings.Contains(first, "Int") || !strings.Contains(first, "Swift") {
				t.Errorf("NodeTree() = %q, want a Swift.Int tree", first)
			}
			if got := fake.LastLength(); got != uintptr(len("_TtSi")) {
				t.Errorf("library received length %#x, want %d", got, len("_TtSi"))
			}
			second, err := b.NodeTree("_TtSi")
			if err != nil {
				t.Fatalf("second NodeTree() error = %v", err)
			}
			if first != second {
				t.Errorf("NodeTree() not idempotent:\n%s\n%s", first, second)
			}
			if b.Attempts() != 1 {
				t.Errorf("Attempts() = %d after loaded calls, want 1", b.Attempts())
			}
			if b.Status() != StatusLoaded {
				t.Errorf("Status() = %s", b.Status())
			}
			if b.Path() != path {
				t.Errorf("Path() = %q, want %q", b.Path(), path)
			}
			syms := b.Symbols()
			if len(syms) != len(Purposes) {
				t.Errorf("Symbols() = %v", syms)
			}
			if got := strings.Contains(syms[DemangleSymbolAsNode], "basic_string_view"); got != tt.wantView {
				t.Errorf("resolved %s, want string_view %t", syms[DemangleSymbolAsNode], tt.wantView)
			}
		})
	}
}

func TestNodeTreeNotMangledRunsDestructor(t *testing.T) {
	path, fake := fakeLibrary(t, variantStringRef)
	b := newBridge(t, fakeConfig(path))
	if err := b.Load(); err != nil {
		t.Fatal(err)
	}
	ctors, dtors := fake.CtorCalls(), fake.DtorCalls()
	if _, err := b.NodeTree("not a symbol"); !errors.Is(err, ErrDemangleFailed) {
		t.Errorf("NodeTree() error = %v, want ErrDemangleFailed", err)
	}
	if got := fake.CtorCalls() - ctors; got != 1 {
		t.Errorf("context constructed %d times, want 1", got)
	}
	if got := fake.DtorCalls() - dtors; got != 1 {
		t.Errorf("context destroyed %d times, want 1", got)
	}
}

func TestNodeTreeCached(t *testing.T) {
	path, fake := fakeLibrary(t, variantStringRef)
	conf := fakeConfig(path)
	conf.CacheSize = 8
	b := newBridge(t, conf)
	want, err := b.NodeTree("_TtSS")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := b.cache.Get("_TtSS"); !ok || got != want {
		t.Errorf("cache holds %q, %t", got, ok)
	}
	ctors := fake.CtorCalls()
	if got, err := b.NodeTree("_TtSS"); err != nil || got != want {
		t.Errorf("cached NodeTree() = %q, %v", got, err)
	}
	if fake.CtorCalls() != ctors {
		t.Error("cached NodeTree() called into the library")
	}
}

func TestMissingSymbolFailsLoad(t *testing.T) {
	path, _ := fakeLibrary(t, variantStringRef)
	conf := fakeConfig(path)
	conf.Symbols[DemangleSymbolAsNode] = []string{"_ZN5swift8Demangle9doesNotExistEv"}
	b := newBridge(t, conf)

	for attempt := 1; attempt <= 2; attempt++ {
		err := b.Load()
		if !errors.Is(err, ErrSymbolMissing) {
			t.Fatalf("Load() error = %v, want ErrSymbolMissing", err)
		}
		if b.Attempts() != attempt {
			t.Errorf("Attempts() = %d, want %d", b.Attempts(), attempt)
		}
	}
	if b.Status() != StatusFailed {
		t.Errorf("Status() = %s", b.Status())
	}
	if b.Path() != "" || len(b.Symbols()) != 0 {
		t.Errorf("failed load kept state: %q %v", b.Path(), b.Symbols())
	}
}

func TestTreeSymbolABIFilter(t *testing.T) {
	path, _ := fakeLibrary(t, variantStringRef)
	conf := fakeConfig(path)
	// only the candidate returning the other std::string ABI
	conf.Symbols[NodeTreeAsString] = treeSymbols(DefaultSymbols()[NodeTreeAsString], !stringIsCXX11())
	b := newBridge(t, conf)
	if err := b.Load(); !errors.Is(err, ErrSymbolMissing) {
		t.Errorf("Load() error = %v, want ErrSymbolMissing", err)
	}
}

func TestCanaryMismatch(t *testing.T) {
	path, _ := fakeLibrary(t, variantStringRef)
	conf := fakeConfig(path)
	conf.Canary = Canary{Name: "_TtSi", Want: "Float"}
	b := newBridge(t, conf)
	if err := b.Load(); !errors.Is(err, ErrABIMismatch) {
		t.Errorf("Load() error = %v, want ErrABIMismatch", err)
	}
	if b.Status() != StatusFailed || b.Path() != "" {
		t.Errorf("Status() = %s, Path() = %q after a failed canary", b.Status(), b.Path())
	}
}

func TestLayout(t *testing.T) {
	b := newBridge(t, &Config{Paths: []string{"/nonexistent/libswiftDemangle.dylib"}})
	b.conf.Canary = Canary{}
	if err := b.checkLayout(); err != nil {
		t.Errorf("checkLayout() error = %v", err)
	}
}

func TestDemangle(t *testing.T) {
	path, _ := fakeLibrary(t, variantStringRef)
	b := newBridge(t, fakeConfig(path))
	type args struct {
		input string
	}
	tests := []struct {
		name    string
		args    args
		want    string
		wantErr bool
	}{
		{name: "type", args: args{input: "_TtSi"}, want: "Swift.Int", wantErr: false},
		{name: "not mangled", args: args{input: "main"}, want: "main", wantErr: false},
		{name: "empty", args: args{input: ""}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Demangle(tt.args.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Demangle() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Demangle() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := b.DemangleBlob("call _TtSi from main"); got != "call Swift.Int from main" {
		t.Errorf("DemangleBlob() = %q", got)
	}
	// the fake exports no simplified entry point
	if _, err := b.DemangleSimple("_TtSi"); !errors.Is(err, ErrSymbolMissing) {
		t.Errorf("DemangleSimple() error = %v, want ErrSymbolMissing", err)
	}
}

func TestNodeTreeConcurrent(t *testing.T) {
	path, _ := fakeLibrary(t, variantStringView)
	b := newBridge(t, fakeConfig(path))
	names := []string{"_TtSi", "_TtSS", "_TtSb", "_TtSd"}
	results := make([]string, 4*len(names))
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			out, err := b.NodeTree(names[i%len(names)])
			results[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if b.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want a single load", b.Attempts())
	}
	for i := len(names); i < len(results); i++ {
		if results[i] != results[i%len(names)] {
			t.Errorf("result %d differs from the first call for %s", i, names[i%len(names)])
		}
	}
}

// TestToolchainLibrary runs against the installed toolchain library when present.
func TestToolchainLibrary(t *testing.T) {
	b := newBridge(t, DefaultConfig())
	if err := b.Load(); err != nil {
		t.Skipf("libswiftDemangle not available: %v", err)
	}
	out, err := b.NodeTree("_TtSi")
	if err != nil {
		t.Fatalf("NodeTree() error = %v", err)
	}
	if !strings.Contains(out, "Int") {
		t.Errorf("NodeTree() = %q, want a Swift.Int tree", out)
	}
	if _, err := b.NodeTree("not a symbol"); !errors.Is(err, ErrDemangleFailed) {
		t.Errorf("NodeTree() error = %v, want ErrDemangleFailed", err)
	}
}
