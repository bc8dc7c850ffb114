//go:build cgo && (darwin || linux)

package swift

/*
#cgo CXXFLAGS: -std=c++17
#cgo darwin LDFLAGS: -lc++
#cgo linux LDFLAGS: -lstdc++
#include <stdlib.h>
#include "tree.h"
*/
import "C"

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/apex/log"
	"github.com/ebitengine/purego"
	lru "github.com/hashicorp/golang-lru/v2"
)

const demangleBufferSize = 2048

type demangleFunc func(mangledName string, outputBuffer *byte, length uintptr) uintptr

// Bridge owns one load of libswiftDemangle. A failed load is retried by the
// next call; a successful one is kept for the life of the process.
type Bridge struct {
	conf *Config

	mu       sync.Mutex
	status   Status
	attempts int
	lib      uintptr
	path     string
	syms     C.swiftbridge_symbols
	names    map[Purpose]string

	// optional C API, present in every toolchain build
	getDemangledName           demangleFunc
	getSimplifiedDemangledName demangleFunc

	cache *lru.Cache[string, string]
}

// New returns an unloaded bridge for conf (DefaultConfig when nil).
func New(conf *Config) (*Bridge, error) {
	if conf == nil {
		conf = DefaultConfig()
	}
	if err := conf.Verify(); err != nil {
		return nil, err
	}
	b := &Bridge{conf: conf}
	if conf.CacheSize > 0 {
		cache, err := lru.New[string, string](conf.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create demangle cache: %w", err)
		}
		b.cache = cache
	}
	return b, nil
}

// Status returns the current load state.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Attempts returns how many load attempts have been made.
func (b *Bridge) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Path returns the library path that loaded, if any.
func (b *Bridge) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Symbols returns the symbol name resolved for each entry point.
func (b *Bridge) Symbols() map[Purpose]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[Purpose]string, len(b.names))
	for k, v := range b.names {
		out[k] = v
	}
	return out
}

// Load loads the library unless it already is. Every call after a failure
// runs the full attempt again.
func (b *Bridge) Load() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == StatusLoaded {
		return nil
	}
	if err := b.load(); err != nil {
		b.reset()
		b.status = StatusFailed
		log.WithError(err).WithField("attempt", b.attempts).Debug("swift: libswiftDemangle load failed")
		return err
	}
	b.status = StatusLoaded
	log.WithFields(log.Fields{"path": b.path, "attempt": b.attempts}).Debug("swift: loaded libswiftDemangle")
	return nil
}

func (b *Bridge) load() error {
	b.attempts++

	var errs []error
	for _, path := range b.conf.Paths {
		lib, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_LOCAL)
		if err != nil {
			log.WithField("path", path).Debug("swift: libswiftDemangle candidate not loadable")
			errs = append(errs, err)
			continue
		}
		b.lib, b.path = lib, path
		break
	}
	if b.lib == 0 {
		return fmt.Errorf("%w: %w", ErrLibraryUnavailable, errors.Join(errs...))
	}

	b.names = make(map[Purpose]string, len(Purposes))
	for _, p := range Purposes {
		candidates := b.conf.Symbols[p]
		if p == NodeTreeAsString {
			cxx11 := stringIsCXX11()
			if candidates = treeSymbols(candidates, cxx11); len(candidates) == 0 {
				return fmt.Errorf("%w: %s: no candidate returns this build's std::string (cxx11=%t)", ErrSymbolMissing, p, cxx11)
			}
		}
		addr, name, err := lookup(b.lib, candidates)
		if err != nil {
			return fmt.Errorf("%w: %s in %s: %w", ErrSymbolMissing, p, b.path, err)
		}
		b.names[p] = name
		switch p {
		case ContextConstructor:
			b.syms.ctor = C.uintptr_t(addr)
		case ContextDestructor:
			b.syms.dtor = C.uintptr_t(addr)
		case DemangleSymbolAsNode:
			b.syms.demangle = C.uintptr_t(addr)
			b.syms.length_first = 0
			if stringLayoutOf(name) == LengthFirst {
				b.syms.length_first = 1
			}
		case NodeTreeAsString:
			b.syms.tree = C.uintptr_t(addr)
		}
	}

	if addr, err := purego.Dlsym(b.lib, "swift_demangle_getDemangledName"); err == nil {
		purego.RegisterFunc(&b.getDemangledName, addr)
	}
	if addr, err := purego.Dlsym(b.lib, "swift_demangle_getSimplifiedDemangledName"); err == nil {
		purego.RegisterFunc(&b.getSimplifiedDemangledName, addr)
	}

	return b.checkLayout()
}

// checkLayout demangles the canary through the reconstructed types.
func (b *Bridge) checkLayout() error {
	if err := layoutMismatch(
		uintptr(C.swiftbridge_context_size()),
		uintptr(C.swiftbridge_context_align()),
		uintptr(C.swiftbridge_string_ref_size()),
	); err != nil {
		return err
	}
	if b.conf.Canary.Name == "" {
		return nil
	}
	out, err := b.nodeTree(b.conf.Canary.Name)
	if err != nil {
		return fmt.Errorf("%w: canary %s: %w", ErrABIMismatch, b.conf.Canary.Name, err)
	}
	if !strings.Contains(out, b.conf.Canary.Want) {
		return fmt.Errorf("%w: canary %s rendered %q, want %q", ErrABIMismatch, b.conf.Canary.Name, out, b.conf.Canary.Want)
	}
	return nil
}

func (b *Bridge) reset() {
	if b.lib != 0 {
		if err := purego.Dlclose(b.lib); err != nil {
			log.WithError(err).Debug("swift: dlclose failed")
		}
	}
	b.lib = 0
	b.path = ""
	b.names = nil
	b.syms = C.swiftbridge_symbols{}
	b.getDemangledName = nil
	b.getSimplifiedDemangledName = nil
}

// stringIsCXX11 reports whether std::string here is the libstdc++ C++11 ABI.
func stringIsCXX11() bool {
	return C.swiftbridge_string_is_cxx11() != 0
}

func lookup(lib uintptr, candidates []string) (uintptr, string, error) {
	var errs []error
	for _, name := range candidates {
		addr, err := purego.Dlsym(lib, name)
		if err == nil && addr != 0 {
			return addr, name, nil
		}
		errs = append(errs, err)
	}
	return 0, "", errors.Join(errs...)
}

// NodeTree demangles name into a swift::Demangle::Node tree and renders it the
// way swift-demangle --tree-only does.
func (b *Bridge) NodeTree(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if err := b.Load(); err != nil {
		return "", err
	}
	if b.cache != nil {
		if tree, ok := b.cache.Get(name); ok {
			return tree, nil
		}
	}
	tree, err := b.nodeTree(name)
	if err != nil {
		return "", err
	}
	if b.cache != nil {
		b.cache.Add(name, tree)
	}
	return tree, nil
}

func (b *Bridge) nodeTree(name string) (string, error) {
	syms := b.syms

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	out := C.swiftbridge_node_tree(&syms, cname, C.size_t(len(name)))
	if out == nil {
		return "", fmt.Errorf("%w: %s", ErrDemangleFailed, name)
	}
	defer C.free(unsafe.Pointer(out))

	return C.GoString(out), nil
}

// Demangle returns the full demangled form of input, or input itself when it
// is not a Swift symbol.
func (b *Bridge) Demangle(input string) (string, error) {
	if err := b.Load(); err != nil {
		return "", fmt.Errorf("error parsing mangled symbol: %w", err)
	}
	return callDemangle(b.getDemangledName, "swift_demangle_getDemangledName", input)
}

// DemangleSimple is Demangle with the simplified (no module prefixes) output.
func (b *Bridge) DemangleSimple(input string) (string, error) {
	if err := b.Load(); err != nil {
		return "", fmt.Errorf("error parsing mangled symbol: %w", err)
	}
	return callDemangle(b.getSimplifiedDemangledName, "swift_demangle_getSimplifiedDemangledName", input)
}

// DemangleBlob demangles every symbol-looking word in blob.
func (b *Bridge) DemangleBlob(blob string) string {
	return replaceSymbols(blob, b.Demangle)
}

func callDemangle(fn demangleFunc, symbol, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("error parsing mangled symbol: %w", ErrEmptyName)
	}
	if fn == nil {
		return "", fmt.Errorf("error parsing mangled symbol: %w: %s", ErrSymbolMissing, symbol)
	}
	buf := make([]byte, demangleBufferSize)
	n := fn(input, &buf[0], uintptr(len(buf)))
	if n == 0 {
		return input, nil
	}
	if n >= uintptr(len(buf)) {
		buf = make([]byte, n+1)
		n = fn(input, &buf[0], uintptr(len(buf)))
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 && uintptr(i) < n {
		n = uintptr(i)
	}
	return string(buf[:n]), nil
}
