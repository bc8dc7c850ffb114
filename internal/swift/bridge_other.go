//go:build !cgo || !(darwin || linux)

package swift

import (
	"fmt"
	"runtime"
	"sync"
)

// Bridge is unavailable without cgo on darwin or linux; every load fails and
// the C API demanglers are no-ops.
type Bridge struct {
	conf *Config

	mu       sync.Mutex
	attempts int
}

func New(conf *Config) (*Bridge, error) {
	if conf == nil {
		conf = DefaultConfig()
	}
	if err := conf.Verify(); err != nil {
		return nil, err
	}
	return &Bridge{conf: conf}, nil
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attempts == 0 {
		return StatusUnloaded
	}
	return StatusFailed
}

func (b *Bridge) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

func (b *Bridge) Path() string { return "" }

func (b *Bridge) Symbols() map[Purpose]string { return map[Purpose]string{} }

func (b *Bridge) Load() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
	return fmt.Errorf("%w: unsupported on %s/%s without cgo", ErrLibraryUnavailable, runtime.GOOS, runtime.GOARCH)
}

func (b *Bridge) NodeTree(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	return "", b.Load()
}

func (b *Bridge) Demangle(input string) (string, error) {
	return input, nil // this is a no-op on unsupported platforms
}

func (b *Bridge) DemangleSimple(input string) (string, error) {
	return input, nil // this is a no-op on unsupported platforms
}

func (b *Bridge) DemangleBlob(blob string) string {
	return blob
}
