// Package ptrauth provides the arm64e pointer authentication primitives used to
// call into code recovered from Mach-O metadata.
//
// On hardware without pointer authentication Sign and Strip are the identity
// and Blend is the fixed software blend; callers must not rely on a signature
// actually being checked there.
package ptrauth

import (
	"sync"

	"github.com/apex/log"
)

// Authenticator signs, strips and blends pointers for one pointer-auth domain
// implementation.
type Authenticator interface {
	// Sign re-encodes ptr as signed-but-unauthenticated under key blended with discriminator.
	Sign(ptr uintptr, key Key, discriminator uint64) uintptr
	// Strip removes a signature made under key and returns the raw address.
	Strip(ptr uintptr, key Key) uintptr
	// Blend mixes an address into a discriminator.
	Blend(ptr uintptr, discriminator uint64) uint64
	// Enabled reports whether signatures are checked by the hardware.
	Enabled() bool
}

var (
	defaultOnce sync.Once
	defaultAuth Authenticator
)

// Default returns the Authenticator selected for this process. The choice is
// made once, on first use.
func Default() Authenticator {
	defaultOnce.Do(func() {
		if hw, ok := newHardware(); ok {
			defaultAuth = hw
		} else {
			defaultAuth = Software{}
		}
		log.WithField("hardware", defaultAuth.Enabled()).Debug("ptrauth: selected authenticator")
	})
	return defaultAuth
}

// Sign signs ptr with the process default Authenticator.
func Sign(ptr uintptr, key Key, discriminator uint64) uintptr {
	return Default().Sign(ptr, key, discriminator)
}

// Strip strips ptr with the process default Authenticator.
func Strip(ptr uintptr, key Key) uintptr {
	return Default().Strip(ptr, key)
}

// Blend blends ptr and discriminator with the process default Authenticator.
func Blend(ptr uintptr, discriminator uint64) uint64 {
	return Default().Blend(ptr, discriminator)
}

// Enabled reports whether the process default Authenticator is backed by hardware.
func Enabled() bool {
	return Default().Enabled()
}
