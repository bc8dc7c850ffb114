//go:build cgo

package ptrauth

/*
#include <stdint.h>

#if defined(__arm64e__)
#include <ptrauth.h>

static int sb_ptrauth_available(void) { return 1; }

static uintptr_t sb_ptrauth_sign(uintptr_t ptr, int key, uint64_t disc) {
    void *p = (void *)ptr;
    switch (key) {
    case 0: return (uintptr_t)ptrauth_sign_unauthenticated(p, ptrauth_key_asia, disc);
    case 1: return (uintptr_t)ptrauth_sign_unauthenticated(p, ptrauth_key_asib, disc);
    case 2: return (uintptr_t)ptrauth_sign_unauthenticated(p, ptrauth_key_asda, disc);
    case 3: return (uintptr_t)ptrauth_sign_unauthenticated(p, ptrauth_key_asdb, disc);
    default: return ptr;
    }
}

static uintptr_t sb_ptrauth_strip(uintptr_t ptr, int key) {
    void *p = (void *)ptr;
    switch (key) {
    case 0: return (uintptr_t)ptrauth_strip(p, ptrauth_key_asia);
    case 1: return (uintptr_t)ptrauth_strip(p, ptrauth_key_asib);
    case 2: return (uintptr_t)ptrauth_strip(p, ptrauth_key_asda);
    case 3: return (uintptr_t)ptrauth_strip(p, ptrauth_key_asdb);
    default: return ptr;
    }
}

static uint64_t sb_ptrauth_blend(uintptr_t ptr, uint64_t disc) {
    return (uint64_t)ptrauth_blend_discriminator((void *)ptr, disc);
}
#else
static int sb_ptrauth_available(void) { return 0; }
static uintptr_t sb_ptrauth_sign(uintptr_t ptr, int key, uint64_t disc) { return ptr; }
static uintptr_t sb_ptrauth_strip(uintptr_t ptr, int key) { return ptr; }
static uint64_t sb_ptrauth_blend(uintptr_t ptr, uint64_t disc) { return 0; }
#endif
*/
import "C"

type hardware struct{}

func newHardware() (Authenticator, bool) {
	if C.sb_ptrauth_available() == 0 {
		return nil, false
	}
	return hardware{}, true
}

func (hardware) Sign(ptr uintptr, key Key, discriminator uint64) uintptr {
	return uintptr(C.sb_ptrauth_sign(C.uintptr_t(ptr), C.int(key), C.uint64_t(discriminator)))
}

func (hardware) Strip(ptr uintptr, key Key) uintptr {
	return uintptr(C.sb_ptrauth_strip(C.uintptr_t(ptr), C.int(key)))
}

func (hardware) Blend(ptr uintptr, discriminator uint64) uint64 {
	return uint64(C.sb_ptrauth_blend(C.uintptr_t(ptr), C.uint64_t(discriminator)))
}

func (hardware) Enabled() bool { return true }
