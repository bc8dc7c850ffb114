// Package stubs provides C stand-ins for metadata accessors and value witness
// tables so the swiftrt call paths can be exercised without a Swift runtime.
package stubs

/*
#include <stdint.h>
#include <stddef.h>
#include <string.h>

#if defined(__has_attribute)
#if __has_attribute(swiftcall)
#define SWIFTCC __attribute__((swiftcall))
#endif
#endif
#ifndef SWIFTCC
#define SWIFTCC
#endif

#if defined(__arm64e__)
#include <ptrauth.h>
#define RAW(fn) ((uintptr_t)ptrauth_strip((void *)(fn), ptrauth_key_function_pointer))
// A witness is stored signed with the function-pointer key and its slot
// discriminator blended with the slot address, as the runtime emits it.
#define WITNESS(t, i, fn) ((uintptr_t)ptrauth_sign_unauthenticated( \
    (void *)RAW(fn), ptrauth_key_function_pointer, \
    ptrauth_blend_discriminator(&(t)[i], slot_discriminators[i])))
#else
#define RAW(fn) ((uintptr_t)(fn))
#define WITNESS(t, i, fn) RAW(fn)
#endif

typedef struct { uintptr_t metadata; size_t state; } stub_response;

static SWIFTCC stub_response echo0(size_t req) {
    stub_response r = { 0xe0, req };
    return r;
}
static SWIFTCC stub_response echo1(size_t req, const void *a0) {
    stub_response r = { (uintptr_t)a0, req + 1 };
    return r;
}
static SWIFTCC stub_response echo2(size_t req, const void *a0, const void *a1) {
    stub_response r = { (uintptr_t)a0 ^ ((uintptr_t)a1 << 1), req + 2 };
    return r;
}
static SWIFTCC stub_response echo3(size_t req, const void *a0, const void *a1, const void *a2) {
    stub_response r = { (uintptr_t)a0 ^ ((uintptr_t)a1 << 1) ^ ((uintptr_t)a2 << 2), req + 3 };
    return r;
}
static SWIFTCC stub_response echoN(size_t req, const void *args) {
    const uintptr_t *a = (const uintptr_t *)args;
    stub_response r = { a[0] ^ (a[1] << 1) ^ (a[2] << 2) ^ (a[3] << 3), req + 4 };
    return r;
}

static uintptr_t stub_accessor(int arity) {
    switch (arity) {
    case 0: return RAW(echo0);
    case 1: return RAW(echo1);
    case 2: return RAW(echo2);
    case 3: return RAW(echo3);
    default: return RAW(echoN);
    }
}

#define NUM_SLOTS 14

// Per-slot discriminators by word index; words 8-10 hold layout data.
static const uint16_t slot_discriminators[NUM_SLOTS] = {
    0xda4a, 0x04f8, 0xe3ba, 0x8751, 0x48d8, 0xefda, 0x60f0, 0xa0d1,
    0, 0, 0,
    0xa3b5, 0x041d, 0xb2e4,
};

static int hits[NUM_SLOTS];
static uintptr_t last_args[4];

static void record(int slot, uintptr_t a0, uintptr_t a1, uintptr_t a2, uintptr_t a3) {
    hits[slot]++;
    last_args[0] = a0;
    last_args[1] = a1;
    last_args[2] = a2;
    last_args[3] = a3;
}

static void *w_init_buffer(void *d, void *s, const void *m) { record(0, (uintptr_t)d, (uintptr_t)s, (uintptr_t)m, 0); return d; }
static void w_destroy(void *v, const void *m) { record(1, (uintptr_t)v, (uintptr_t)m, 0, 0); }
static void *w_init_copy(void *d, void *s, const void *m) { record(2, (uintptr_t)d, (uintptr_t)s, (uintptr_t)m, 0); return (char *)d + 2; }
static void *w_assign_copy(void *d, void *s, const void *m) { record(3, (uintptr_t)d, (uintptr_t)s, (uintptr_t)m, 0); return (char *)d + 3; }
static void *w_init_take(void *d, void *s, const void *m) { record(4, (uintptr_t)d, (uintptr_t)s, (uintptr_t)m, 0); return (char *)d + 4; }
static void *w_assign_take(void *d, void *s, const void *m) { record(5, (uintptr_t)d, (uintptr_t)s, (uintptr_t)m, 0); return (char *)d + 5; }
static unsigned w_get_tag_single(const void *v, unsigned n, const void *m) { record(6, (uintptr_t)v, n, (uintptr_t)m, 0); return n + 6; }
static void w_store_tag_single(void *v, unsigned t, unsigned n, const void *m) { record(7, (uintptr_t)v, t, n, (uintptr_t)m); }
static unsigned w_get_tag(const void *v, const void *m) { record(11, (uintptr_t)v, (uintptr_t)m, 0, 0); return 11; }
static void w_project(void *v, const void *m) { record(12, (uintptr_t)v, (uintptr_t)m, 0, 0); }
static void w_inject(void *v, unsigned t, const void *m) { record(13, (uintptr_t)v, t, (uintptr_t)m, 0); }

// 11 words for the base table, 14 for the enum table. The base table leaves the
// enum words zeroed.
static uintptr_t base_table[NUM_SLOTS];
static uintptr_t enum_table[NUM_SLOTS];

static void fill(uintptr_t *t, int with_enum) {
    t[0] = WITNESS(t, 0, w_init_buffer);
    t[1] = WITNESS(t, 1, w_destroy);
    t[2] = WITNESS(t, 2, w_init_copy);
    t[3] = WITNESS(t, 3, w_assign_copy);
    t[4] = WITNESS(t, 4, w_init_take);
    t[5] = WITNESS(t, 5, w_assign_take);
    t[6] = WITNESS(t, 6, w_get_tag_single);
    t[7] = WITNESS(t, 7, w_store_tag_single);
    t[8] = 24;
    t[9] = 32;
    uint32_t flags = 0x7 | (with_enum ? 0x00200000 : 0) | 0x00010000;
    uint32_t xi = 0xfe;
    memcpy((char *)&t[10], &flags, 4);
    memcpy((char *)&t[10] + 4, &xi, 4);
    if (with_enum) {
        t[11] = WITNESS(t, 11, w_get_tag);
        t[12] = WITNESS(t, 12, w_project);
        t[13] = WITNESS(t, 13, w_inject);
    }
}

static uintptr_t stub_table(int with_enum) {
    uintptr_t *t = with_enum ? enum_table : base_table;
    fill(t, with_enum);
    return (uintptr_t)t;
}

// Type metadata is preceded by its value witness table pointer.
static uintptr_t metadata_record[2];

static uintptr_t stub_metadata(uintptr_t table) {
    metadata_record[0] = table;
    metadata_record[1] = 0x200; // struct kind
    return (uintptr_t)&metadata_record[1];
}

static void stub_reset(void) {
    memset(hits, 0, sizeof(hits));
    memset(last_args, 0, sizeof(last_args));
}

static int stub_discriminator(int slot) { return slot >= 0 && slot < NUM_SLOTS ? slot_discriminators[slot] : -1; }
static int stub_hits(int slot) { return slot >= 0 && slot < NUM_SLOTS ? hits[slot] : 0; }
static uintptr_t stub_last_arg(int i) { return i >= 0 && i < 4 ? last_args[i] : 0; }
*/
import "C"

// Slots is the number of words in the enum stand-in table.
const Slots = 14

// EchoAccessor returns a stub accessor for arity key arguments (anything above
// three selects the array form, which reads four words). The stubs return:
//
//	0: {0xe0, req}
//	1: {a0, req+1}
//	2: {a0 ^ a1<<1, req+2}
//	3: {a0 ^ a1<<1 ^ a2<<2, req+3}
//	N: {a0 ^ a1<<1 ^ a2<<2 ^ a3<<3, req+4}
func EchoAccessor(arity int) uintptr {
	return uintptr(C.stub_accessor(C.int(arity)))
}

// ValueWitnessTable returns a base table whose slots record their index.
func ValueWitnessTable() uintptr {
	return uintptr(C.stub_table(0))
}

// EnumValueWitnessTable returns an enum table whose slots record their index.
func EnumValueWitnessTable() uintptr {
	return uintptr(C.stub_table(1))
}

// Metadata returns a fake struct metadata record whose value witness table is table.
func Metadata(table uintptr) uintptr {
	return uintptr(C.stub_metadata(C.uintptr_t(table)))
}

// Reset clears the hit counters.
func Reset() {
	C.stub_reset()
}

// Discriminator returns the discriminator the stand-in tables sign the slot at
// word index slot with, or -1 when out of range.
func Discriminator(slot int) int {
	return int(C.stub_discriminator(C.int(slot)))
}

// Hits returns how many times the slot at word index slot was called since Reset.
func Hits(slot int) int {
	return int(C.stub_hits(C.int(slot)))
}

// LastArgs returns the arguments of the most recent slot call.
func LastArgs() [4]uintptr {
	var args [4]uintptr
	for i := range args {
		args[i] = uintptr(C.stub_last_arg(C.int(i)))
	}
	return args
}
