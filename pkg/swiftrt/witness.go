package swiftrt

/*
#include "swiftrt.h"
*/
import "C"

import (
	"fmt"

	"github.com/blacktop/swiftbridge/pkg/ptrauth"
)

// ValueWitnessTable is a read-only view of a value witness table living in
// foreign memory.
type ValueWitnessTable struct {
	addr uintptr
}

// NewValueWitnessTable views addr as a value witness table.
func NewValueWitnessTable(addr uintptr) ValueWitnessTable {
	return ValueWitnessTable{addr: addr}
}

// ValueWitnessTableForMetadata returns the table stored in the word just before
// a type metadata record. On arm64e that pointer is signed with the ASDA key.
func ValueWitnessTableForMetadata(metadata uintptr) ValueWitnessTable {
	word := uintptr(C.swiftrt_load_word(C.uintptr_t(metadata - ptrSize)))
	return NewValueWitnessTable(ptrauth.Strip(word, ptrauth.ProcessIndependentData))
}

// Address is the table's address.
func (t ValueWitnessTable) Address() uintptr { return t.addr }

// Layout reads the size, stride, flags and extra inhabitant count.
func (t ValueWitnessTable) Layout() TypeLayout {
	return TypeLayout{
		Size:                 uint64(C.swiftrt_load_word(C.uintptr_t(t.addr + sizeOffset))),
		Stride:               uint64(C.swiftrt_load_word(C.uintptr_t(t.addr + strideOffset))),
		Flags:                ValueWitnessFlags(C.swiftrt_load_u32(C.uintptr_t(t.addr + flagsOffset))),
		ExtraInhabitantCount: uint32(C.swiftrt_load_u32(C.uintptr_t(t.addr + extraInhabitantCountOffset))),
	}
}

// AsEnum returns the enum view of the table when its flags say it has enum witnesses.
func (t ValueWitnessTable) AsEnum() (EnumValueWitnessTable, bool) {
	if !t.Layout().Flags.HasEnumWitnesses() {
		return EnumValueWitnessTable{}, false
	}
	return EnumValueWitnessTable{t}, true
}

// discriminator is the slot constant blended with the slot's own address.
func (t ValueWitnessTable) discriminator(s Slot) C.uint64_t {
	return C.uint64_t(ptrauth.Blend(t.addr+s.Offset(), uint64(s.Discriminator)))
}

func (t ValueWitnessTable) copyWitness(s Slot, dest, src, metadata uintptr) uintptr {
	return uintptr(C.swiftrt_vwt_copy(C.uintptr_t(t.addr), C.size_t(s.Offset()), t.discriminator(s),
		C.uintptr_t(dest), C.uintptr_t(src), C.uintptr_t(metadata)))
}

func (t ValueWitnessTable) unaryWitness(s Slot, value, metadata uintptr) {
	C.swiftrt_vwt_unary(C.uintptr_t(t.addr), C.size_t(s.Offset()), t.discriminator(s),
		C.uintptr_t(value), C.uintptr_t(metadata))
}

// Invoke calls slot s with args laid out in the slot's C parameter order and
// returns the result widened to uintptr (0 for void slots).
func (t ValueWitnessTable) Invoke(s Slot, args ...uintptr) (uintptr, error) {
	want := s.Shape.Arity()
	if len(args) != want {
		return 0, fmt.Errorf("value witness %s takes %d arguments, got %d", s.Name, want, len(args))
	}
	disc := t.discriminator(s)
	table, off := C.uintptr_t(t.addr), C.size_t(s.Offset())
	switch s.Shape {
	case ShapeCopy:
		return t.copyWitness(s, args[0], args[1], args[2]), nil
	case ShapeUnary:
		t.unaryWitness(s, args[0], args[1])
		return 0, nil
	case ShapeGetTagSinglePayload:
		return uintptr(C.swiftrt_vwt_get_tag_single_payload(table, off, disc,
			C.uintptr_t(args[0]), C.uint(args[1]), C.uintptr_t(args[2]))), nil
	case ShapeStoreTagSinglePayload:
		C.swiftrt_vwt_store_tag_single_payload(table, off, disc,
			C.uintptr_t(args[0]), C.uint(args[1]), C.uint(args[2]), C.uintptr_t(args[3]))
		return 0, nil
	case ShapeGetTag:
		return uintptr(C.swiftrt_vwt_get_tag(table, off, disc, C.uintptr_t(args[0]), C.uintptr_t(args[1]))), nil
	case ShapeInjectTag:
		C.swiftrt_vwt_inject_tag(table, off, disc, C.uintptr_t(args[0]), C.uint(args[1]), C.uintptr_t(args[2]))
		return 0, nil
	}
	return 0, fmt.Errorf("unknown witness shape %d for %s", s.Shape, s.Name)
}

// InitializeBufferWithCopyOfBuffer copies the value in src into the fixed-size buffer dest.
func (t ValueWitnessTable) InitializeBufferWithCopyOfBuffer(dest, src, metadata uintptr) uintptr {
	return t.copyWitness(SlotInitializeBufferWithCopyOfBuffer, dest, src, metadata)
}

// Destroy destroys the value at value.
func (t ValueWitnessTable) Destroy(value, metadata uintptr) {
	t.unaryWitness(SlotDestroy, value, metadata)
}

// InitializeWithCopy copy-initializes dest from src.
func (t ValueWitnessTable) InitializeWithCopy(dest, src, metadata uintptr) uintptr {
	return t.copyWitness(SlotInitializeWithCopy, dest, src, metadata)
}

// AssignWithCopy copy-assigns src over dest.
func (t ValueWitnessTable) AssignWithCopy(dest, src, metadata uintptr) uintptr {
	return t.copyWitness(SlotAssignWithCopy, dest, src, metadata)
}

// InitializeWithTake move-initializes dest from src.
func (t ValueWitnessTable) InitializeWithTake(dest, src, metadata uintptr) uintptr {
	return t.copyWitness(SlotInitializeWithTake, dest, src, metadata)
}

// AssignWithTake move-assigns src over dest.
func (t ValueWitnessTable) AssignWithTake(dest, src, metadata uintptr) uintptr {
	return t.copyWitness(SlotAssignWithTake, dest, src, metadata)
}

// GetEnumTagSinglePayload returns the case tag of a single-payload enum whose
// payload has this table.
func (t ValueWitnessTable) GetEnumTagSinglePayload(value uintptr, emptyCases uint32, metadata uintptr) uint32 {
	s := SlotGetEnumTagSinglePayload
	return uint32(C.swiftrt_vwt_get_tag_single_payload(C.uintptr_t(t.addr), C.size_t(s.Offset()), t.discriminator(s),
		C.uintptr_t(value), C.uint(emptyCases), C.uintptr_t(metadata)))
}

// StoreEnumTagSinglePayload stores tag into a single-payload enum value.
func (t ValueWitnessTable) StoreEnumTagSinglePayload(value uintptr, tag, emptyCases uint32, metadata uintptr) {
	s := SlotStoreEnumTagSinglePayload
	C.swiftrt_vwt_store_tag_single_payload(C.uintptr_t(t.addr), C.size_t(s.Offset()), t.discriminator(s),
		C.uintptr_t(value), C.uint(tag), C.uint(emptyCases), C.uintptr_t(metadata))
}

// EnumValueWitnessTable is a value witness table followed by the three enum
// witnesses. Callers must know the table has them.
type EnumValueWitnessTable struct {
	ValueWitnessTable
}

// NewEnumValueWitnessTable views addr as an enum value witness table.
func NewEnumValueWitnessTable(addr uintptr) EnumValueWitnessTable {
	return EnumValueWitnessTable{NewValueWitnessTable(addr)}
}

// GetEnumTag returns the case index of the enum value.
func (t EnumValueWitnessTable) GetEnumTag(value, metadata uintptr) uint32 {
	s := SlotGetEnumTag
	return uint32(C.swiftrt_vwt_get_tag(C.uintptr_t(t.addr), C.size_t(s.Offset()), t.discriminator(s),
		C.uintptr_t(value), C.uintptr_t(metadata)))
}

// DestructiveProjectEnumData strips tag bits so the payload can be read in place.
func (t EnumValueWitnessTable) DestructiveProjectEnumData(value, metadata uintptr) {
	t.unaryWitness(SlotDestructiveProjectEnumData, value, metadata)
}

// DestructiveInjectEnumTag writes tag into a value whose payload is already initialized.
func (t EnumValueWitnessTable) DestructiveInjectEnumTag(value uintptr, tag uint32, metadata uintptr) {
	s := SlotDestructiveInjectEnumTag
	C.swiftrt_vwt_inject_tag(C.uintptr_t(t.addr), C.size_t(s.Offset()), t.discriminator(s),
		C.uintptr_t(value), C.uint(tag), C.uintptr_t(metadata))
}
