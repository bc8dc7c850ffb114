package swiftrt

import "unsafe"

const ptrSize = unsafe.Sizeof(uintptr(0))

// Shape is the C signature of a witness slot.
type Shape uint8

const (
	// ShapeCopy is void *(*)(void *dest, void *src, const Metadata *).
	ShapeCopy Shape = iota
	// ShapeUnary is void (*)(void *value, const Metadata *).
	ShapeUnary
	// ShapeGetTagSinglePayload is unsigned (*)(const void *value, unsigned emptyCases, const Metadata *).
	ShapeGetTagSinglePayload
	// ShapeStoreTagSinglePayload is void (*)(void *value, unsigned tag, unsigned emptyCases, const Metadata *).
	ShapeStoreTagSinglePayload
	// ShapeGetTag is unsigned (*)(const void *value, const Metadata *).
	ShapeGetTag
	// ShapeInjectTag is void (*)(void *value, unsigned tag, const Metadata *).
	ShapeInjectTag
)

// Arity is the number of arguments a witness of this shape takes, counting
// the trailing metadata pointer.
func (s Shape) Arity() int {
	switch s {
	case ShapeUnary, ShapeGetTag:
		return 2
	case ShapeCopy, ShapeGetTagSinglePayload, ShapeInjectTag:
		return 3
	case ShapeStoreTagSinglePayload:
		return 4
	}
	return 0
}

// Slot describes one function pointer of a value witness table.
type Slot struct {
	Name string
	// Index is the slot position in pointer-sized words from the table start.
	Index int
	// Discriminator is the constant the runtime blends with the slot address
	// when signing the pointer on arm64e.
	Discriminator uint16
	Shape         Shape
}

// Offset is the byte offset of the slot inside the table.
func (s Slot) Offset() uintptr {
	return uintptr(s.Index) * ptrSize
}

var (
	SlotInitializeBufferWithCopyOfBuffer = Slot{"initializeBufferWithCopyOfBuffer", 0, 0xda4a, ShapeCopy}
	SlotDestroy                          = Slot{"destroy", 1, 0x04f8, ShapeUnary}
	SlotInitializeWithCopy               = Slot{"initializeWithCopy", 2, 0xe3ba, ShapeCopy}
	SlotAssignWithCopy                   = Slot{"assignWithCopy", 3, 0x8751, ShapeCopy}
	SlotInitializeWithTake               = Slot{"initializeWithTake", 4, 0x48d8, ShapeCopy}
	SlotAssignWithTake                   = Slot{"assignWithTake", 5, 0xefda, ShapeCopy}
	SlotGetEnumTagSinglePayload          = Slot{"getEnumTagSinglePayload", 6, 0x60f0, ShapeGetTagSinglePayload}
	SlotStoreEnumTagSinglePayload        = Slot{"storeEnumTagSinglePayload", 7, 0xa0d1, ShapeStoreTagSinglePayload}

	// size, stride and flags/extraInhabitantCount occupy words 8, 9 and 10.
	// Word indexes assume a 64-bit target; flags and extraInhabitantCount
	// share word 10 as two uint32 fields.

	SlotGetEnumTag                 = Slot{"getEnumTag", 11, 0xa3b5, ShapeGetTag}
	SlotDestructiveProjectEnumData = Slot{"destructiveProjectEnumData", 12, 0x041d, ShapeUnary}
	SlotDestructiveInjectEnumTag   = Slot{"destructiveInjectEnumTag", 13, 0xb2e4, ShapeInjectTag}
)

// ValueWitnessSlots lists the function slots of a value witness table in layout order.
var ValueWitnessSlots = []Slot{
	SlotInitializeBufferWithCopyOfBuffer,
	SlotDestroy,
	SlotInitializeWithCopy,
	SlotAssignWithCopy,
	SlotInitializeWithTake,
	SlotAssignWithTake,
	SlotGetEnumTagSinglePayload,
	SlotStoreEnumTagSinglePayload,
}

// EnumValueWitnessSlots lists the function slots of an enum value witness table.
var EnumValueWitnessSlots = append(append([]Slot{}, ValueWitnessSlots...),
	SlotGetEnumTag,
	SlotDestructiveProjectEnumData,
	SlotDestructiveInjectEnumTag,
)

// Data field offsets.
var (
	sizeOffset                 = 8 * ptrSize
	strideOffset               = 9 * ptrSize
	flagsOffset                = 10 * ptrSize
	extraInhabitantCountOffset = 10*ptrSize + 4
)

// SlotByName looks up a slot of the enum schema (a superset of the base one).
func SlotByName(name string) (Slot, bool) {
	for _, s := range EnumValueWitnessSlots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}
