//go:build cgo

package swiftrt

import (
	"strings"
	"testing"

	"github.com/blacktop/swiftbridge/pkg/swiftrt/internal/stubs"
)

// expectOnly fails unless slot (a word index) was the only slot called.
func expectOnly(t *testing.T, slot int) {
	t.Helper()
	for i := 0; i < stubs.Slots; i++ {
		want := 0
		if i == slot {
			want = 1
		}
		if got := stubs.Hits(i); got != want {
			t.Errorf("slot %d called %d times, want %d", i, got, want)
		}
	}
}

func TestValueWitnessDispatch(t *testing.T) {
	vwt := NewValueWitnessTable(stubs.ValueWitnessTable())
	const (
		dest = uintptr(0x1000)
		src  = uintptr(0x2000)
		md   = uintptr(0x3000)
	)
	tests := []struct {
		slot Slot
		call func() uintptr
		want uintptr
		args [4]uintptr
	}{
		{SlotInitializeBufferWithCopyOfBuffer, func() uintptr { return vwt.InitializeBufferWithCopyOfBuffer(dest, src, md) }, dest, [4]uintptr{dest, src, md}},
		{SlotDestroy, func() uintptr { vwt.Destroy(dest, md); return 0 }, 0, [4]uintptr{dest, md}},
		{SlotInitializeWithCopy, func() uintptr { return vwt.InitializeWithCopy(dest, src, md) }, dest + 2, [4]uintptr{dest, src, md}},
		{SlotAssignWithCopy, func() uintptr { return vwt.AssignWithCopy(dest, src, md) }, dest + 3, [4]uintptr{dest, src, md}},
		{SlotInitializeWithTake, func() uintptr { return vwt.InitializeWithTake(dest, src, md) }, dest + 4, [4]uintptr{dest, src, md}},
		{SlotAssignWithTake, func() uintptr { return vwt.AssignWithTake(dest, src, md) }, dest + 5, [4]uintptr{dest, src, md}},
		{SlotGetEnumTagSinglePayload, func() uintptr { return uintptr(vwt.GetEnumTagSinglePayload(dest, 3, md)) }, 9, [4]uintptr{dest, 3, md}},
		{SlotStoreEnumTagSinglePayload, func() uintptr { vwt.StoreEnumTagSinglePayload(dest, 2, 5, md); return 0 }, 0, [4]uintptr{dest, 2, 5, md}},
	}
	for _, tt := range tests {
		t.Run(tt.slot.Name, func(t *testing.T) {
			stubs.Reset()
			if got := tt.call(); got != tt.want {
				t.Errorf("%s() = %#x, want %#x", tt.slot.Name, got, tt.want)
			}
			expectOnly(t, tt.slot.Index)
			if got := stubs.LastArgs(); got != tt.args {
				t.Errorf("%s() passed %#x, want %#x", tt.slot.Name, got, tt.args)
			}
		})
	}
}

func TestEnumValueWitnessDispatch(t *testing.T) {
	vwt := NewEnumValueWitnessTable(stubs.EnumValueWitnessTable())
	const (
		value = uintptr(0x5000)
		md    = uintptr(0x6000)
	)
	tests := []struct {
		slot Slot
		call func() uintptr
		want uintptr
	}{
		{SlotGetEnumTag, func() uintptr { return uintptr(vwt.GetEnumTag(value, md)) }, 11},
		{SlotDestructiveProjectEnumData, func() uintptr { vwt.DestructiveProjectEnumData(value, md); return 0 }, 0},
		{SlotDestructiveInjectEnumTag, func() uintptr { vwt.DestructiveInjectEnumTag(value, 4, md); return 0 }, 0},
		{SlotDestroy, func() uintptr { vwt.Destroy(value, md); return 0 }, 0},
		{SlotInitializeWithTake, func() uintptr { return vwt.InitializeWithTake(value, value+8, md) }, value + 4},
	}
	for _, tt := range tests {
		t.Run(tt.slot.Name, func(t *testing.T) {
			stubs.Reset()
			if got := tt.call(); got != tt.want {
				t.Errorf("%s() = %#x, want %#x", tt.slot.Name, got, tt.want)
			}
			expectOnly(t, tt.slot.Index)
		})
	}
	if got := stubs.LastArgs(); got[0] != value {
		t.Errorf("last value = %#x, want %#x", got[0], value)
	}
}

func TestInvokeEverySlot(t *testing.T) {
	vwt := NewValueWitnessTable(stubs.EnumValueWitnessTable())
	for _, slot := range EnumValueWitnessSlots {
		t.Run(slot.Name, func(t *testing.T) {
			stubs.Reset()
			args := []uintptr{0x100, 0x1, 0x2, 0x300}[:slot.Shape.Arity()]
			if _, err := vwt.Invoke(slot, args...); err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			expectOnly(t, slot.Index)
		})
	}
	if _, err := vwt.Invoke(SlotDestroy, 1, 2, 3); err == nil {
		t.Error("Invoke() with wrong arity should fail")
	}
}

// The stand-in tables sign every witness the way the runtime does on arm64e,
// so dispatch only reaches them when the schema discriminators agree.
func TestStubDiscriminatorsMatchSchema(t *testing.T) {
	for _, slot := range EnumValueWitnessSlots {
		if got := stubs.Discriminator(slot.Index); got != int(slot.Discriminator) {
			t.Errorf("%s signed with %#x, schema says %#x", slot.Name, got, slot.Discriminator)
		}
	}
	if got := stubs.Discriminator(stubs.Slots); got != -1 {
		t.Errorf("Discriminator(out of range) = %d, want -1", got)
	}
}

func TestLayout(t *testing.T) {
	vwt := NewValueWitnessTable(stubs.ValueWitnessTable())
	got := vwt.Layout()
	want := TypeLayout{Size: 24, Stride: 32, Flags: 0x0001_0007, ExtraInhabitantCount: 0xfe}
	if got != want {
		t.Fatalf("Layout() = %+v, want %+v", got, want)
	}
	if got.Flags.Alignment() != 8 || got.Flags.IsPOD() || !got.Flags.IsInlineStorage() {
		t.Errorf("flags decoded wrong: %s", got.Verbose())
	}
	if _, ok := vwt.AsEnum(); ok {
		t.Error("base table reported enum witnesses")
	}
	if _, ok := NewValueWitnessTable(stubs.EnumValueWitnessTable()).AsEnum(); !ok {
		t.Error("enum table did not report enum witnesses")
	}
	if s := got.String(); !strings.Contains(s, "alignment: 8") {
		t.Errorf("String() = %q", s)
	}
}

func TestValueWitnessTableForMetadata(t *testing.T) {
	table := stubs.ValueWitnessTable()
	md := stubs.Metadata(table)
	if got := ValueWitnessTableForMetadata(md).Address(); got != table {
		t.Errorf("ValueWitnessTableForMetadata() = %#x, want %#x", got, table)
	}
}

func TestInvokeUnknownShape(t *testing.T) {
	bogus := Slot{Name: "bogus", Index: 0, Shape: Shape(99)}
	if _, err := NewValueWitnessTable(0).Invoke(bogus); err == nil {
		t.Error("Invoke() with an unknown shape should fail")
	}
}
