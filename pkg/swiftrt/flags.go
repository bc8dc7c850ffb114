package swiftrt

import "fmt"

// ValueWitnessFlags is the flags word of a value witness table.
type ValueWitnessFlags uint32

const (
	FlagAlignmentMask          ValueWitnessFlags = 0x0000_00ff
	FlagIsNonPOD               ValueWitnessFlags = 0x0001_0000
	FlagIsNonInline            ValueWitnessFlags = 0x0002_0000
	FlagHasSpareBits           ValueWitnessFlags = 0x0008_0000
	FlagIsNonBitwiseTakable    ValueWitnessFlags = 0x0010_0000
	FlagHasEnumWitnesses       ValueWitnessFlags = 0x0020_0000
	FlagIncomplete             ValueWitnessFlags = 0x0040_0000
	FlagIsNonCopyable          ValueWitnessFlags = 0x0080_0000
	FlagIsNonBitwiseBorrowable ValueWitnessFlags = 0x0100_0000
)

// MaxNumExtraInhabitants is the largest extra inhabitant count a table may report.
const MaxNumExtraInhabitants = 0x7fff_ffff

func (f ValueWitnessFlags) AlignmentMask() uint64 { return uint64(f & FlagAlignmentMask) }
func (f ValueWitnessFlags) Alignment() uint64     { return f.AlignmentMask() + 1 }
func (f ValueWitnessFlags) IsPOD() bool           { return f&FlagIsNonPOD == 0 }
func (f ValueWitnessFlags) IsInlineStorage() bool { return f&FlagIsNonInline == 0 }
func (f ValueWitnessFlags) HasSpareBits() bool    { return f&FlagHasSpareBits != 0 }
func (f ValueWitnessFlags) IsBitwiseTakable() bool {
	return f&FlagIsNonBitwiseTakable == 0
}
func (f ValueWitnessFlags) IsBitwiseBorrowable() bool {
	return f&FlagIsNonBitwiseBorrowable == 0 && f.IsBitwiseTakable()
}
func (f ValueWitnessFlags) IsCopyable() bool       { return f&FlagIsNonCopyable == 0 }
func (f ValueWitnessFlags) HasEnumWitnesses() bool { return f&FlagHasEnumWitnesses != 0 }
func (f ValueWitnessFlags) IsIncomplete() bool     { return f&FlagIncomplete != 0 }

// TypeLayout is the data part of a value witness table.
type TypeLayout struct {
	Size                 uint64
	Stride               uint64
	Flags                ValueWitnessFlags
	ExtraInhabitantCount uint32
}

func (l TypeLayout) String() string {
	return fmt.Sprintf("TypeLayout(size: %d, stride: %d, alignment: %d, extraInhabitantCount: %d)",
		l.Size, l.Stride, l.Flags.Alignment(), l.ExtraInhabitantCount)
}

// Verbose renders the layout together with every decoded flag.
func (l TypeLayout) Verbose() string {
	s := l.String()
	return fmt.Sprintf("%s, isPOD: %t, isInlineStorage: %t, isBitwiseTakable: %t, isBitwiseBorrowable: %t, isCopyable: %t, hasEnumWitnesses: %t, isIncomplete: %t)",
		s[:len(s)-1],
		l.Flags.IsPOD(),
		l.Flags.IsInlineStorage(),
		l.Flags.IsBitwiseTakable(),
		l.Flags.IsBitwiseBorrowable(),
		l.Flags.IsCopyable(),
		l.Flags.HasEnumWitnesses(),
		l.Flags.IsIncomplete())
}
