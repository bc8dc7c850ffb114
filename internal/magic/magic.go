// Package magic identifies Swift image containers by their leading bytes.
package magic

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type Magic uint32

const (
	Magic32    Magic = 0xfeedface
	Magic64    Magic = 0xfeedfacf
	MagicFatBE Magic = 0xcafebabe
	MagicFatLE Magic = 0xbebafeca
	MagicELF   Magic = 0x464c457f // "\x7fELF"
)

// Format is the container format of an image.
type Format uint8

const (
	Unknown Format = iota
	MachO
	Fat
	ELF
)

func (f Format) String() string {
	switch f {
	case MachO:
		return "MachO"
	case Fat:
		return "universal MachO"
	case ELF:
		return "ELF"
	default:
		return "unknown"
	}
}

// Identify reads the magic of filePath.
func Identify(filePath string) (Format, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Unknown, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err = io.ReadFull(f, magic[:]); err != nil {
		return Unknown, fmt.Errorf("failed to read magic: %w", err)
	}

	switch Magic(binary.LittleEndian.Uint32(magic[:])) {
	case Magic32, Magic64:
		return MachO, nil
	case MagicFatBE, MagicFatLE:
		return Fat, nil
	case MagicELF:
		return ELF, nil
	}
	return Unknown, nil
}

func IsMachO(filePath string) (bool, error) {
	format, err := Identify(filePath)
	if err != nil {
		return false, err
	}
	switch format {
	case MachO, Fat:
		return true, nil
	default:
		return false, fmt.Errorf("not a macho file")
	}
}
