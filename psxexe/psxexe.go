// Package psxexe validates and reads PS-X EXE headers: the side-loaded
// executable container the ctx package injects into RAM once the BIOS
// shell has reached its hand-off point.
package psxexe

import (
	"encoding/binary"
)

// Header field byte offsets within a PS-X EXE image, and the fixed sizes
// derived from them.
const (
	OffsetID       = 0x00
	OffsetPC       = 0x10
	OffsetGP       = 0x14
	OffsetDest     = 0x18
	OffsetSize     = 0x1C
	OffsetSPFPBase = 0x30
	OffsetSPFPOffs = 0x34

	HeaderSize = 0x800
)

var magic = [...]byte{'P', 'S', '-', 'X', ' ', 'E', 'X', 'E', 0x00}

// Valid reports whether data is a well-formed PS-X EXE image: at least
// HeaderSize bytes, the 9-byte "PS-X EXE\x00" magic (the trailing NUL
// included, rather than a looser 8-byte comparison), and a size field
// matching the payload's actual length.
func Valid(data []byte) bool {
	if len(data) < HeaderSize {
		return false
	}
	if string(data[OffsetID:OffsetID+len(magic)]) != string(magic[:]) {
		return false
	}
	return Size(data) == uint32(len(data)-HeaderSize)
}

func word(data []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(data[offset : offset+4])
}

// PC returns the entry-point address a loader should set CPU PC/NPC to.
func PC(data []byte) uint32 { return word(data, OffsetPC) }

// GP returns the initial value for GPR gp.
func GP(data []byte) uint32 { return word(data, OffsetGP) }

// Dest returns the RAM destination address the payload is copied to.
func Dest(data []byte) uint32 { return word(data, OffsetDest) }

// Size returns the declared payload size in bytes.
func Size(data []byte) uint32 { return word(data, OffsetSize) }

// SPFPBase returns the base used to derive initial sp/fp, or 0 if the
// header does not request it.
func SPFPBase(data []byte) uint32 { return word(data, OffsetSPFPBase) }

// SPFPOffs returns the offset added to SPFPBase for the initial sp/fp.
func SPFPOffs(data []byte) uint32 { return word(data, OffsetSPFPOffs) }

// Payload returns the data segment following the fixed-size header.
func Payload(data []byte) []byte { return data[HeaderSize:] }
