// Package bus implements the address-decoded physical bus the LR33300
// core uses to fetch instructions and perform loads/stores. It owns a
// borrowed RAM buffer (lifetime is the caller's responsibility) and an
// owned, immutable-after-load BIOS image.
package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/lunaspis-go/psycho/dbglog"
)

// Physical address map.
const (
	RAMBeg  = 0x00000000
	RAMEnd  = 0x001FFFFF
	RAMSize = RAMEnd - RAMBeg + 1

	BIOSBeg  = 0x1FC00000
	BIOSEnd  = 0x1FC7FFFF
	BIOSSize = 512 * 1024

	biosMask = 0x000FFFFF
)

// Bus decodes physical addresses against the RAM and BIOS regions. No
// other region is recognised; loads there return all-ones and stores are
// dropped, both logged at Warn.
type Bus struct {
	bios [BIOSSize]byte
	ram  []byte

	log dbglog.Binding
}

// New creates a Bus over the given RAM buffer, which must be at least
// RAMSize bytes and is borrowed (not copied) for the Bus's lifetime. The
// BIOS store starts zeroed; call LoadBIOS before fetching through it.
func New(ram []byte, log dbglog.Binding) (*Bus, error) {
	if len(ram) < RAMSize {
		return nil, fmt.Errorf("bus: RAM buffer too small: got %d bytes, need at least %d", len(ram), RAMSize)
	}
	return &Bus{ram: ram, log: log}, nil
}

// LoadBIOS copies a raw BIOS image into the bus's BIOS store. The image
// must be exactly BIOSSize bytes, matching the "512 KiB binary" external
// interface; anything else is a load-time error left to the caller.
func (b *Bus) LoadBIOS(data []byte) error {
	if len(data) != BIOSSize {
		return fmt.Errorf("bus: BIOS image must be exactly %d bytes, got %d", BIOSSize, len(data))
	}
	copy(b.bios[:], data)
	return nil
}

func inRange(paddr, beg, end uint32) bool { return paddr >= beg && paddr <= end }

// LoadWord returns the little-endian word at paddr.
func (b *Bus) LoadWord(paddr uint32) uint32 {
	switch {
	case inRange(paddr, RAMBeg, RAMEnd):
		word := binary.LittleEndian.Uint32(b.ram[paddr : paddr+4])
		b.log.Logf(dbglog.Trace, "Loaded word 0x%08X from physical address 0x%08X", word, paddr)
		return word

	case inRange(paddr, BIOSBeg, BIOSEnd):
		off := paddr & biosMask
		word := binary.LittleEndian.Uint32(b.bios[off : off+4])
		b.log.Logf(dbglog.Trace, "Loaded word 0x%08X from physical address 0x%08X", word, paddr)
		return word

	default:
		b.log.Logf(dbglog.Warn, "Unknown physical address 0x%08X when attempting to load word; returning 0xFFFFFFFF", paddr)
		return 0xFFFFFFFF
	}
}

// LoadHalf returns the little-endian halfword at paddr.
func (b *Bus) LoadHalf(paddr uint32) uint16 {
	switch {
	case inRange(paddr, RAMBeg, RAMEnd):
		half := binary.LittleEndian.Uint16(b.ram[paddr : paddr+2])
		b.log.Logf(dbglog.Trace, "Loaded half-word 0x%04X from physical address 0x%08X", half, paddr)
		return half

	case inRange(paddr, BIOSBeg, BIOSEnd):
		off := paddr & biosMask
		half := binary.LittleEndian.Uint16(b.bios[off : off+2])
		b.log.Logf(dbglog.Trace, "Loaded half-word 0x%04X from physical address 0x%08X", half, paddr)
		return half

	default:
		b.log.Logf(dbglog.Warn, "Unknown physical address 0x%08X when attempting to load half-word; returning 0xFFFF", paddr)
		return 0xFFFF
	}
}

// LoadByte returns the byte at paddr.
func (b *Bus) LoadByte(paddr uint32) uint8 {
	switch {
	case inRange(paddr, RAMBeg, RAMEnd):
		byt := b.ram[paddr]
		b.log.Logf(dbglog.Trace, "Loaded byte 0x%02X from physical address 0x%08X", byt, paddr)
		return byt

	case inRange(paddr, BIOSBeg, BIOSEnd):
		byt := b.bios[paddr&biosMask]
		b.log.Logf(dbglog.Trace, "Loaded byte 0x%02X from physical address 0x%08X", byt, paddr)
		return byt

	default:
		b.log.Logf(dbglog.Warn, "Unknown physical address 0x%08X when attempting to load byte; returning 0xFF", paddr)
		return 0xFF
	}
}

// StoreWord writes word little-endian at paddr. RAM is the only writable
// region; BIOS and unknown addresses are dropped with a Warn log.
func (b *Bus) StoreWord(paddr, word uint32) {
	if inRange(paddr, RAMBeg, RAMEnd) {
		binary.LittleEndian.PutUint32(b.ram[paddr:paddr+4], word)
		b.log.Logf(dbglog.Trace, "Stored word 0x%08X at physical address 0x%08X", word, paddr)
		return
	}
	b.log.Logf(dbglog.Warn, "Unknown physical address 0x%08X when attempting to store word 0x%08X; ignoring", paddr, word)
}

// StoreHalf writes half little-endian at paddr, committing RAM
// half-word stores just like StoreWord and StoreByte; BIOS and unknown
// addresses are still dropped with a Warn log.
func (b *Bus) StoreHalf(paddr uint32, half uint16) {
	if inRange(paddr, RAMBeg, RAMEnd) {
		binary.LittleEndian.PutUint16(b.ram[paddr:paddr+2], half)
		b.log.Logf(dbglog.Trace, "Stored half-word 0x%04X at physical address 0x%08X", half, paddr)
		return
	}
	b.log.Logf(dbglog.Warn, "Unknown physical address 0x%08X when attempting to store half-word 0x%04X; ignoring", paddr, half)
}

// StoreByte writes byte at paddr.
func (b *Bus) StoreByte(paddr uint32, byt uint8) {
	if inRange(paddr, RAMBeg, RAMEnd) {
		b.ram[paddr] = byt
		b.log.Logf(dbglog.Trace, "Stored byte 0x%02X at physical address 0x%08X", byt, paddr)
		return
	}
	b.log.Logf(dbglog.Warn, "Unknown physical address 0x%08X when attempting to store byte 0x%02X; ignoring", paddr, byt)
}

// RAM returns the borrowed RAM buffer backing this bus, for callers (such
// as the EXE loader) that need to copy bytes in directly.
func (b *Bus) RAM() []byte { return b.ram }
