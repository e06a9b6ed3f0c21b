package bus

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/lunaspis-go/psycho/dbglog"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b, err := New(make([]byte, RAMSize), dbglog.Binding{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := b.LoadBIOS(make([]byte, BIOSSize)); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}
	return b
}

func TestRAMRoundTrip(t *testing.T) {
	b := newTestBus(t)

	b.StoreWord(0x100, 0xDEADBEEF)
	if got := b.LoadWord(0x100); got != 0xDEADBEEF {
		t.Errorf("LoadWord(0x100) = 0x%08X, want 0xDEADBEEF\n%s", got, spew.Sdump(b))
	}

	b.StoreHalf(0x200, 0xCAFE)
	if got := b.LoadHalf(0x200); got != 0xCAFE {
		t.Errorf("LoadHalf(0x200) = 0x%04X, want 0xCAFE", got)
	}

	b.StoreByte(0x300, 0x42)
	if got := b.LoadByte(0x300); got != 0x42 {
		t.Errorf("LoadByte(0x300) = 0x%02X, want 0x42", got)
	}
}

func TestBIOSReadOnly(t *testing.T) {
	b := newTestBus(t)

	b.StoreWord(BIOSBeg, 0x11223344)
	if got := b.LoadWord(BIOSBeg); got == 0x11223344 {
		t.Errorf("store to BIOS region was not dropped")
	}
}

func TestBIOSMirroring(t *testing.T) {
	b := newTestBus(t)
	b.bios[0] = 0xAB

	if got := b.LoadByte(BIOSBeg); got != 0xAB {
		t.Errorf("LoadByte(BIOSBeg) = 0x%02X, want 0xAB", got)
	}
}

func TestUnknownRegion(t *testing.T) {
	b := newTestBus(t)

	if got := b.LoadWord(0x70000000); got != 0xFFFFFFFF {
		t.Errorf("LoadWord(unknown) = 0x%08X, want 0xFFFFFFFF", got)
	}
	if got := b.LoadHalf(0x70000000); got != 0xFFFF {
		t.Errorf("LoadHalf(unknown) = 0x%04X, want 0xFFFF", got)
	}
	if got := b.LoadByte(0x70000000); got != 0xFF {
		t.Errorf("LoadByte(unknown) = 0x%02X, want 0xFF", got)
	}
}

func TestNewRejectsUndersizedRAM(t *testing.T) {
	if _, err := New(make([]byte, 16), dbglog.Binding{}); err == nil {
		t.Errorf("New with undersized RAM buffer: want error, got nil")
	}
}

func TestLoadBIOSRejectsWrongSize(t *testing.T) {
	b := newTestBus(t)
	if err := b.LoadBIOS(make([]byte, 16)); err == nil {
		t.Errorf("LoadBIOS with wrong-sized image: want error, got nil")
	}
}
