package ctx

import (
	"encoding/binary"
	"testing"

	"github.com/lunaspis-go/psycho/bus"
	"github.com/lunaspis-go/psycho/dbglog"
	"github.com/lunaspis-go/psycho/isa"
	"github.com/lunaspis-go/psycho/psxexe"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	c, err := New(make([]byte, bus.BIOSSize), dbglog.Binding{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Reset()
	return c
}

func buildEXE(dest uint32, payload []byte, pc, gp, spFPBase, spFPOffs uint32) []byte {
	data := make([]byte, psxexe.HeaderSize+len(payload))
	copy(data[psxexe.OffsetID:], []byte("PS-X EXE\x00"))
	binary.LittleEndian.PutUint32(data[psxexe.OffsetPC:], pc)
	binary.LittleEndian.PutUint32(data[psxexe.OffsetGP:], gp)
	binary.LittleEndian.PutUint32(data[psxexe.OffsetDest:], dest)
	binary.LittleEndian.PutUint32(data[psxexe.OffsetSize:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(data[psxexe.OffsetSPFPBase:], spFPBase)
	binary.LittleEndian.PutUint32(data[psxexe.OffsetSPFPOffs:], spFPOffs)
	copy(data[psxexe.HeaderSize:], payload)
	return data
}

func TestRunPSXEXERejectsMalformedImage(t *testing.T) {
	c := newTestContext(t)
	if c.RunPSXEXE([]byte("not an exe")) {
		t.Errorf("RunPSXEXE() = true, want false for a malformed image")
	}
}

func TestInjectionAtHandoff(t *testing.T) {
	c := newTestContext(t)

	payload := make([]byte, 16)
	binary.LittleEndian.PutUint32(payload, 0x11111111)
	exe := buildEXE(0x80010000, payload, 0x80010000, 0x80020000, 0x80030000, 0x10)

	if !c.RunPSXEXE(exe) {
		t.Fatalf("RunPSXEXE() = false, want true")
	}

	// Position the CPU one instruction before the hand-off address: the
	// Step below executes that (zeroed, NOP-equivalent) instruction and
	// lands PC on InjectAddr, which is when injection fires.
	c.CPU.JumpTo(InjectAddr - 4)
	c.Step()

	if got := c.CPU.GPR(isa.RegGP); got != 0x80020000 {
		t.Errorf("GPR(gp) = 0x%08X, want 0x80020000", got)
	}
	if got := c.CPU.GPR(isa.RegSP); got != 0x80030010 {
		t.Errorf("GPR(sp) = 0x%08X, want 0x80030010", got)
	}
	if got := c.CPU.GPR(isa.RegFP); got != 0x80030010 {
		t.Errorf("GPR(fp) = 0x%08X, want 0x80030010", got)
	}
	if got := c.CPU.PC(); got != 0x80010000 {
		t.Errorf("PC = 0x%08X, want 0x80010000 (EXE entry point)", got)
	}

	paddr := isa.VAddrToPAddr(0x80010000)
	if got := c.Bus.LoadWord(paddr); got != 0x11111111 {
		t.Errorf("payload not copied to RAM: LoadWord(0x%08X) = 0x%08X", paddr, got)
	}
}

func TestInjectionUnconditionalFPQuirk(t *testing.T) {
	c := newTestContext(t)

	exe := buildEXE(0x80010000, nil, 0x80010000, 0, 0, 0)
	if !c.RunPSXEXE(exe) {
		t.Fatalf("RunPSXEXE() = false, want true")
	}

	c.CPU.JumpTo(InjectAddr - 4)
	c.Step()

	// spFPBase is 0, so sp is left untouched (still 0 from Reset), but fp
	// is still written from the same (0+0) sum.
	if got := c.CPU.GPR(isa.RegSP); got != 0 {
		t.Errorf("GPR(sp) = 0x%08X, want 0 (untouched)", got)
	}
	if got := c.CPU.GPR(isa.RegFP); got != 0 {
		t.Errorf("GPR(fp) = 0x%08X, want 0", got)
	}
}
