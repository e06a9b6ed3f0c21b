package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/lunaspis-go/psycho/bus"
	"github.com/lunaspis-go/psycho/dbglog"
	"github.com/lunaspis-go/psycho/isa"
)

type logRecorder struct {
	msgs []string
}

func (r *logRecorder) Emit(level dbglog.Level, msg string) {
	r.msgs = append(r.msgs, msg)
}

func newTestCPU(t *testing.T) (*CPU, *bus.Bus, *logRecorder) {
	t.Helper()
	rec := &logRecorder{}
	log := dbglog.Binding{Sink: rec, Level: dbglog.Trace}

	b, err := bus.New(make([]byte, bus.RAMSize), log)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	if err := b.LoadBIOS(make([]byte, bus.BIOSSize)); err != nil {
		t.Fatalf("LoadBIOS: %v", err)
	}

	c, err := New(b, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Reset()
	return c, b, rec
}

func TestNewRejectsNilBus(t *testing.T) {
	if _, err := New(nil, dbglog.Binding{}); err == nil {
		t.Errorf("New(nil, ...): want error, got nil")
	}
}

// storeAt writes a little-endian word instruction to RAM at a physical
// address and lets the caller drive the CPU to it via JumpTo.
func storeAt(b *bus.Bus, addr, instr uint32) {
	b.StoreWord(addr, instr)
}

func encodeI(op, rs, rt uint, imm uint16) uint32 {
	return uint32(op)<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(imm)
}

func encodeR(rs, rt, rd, shamt, funct uint) uint32 {
	return uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11 | uint32(shamt)<<6 | uint32(funct)
}

func encodeJ(op uint, target uint32) uint32 {
	return uint32(op)<<26 | (target>>2)&0x3FFFFFF
}

func TestLUIORIConstantBuild(t *testing.T) {
	c, b, _ := newTestCPU(t)

	base := uint32(0x00001000)
	storeAt(b, base, encodeI(isa.OpLUI, 0, isa.RegT0, 0xDEAD))
	storeAt(b, base+4, encodeI(isa.OpORI, isa.RegT0, isa.RegT0, 0xBEEF))
	storeAt(b, base+8, encodeI(isa.OpLUI, 0, 0, 0))

	c.JumpTo(base)
	c.Step()
	c.Step()

	if got := c.GPR(isa.RegT0); got != 0xDEADBEEF {
		t.Errorf("GPR(t0) = 0x%08X, want 0xDEADBEEF\n%s", got, spew.Sdump(c))
	}
}

func TestSWSuppressedByIsC(t *testing.T) {
	c, b, _ := newTestCPU(t)

	c.SetCP0(isa.CP0SR, isa.SRIsC)
	c.SetGPR(isa.RegT0, 0x12345678)
	c.SetGPR(isa.RegT1, 0x100)

	base := uint32(0x00002000)
	storeAt(b, base, encodeI(isa.OpSW, isa.RegT1, isa.RegT0, 0))
	storeAt(b, base+4, encodeI(isa.OpLUI, 0, 0, 0))

	c.JumpTo(base)
	c.Step()

	if got := b.LoadWord(0x100); got == 0x12345678 {
		t.Errorf("SW committed to RAM despite SR.IsC being set")
	}
}

func TestBranchDelaySlot(t *testing.T) {
	c, b, _ := newTestCPU(t)

	base := uint32(0x00003000)
	// beq zero,zero,+2 (target = pc+4+8: the word after the delay slot
	// is skipped, landing three words past the branch)
	storeAt(b, base, encodeI(isa.OpBEQ, isa.RegZero, isa.RegZero, 2))
	// delay slot: addiu t0,zero,1 -- must still execute
	storeAt(b, base+4, encodeI(isa.OpADDIU, isa.RegZero, isa.RegT0, 1))
	// branch target: addiu t1,zero,2
	storeAt(b, base+12, encodeI(isa.OpADDIU, isa.RegZero, isa.RegT1, 2))

	c.JumpTo(base)
	c.Step() // executes the branch, delay slot instruction already fetched
	c.Step() // executes the delay slot, npc now points at branch target

	if got := c.GPR(isa.RegT0); got != 1 {
		t.Errorf("delay slot did not execute: GPR(t0) = %d, want 1", got)
	}
	if got := c.PC(); got != base+12 {
		t.Errorf("PC = 0x%08X, want 0x%08X (branch target)", got, base+12)
	}
}

func TestJALLinksPCPlus8(t *testing.T) {
	c, b, _ := newTestCPU(t)

	base := uint32(0x00004000)
	storeAt(b, base, encodeJ(isa.OpJAL, 0x00005000))
	storeAt(b, base+4, encodeI(isa.OpLUI, 0, 0, 0))

	c.JumpTo(base)
	c.Step()

	if got := c.GPR(isa.RegRA); got != base+8 {
		t.Errorf("GPR(ra) = 0x%08X, want 0x%08X\n%s", got, base+8, spew.Sdump(c))
	}
	if got := c.NPC(); got != 0x00005000 {
		t.Errorf("NPC = 0x%08X, want 0x00005000", got)
	}
}

func TestReservedInstructionLogsWhenArmed(t *testing.T) {
	c, b, rec := newTestCPU(t)
	c.SetExcHalt(1 << isa.ExcRI)

	base := uint32(0x00006000)
	// An unassigned primary opcode (0x3F is not decoded by this core).
	storeAt(b, base, uint32(0x3F)<<26)

	c.JumpTo(base)
	c.Step()

	if !anyContainsErrLevel(rec.msgs) {
		t.Fatalf("expected an exception-raised log when RI is armed, got none: %v", rec.msgs)
	}
}

func anyContainsErrLevel(msgs []string) bool {
	for _, m := range msgs {
		if containsErrLevel(m) {
			return true
		}
	}
	return false
}

func TestReservedInstructionSilentWhenNotArmed(t *testing.T) {
	c, b, rec := newTestCPU(t)

	base := uint32(0x00007000)
	storeAt(b, base, uint32(0x3F)<<26)

	c.JumpTo(base)
	c.Step()

	for _, m := range rec.msgs {
		if m != "" && containsErrLevel(m) {
			t.Errorf("unexpected log when RI is not armed: %q", m)
		}
	}
}

func containsErrLevel(msg string) bool {
	return len(msg) > len("exception raised!") && msg[len(msg)-len("exception raised!"):] == "exception raised!"
}

func TestResetIsIdempotent(t *testing.T) {
	c, _, _ := newTestCPU(t)

	c.SetGPR(isa.RegT0, 0xFFFFFFFF)
	c.Reset()
	first := snapshot(c)

	c.SetGPR(isa.RegT1, 0x12345678)
	c.Reset()
	second := snapshot(c)

	if diff := deep.Equal(first, second); diff != nil {
		t.Errorf("Reset is not idempotent: %v", diff)
	}
}

type cpuSnapshot struct {
	GPR [32]uint32
	PC  uint32
	NPC uint32
}

func snapshot(c *CPU) cpuSnapshot {
	var s cpuSnapshot
	for i := range s.GPR {
		s.GPR[i] = c.GPR(uint(i))
	}
	s.PC, s.NPC = c.PC(), c.NPC()
	return s
}

func TestSLTSigned(t *testing.T) {
	c, b, _ := newTestCPU(t)

	c.SetGPR(isa.RegT0, 0xFFFFFFFF)
	c.SetGPR(isa.RegT1, 1)

	base := uint32(0x00008000)
	storeAt(b, base, encodeR(isa.RegT0, isa.RegT1, isa.RegT2, 0, isa.FnSLT))
	storeAt(b, base+4, encodeI(isa.OpLUI, 0, 0, 0))

	c.JumpTo(base)
	c.Step()

	if got := c.GPR(isa.RegT2); got != 1 {
		t.Errorf("SLT(-1, 1) = %d, want 1", got)
	}
}
