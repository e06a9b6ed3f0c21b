// Package ctx wires a CPU, Bus and Disassembler into one system and
// layers PS-X EXE side-loading on top: the BIOS shell is left to run
// normally until it reaches the well-known hand-off address, at which
// point a previously-armed EXE image is copied into RAM and control is
// redirected to its entry point.
package ctx

import (
	"fmt"

	"github.com/lunaspis-go/psycho/bus"
	"github.com/lunaspis-go/psycho/cpu"
	"github.com/lunaspis-go/psycho/dbglog"
	"github.com/lunaspis-go/psycho/disasm"
	"github.com/lunaspis-go/psycho/isa"
	"github.com/lunaspis-go/psycho/psxexe"
)

// InjectAddr is the BIOS address execution must reach before a pending
// PS-X EXE image is injected.
const InjectAddr = uint32(0x80030000)

// Context owns one CPU, Bus and Disassembler, and the pending-injection
// state used for PS-X EXE side-loading.
type Context struct {
	CPU    *cpu.CPU
	Bus    *bus.Bus
	Disasm *disasm.Disassembler

	log dbglog.Binding

	pending []byte
}

// New allocates RAM, wires up Bus/CPU/Disassembler and returns a ready
// Context. bios must be exactly bus.BIOSSize bytes.
func New(bios []byte, log dbglog.Binding) (*Context, error) {
	ram := make([]byte, bus.RAMSize)

	b, err := bus.New(ram, log)
	if err != nil {
		return nil, err
	}
	if err := b.LoadBIOS(bios); err != nil {
		return nil, err
	}

	cp, err := cpu.New(b, log)
	if err != nil {
		return nil, err
	}

	return &Context{
		CPU:    cp,
		Bus:    b,
		Disasm: disasm.New(),
		log:    log,
	}, nil
}

// Reset resets the CPU and clears any pending EXE injection.
func (c *Context) Reset() {
	c.CPU.Reset()
	c.pending = nil
	c.log.Logf(dbglog.Info, "System reset!")
}

// Step advances the CPU by one instruction, then injects a pending PS-X
// EXE image if execution has just reached InjectAddr.
func (c *Context) Step() {
	c.CPU.Step()

	if c.pending != nil && c.CPU.PC() == InjectAddr {
		c.inject(c.pending)
		c.pending = nil
	}
}

// RunPSXEXE validates data as a PS-X EXE image, resets the system and
// arms the image for injection once the BIOS reaches InjectAddr. It
// reports false (and arms nothing) if data is not a well-formed image.
func (c *Context) RunPSXEXE(data []byte) bool {
	if !psxexe.Valid(data) {
		c.log.Logf(dbglog.Err, "Invalid PS-X EXE image!")
		return false
	}

	c.Reset()
	c.pending = data
	c.log.Logf(dbglog.Info, "PS-X EXE will be injected!")
	return true
}

func (c *Context) inject(data []byte) {
	dest := psxexe.Dest(data)
	size := psxexe.Size(data)
	payload := psxexe.Payload(data)

	ram := c.Bus.RAM()
	var off uint32
	for ; off+4 <= size; off += 4 {
		paddr := isa.VAddrToPAddr(dest + off)
		copy(ram[paddr:paddr+4], payload[off:off+4])
	}
	if off < size {
		paddr := isa.VAddrToPAddr(dest + off)
		copy(ram[paddr:], payload[off:size])
	}

	pc := psxexe.PC(data)
	c.CPU.JumpTo(pc)
	c.CPU.SetGPR(isa.RegGP, psxexe.GP(data))

	spFPBase := psxexe.SPFPBase(data)
	spFPOffs := psxexe.SPFPOffs(data)
	if spFPBase != 0 {
		c.CPU.SetGPR(isa.RegSP, spFPBase+spFPOffs)
	}
	// fp is set from the same sum unconditionally, even when spFPBase is
	// 0 (and so sp was left untouched above).
	c.CPU.SetGPR(isa.RegFP, spFPBase+spFPOffs)

	c.log.Logf(dbglog.Info, "PS-X EXE injected at 0x%08X, entry 0x%08X", dest, pc)
}

// Trace disassembles and formats the instruction the CPU is about to
// execute, in the canonical "mnemonic ... ; comments" form.
func (c *Context) Trace() string {
	c.Disasm.Instr(c.CPU.Instr(), c.CPU.PC())
	return c.Disasm.Trace(c.CPU)
}

// String implements fmt.Stringer for quick diagnostics.
func (c *Context) String() string {
	return fmt.Sprintf("Context{pc=0x%08X npc=0x%08X}", c.CPU.PC(), c.CPU.NPC())
}
