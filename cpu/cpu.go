// Package cpu implements the LR33300 instruction interpreter: register
// file, PC/NPC delay-slot pair, HI/LO, coprocessor-0 control registers, a
// data-only coprocessor-2 (GTE) register file stub, reset and
// single-step execution. It steps one full architectural instruction at
// a time rather than one clock phase at a time.
package cpu

import (
	"fmt"

	"github.com/lunaspis-go/psycho/bus"
	"github.com/lunaspis-go/psycho/dbglog"
	"github.com/lunaspis-go/psycho/isa"
)

// InvalidState represents a programmer error detected at runtime, e.g. an
// out-of-range register index requested by a host.
type InvalidState struct {
	Reason string
}

// Error implements the error interface.
func (e InvalidState) Error() string {
	return fmt.Sprintf("cpu: invalid state: %s", e.Reason)
}

var excCodeNames = map[uint]string{
	isa.ExcRI: "Reserved instruction",
}

// CPU holds all architectural state owned by one LR33300 instance: the
// register file, PC/NPC pair, HI/LO, CP0 control registers, a data-only
// CP2 (GTE) register file, and the exception-halt bitset.
type CPU struct {
	gpr    [32]uint32
	cp0    [32]uint32
	cp2    [32]uint32
	cp2ccr [32]uint32

	pc, npc uint32
	instr   uint32

	hi, lo uint32

	excHalt uint32

	bus *bus.Bus
	log dbglog.Binding
}

// New creates a CPU wired to the given bus. The CPU begins in the
// zero-value state; call Reset before stepping.
func New(b *bus.Bus, log dbglog.Binding) (*CPU, error) {
	if b == nil {
		return nil, InvalidState{Reason: "bus must not be nil"}
	}
	return &CPU{bus: b, log: log}, nil
}

func (c *CPU) fetch(vaddr uint32) uint32 {
	return c.bus.LoadWord(isa.VAddrToPAddr(vaddr))
}

// Reset zeroes the register file and CP0/CP2 control registers, sets PC
// to the reset vector, primes NPC to PC+4, and prefetches the
// instruction at the reset vector.
func (c *CPU) Reset() {
	c.gpr = [32]uint32{}
	c.cp0 = [32]uint32{}
	c.cp2 = [32]uint32{}
	c.cp2ccr = [32]uint32{}
	c.hi, c.lo = 0, 0

	c.pc = isa.ResetVector
	c.npc = c.pc + 4
	c.instr = c.fetch(c.pc)

	c.log.Logf(dbglog.Info, "CPU reset!")
}

// GPR returns the value of general-purpose register i. Register 0 always
// reads as 0 regardless of what has been written to its slot.
func (c *CPU) GPR(i uint) uint32 {
	if i == 0 {
		return 0
	}
	return c.gpr[i&0x1F]
}

// SetGPR writes general-purpose register i. Writes to register 0 are
// architecturally discarded (silently tolerated here since GPR always
// masks index 0 on read).
func (c *CPU) SetGPR(i uint, v uint32) {
	if i == 0 {
		return
	}
	c.gpr[i&0x1F] = v
}

// CP0 returns coprocessor-0 control register i.
func (c *CPU) CP0(i uint) uint32 { return c.cp0[i&0x1F] }

// SetCP0 writes coprocessor-0 control register i.
func (c *CPU) SetCP0(i uint, v uint32) { c.cp0[i&0x1F] = v }

// CP2 returns GTE data register i.
func (c *CPU) CP2(i uint) uint32 { return c.cp2[i&0x1F] }

// CP2CCR returns GTE control register i.
func (c *CPU) CP2CCR(i uint) uint32 { return c.cp2ccr[i&0x1F] }

// HI returns the multiply/divide HI register.
func (c *CPU) HI() uint32 { return c.hi }

// LO returns the multiply/divide LO register.
func (c *CPU) LO() uint32 { return c.lo }

// PC returns the address of the instruction Instr holds, i.e. the one
// that will execute on the next call to Step.
func (c *CPU) PC() uint32 { return c.pc }

// NPC returns the address Step will advance PC to by default, absent an
// intervening taken branch or jump.
func (c *CPU) NPC() uint32 { return c.npc }

// Instr returns the already-fetched instruction word for the current PC.
func (c *CPU) Instr() uint32 { return c.instr }

// ExcHalt returns the exception-halt bitset.
func (c *CPU) ExcHalt() uint32 { return c.excHalt }

// SetExcHalt installs the exception-halt bitset: bit N set means raising
// exception code N emits an Err log; bit N clear means it is silently
// ignored. Neither case vectors, writes EPC, or touches SR.
func (c *CPU) SetExcHalt(mask uint32) { c.excHalt = mask }

// JumpTo forces PC/NPC to pc/pc+4 and prefetches Instr at the new PC. It
// exists for the EXE side-loader, which must redirect control flow to an
// injected program's entry point outside the normal step/branch path.
func (c *CPU) JumpTo(pc uint32) {
	c.pc = pc
	c.npc = pc + 4
	c.instr = c.fetch(c.pc)
}

func (c *CPU) raiseExc(code uint) {
	if c.excHalt&(1<<code) != 0 {
		c.log.Logf(dbglog.Err, "%s exception raised!", excCodeNames[code])
	}
}

// Step executes exactly one architectural instruction: the one already
// held in Instr, fetched for PC. The delay-slot discipline is realised
// through the (pc, npc, instr) triple: pc becomes the previous npc (the
// default "next" address), npc advances by 4 from there, and only then
// does the instruction execute — so a taken branch or jump overwrites
// npc, not pc, and its effect is not observed until the following Step,
// after the delay slot immediately after it has executed.
func (c *CPU) Step() {
	instr := c.instr
	execPC := c.pc

	c.pc = c.npc
	c.npc = c.pc + 4

	c.execute(instr, execPC)

	c.instr = c.fetch(c.pc)
}

// execute applies instr, which was fetched from pc, against the register
// file and bus. pc is threaded through explicitly rather than read off
// c.pc because by the time execute runs, c.pc has already advanced to
// hold the address of the next instruction (the one Step's prefetch at
// the bottom will load) — the same one-ahead bookkeeping Step uses to
// let a taken branch or jump overwrite npc before the delay slot's own
// Step call consumes it.
func (c *CPU) execute(instr, pc uint32) {
	switch isa.Op(instr) {
	case isa.OpGroupSpecial:
		c.execSpecial(instr, pc)

	case isa.OpGroupBcond:
		c.execBcond(instr, pc)

	case isa.OpJ:
		c.npc = isa.JumpTarget(instr, pc)

	case isa.OpJAL:
		c.SetGPR(isa.RegRA, pc+8)
		c.npc = isa.JumpTarget(instr, pc)

	case isa.OpBEQ:
		if c.GPR(isa.Rs(instr)) == c.GPR(isa.Rt(instr)) {
			c.npc = isa.BranchTarget(instr, pc)
		}

	case isa.OpBNE:
		if c.GPR(isa.Rs(instr)) != c.GPR(isa.Rt(instr)) {
			c.npc = isa.BranchTarget(instr, pc)
		}

	case isa.OpBLEZ:
		if int32(c.GPR(isa.Rs(instr))) <= 0 {
			c.npc = isa.BranchTarget(instr, pc)
		}

	case isa.OpBGTZ:
		if int32(c.GPR(isa.Rs(instr))) > 0 {
			c.npc = isa.BranchTarget(instr, pc)
		}

	case isa.OpADDI, isa.OpADDIU:
		c.SetGPR(isa.Rt(instr), c.GPR(isa.Rs(instr))+isa.SExtImm(instr))

	case isa.OpSLTI:
		c.SetGPR(isa.Rt(instr), boolToWord(int32(c.GPR(isa.Rs(instr))) < int32(isa.SExtImm(instr))))

	case isa.OpSLTIU:
		c.SetGPR(isa.Rt(instr), boolToWord(c.GPR(isa.Rs(instr)) < isa.SExtImm(instr)))

	case isa.OpANDI:
		c.SetGPR(isa.Rt(instr), c.GPR(isa.Rs(instr))&isa.ZExtImm(instr))

	case isa.OpORI:
		c.SetGPR(isa.Rt(instr), c.GPR(isa.Rs(instr))|isa.ZExtImm(instr))

	case isa.OpXORI:
		c.SetGPR(isa.Rt(instr), c.GPR(isa.Rs(instr))^isa.ZExtImm(instr))

	case isa.OpLUI:
		c.SetGPR(isa.Rt(instr), isa.ZExtImm(instr)<<16)

	case isa.OpGroupCop0:
		c.execCop0(instr)

	case isa.OpGroupCop2:
		c.execCop2(instr)

	case isa.OpLB:
		c.SetGPR(isa.Rt(instr), uint32(int32(int8(c.bus.LoadByte(c.effAddr(instr))))))

	case isa.OpLBU:
		c.SetGPR(isa.Rt(instr), uint32(c.bus.LoadByte(c.effAddr(instr))))

	case isa.OpLH:
		c.SetGPR(isa.Rt(instr), uint32(int32(int16(c.bus.LoadHalf(c.effAddr(instr))))))

	case isa.OpLHU:
		c.SetGPR(isa.Rt(instr), uint32(c.bus.LoadHalf(c.effAddr(instr))))

	case isa.OpLW:
		c.SetGPR(isa.Rt(instr), c.bus.LoadWord(c.effAddr(instr)))

	case isa.OpLWL:
		c.execLWL(instr)

	case isa.OpLWR:
		c.execLWR(instr)

	case isa.OpSB:
		c.bus.StoreByte(c.effAddr(instr), uint8(c.GPR(isa.Rt(instr))))

	case isa.OpSH:
		c.bus.StoreHalf(c.effAddr(instr), uint16(c.GPR(isa.Rt(instr))))

	case isa.OpSW:
		if c.CP0(isa.CP0SR)&isa.SRIsC == 0 {
			c.bus.StoreWord(c.effAddr(instr), c.GPR(isa.Rt(instr)))
		}

	case isa.OpSWL:
		c.execSWL(instr)

	case isa.OpSWR:
		c.execSWR(instr)

	case isa.OpLWC2:
		c.cp2[isa.Rt(instr)&0x1F] = c.bus.LoadWord(c.effAddr(instr))

	case isa.OpSWC2:
		c.bus.StoreWord(c.effAddr(instr), c.cp2[isa.Rt(instr)&0x1F])

	default:
		c.raiseExc(isa.ExcRI)
	}
}

// effAddr computes the effective physical address for a load/store:
// GPR[base] + sign-extended offset, folded to the physical window.
func (c *CPU) effAddr(instr uint32) uint32 {
	return isa.VAddrToPAddr(c.GPR(isa.Base(instr)) + isa.Offset(instr))
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) execSpecial(instr, pc uint32) {
	rd, rt, rs := isa.Rd(instr), isa.Rt(instr), isa.Rs(instr)
	shamt := isa.Shamt(instr)

	switch isa.Funct(instr) {
	case isa.FnSLL:
		c.SetGPR(rd, c.GPR(rt)<<shamt)

	case isa.FnSRL:
		c.SetGPR(rd, c.GPR(rt)>>shamt)

	case isa.FnSRA:
		c.SetGPR(rd, uint32(int32(c.GPR(rt))>>shamt))

	case isa.FnSLLV:
		c.SetGPR(rd, c.GPR(rt)<<(c.GPR(rs)&0x1F))

	case isa.FnSRLV:
		c.SetGPR(rd, c.GPR(rt)>>(c.GPR(rs)&0x1F))

	case isa.FnSRAV:
		c.SetGPR(rd, uint32(int32(c.GPR(rt))>>(c.GPR(rs)&0x1F)))

	case isa.FnJR:
		c.npc = c.GPR(rs)

	case isa.FnJALR:
		c.SetGPR(rd, pc+8)
		c.npc = c.GPR(rs)

	case isa.FnMFHI:
		c.SetGPR(rd, c.hi)

	case isa.FnMTHI:
		c.hi = c.GPR(rs)

	case isa.FnMFLO:
		c.SetGPR(rd, c.lo)

	case isa.FnMTLO:
		c.lo = c.GPR(rs)

	case isa.FnMULT:
		prod := int64(int32(c.GPR(rs))) * int64(int32(c.GPR(rt)))
		c.lo, c.hi = uint32(prod), uint32(prod>>32)

	case isa.FnMULTU:
		prod := uint64(c.GPR(rs)) * uint64(c.GPR(rt))
		c.lo, c.hi = uint32(prod), uint32(prod>>32)

	case isa.FnDIV:
		n, d := int32(c.GPR(rs)), int32(c.GPR(rt))
		if d == 0 {
			// Division by zero is architecturally undefined; produce
			// the conventional MIPS fallback rather than trapping,
			// but callers must not depend on this value.
			c.hi, c.lo = uint32(n), 0xFFFFFFFF
			if n < 0 {
				c.lo = 1
			}
			break
		}
		c.lo, c.hi = uint32(n/d), uint32(n%d)

	case isa.FnDIVU:
		n, d := c.GPR(rs), c.GPR(rt)
		if d == 0 {
			c.hi, c.lo = n, 0xFFFFFFFF
			break
		}
		c.lo, c.hi = n/d, n%d

	case isa.FnADD, isa.FnADDU:
		c.SetGPR(rd, c.GPR(rs)+c.GPR(rt))

	case isa.FnSUB, isa.FnSUBU:
		c.SetGPR(rd, c.GPR(rs)-c.GPR(rt))

	case isa.FnAND:
		c.SetGPR(rd, c.GPR(rs)&c.GPR(rt))

	case isa.FnOR:
		c.SetGPR(rd, c.GPR(rs)|c.GPR(rt))

	case isa.FnXOR:
		c.SetGPR(rd, c.GPR(rs)^c.GPR(rt))

	case isa.FnNOR:
		c.SetGPR(rd, ^(c.GPR(rs) | c.GPR(rt)))

	case isa.FnSLT:
		c.SetGPR(rd, boolToWord(int32(c.GPR(rs)) < int32(c.GPR(rt))))

	case isa.FnSLTU:
		c.SetGPR(rd, boolToWord(c.GPR(rs) < c.GPR(rt)))

	case isa.FnSYSCALL, isa.FnBREAK:
		// No trap handling is implemented; treat as an unimplemented
		// encoding for diagnostic purposes.
		c.raiseExc(isa.ExcRI)

	default:
		c.raiseExc(isa.ExcRI)
	}
}

func (c *CPU) execBcond(instr, pc uint32) {
	rt := isa.Rt(instr)
	link := (rt>>4)&1 != 0

	if link {
		c.SetGPR(isa.RegRA, pc+8)
	}

	taken := (int32(c.GPR(isa.Rs(instr))) < 0) != (rt&1 != 0)
	if taken {
		c.npc = isa.BranchTarget(instr, pc)
	}
}

func (c *CPU) execCop0(instr uint32) {
	rt, rd := isa.Rt(instr), isa.Rd(instr)

	switch isa.Rs(instr) {
	case isa.Cop0MF:
		c.SetGPR(rt, c.CP0(rd))

	case isa.Cop0MT:
		c.SetCP0(rd, c.GPR(rt))

	default:
		// Includes RFE (funct 0x10): decoded by the disassembler but
		// never executed, per spec.
		c.raiseExc(isa.ExcRI)
	}
}

func (c *CPU) execCop2(instr uint32) {
	rt, rd := isa.Rt(instr), isa.Rd(instr)

	switch isa.Rs(instr) {
	case isa.Cop2MF:
		c.SetGPR(rt, c.CP2(rd))

	case isa.Cop2CF:
		c.SetGPR(rt, c.CP2CCR(rd))

	case isa.Cop2MT:
		c.cp2[rd&0x1F] = c.GPR(rt)

	case isa.Cop2CT:
		c.cp2ccr[rd&0x1F] = c.GPR(rt)

	default:
		switch isa.Funct(instr) {
		case isa.FnRTPS, isa.FnNCLIP, isa.FnOP, isa.FnDPCS, isa.FnINTPL,
			isa.FnMVMVA, isa.FnNCDS, isa.FnCDP, isa.FnNCDT, isa.FnNCCS,
			isa.FnCC, isa.FnNCS, isa.FnNCT, isa.FnSQR, isa.FnDCPL,
			isa.FnDPCT, isa.FnAVSZ3, isa.FnAVSZ4, isa.FnRTPT, isa.FnGPF,
			isa.FnGPL, isa.FnNCCT:
			// Real GTE geometry/lighting math is out of scope; these
			// decode cleanly and leave CP2 state untouched.

		default:
			c.raiseExc(isa.ExcRI)
		}
	}
}

// execLWL implements the little-endian MIPS "load word left" merge: it
// folds the high-order bytes of the addressed word into the high-order
// bytes of rt, preserving rt's low-order bytes.
func (c *CPU) execLWL(instr uint32) {
	addr := c.GPR(isa.Base(instr)) + isa.Offset(instr)
	shift := (addr & 3) * 8
	word := c.bus.LoadWord(isa.VAddrToPAddr(addr &^ 3))
	old := c.GPR(isa.Rt(instr))

	mask := uint32(0x00FFFFFF) >> shift
	c.SetGPR(isa.Rt(instr), (old&mask)|(word<<(24-shift)))
}

// execLWR implements the little-endian MIPS "load word right" merge, the
// mirror image of execLWL.
func (c *CPU) execLWR(instr uint32) {
	addr := c.GPR(isa.Base(instr)) + isa.Offset(instr)
	shift := (addr & 3) * 8
	word := c.bus.LoadWord(isa.VAddrToPAddr(addr &^ 3))
	old := c.GPR(isa.Rt(instr))

	mask := uint32(0xFFFFFF00) << (24 - shift)
	c.SetGPR(isa.Rt(instr), (old&mask)|(word>>shift))
}

func (c *CPU) execSWL(instr uint32) {
	addr := c.GPR(isa.Base(instr)) + isa.Offset(instr)
	shift := (addr & 3) * 8
	paddr := isa.VAddrToPAddr(addr &^ 3)
	mem := c.bus.LoadWord(paddr)
	rt := c.GPR(isa.Rt(instr))

	result := (rt >> (24 - shift)) | (mem & (0xFFFFFF00 << shift))
	c.bus.StoreWord(paddr, result)
}

func (c *CPU) execSWR(instr uint32) {
	addr := c.GPR(isa.Base(instr)) + isa.Offset(instr)
	shift := (addr & 3) * 8
	paddr := isa.VAddrToPAddr(addr &^ 3)
	mem := c.bus.LoadWord(paddr)
	rt := c.GPR(isa.Rt(instr))

	result := (rt << shift) | (mem & (0x00FFFFFF >> (24 - shift)))
	c.bus.StoreWord(paddr, result)
}
