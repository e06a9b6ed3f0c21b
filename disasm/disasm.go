// Package disasm renders LR33300 instruction words as canonical assembly
// text, plus a set of deferred "comments" resolved against live CPU state
// at trace time: disassembly of a jump prints the raw 26-bit target, while
// the accompanying comment reports the full target address, merged with
// the upper four bits of the jump's own pc.
package disasm

import (
	"fmt"
	"strings"

	"github.com/lunaspis-go/psycho/isa"
)

// Comment kinds, resolved against CPUView state when a trace is emitted
// rather than when the instruction was disassembled.
const (
	commentGPRRd = iota
	commentGPRRt
	commentLO
	commentHI
	commentBranch
	commentJump
	commentPAddr
	commentCP0Rd
)

const traceColumn = 35

type comment struct {
	kind          int
	reg           uint
	instr, pc     uint32
}

// CPUView is the minimal read-only surface Disassembler needs from a live
// CPU to resolve deferred comments. It exists so disasm never imports cpu,
// avoiding a dependency cycle between the two packages.
type CPUView interface {
	GPR(i uint) uint32
	CP0(i uint) uint32
	HI() uint32
	LO() uint32
}

// Disassembler holds the result of the most recently disassembled
// instruction: its formatted text and the comments still owed against
// live CPU state.
type Disassembler struct {
	result   string
	comments []comment
}

// New returns an empty Disassembler.
func New() *Disassembler { return &Disassembler{} }

// Result returns the text produced by the last call to Instr.
func (d *Disassembler) Result() string { return d.result }

func (d *Disassembler) reset() {
	d.result = ""
	d.comments = d.comments[:0]
}

func (d *Disassembler) addComment(kind int, reg uint, instr, pc uint32) {
	d.comments = append(d.comments, comment{kind: kind, reg: reg, instr: instr, pc: pc})
}

// signedImm renders instr's 16-bit immediate sign-extended, in the
// "[-]0xHHHH" form used for arithmetic-immediate and load/store/branch
// offsets.
func signedImm(instr uint32) string {
	v := int16(isa.Imm(instr))
	if v < 0 {
		return fmt.Sprintf("-0x%04X", uint16(-v))
	}
	return fmt.Sprintf("0x%04X", uint16(v))
}

func gpr(i uint) string { return isa.GPRNames[i&0x1F] }
func cp0(i uint) string { return isa.CP0Names[i&0x1F] }
func cp2(i uint) string { return isa.CP2Names[i&0x1F] }
func cp2ccr(i uint) string { return isa.CP2CCRNames[i&0x1F] }

// Instr disassembles instr (fetched from pc) into Result, queuing any
// comments it owes. It performs no side effects beyond internal state:
// it never touches CPU or Bus state, and is independent of execution.
func (d *Disassembler) Instr(instr, pc uint32) {
	d.reset()

	rs, rt, rd := isa.Rs(instr), isa.Rt(instr), isa.Rd(instr)
	shamt := isa.Shamt(instr)

	switch isa.Op(instr) {
	case isa.OpGroupSpecial:
		d.specialInstr(instr, rs, rt, rd, shamt)

	case isa.OpGroupBcond:
		d.bcondInstr(instr, rs, pc)

	case isa.OpJ:
		d.result = fmt.Sprintf("j 0x%08X", isa.Target(instr))
		d.addComment(commentJump, 0, instr, pc)

	case isa.OpJAL:
		d.result = fmt.Sprintf("jal 0x%08X", isa.Target(instr))
		d.addComment(commentJump, 0, instr, pc)

	case isa.OpBEQ:
		d.result = fmt.Sprintf("beq %s,%s,%s", gpr(rs), gpr(rt), signedImm(instr))
		d.addComment(commentBranch, 0, instr, pc)

	case isa.OpBNE:
		d.result = fmt.Sprintf("bne %s,%s,%s", gpr(rs), gpr(rt), signedImm(instr))
		d.addComment(commentBranch, 0, instr, pc)

	case isa.OpBLEZ:
		d.result = fmt.Sprintf("blez %s,%s", gpr(rs), signedImm(instr))
		d.addComment(commentBranch, 0, instr, pc)

	case isa.OpBGTZ:
		d.result = fmt.Sprintf("bgtz %s,%s", gpr(rs), signedImm(instr))
		d.addComment(commentBranch, 0, instr, pc)

	case isa.OpADDI:
		d.result = fmt.Sprintf("addi %s,%s,%s", gpr(rt), gpr(rs), signedImm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpADDIU:
		d.result = fmt.Sprintf("addiu %s,%s,%s", gpr(rt), gpr(rs), signedImm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpSLTI:
		d.result = fmt.Sprintf("slti %s,%s,%s", gpr(rt), gpr(rs), signedImm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpSLTIU:
		d.result = fmt.Sprintf("sltiu %s,%s,%s", gpr(rt), gpr(rs), signedImm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpANDI:
		d.result = fmt.Sprintf("andi %s,%s,0x%04X", gpr(rt), gpr(rs), isa.Imm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpORI:
		d.result = fmt.Sprintf("ori %s,%s,0x%04X", gpr(rt), gpr(rs), isa.Imm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpXORI:
		d.result = fmt.Sprintf("xori %s,%s,0x%04X", gpr(rt), gpr(rs), isa.Imm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpLUI:
		d.result = fmt.Sprintf("lui %s,0x%04X", gpr(rt), isa.Imm(instr))
		d.addComment(commentGPRRt, rt, instr, pc)

	case isa.OpGroupCop0:
		d.cop0Instr(instr, rs, rt, rd)

	case isa.OpGroupCop2:
		d.cop2Instr(instr, rs, rt, rd)

	case isa.OpLB:
		d.loadStore("lb", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLH:
		d.loadStore("lh", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLWL:
		d.loadStore("lwl", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLW:
		d.loadStore("lw", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLBU:
		d.loadStore("lbu", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLHU:
		d.loadStore("lhu", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLWR:
		d.loadStore("lwr", rt, rs, instr)
		d.addComment(commentGPRRt, rt, instr, pc)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpSB:
		d.loadStore("sb", rt, rs, instr)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpSH:
		d.loadStore("sh", rt, rs, instr)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpSWL:
		d.loadStore("swl", rt, rs, instr)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpSW:
		d.loadStore("sw", rt, rs, instr)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpSWR:
		d.loadStore("swr", rt, rs, instr)
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpLWC2:
		d.result = fmt.Sprintf("lwc2 %s,%s(%s)", cp2(rt), signedImm(instr), gpr(rs))
		d.addComment(commentPAddr, rs, instr, pc)

	case isa.OpSWC2:
		d.result = fmt.Sprintf("swc2 %s,%s(%s)", cp2(rt), signedImm(instr), gpr(rs))
		d.addComment(commentPAddr, rs, instr, pc)

	default:
		d.result = fmt.Sprintf("illegal 0x%08X", instr)
	}
}

func (d *Disassembler) loadStore(mnemonic string, rt, rs uint, instr uint32) {
	d.result = fmt.Sprintf("%s %s,%s(%s)", mnemonic, gpr(rt), signedImm(instr), gpr(rs))
}

func (d *Disassembler) specialInstr(instr uint32, rs, rt, rd, shamt uint) {
	switch isa.Funct(instr) {
	case isa.FnSLL:
		if instr == 0 {
			d.result = "nop"
			return
		}
		d.result = fmt.Sprintf("sll %s,%s,%d", gpr(rd), gpr(rt), shamt)
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSRL:
		d.result = fmt.Sprintf("srl %s,%s,%d", gpr(rd), gpr(rt), shamt)
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSRA:
		d.result = fmt.Sprintf("sra %s,%s,%d", gpr(rd), gpr(rt), shamt)
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSLLV:
		d.result = fmt.Sprintf("sllv %s,%s,%s", gpr(rd), gpr(rt), gpr(rs))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSRLV:
		d.result = fmt.Sprintf("srlv %s,%s,%s", gpr(rd), gpr(rt), gpr(rs))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSRAV:
		d.result = fmt.Sprintf("srav %s,%s,%s", gpr(rd), gpr(rt), gpr(rs))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnJR:
		d.result = fmt.Sprintf("jr %s", gpr(rs))

	case isa.FnJALR:
		d.result = fmt.Sprintf("jalr %s,%s", gpr(rd), gpr(rs))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSYSCALL:
		d.result = "syscall"

	case isa.FnBREAK:
		d.result = "break"

	case isa.FnMFHI:
		d.result = fmt.Sprintf("mfhi %s", gpr(rd))
		d.addComment(commentHI, 0, instr, 0)

	case isa.FnMTHI:
		d.result = fmt.Sprintf("mthi %s", gpr(rs))

	case isa.FnMFLO:
		d.result = fmt.Sprintf("mflo %s", gpr(rd))
		d.addComment(commentLO, 0, instr, 0)

	case isa.FnMTLO:
		d.result = fmt.Sprintf("mtlo %s", gpr(rs))

	case isa.FnMULT:
		d.result = fmt.Sprintf("mult %s,%s", gpr(rs), gpr(rt))

	case isa.FnMULTU:
		d.result = fmt.Sprintf("multu %s,%s", gpr(rs), gpr(rt))

	case isa.FnDIV:
		d.result = fmt.Sprintf("div %s,%s", gpr(rs), gpr(rt))

	case isa.FnDIVU:
		d.result = fmt.Sprintf("divu %s,%s", gpr(rs), gpr(rt))

	case isa.FnADD:
		d.result = fmt.Sprintf("add %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnADDU:
		d.result = fmt.Sprintf("addu %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSUB:
		d.result = fmt.Sprintf("sub %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSUBU:
		d.result = fmt.Sprintf("subu %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnAND:
		d.result = fmt.Sprintf("and %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnOR:
		d.result = fmt.Sprintf("or %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnXOR:
		d.result = fmt.Sprintf("xor %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnNOR:
		d.result = fmt.Sprintf("nor %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSLT:
		d.result = fmt.Sprintf("slt %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	case isa.FnSLTU:
		d.result = fmt.Sprintf("sltu %s,%s,%s", gpr(rd), gpr(rs), gpr(rt))
		d.addComment(commentGPRRd, rd, instr, 0)

	default:
		d.result = fmt.Sprintf("illegal 0x%08X", instr)
	}
}

func (d *Disassembler) bcondInstr(instr uint32, rs uint, pc uint32) {
	rt := isa.Rt(instr)
	mnemonic := "bltz"
	if rt&1 != 0 {
		mnemonic = "bgez"
	}
	if (rt>>4)&1 != 0 {
		mnemonic += "al"
	}
	d.result = fmt.Sprintf("%s %s,%s", mnemonic, gpr(rs), signedImm(instr))
	d.addComment(commentBranch, 0, instr, pc)
}

func (d *Disassembler) cop0Instr(instr uint32, rs, rt, rd uint) {
	switch rs {
	case isa.Cop0MF:
		d.result = fmt.Sprintf("mfc0 %s,%s", gpr(rt), cp0(rd))
		d.addComment(commentGPRRt, rt, instr, 0)

	case isa.Cop0MT:
		d.result = fmt.Sprintf("mtc0 %s,%s", gpr(rt), cp0(rd))
		d.addComment(commentCP0Rd, rd, instr, 0)

	default:
		if isa.Funct(instr) == isa.Cop0RFE {
			d.result = "rfe"
			return
		}
		d.result = fmt.Sprintf("illegal 0x%08X", instr)
	}
}

var cop2FnNames = map[uint]string{
	isa.FnRTPS: "rtps", isa.FnNCLIP: "nclip", isa.FnOP: "op",
	isa.FnDPCS: "dpcs", isa.FnINTPL: "intpl", isa.FnMVMVA: "mvmva",
	isa.FnNCDS: "ncds", isa.FnCDP: "cdp", isa.FnNCDT: "ncdt",
	isa.FnNCCS: "nccs", isa.FnCC: "cc", isa.FnNCS: "ncs",
	isa.FnNCT: "nct", isa.FnSQR: "sqr", isa.FnDCPL: "dcpl",
	isa.FnDPCT: "dpct", isa.FnAVSZ3: "avsz3", isa.FnAVSZ4: "avsz4",
	isa.FnRTPT: "rtpt", isa.FnGPF: "gpf", isa.FnGPL: "gpl",
	isa.FnNCCT: "ncct",
}

func (d *Disassembler) cop2Instr(instr uint32, rs, rt, rd uint) {
	switch rs {
	case isa.Cop2MF:
		d.result = fmt.Sprintf("mfc2 %s,%s", gpr(rt), cp2(rd))
		d.addComment(commentGPRRt, rt, instr, 0)

	case isa.Cop2CF:
		d.result = fmt.Sprintf("cfc2 %s,%s", gpr(rt), cp2ccr(rd))
		d.addComment(commentGPRRt, rt, instr, 0)

	case isa.Cop2MT:
		d.result = fmt.Sprintf("mtc2 %s,%s", gpr(rt), cp2(rd))

	case isa.Cop2CT:
		d.result = fmt.Sprintf("ctc2 %s,%s", gpr(rt), cp2ccr(rd))

	default:
		if name, ok := cop2FnNames[isa.Funct(instr)]; ok {
			d.result = name
			return
		}
		d.result = fmt.Sprintf("illegal 0x%08X", instr)
	}
}

// Trace renders Result padded to the trace column, followed by the
// deferred comments resolved against cv's current state, in the order
// they were queued. It returns the bare Result unchanged if no comments
// are owed.
func (d *Disassembler) Trace(cv CPUView) string {
	if len(d.comments) == 0 {
		return d.result
	}

	var b strings.Builder
	b.WriteString(d.result)
	if pad := traceColumn - len(d.result); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString("; ")

	for i, c := range d.comments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(resolveComment(c, cv))
	}

	return b.String()
}

func resolveComment(c comment, cv CPUView) string {
	switch c.kind {
	case commentGPRRd, commentGPRRt:
		return fmt.Sprintf("%s=0x%08X", isa.GPRNames[c.reg&0x1F], cv.GPR(c.reg))

	case commentLO:
		return fmt.Sprintf("LO=0x%08X", cv.LO())

	case commentHI:
		return fmt.Sprintf("HI=0x%08X", cv.HI())

	case commentBranch:
		return fmt.Sprintf("addr=0x%08X", isa.BranchTarget(c.instr, c.pc))

	case commentJump:
		return fmt.Sprintf("addr=0x%08X", isa.JumpTarget(c.instr, c.pc))

	case commentPAddr:
		vaddr := cv.GPR(c.reg) + isa.Offset(c.instr)
		return fmt.Sprintf("paddr=0x%08X", isa.VAddrToPAddr(vaddr))

	case commentCP0Rd:
		return fmt.Sprintf("%s=0x%08X", isa.CP0Names[c.reg&0x1F], cv.CP0(c.reg))

	default:
		return ""
	}
}
