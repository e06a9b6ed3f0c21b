// Package isa defines the LR33300 instruction set: fixed-width type
// aliases, opcode/function/register numeric tables, field extraction and
// the address arithmetic shared by the cpu and disasm packages.
package isa

// U8, U16, U32 and their signed counterparts document intent at call sites
// that care about register width even though Go's builtin sized integers
// are already exactly that width.
type (
	U8  = uint8
	U16 = uint16
	U32 = uint32
	S8  = int8
	S16 = int16
	S32 = int32
)

// Primary opcode groups, dispatched on the "op" field of an instruction.
const (
	OpGroupSpecial = 0x00
	OpGroupBcond   = 0x01
	OpGroupCop0    = 0x10
	OpGroupCop2    = 0x12
)

// Primary opcodes.
const (
	OpJ      = 0x02
	OpJAL    = 0x03
	OpBEQ    = 0x04
	OpBNE    = 0x05
	OpBLEZ   = 0x06
	OpBGTZ   = 0x07
	OpADDI   = 0x08
	OpADDIU  = 0x09
	OpSLTI   = 0x0A
	OpSLTIU  = 0x0B
	OpANDI   = 0x0C
	OpORI    = 0x0D
	OpXORI   = 0x0E
	OpLUI    = 0x0F
	OpLB     = 0x20
	OpLH     = 0x21
	OpLWL    = 0x22
	OpLW     = 0x23
	OpLBU    = 0x24
	OpLHU    = 0x25
	OpLWR    = 0x26
	OpSB     = 0x28
	OpSH     = 0x29
	OpSWL    = 0x2A
	OpSW     = 0x2B
	OpSWR    = 0x2E
	OpLWC2   = 0x32
	OpSWC2   = 0x3A
)

// SPECIAL group function codes.
const (
	FnSLL     = 0x00
	FnSRL     = 0x02
	FnSRA     = 0x03
	FnSLLV    = 0x04
	FnSRLV    = 0x06
	FnSRAV    = 0x07
	FnJR      = 0x08
	FnJALR    = 0x09
	FnSYSCALL = 0x0C
	FnBREAK   = 0x0D
	FnMFHI    = 0x10
	FnMTHI    = 0x11
	FnMFLO    = 0x12
	FnMTLO    = 0x13
	FnMULT    = 0x18
	FnMULTU   = 0x19
	FnDIV     = 0x1A
	FnDIVU    = 0x1B
	FnADD     = 0x20
	FnADDU    = 0x21
	FnSUB     = 0x22
	FnSUBU    = 0x23
	FnAND     = 0x24
	FnOR      = 0x25
	FnXOR     = 0x26
	FnNOR     = 0x27
	FnSLT     = 0x2A
	FnSLTU    = 0x2B
)

// COP0 "rs" sub-opcodes and the RFE function code (decode-only: the cpu
// package's execCop0 raises RI for RFE instead of executing it).
const (
	Cop0MF  = 0x00
	Cop0MT  = 0x04
	Cop0RFE = 0x10
)

// COP2 (GTE) "rs" sub-opcodes for register moves.
const (
	Cop2MF = 0x00
	Cop2CF = 0x02
	Cop2MT = 0x04
	Cop2CT = 0x06
)

// COP2 (GTE) function codes. Execution is out of scope; the disassembler
// still renders their mnemonics.
const (
	FnRTPS  = 0x01
	FnNCLIP = 0x06
	FnOP    = 0x0C
	FnDPCS  = 0x10
	FnINTPL = 0x11
	FnMVMVA = 0x12
	FnNCDS  = 0x13
	FnCDP   = 0x14
	FnNCDT  = 0x16
	FnNCCS  = 0x1B
	FnCC    = 0x1C
	FnNCS   = 0x1E
	FnNCT   = 0x20
	FnSQR   = 0x28
	FnDCPL  = 0x29
	FnDPCT  = 0x2A
	FnAVSZ3 = 0x2D
	FnAVSZ4 = 0x2E
	FnRTPT  = 0x30
	FnGPF   = 0x3D
	FnGPL   = 0x3E
	FnNCCT  = 0x3F
)

// GPR register numbers.
const (
	RegZero = 0
	RegAt   = 1
	RegV0   = 2
	RegV1   = 3
	RegA0   = 4
	RegA1   = 5
	RegA2   = 6
	RegA3   = 7
	RegT0   = 8
	RegT1   = 9
	RegT2   = 10
	RegT3   = 11
	RegT4   = 12
	RegT5   = 13
	RegT6   = 14
	RegT7   = 15
	RegS0   = 16
	RegS1   = 17
	RegS2   = 18
	RegS3   = 19
	RegS4   = 20
	RegS5   = 21
	RegS6   = 22
	RegS7   = 23
	RegT8   = 24
	RegT9   = 25
	RegK0   = 26
	RegK1   = 27
	RegGP   = 28
	RegSP   = 29
	RegFP   = 30
	RegRA   = 31
)

// CP0 control register numbers (only a subset is behaviourally
// interpreted; the rest exist to be moved to/from by MFC0/MTC0).
const (
	CP0Index    = 0
	CP0Random   = 1
	CP0EntryLo  = 2
	CP0BPC      = 3
	CP0Context  = 4
	CP0BDA      = 5
	CP0TAR      = 6
	CP0DCIC     = 7
	CP0BadA     = 8
	CP0BDAM     = 9
	CP0EntryHi  = 10
	CP0BPCM     = 11
	CP0SR       = 12
	CP0Cause    = 13
	CP0EPC      = 14
	CP0PRId     = 15
)

// SRIsC is bit 16 of the Status register: when set, the data cache is
// "isolated" and SW becomes a no-op on the main bus.
const SRIsC = uint32(0x00010000)

// Exception codes. Only RI is ever raised by this interpreter.
const (
	ExcRI = 10
)

// CP2 data register numbers, used by the disassembler's MFC2/CFC2 naming
// and by the interpreter's data-only GTE register file stub.
const (
	CP2VXY0 = 0
	CP2VZ0  = 1
	CP2VXY1 = 2
	CP2VZ1  = 3
	CP2VXY2 = 4
	CP2VZ2  = 5
	CP2RGB  = 6
	CP2OTZ  = 7
	CP2IR0  = 8
	CP2IR1  = 9
	CP2IR2  = 10
	CP2IR3  = 11
	CP2SXY0 = 12
	CP2SXY1 = 13
	CP2SXY2 = 14
	CP2SXYP = 15
	CP2SZ0  = 16
	CP2SZ1  = 17
	CP2SZ2  = 18
	CP2SZ3  = 19
	CP2RGB0 = 20
	CP2RGB1 = 21
	CP2RGB2 = 22
	CP2RES1 = 23
	CP2MAC0 = 24
	CP2MAC1 = 25
	CP2MAC2 = 26
	CP2MAC3 = 27
	CP2IRGB = 28
	CP2ORGB = 29
	CP2LZCS = 30
	CP2LZCR = 31
)

// CP2 control register numbers.
const (
	CP2CCRR11R12 = 0
	CP2CCRR13R21 = 1
	CP2CCRR22R23 = 2
	CP2CCRR31R32 = 3
	CP2CCRR33    = 4
	CP2CCRTRX    = 5
	CP2CCRTRY    = 6
	CP2CCRTRZ    = 7
	CP2CCRL11L12 = 8
	CP2CCRL13L21 = 9
	CP2CCRL22L23 = 10
	CP2CCRL31L32 = 11
	CP2CCRL33    = 12
	CP2CCRRBK    = 13
	CP2CCRGBK    = 14
	CP2CCRBBK    = 15
	CP2CCRLR1LR2 = 16
	CP2CCRLR3LG1 = 17
	CP2CCRLG2LG3 = 18
	CP2CCRLB1LB2 = 19
	CP2CCRLB3    = 20
	CP2CCRRFC    = 21
	CP2CCRGFC    = 22
	CP2CCRBFC    = 23
	CP2CCROFX    = 24
	CP2CCROFY    = 25
	CP2CCRH      = 26
	CP2CCRDQA    = 27
	CP2CCRDQB    = 28
	CP2CCRZSF3   = 29
	CP2CCRZSF4   = 30
	CP2CCRFLAG   = 31
)

// ResetVector is the virtual address the CPU begins execution at.
const ResetVector = uint32(0xBFC00000)

// GPRNames are the standard MIPS assembler register mnemonics.
var GPRNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// CP0Names renders named CP0 control registers; unnamed slots render as
// C0_REG<n>.
var CP0Names = [32]string{
	"C0_Index", "C0_Random", "C0_EntryLo", "C0_BPC",
	"C0_Context", "C0_BDA", "C0_TAR", "C0_DCIC",
	"C0_BadA", "C0_BDAM", "C0_EntryHi", "C0_BPCM",
	"C0_SR", "C0_Cause", "C0_EPC", "C0_PRId",
	"C0_REG16", "C0_REG17", "C0_REG18", "C0_REG19",
	"C0_REG20", "C0_REG21", "C0_REG22", "C0_REG23",
	"C0_REG24", "C0_REG25", "C0_REG26", "C0_REG27",
	"C0_REG28", "C0_REG29", "C0_REG30", "C0_REG31",
}

// CP2Names renders GTE data registers.
var CP2Names = [32]string{
	"C2_VXY0", "C2_VZ0", "C2_VXY1", "C2_VZ1", "C2_VXY2", "C2_VZ2",
	"C2_RGB", "C2_OTZ", "C2_IR0", "C2_IR1", "C2_IR2", "C2_IR3",
	"C2_SXY0", "C2_SXY1", "C2_SXY2", "C2_SXYP",
	"C2_SZ0", "C2_SZ1", "C2_SZ2", "C2_SZ3",
	"C2_RGB0", "C2_RGB1", "C2_RGB2", "C2_RES1",
	"C2_MAC0", "C2_MAC1", "C2_MAC2", "C2_MAC3",
	"C2_IRGB", "C2_ORGB", "C2_LZCS", "C2_LZCR",
}

// CP2CCRNames renders GTE control registers using the pair-packed names.
var CP2CCRNames = [32]string{
	"C2_R11R12", "C2_R13R21", "C2_R22R23", "C2_R31R32", "C2_R33",
	"C2_TRX", "C2_TRY", "C2_TRZ",
	"C2_L11L12", "C2_L13L21", "C2_L22L23", "C2_L31L32", "C2_L33",
	"C2_RBK", "C2_GBK", "C2_BBK",
	"C2_LR1LR2", "C2_LR3LG1", "C2_LG2LG3", "C2_LB1LB2", "C2_LB3",
	"C2_RFC", "C2_GFC", "C2_BFC",
	"C2_OFX", "C2_OFY", "C2_H", "C2_DQA", "C2_DQB",
	"C2_ZSF3", "C2_ZSF4", "C2_FLAG",
}

// Op extracts the 6-bit primary opcode from an instruction word.
func Op(instr uint32) uint { return uint(instr >> 26) }

// Rs extracts the 5-bit source register specifier.
func Rs(instr uint32) uint { return uint(instr>>21) & 0x1F }

// Rt extracts the 5-bit target register specifier.
func Rt(instr uint32) uint { return uint(instr>>16) & 0x1F }

// Rd extracts the 5-bit destination register specifier.
func Rd(instr uint32) uint { return uint(instr>>11) & 0x1F }

// Shamt extracts the 5-bit shift amount.
func Shamt(instr uint32) uint { return uint(instr>>6) & 0x1F }

// Funct extracts the 6-bit function field.
func Funct(instr uint32) uint { return uint(instr) & 0x3F }

// Target extracts the 26-bit jump target field.
func Target(instr uint32) uint32 { return instr & 0x3FFFFFF }

// Imm extracts the raw 16-bit immediate/offset field.
func Imm(instr uint32) uint16 { return uint16(instr) }

// ZExtImm zero-extends the 16-bit immediate to 32 bits.
func ZExtImm(instr uint32) uint32 { return uint32(Imm(instr)) }

// SExtImm sign-extends the 16-bit immediate to 32 bits.
func SExtImm(instr uint32) uint32 { return uint32(int32(int16(Imm(instr)))) }

// Base is the base register for load/store addressing; an alias of Rs
// that exists to match MIPS assembler conventions.
func Base(instr uint32) uint { return Rs(instr) }

// Offset is the sign-extended displacement for load/store addressing.
func Offset(instr uint32) uint32 { return SExtImm(instr) }

// JumpTarget computes the absolute jump target for J/JAL: the 26-bit
// field shifted left two, merged with the top 4 bits of pc.
func JumpTarget(instr, pc uint32) uint32 {
	return (Target(instr) << 2) | (pc & 0xF0000000)
}

// BranchTarget computes the branch target for a conditional branch
// evaluated against its own pc: pc + 4 + (sext_offset << 2).
func BranchTarget(instr, pc uint32) uint32 {
	return (Offset(instr) << 2) + pc + 4
}

// VAddrToPAddr folds KUSEG/KSEG0/KSEG1 onto a single 512 MiB physical
// window; no TLB is modelled.
func VAddrToPAddr(vaddr uint32) uint32 { return vaddr & 0x1FFFFFFF }
