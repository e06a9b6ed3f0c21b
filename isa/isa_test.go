package isa

import "testing"

func TestFieldExtraction(t *testing.T) {
	// addiu $t0,$t1,0x1234
	instr := uint32(0x09<<26) | uint32(RegT1)<<21 | uint32(RegT0)<<16 | 0x1234

	if got := Op(instr); got != OpADDIU {
		t.Errorf("Op(0x%08X) = %d, want %d", instr, got, OpADDIU)
	}
	if got := Rs(instr); got != RegT1 {
		t.Errorf("Rs(0x%08X) = %d, want %d", instr, got, RegT1)
	}
	if got := Rt(instr); got != RegT0 {
		t.Errorf("Rt(0x%08X) = %d, want %d", instr, got, RegT0)
	}
	if got := Imm(instr); got != 0x1234 {
		t.Errorf("Imm(0x%08X) = 0x%04X, want 0x1234", instr, got)
	}
}

func TestSExtImm(t *testing.T) {
	tests := []struct {
		imm  uint32
		want uint32
	}{
		{0x0001, 0x00000001},
		{0x8000, 0xFFFF8000},
		{0xFFFF, 0xFFFFFFFF},
		{0x7FFF, 0x00007FFF},
	}
	for _, tc := range tests {
		if got := SExtImm(tc.imm); got != tc.want {
			t.Errorf("SExtImm(0x%04X) = 0x%08X, want 0x%08X", tc.imm, got, tc.want)
		}
	}
}

func TestJumpTarget(t *testing.T) {
	// j 0x00010000 encoded as a 26-bit word-target.
	instr := uint32(OpJ<<26) | (0x00010000 >> 2)
	pc := uint32(0xBFC00000)

	want := uint32(0xB0010000)
	if got := JumpTarget(instr, pc); got != want {
		t.Errorf("JumpTarget(0x%08X, 0x%08X) = 0x%08X, want 0x%08X", instr, pc, got, want)
	}
}

func TestBranchTarget(t *testing.T) {
	// Offset of +4 words (16 bytes) from the branch's own pc.
	instr := uint32(4)
	pc := uint32(0x80010000)

	want := pc + 4 + 16
	if got := BranchTarget(instr, pc); got != want {
		t.Errorf("BranchTarget(0x%08X, 0x%08X) = 0x%08X, want 0x%08X", instr, pc, got, want)
	}
}

func TestVAddrToPAddr(t *testing.T) {
	tests := []struct {
		vaddr, want uint32
	}{
		{0x00000000, 0x00000000},
		{0x80000000, 0x00000000},
		{0xA0000000, 0x00000000},
		{0xBFC00000, 0x1FC00000},
		{0x80010000, 0x00010000},
	}
	for _, tc := range tests {
		if got := VAddrToPAddr(tc.vaddr); got != tc.want {
			t.Errorf("VAddrToPAddr(0x%08X) = 0x%08X, want 0x%08X", tc.vaddr, got, tc.want)
		}
	}
}
