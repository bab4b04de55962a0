package assemble

import (
	"testing"

	"github.com/jaytaph/nova3201/isa"
)

func TestAssembleSimpleProgramProducesOneSegment(t *testing.T) {
	src := `
start:
	addi r1, r0, 10
	addi r2, r0, 32
	add  r3, r1, r2
	halt
`
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(obj.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(obj.Segments))
	}
	seg := obj.Segments[0]
	if seg.BaseAddr != 0 || len(seg.Words) != 4 {
		t.Fatalf("unexpected segment: %+v", seg)
	}

	wantHalt := uint32(isa.HALT) << 26
	if seg.Words[3] != wantHalt {
		t.Fatalf("got last word 0x%08X, want HALT encoding 0x%08X", seg.Words[3], wantHalt)
	}
}

func TestAssembleForwardBranchResolvesDisplacement(t *testing.T) {
	src := `
	addi r1, r0, 1
	addi r2, r0, 1
	beq  r1, r2, done
	addi r3, r0, 99
done:
	addi r3, r0, 7
`
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	seg := obj.Segments[0]
	// beq is the 3rd instruction, at byte 8; skips one instruction (4 bytes)
	// so target is addr 16, displacement words = (16-12)/4 = 1.
	beqWord := seg.Words[2]
	imm16 := beqWord & 0xFFFF
	if imm16 != 1 {
		t.Fatalf("got branch disp %d, want 1", imm16)
	}
}

func TestAssembleUnknownLabelErrors(t *testing.T) {
	src := "j nowhere\n"
	_, err := Assemble(src)
	if err == nil {
		t.Fatalf("expected error for unknown label")
	}
	aerr, ok := err.(*Error)
	if !ok || aerr.Kind != UnknownLabel {
		t.Fatalf("got %v, want UnknownLabel", err)
	}
}

func TestAssembleEquDirective(t *testing.T) {
	src := `
.equ BASE, 0x100
	addi r1, r0, BASE
`
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	word := obj.Segments[0].Words[0]
	if word&0xFFFF != 0x100 {
		t.Fatalf("got imm 0x%X, want 0x100", word&0xFFFF)
	}
}

func TestAssembleLIExpandsToLUIOriForLargeConstant(t *testing.T) {
	src := "li r1, 0x12345678\n"
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(obj.Segments[0].Words) != 2 {
		t.Fatalf("got %d words, want 2 (LUI+ORI)", len(obj.Segments[0].Words))
	}
	lui := obj.Segments[0].Words[0]
	ori := obj.Segments[0].Words[1]
	if lui&0xFFFF != 0x1234 {
		t.Fatalf("got lui imm 0x%X, want 0x1234", lui&0xFFFF)
	}
	if ori&0xFFFF != 0x5678 {
		t.Fatalf("got ori imm 0x%X, want 0x5678", ori&0xFFFF)
	}
}

func TestAssembleLAUsesLabelHiLo(t *testing.T) {
	src := `
.org 0x20000
target:
	nop
.org 0
	la r1, target
`
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	var laSeg *uint32Pair
	for _, seg := range obj.Segments {
		if seg.BaseAddr == 0 {
			laSeg = &uint32Pair{seg.Words[0], seg.Words[1]}
		}
	}
	if laSeg == nil {
		t.Fatalf("could not find la segment")
	}
	hi := laSeg.a & 0xFFFF
	lo := laSeg.b & 0xFFFF
	if hi != (0x20000>>16)&0xFFFF {
		t.Fatalf("got hi 0x%X, want 0x%X", hi, (0x20000>>16)&0xFFFF)
	}
	if lo != 0x20000&0xFFFF {
		t.Fatalf("got lo 0x%X, want 0", lo)
	}
}

type uint32Pair struct{ a, b uint32 }

func TestAssembleStringDirectivePacksBytesLittleEndian(t *testing.T) {
	src := `.string "AB"` + "\n"
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	// "AB" + NUL terminator = 3 bytes, padded to one word: 'A' | 'B'<<8 | 0<<16 | 0<<24
	want := uint32('A') | uint32('B')<<8
	if obj.Segments[0].Words[0] != want {
		t.Fatalf("got 0x%08X, want 0x%08X", obj.Segments[0].Words[0], want)
	}
}

func TestAssembleBSSProducesZeroSegment(t *testing.T) {
	src := ".bss 4\n"
	obj, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(obj.Segments) != 1 || obj.Segments[0].Kind != 1 {
		t.Fatalf("expected a single BSS segment, got %+v", obj.Segments)
	}
	if obj.Segments[0].LengthWords != 4 {
		t.Fatalf("got length %d, want 4", obj.Segments[0].LengthWords)
	}
}

func TestAssembleDuplicateLabelErrors(t *testing.T) {
	src := "a:\n nop\na:\n nop\n"
	_, err := Assemble(src)
	if err == nil {
		t.Fatalf("expected duplicate label error")
	}
}
