package cpu

import (
	"testing"

	"github.com/jaytaph/nova3201/bus"
	"github.com/jaytaph/nova3201/isa"
)

func encodeI(op, rd, rs uint32, imm16 uint32) uint32 {
	return op<<26 | rd<<21 | rs<<16 | (imm16 & 0xFFFF)
}

func encodeR(op, rd, rs, rt uint32) uint32 {
	return op<<26 | rd<<21 | rs<<16 | rt<<11
}

func encodeJ(op, target uint32) uint32 {
	return op<<26 | (target & 0x03FF_FFFF)
}

func step(t *testing.T, c *CPU, b *bus.Bus) {
	t.Helper()
	if err := c.Step(b, IRQSnapshot{}); err != nil {
		t.Fatalf("step: %v", err)
	}
}

func TestADDISWLWRoundTrip(t *testing.T) {
	b := bus.New(nil)
	c := New()

	// ADDI r1, r0, 42
	mustStore(t, b, 0, encodeI(isa.ADDI, 1, 0, 42))
	// SW r1, 0x100(r0)  -- rd=1 is value, rs=0 is base
	mustStore(t, b, 4, encodeI(isa.SW, 1, 0, 0x100))
	// LW r2, 0x100(r0)
	mustStore(t, b, 8, encodeI(isa.LW, 2, 0, 0x100))

	step(t, c, b)
	step(t, c, b)
	step(t, c, b)

	if c.Regs[2] != 42 {
		t.Fatalf("got r2=%d, want 42", c.Regs[2])
	}
}

func TestADDISignExtends(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeI(isa.ADDI, 1, 0, 0xFFFF)) // -1
	step(t, c, b)
	if c.Regs[1] != 0xFFFF_FFFF {
		t.Fatalf("got r1=0x%08X, want 0xFFFFFFFF", c.Regs[1])
	}
}

func TestLUIORIBuilds32BitConstant(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeI(isa.LUI, 1, 0, 0x1234))
	mustStore(t, b, 4, encodeI(isa.ORI, 1, 1, 0x5678))
	step(t, c, b)
	step(t, c, b)
	if c.Regs[1] != 0x1234_5678 {
		t.Fatalf("got r1=0x%08X, want 0x12345678", c.Regs[1])
	}
}

func TestForwardBranchTaken(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeI(isa.ADDI, 1, 0, 5))
	mustStore(t, b, 4, encodeI(isa.ADDI, 2, 0, 5))
	// BEQ r1, r2, +1 word (skip the next instruction)
	mustStore(t, b, 8, encodeI(isa.BEQ, 1, 2, 1))
	mustStore(t, b, 12, encodeI(isa.ADDI, 3, 0, 99)) // skipped
	mustStore(t, b, 16, encodeI(isa.ADDI, 3, 0, 7))

	for i := 0; i < 4; i++ {
		step(t, c, b)
	}

	if c.Regs[3] != 7 {
		t.Fatalf("got r3=%d, want 7 (branch should have skipped the 99 store)", c.Regs[3])
	}
}

func TestJALLinksReturnAddress(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeJ(isa.JAL, 2)) // target word index 2 -> addr 8
	step(t, c, b)
	if c.PC != 8 {
		t.Fatalf("got PC=%d, want 8", c.PC)
	}
	if c.Regs[isa.LinkRegister] != 4 {
		t.Fatalf("got r31=%d, want 4", c.Regs[isa.LinkRegister])
	}
}

func TestRegisterZeroIsHardwired(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeI(isa.ADDI, 0, 0, 77))
	step(t, c, b)
	if c.Regs[0] != 0 {
		t.Fatalf("r0 must remain zero, got %d", c.Regs[0])
	}
}

func TestTimerIRQEntersExceptionVector(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeI(isa.NOP, 0, 0, 0))

	if err := c.Step(b, IRQSnapshot{Timer1: true}); err != nil {
		t.Fatalf("step: %v", err)
	}

	if c.PC != isa.ExceptionVector {
		t.Fatalf("got PC=0x%X, want exception vector", c.PC)
	}
	if c.CAUSE != isa.CauseTimer1IRQ {
		t.Fatalf("got CAUSE=0x%X, want CauseTimer1IRQ", c.CAUSE)
	}
	if c.EPC != 0 {
		t.Fatalf("got EPC=0x%X, want 0", c.EPC)
	}
}

func TestIllegalOpcodeRaisesException(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeJ(0x3D, 0)) // unused opcode
	step(t, c, b)
	if c.PC != isa.ExceptionVector {
		t.Fatalf("got PC=0x%X, want exception vector", c.PC)
	}
	if c.CAUSE != isa.CauseIllegalOp {
		t.Fatalf("got CAUSE=0x%X, want CauseIllegalOp", c.CAUSE)
	}
}

func TestHaltStopsExecution(t *testing.T) {
	b := bus.New(nil)
	c := New()
	mustStore(t, b, 0, encodeJ(isa.HALT, 0))
	mustStore(t, b, 4, encodeI(isa.ADDI, 1, 0, 1))

	step(t, c, b)
	if !c.Halted {
		t.Fatalf("expected halted")
	}
	pcBefore := c.PC
	step(t, c, b)
	if c.PC != pcBefore || c.Regs[1] != 0 {
		t.Fatalf("halted CPU must not execute further instructions")
	}
}

func mustStore(t *testing.T, b *bus.Bus, addr uint32, word uint32) {
	t.Helper()
	if err := b.Store32(addr, word); err != nil {
		t.Fatalf("store32 at 0x%X: %v", addr, err)
	}
}
