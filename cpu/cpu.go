// Package cpu implements the Nova3201 execution engine: instruction
// decode and the single-cycle step algorithm, including interrupt
// entry and the illegal-opcode exception.
package cpu

import (
	"github.com/jaytaph/nova3201/bus"
	"github.com/jaytaph/nova3201/isa"
	"github.com/jaytaph/nova3201/util/debug"
)

// Trace levels for DebugMask, following the teacher's per-module
// debugMsk convention: 0 disables tracing regardless of what's logged.
const debugException = 1

// DebugMask gates this package's trace output through util/debug.Debugf;
// leave it 0 to disable.
var DebugMask int

// IRQSnapshot is the set of device interrupt lines observed after
// devices tick and before the CPU decides whether to take an
// interrupt, per spec §4.5.
type IRQSnapshot struct {
	Timer1 bool
	Timer2 bool
	UART   bool
}

// CPU holds the Nova3201 register file and special registers. The
// zero value equals the reset state that New returns.
type CPU struct {
	Regs [32]uint32

	PC     uint32
	SR     uint32
	EPC    uint32
	CAUSE  uint32
	Halted bool
}

// New returns a CPU in its reset state: all registers zero, PC at the
// reset vector.
func New() *CPU {
	c := &CPU{}
	c.Reset()
	return c
}

// Reset restores power-on state.
func (c *CPU) Reset() {
	for i := range c.Regs {
		c.Regs[i] = 0
	}
	c.PC = isa.ResetVector
	c.SR = 0
	c.EPC = 0
	c.CAUSE = 0
	c.Halted = false
}

// instruction is the decoded field layout of one 32-bit word.
type instruction struct {
	opcode uint32
	rd     uint32
	rs     uint32
	rt     uint32
	imm16  uint32
	target uint32
}

func decode(raw uint32) instruction {
	return instruction{
		opcode: raw >> 26 & 0x3F,
		rd:     raw >> 21 & 0x1F,
		rs:     raw >> 16 & 0x1F,
		rt:     raw >> 11 & 0x1F,
		imm16:  raw & 0xFFFF,
		target: raw & 0x03FF_FFFF,
	}
}

func signExt16(v uint32) uint32 {
	return uint32(int32(int16(v)))
}

// Step advances the CPU by one cycle against bus b, given the IRQ
// lines devices asserted this cycle. It returns an error only when a
// bus fault occurs during fetch, load, or store; all other outcomes
// (illegal opcode, interrupt entry, HALT) are reflected in CPU state,
// not returned as an error.
func (c *CPU) Step(b *bus.Bus, irq IRQSnapshot) error {
	if c.Halted {
		return nil
	}

	raw, err := b.Load32(c.PC)
	if err != nil {
		return err
	}
	ins := decode(raw)

	takeException := false
	var cause uint32
	excPC := c.PC

	switch {
	case irq.Timer1:
		takeException = true
		cause = isa.CauseTimer1IRQ
	case irq.Timer2:
		takeException = true
		cause = isa.CauseTimer2IRQ
	case irq.UART:
		takeException = true
		cause = isa.CauseUARTIRQ
	}

	if takeException {
		debug.Debugf("cpu", DebugMask, debugException, "interrupt cause=%s epc=%08X", isa.CauseString(cause), excPC)
		c.EPC = excPC
		c.CAUSE = cause
		c.SR &^= isa.SRInterruptEnable
		c.PC = isa.ExceptionVector
		c.Regs[0] = 0
		return nil
	}

	if err := c.execute(b, ins); err != nil {
		return err
	}

	c.Regs[0] = 0
	return nil
}

func (c *CPU) raiseIllegalOp() {
	debug.Debugf("cpu", DebugMask, debugException, "illegal opcode at pc=%08X", c.PC)
	c.EPC = c.PC
	c.CAUSE = isa.CauseIllegalOp
	c.PC = isa.ExceptionVector
}

func (c *CPU) execute(b *bus.Bus, ins instruction) error {
	rd, rs, rt := ins.rd, ins.rs, ins.rt
	simm := signExt16(ins.imm16)
	zimm := ins.imm16

	switch ins.opcode {
	case isa.ADD:
		c.Regs[rd] = c.Regs[rs] + c.Regs[rt]
		c.PC += 4
	case isa.SUB:
		c.Regs[rd] = c.Regs[rs] - c.Regs[rt]
		c.PC += 4
	case isa.AND:
		c.Regs[rd] = c.Regs[rs] & c.Regs[rt]
		c.PC += 4
	case isa.OR:
		c.Regs[rd] = c.Regs[rs] | c.Regs[rt]
		c.PC += 4
	case isa.XOR:
		c.Regs[rd] = c.Regs[rs] ^ c.Regs[rt]
		c.PC += 4
	case isa.SLT:
		if int32(c.Regs[rs]) < int32(c.Regs[rt]) {
			c.Regs[rd] = 1
		} else {
			c.Regs[rd] = 0
		}
		c.PC += 4
	case isa.SLTU:
		if c.Regs[rs] < c.Regs[rt] {
			c.Regs[rd] = 1
		} else {
			c.Regs[rd] = 0
		}
		c.PC += 4
	case isa.SHL:
		c.Regs[rd] = c.Regs[rs] << (c.Regs[rt] & 0x1F)
		c.PC += 4
	case isa.SHR:
		c.Regs[rd] = c.Regs[rs] >> (c.Regs[rt] & 0x1F)
		c.PC += 4
	case isa.SAR:
		c.Regs[rd] = uint32(int32(c.Regs[rs]) >> (c.Regs[rt] & 0x1F))
		c.PC += 4
	case isa.ADDI:
		c.Regs[rd] = c.Regs[rs] + simm
		c.PC += 4
	case isa.ANDI:
		c.Regs[rd] = c.Regs[rs] & zimm
		c.PC += 4
	case isa.ORI:
		c.Regs[rd] = c.Regs[rs] | zimm
		c.PC += 4
	case isa.XORI:
		c.Regs[rd] = c.Regs[rs] ^ zimm
		c.PC += 4
	case isa.SLTI:
		if int32(c.Regs[rs]) < int32(simm) {
			c.Regs[rd] = 1
		} else {
			c.Regs[rd] = 0
		}
		c.PC += 4
	case isa.SLTIU:
		if c.Regs[rs] < zimm {
			c.Regs[rd] = 1
		} else {
			c.Regs[rd] = 0
		}
		c.PC += 4
	case isa.LUI:
		c.Regs[rd] = zimm << 16
		c.PC += 4
	case isa.LW:
		addr := c.Regs[rs] + simm
		v, err := b.Load32(addr)
		if err != nil {
			return err
		}
		c.Regs[rd] = v
		c.PC += 4
	case isa.SW:
		addr := c.Regs[rs] + simm
		if err := b.Store32(addr, c.Regs[rd]); err != nil {
			return err
		}
		c.PC += 4
	case isa.LB:
		addr := c.Regs[rs] + simm
		v, err := b.Load8(addr)
		if err != nil {
			return err
		}
		c.Regs[rd] = uint32(int32(int8(v)))
		c.PC += 4
	case isa.SB:
		addr := c.Regs[rs] + simm
		if err := b.Store8(addr, byte(c.Regs[rd])); err != nil {
			return err
		}
		c.PC += 4
	case isa.BEQ:
		c.branch(c.Regs[rd] == c.Regs[rs], simm)
	case isa.BNE:
		c.branch(c.Regs[rd] != c.Regs[rs], simm)
	case isa.BLT:
		c.branch(int32(c.Regs[rd]) < int32(c.Regs[rs]), simm)
	case isa.BGE:
		c.branch(int32(c.Regs[rd]) >= int32(c.Regs[rs]), simm)
	case isa.J:
		c.PC = (c.PC & 0xF000_0000) | (ins.target << 2)
	case isa.JAL:
		ret := c.PC + 4
		c.PC = (c.PC & 0xF000_0000) | (ins.target << 2)
		c.Regs[isa.LinkRegister] = ret
	case isa.JR:
		c.PC = c.Regs[rs]
	case isa.JALR:
		ret := c.PC + 4
		c.Regs[rd] = ret
		c.PC = c.Regs[rs]
	case isa.NOP:
		c.PC += 4
	case isa.HALT:
		c.Halted = true
	default:
		c.raiseIllegalOp()
	}

	return nil
}

func (c *CPU) branch(taken bool, simm uint32) {
	if taken {
		c.PC = c.PC + 4 + (simm << 2)
	} else {
		c.PC += 4
	}
}
