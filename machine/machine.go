// Package machine composes the CPU and Bus into the Nova3201's single
// synchronous step loop.
package machine

import (
	"github.com/jaytaph/nova3201/bus"
	"github.com/jaytaph/nova3201/cpu"
	"github.com/jaytaph/nova3201/device"
)

// Machine owns a CPU and a Bus exclusively; nothing else holds a
// reference to either.
type Machine struct {
	CPU *cpu.CPU
	Bus *bus.Bus
}

// New returns a Machine in its reset state, with the UART attached to
// uartBackend (nil is valid: transmitted bytes are discarded).
func New(uartBackend device.Backend) *Machine {
	return &Machine{
		CPU: cpu.New(),
		Bus: bus.New(uartBackend),
	}
}

// Reset restores the CPU and Bus to their power-on state.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.Bus.Reset()
}

// Step advances devices then the CPU by one cycle, per spec §4.5:
// tick every device, snapshot their IRQ lines, then step the CPU
// against that snapshot. Bus faults during fetch/load/store are
// surfaced to the caller rather than swallowed.
func (m *Machine) Step() error {
	m.Bus.Tick()

	snapshot := cpu.IRQSnapshot{
		Timer1: m.Bus.Timer1.IRQ(),
		Timer2: m.Bus.Timer2.IRQ(),
		UART:   m.Bus.UART.IRQ(),
	}

	return m.CPU.Step(m.Bus, snapshot)
}

// Run steps the machine until it halts, a bus error occurs, or
// maxSteps cycles have executed (0 means unlimited). It returns the
// number of cycles actually executed.
func (m *Machine) Run(maxSteps int) (int, error) {
	n := 0
	for maxSteps <= 0 || n < maxSteps {
		if m.CPU.Halted {
			return n, nil
		}
		if err := m.Step(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// LoadWords writes a contiguous block of 32-bit words into the Bus
// starting at base, one Store32 per word.
func (m *Machine) LoadWords(base uint32, words []uint32) error {
	for i, w := range words {
		if err := m.Bus.Store32(base+uint32(i*4), w); err != nil {
			return err
		}
	}
	return nil
}
