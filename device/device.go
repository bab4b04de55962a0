// Package device implements the memory-mapped peripherals owned by the
// bus: the two timers and the UART. Each device exposes a Tick method
// called once per Machine.Step and an IRQ line that the same
// Machine.Step samples right after ticking, before the CPU executes.
package device

// Ticker is implemented by every device the bus drives once per cycle.
type Ticker interface {
	Tick()
	IRQ() bool
}
