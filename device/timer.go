package device

// Timer control register bits.
const (
	TimerEnabled  uint32 = 0x1 // EN  - counter runs
	TimerIRQEnabl uint32 = 0x2 // IE  - assert irq at period
	TimerOneShot  uint32 = 0x4 // ONESHOT - stop instead of reloading
)

// Timer is a free-running counter that asserts an IRQ line every time it
// reaches its configured period, then either stops (one-shot) or wraps
// back to zero (periodic). It is advanced exactly once per call to Tick,
// which the owning Machine calls once per simulated cycle; there is no
// wall-clock or goroutine involved, matching the simulator's
// single-threaded, synchronous execution model.
type Timer struct {
	ctrl    uint32
	counter uint32
	period  uint32
	irq     bool
}

// NewTimer returns a timer in its reset state: enabled, IRQ-enabled,
// period zero (so Tick is a no-op until Period is configured).
func NewTimer() *Timer {
	t := &Timer{}
	t.Reset()
	return t
}

// Reset restores power-on state.
func (t *Timer) Reset() {
	t.ctrl = TimerEnabled | TimerIRQEnabl
	t.counter = 0
	t.period = 0
	t.irq = false
}

// Tick advances the counter by one cycle and asserts IRQ / reloads per
// the control register, per spec §4.3.
func (t *Timer) Tick() {
	if t.period == 0 || t.ctrl&TimerEnabled == 0 {
		return
	}

	t.counter++

	if t.counter >= t.period {
		if t.ctrl&TimerIRQEnabl != 0 {
			t.irq = true
		}
		if t.ctrl&TimerOneShot != 0 {
			t.ctrl &^= TimerEnabled
		} else {
			t.counter = 0
		}
	}
}

// IRQ reports whether the timer currently has a pending interrupt.
func (t *Timer) IRQ() bool { return t.irq }

// Ctrl returns the control register.
func (t *Timer) Ctrl() uint32 { return t.ctrl }

// SetCtrl writes the control register.
func (t *Timer) SetCtrl(v uint32) { t.ctrl = v }

// Period returns the configured period.
func (t *Timer) Period() uint32 { return t.period }

// SetPeriod writes the period and resets the counter to zero, per the
// MMIO write semantics in spec §4.3.
func (t *Timer) SetPeriod(v uint32) {
	t.period = v
	t.counter = 0
}

// Count returns the current counter value.
func (t *Timer) Count() uint32 { return t.counter }

// ClearCounter implements a write-any to the RESET register.
func (t *Timer) ClearCounter() { t.counter = 0 }

// AckIRQ implements a write-any to the ACK register.
func (t *Timer) AckIRQ() { t.irq = false }
