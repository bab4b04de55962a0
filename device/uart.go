package device

// UART status register bits.
const (
	UARTTxReady    uint32 = 1 << 0
	UARTRxAvail    uint32 = 1 << 1
	UARTIRQEnabled uint32 = 1 << 7
)

// writableStatusMask selects the status bits software may set directly;
// TX_READY and RX_AVAILABLE are read-only and masked out of any write.
const writableStatusMask = UARTIRQEnabled

// Backend is the host-side capability a UART is attached to: a place to
// send transmitted bytes, and a non-blocking source of received bytes.
// Swapping the backend is how a stdout sink, an in-memory test buffer,
// or (outside this repository's scope) a PTY bridge is plugged in.
type Backend interface {
	// WriteByte delivers one transmitted byte to the backend.
	WriteByte(b byte)
	// ReadByte returns the next available received byte, or ok=false if
	// none is currently available. Must not block.
	ReadByte() (b byte, ok bool)
}

// UART is a single-byte-buffered transmit/receive serial device.
type UART struct {
	status  uint32
	rxBuf   byte
	rxFull  bool
	irq     bool
	backend Backend
}

// NewUART returns a UART in its reset state, attached to backend.
// A nil backend is valid; transmitted bytes are then simply discarded
// and no bytes are ever received.
func NewUART(backend Backend) *UART {
	u := &UART{backend: backend}
	u.Reset()
	return u
}

// Reset restores power-on state: transmitter ready, nothing received.
func (u *UART) Reset() {
	u.status = UARTTxReady
	u.rxFull = false
	u.rxBuf = 0
	u.irq = false
}

// SetBackend swaps the attached host-side backend.
func (u *UART) SetBackend(b Backend) { u.backend = b }

// Tick polls the backend for a newly available byte; if the internal
// single-byte buffer is empty and a byte is available, it is latched
// and RX_AVAILABLE (and, if enabled, the IRQ line) is asserted.
func (u *UART) Tick() {
	if u.rxFull || u.backend == nil {
		return
	}

	b, ok := u.backend.ReadByte()
	if !ok {
		return
	}

	u.rxBuf = b
	u.rxFull = true
	u.status |= UARTRxAvail

	if u.status&UARTIRQEnabled != 0 {
		u.irq = true
	}
}

// IRQ reports whether the UART currently has a pending interrupt.
func (u *UART) IRQ() bool { return u.irq }

// Status returns the status register.
func (u *UART) Status() uint32 { return u.status }

// SetStatus writes the status register; TX_READY and RX_AVAILABLE are
// read-only and masked out, and clearing IRQ_ENABLE clears any pending
// IRQ, per spec §4.4.
func (u *UART) SetStatus(v uint32) {
	u.status = (u.status &^ writableStatusMask) | (v & writableStatusMask)
	if u.status&UARTIRQEnabled == 0 {
		u.irq = false
	}
}

// TransmitByte writes a byte to the backend via TX; TX_READY remains
// set (transmission is modeled as instantaneous).
func (u *UART) TransmitByte(b byte) {
	if u.backend != nil {
		u.backend.WriteByte(b)
	}
	u.status |= UARTTxReady
}

// ReceiveByte returns the buffered RX byte (or 0 if none), then clears
// RX_AVAILABLE and any pending IRQ, per spec §4.4.
func (u *UART) ReceiveByte() byte {
	b := byte(0)
	if u.rxFull {
		b = u.rxBuf
	}
	u.rxFull = false
	u.status &^= UARTRxAvail
	u.irq = false
	return b
}
