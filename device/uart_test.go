package device

import "testing"

func TestUARTTransmitAppearsOnSinkInOrder(t *testing.T) {
	backend := NewBufferBackend()
	u := NewUART(backend)

	for _, b := range []byte("hi!") {
		u.TransmitByte(b)
	}

	if string(backend.TX) != "hi!" {
		t.Fatalf("got TX %q, want %q", backend.TX, "hi!")
	}
	if u.Status()&UARTTxReady == 0 {
		t.Fatalf("expected TX_READY set after transmit")
	}
}

func TestUARTReceiveSetsAvailableAndIRQ(t *testing.T) {
	backend := NewBufferBackend()
	backend.QueueRX('x')
	u := NewUART(backend)
	u.SetStatus(UARTIRQEnabled)

	u.Tick()

	if u.Status()&UARTRxAvail == 0 {
		t.Fatalf("expected RX_AVAILABLE set")
	}
	if !u.IRQ() {
		t.Fatalf("expected irq asserted on receive with IRQ_ENABLE set")
	}

	b := u.ReceiveByte()
	if b != 'x' {
		t.Fatalf("got %q, want 'x'", b)
	}
	if u.Status()&UARTRxAvail != 0 {
		t.Fatalf("expected RX_AVAILABLE cleared after read")
	}
	if u.IRQ() {
		t.Fatalf("expected irq cleared after read")
	}
}

func TestUARTReceiveWithoutIRQEnableDoesNotAssert(t *testing.T) {
	backend := NewBufferBackend()
	backend.QueueRX('y')
	u := NewUART(backend)

	u.Tick()

	if u.Status()&UARTRxAvail == 0 {
		t.Fatalf("expected RX_AVAILABLE still set regardless of IRQ_ENABLE")
	}
	if u.IRQ() {
		t.Fatalf("did not expect irq without IRQ_ENABLE")
	}
}

func TestUARTStatusWriteMasksReadOnlyBits(t *testing.T) {
	u := NewUART(nil)
	u.SetStatus(UARTTxReady | UARTRxAvail | UARTIRQEnabled)

	if u.Status()&UARTRxAvail != 0 {
		t.Fatalf("RX_AVAILABLE must not be settable by software write")
	}
	if u.Status()&UARTIRQEnabled == 0 {
		t.Fatalf("IRQ_ENABLE should be settable")
	}
}

func TestUARTClearingIRQEnableClearsPendingIRQ(t *testing.T) {
	backend := NewBufferBackend()
	backend.QueueRX('z')
	u := NewUART(backend)
	u.SetStatus(UARTIRQEnabled)
	u.Tick()
	if !u.IRQ() {
		t.Fatalf("expected irq pending")
	}

	u.SetStatus(0)
	if u.IRQ() {
		t.Fatalf("expected irq cleared once IRQ_ENABLE cleared")
	}
}
