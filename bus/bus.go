// Package bus implements the Nova3201 address decoder: routing byte and
// word loads/stores across RAM, VRAM, Font RAM, and the MMIO device
// register window, with alignment checking. The Bus owns every region
// and device it routes to; nothing outside it ever touches RAM/VRAM/
// FontRAM/timers/UART state directly (spec §5's tree-shaped ownership).
package bus

import (
	"fmt"

	"github.com/jaytaph/nova3201/device"
	"github.com/jaytaph/nova3201/util/debug"
)

// debugMMIO is this package's trace level, following the teacher's
// per-module debugMsk convention.
const debugMMIO = 1

// DebugMask gates this package's trace output through util/debug.Debugf;
// leave it 0 to disable.
var DebugMask int

// Address map, per spec §3.
const (
	RAMBase  uint32 = 0x0000_0000
	RAMSize  uint32 = 1024 * 1024
	ramEnd   uint32 = RAMBase + RAMSize - 1 // inclusive

	VRAMBase uint32 = 0x8000_0000
	VRAMSize uint32 = 0x0000_1000

	FontBase uint32 = 0x8000_1000
	FontSize uint32 = 0x0000_1000

	MMIOBase uint32 = 0x8000_2100
	MMIOEnd  uint32 = 0x8000_22FF
)

// MMIO register addresses, per spec §3.
const (
	timer1Ctrl   uint32 = 0x8000_2100
	timer1Period uint32 = 0x8000_2104
	timer1Count  uint32 = 0x8000_2108
	timer1Reset  uint32 = 0x8000_210C
	timer1Ack    uint32 = 0x8000_2110

	timer2Ctrl   uint32 = 0x8000_2120
	timer2Period uint32 = 0x8000_2124
	timer2Count  uint32 = 0x8000_2128
	timer2Reset  uint32 = 0x8000_212C
	timer2Ack    uint32 = 0x8000_2130

	uartTX     uint32 = 0x8000_2200
	uartStatus uint32 = 0x8000_2204
)

// ErrorKind distinguishes the three bus fault variants of spec §7.
type ErrorKind int

const (
	Misaligned ErrorKind = iota
	OutOfBounds
	DeviceFault
)

// Error is the error type every Bus operation returns on failure. It
// carries the faulting address so callers don't need to parse it back
// out of a message string.
type Error struct {
	Kind ErrorKind
	Addr uint32
}

func (e *Error) Error() string {
	switch e.Kind {
	case Misaligned:
		return fmt.Sprintf("misaligned access at 0x%08X", e.Addr)
	case OutOfBounds:
		return fmt.Sprintf("out of bounds access at 0x%08X", e.Addr)
	case DeviceFault:
		return fmt.Sprintf("device fault at 0x%08X", e.Addr)
	default:
		return fmt.Sprintf("bus error at 0x%08X", e.Addr)
	}
}

func misaligned(addr uint32) error { return &Error{Kind: Misaligned, Addr: addr} }
func outOfBounds(addr uint32) error { return &Error{Kind: OutOfBounds, Addr: addr} }

// Bus composes the machine's memory regions and MMIO devices.
type Bus struct {
	ram  []byte
	vram []byte
	font []byte

	Timer1 *device.Timer
	Timer2 *device.Timer
	UART   *device.UART
}

// New returns a Bus with RAM/VRAM/FontRAM zeroed and both timers and the
// UART in their reset states. uartBackend may be nil.
func New(uartBackend device.Backend) *Bus {
	return &Bus{
		ram:    make([]byte, RAMSize),
		vram:   make([]byte, VRAMSize),
		font:   make([]byte, FontSize),
		Timer1: device.NewTimer(),
		Timer2: device.NewTimer(),
		UART:   device.NewUART(uartBackend),
	}
}

// Reset zeroes RAM/VRAM/FontRAM and resets every device, without
// reallocating backing storage.
func (b *Bus) Reset() {
	clear(b.ram)
	clear(b.vram)
	clear(b.font)
	b.Timer1.Reset()
	b.Timer2.Reset()
	b.UART.Reset()
}

// Tick advances every device by one cycle. Called once per
// Machine.Step, before the CPU observes IRQ lines.
func (b *Bus) Tick() {
	b.Timer1.Tick()
	b.Timer2.Tick()
	b.UART.Tick()
}

func inRange(addr, base, size uint32) bool {
	return addr >= base && addr < base+size
}

// Load8 reads one byte.
func (b *Bus) Load8(addr uint32) (byte, error) {
	switch {
	case addr <= ramEnd:
		return b.ram[addr], nil
	case inRange(addr, VRAMBase, VRAMSize):
		return b.vram[addr-VRAMBase], nil
	case inRange(addr, FontBase, FontSize):
		return b.font[addr-FontBase], nil
	case addr >= MMIOBase && addr <= MMIOEnd:
		return b.mmioRead8(addr)
	default:
		return 0, outOfBounds(addr)
	}
}

// Store8 writes one byte.
func (b *Bus) Store8(addr uint32, value byte) error {
	switch {
	case addr <= ramEnd:
		b.ram[addr] = value
		return nil
	case inRange(addr, VRAMBase, VRAMSize):
		b.vram[addr-VRAMBase] = value
		return nil
	case inRange(addr, FontBase, FontSize):
		b.font[addr-FontBase] = value
		return nil
	case addr >= MMIOBase && addr <= MMIOEnd:
		return b.mmioWrite8(addr, value)
	default:
		return outOfBounds(addr)
	}
}

// Load32 reads a 4-byte little-endian word from a 4-aligned address.
func (b *Bus) Load32(addr uint32) (uint32, error) {
	if addr&3 != 0 {
		return 0, misaligned(addr)
	}

	switch {
	case addr <= ramEnd:
		if addr+3 > ramEnd {
			return 0, outOfBounds(addr + 3)
		}
		return le32(b.ram[addr : addr+4]), nil
	case inRange(addr, VRAMBase, VRAMSize):
		off := addr - VRAMBase
		return le32(b.vram[off : off+4]), nil
	case inRange(addr, FontBase, FontSize):
		off := addr - FontBase
		return le32(b.font[off : off+4]), nil
	case addr >= MMIOBase && addr <= MMIOEnd:
		return b.mmioRead32(addr)
	default:
		return 0, outOfBounds(addr)
	}
}

// Store32 writes a 4-byte little-endian word to a 4-aligned address.
func (b *Bus) Store32(addr uint32, value uint32) error {
	if addr&3 != 0 {
		return misaligned(addr)
	}

	switch {
	case addr <= ramEnd:
		if addr+3 > ramEnd {
			return outOfBounds(addr + 3)
		}
		putLE32(b.ram[addr:addr+4], value)
		return nil
	case inRange(addr, VRAMBase, VRAMSize):
		off := addr - VRAMBase
		putLE32(b.vram[off:off+4], value)
		return nil
	case inRange(addr, FontBase, FontSize):
		off := addr - FontBase
		putLE32(b.font[off:off+4], value)
		return nil
	case addr >= MMIOBase && addr <= MMIOEnd:
		// A conforming implementation returns success once the MMIO
		// write is handled, rather than also reporting OutOfBounds
		// (source-project bug noted in spec §9).
		return b.mmioWrite32(addr, value)
	default:
		return outOfBounds(addr)
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (b *Bus) mmioRead32(addr uint32) (uint32, error) {
	debug.Debugf("bus", DebugMask, debugMMIO, "mmio read32 addr=%08X", addr)
	switch addr {
	case timer1Ctrl:
		return b.Timer1.Ctrl(), nil
	case timer1Period:
		return b.Timer1.Period(), nil
	case timer1Count:
		return b.Timer1.Count(), nil
	case timer1Reset, timer1Ack:
		return 0, nil
	case timer2Ctrl:
		return b.Timer2.Ctrl(), nil
	case timer2Period:
		return b.Timer2.Period(), nil
	case timer2Count:
		return b.Timer2.Count(), nil
	case timer2Reset, timer2Ack:
		return 0, nil
	case uartStatus:
		return b.UART.Status(), nil
	case uartTX:
		return 0, nil
	default:
		return 0, outOfBounds(addr)
	}
}

func (b *Bus) mmioWrite32(addr uint32, value uint32) error {
	debug.Debugf("bus", DebugMask, debugMMIO, "mmio write32 addr=%08X value=%08X", addr, value)
	switch addr {
	case timer1Ctrl:
		b.Timer1.SetCtrl(value)
	case timer1Period:
		b.Timer1.SetPeriod(value)
	case timer1Count:
		// read-only, ignored
	case timer1Reset:
		b.Timer1.ClearCounter()
	case timer1Ack:
		b.Timer1.AckIRQ()
	case timer2Ctrl:
		b.Timer2.SetCtrl(value)
	case timer2Period:
		b.Timer2.SetPeriod(value)
	case timer2Count:
		// read-only, ignored
	case timer2Reset:
		b.Timer2.ClearCounter()
	case timer2Ack:
		b.Timer2.AckIRQ()
	case uartStatus:
		b.UART.SetStatus(value)
	case uartTX:
		b.UART.TransmitByte(byte(value))
	default:
		return outOfBounds(addr)
	}
	return nil
}

// mmioRead8 synthesizes a byte read as a word read-modify on the
// aligned register, per spec §4.2.
func (b *Bus) mmioRead8(addr uint32) (byte, error) {
	word, err := b.mmioRead32(addr &^ 3)
	if err != nil {
		return 0, err
	}
	shift := (addr & 3) * 8
	return byte(word >> shift), nil
}

// mmioWrite8 synthesizes a byte write as a word read-modify-write,
// except UART_TX which accepts direct byte writes natively.
func (b *Bus) mmioWrite8(addr uint32, value byte) error {
	if addr == uartTX {
		b.UART.TransmitByte(value)
		return nil
	}

	aligned := addr &^ 3
	shift := (addr & 3) * 8
	word, err := b.mmioRead32(aligned)
	if err != nil {
		return err
	}
	mask := ^(uint32(0xFF) << shift)
	word = (word & mask) | (uint32(value) << shift)
	return b.mmioWrite32(aligned, word)
}
