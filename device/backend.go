package device

import (
	"bufio"
	"io"
)

// StdioBackend writes transmitted bytes to an io.Writer (typically
// os.Stdout) and never has a received byte available. Constructing the
// host terminal/PTY bridge that would feed RX bytes is outside this
// repository's scope (spec §1's external-collaborators carve-out); this
// backend only covers the TX-sink half.
type StdioBackend struct {
	out *bufio.Writer
}

// NewStdioBackend wraps w for buffered, flush-per-byte output.
func NewStdioBackend(w io.Writer) *StdioBackend {
	return &StdioBackend{out: bufio.NewWriter(w)}
}

func (s *StdioBackend) WriteByte(b byte) {
	_ = s.out.WriteByte(b)
	_ = s.out.Flush()
}

func (s *StdioBackend) ReadByte() (byte, bool) { return 0, false }

// BufferBackend is an in-memory loopback/test backend: transmitted
// bytes accumulate in TX, and bytes queued onto RX are handed back one
// at a time by ReadByte. Safe only for single-goroutine use, matching
// the simulator's cooperative execution model.
type BufferBackend struct {
	TX []byte
	rx []byte
}

// NewBufferBackend returns an empty buffer backend.
func NewBufferBackend() *BufferBackend {
	return &BufferBackend{}
}

func (b *BufferBackend) WriteByte(v byte) { b.TX = append(b.TX, v) }

func (b *BufferBackend) ReadByte() (byte, bool) {
	if len(b.rx) == 0 {
		return 0, false
	}
	v := b.rx[0]
	b.rx = b.rx[1:]
	return v, true
}

// QueueRX appends bytes to be delivered to the UART one per Tick.
func (b *BufferBackend) QueueRX(data ...byte) { b.rx = append(b.rx, data...) }

// LineBackend buffers transmitted bytes until a newline, then flushes
// one complete line at a time to an io.Writer, and serves received bytes
// one at a time out of a line read from an io.Reader. It is the
// construction-only half of a PTY bridge: opening an actual PTY
// master/slave pair and making it non-blocking, the way
// original_source/src/devices/uart/pty_backend.rs does via the nix
// crate's openpty/fcntl, is outside this repository's scope (spec §1's
// external-collaborators carve-out). A future bridge only needs to hand
// LineBackend the *os.File opened on a PTY master; until then it works
// against any io.Reader/io.Writer, including the pipes used in tests.
type LineBackend struct {
	w       *bufio.Writer
	r       *bufio.Reader
	outLine []byte
	inQueue []byte
}

// NewLineBackend wraps rw for line-buffered transmit/receive.
func NewLineBackend(rw io.ReadWriter) *LineBackend {
	return &LineBackend{w: bufio.NewWriter(rw), r: bufio.NewReader(rw)}
}

func (l *LineBackend) WriteByte(b byte) {
	l.outLine = append(l.outLine, b)
	if b != '\n' {
		return
	}
	_, _ = l.w.Write(l.outLine)
	_ = l.w.Flush()
	l.outLine = l.outLine[:0]
}

func (l *LineBackend) ReadByte() (byte, bool) {
	if len(l.inQueue) == 0 {
		line, err := l.r.ReadBytes('\n')
		if len(line) == 0 {
			return 0, false
		}
		if err != nil && len(line) == 0 {
			return 0, false
		}
		l.inQueue = line
	}
	b := l.inQueue[0]
	l.inQueue = l.inQueue[1:]
	return b, true
}
