package device

import (
	"bytes"
	"testing"
)

func TestLineBackendWriteByteFlushesOnNewline(t *testing.T) {
	var out bytes.Buffer
	l := NewLineBackend(&out)

	for _, b := range []byte("hi\n") {
		l.WriteByte(b)
	}
	if out.String() != "hi\n" {
		t.Fatalf("got %q, want %q", out.String(), "hi\n")
	}
}

func TestLineBackendWriteByteBuffersUntilNewline(t *testing.T) {
	var out bytes.Buffer
	l := NewLineBackend(&out)

	l.WriteByte('h')
	l.WriteByte('i')
	if out.Len() != 0 {
		t.Fatalf("got %q before newline, want empty", out.String())
	}
	l.WriteByte('\n')
	if out.String() != "hi\n" {
		t.Fatalf("got %q, want %q", out.String(), "hi\n")
	}
}

func TestLineBackendReadByteServesQueuedLineByteByByte(t *testing.T) {
	in := bytes.NewBufferString("ok\n")
	l := NewLineBackend(in)

	var got []byte
	for {
		b, ok := l.ReadByte()
		if !ok {
			break
		}
		got = append(got, b)
	}
	if string(got) != "ok\n" {
		t.Fatalf("got %q, want %q", got, "ok\n")
	}
}

func TestLineBackendReadByteEmptyWithNoData(t *testing.T) {
	in := bytes.NewBufferString("")
	l := NewLineBackend(in)

	if _, ok := l.ReadByte(); ok {
		t.Fatalf("expected no data available")
	}
}
