// Package nvobj reads and writes the NV32 object-file container: a
// small magic/version header followed by one or more memory segments,
// each either literal words or a zero-filled run.
package nvobj

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magic   = "NV32"
	version = uint16(1)
)

// Segment kinds.
const (
	KindData uint8 = 0 // literal words follow in the payload
	KindBSS  uint8 = 1 // zero-filled; no payload
)

// Segment is one contiguous region of the address space.
type Segment struct {
	Kind       uint8
	BaseAddr   uint32
	LengthWords uint32
	Words      []uint32 // empty for KindBSS
}

// Object is a parsed NV32 file: an ordered list of segments.
type Object struct {
	Segments []Segment
}

type fileHeader struct {
	Magic    [4]byte
	Version  uint16
	SegCount uint16
	Reserved uint32
}

type segmentHeader struct {
	Kind        uint8
	Flags       uint8
	Reserved    uint16
	BaseAddr    uint32
	LengthWords uint32
	Reserved2   uint32
}

// Write serializes obj to w in NV32 format.
func Write(w io.Writer, obj *Object) error {
	hdr := fileHeader{Version: version, SegCount: uint16(len(obj.Segments))}
	copy(hdr.Magic[:], magic)
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("nvobj: write file header: %w", err)
	}

	for i, seg := range obj.Segments {
		sh := segmentHeader{
			Kind:        seg.Kind,
			BaseAddr:    seg.BaseAddr,
			LengthWords: seg.LengthWords,
		}
		if err := binary.Write(w, binary.LittleEndian, sh); err != nil {
			return fmt.Errorf("nvobj: write segment %d header: %w", i, err)
		}
		if seg.Kind == KindData {
			for _, word := range seg.Words {
				if err := binary.Write(w, binary.LittleEndian, word); err != nil {
					return fmt.Errorf("nvobj: write segment %d payload: %w", i, err)
				}
			}
		}
	}

	return nil
}

// Marshal returns obj serialized to a byte slice.
func Marshal(obj *Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses an NV32 file from r.
func Read(r io.Reader) (*Object, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("nvobj: read file header: %w", err)
	}
	if string(hdr.Magic[:]) != magic {
		return nil, fmt.Errorf("nvobj: bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("nvobj: unsupported version %d", hdr.Version)
	}

	obj := &Object{Segments: make([]Segment, 0, hdr.SegCount)}
	for i := 0; i < int(hdr.SegCount); i++ {
		var sh segmentHeader
		if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
			return nil, fmt.Errorf("nvobj: read segment %d header: %w", i, err)
		}

		seg := Segment{Kind: sh.Kind, BaseAddr: sh.BaseAddr, LengthWords: sh.LengthWords}

		switch sh.Kind {
		case KindData:
			seg.Words = make([]uint32, sh.LengthWords)
			for j := range seg.Words {
				if err := binary.Read(r, binary.LittleEndian, &seg.Words[j]); err != nil {
					return nil, fmt.Errorf("nvobj: read segment %d word %d: %w", i, j, err)
				}
			}
		case KindBSS:
			// no payload
		default:
			return nil, fmt.Errorf("nvobj: segment %d has unknown kind %d", i, sh.Kind)
		}

		obj.Segments = append(obj.Segments, seg)
	}

	return obj, nil
}

// Unmarshal parses an NV32 object from a byte slice.
func Unmarshal(data []byte) (*Object, error) {
	return Read(bytes.NewReader(data))
}

// Loader is the subset of bus.Bus that Load needs: a 32-bit aligned
// store.
type Loader interface {
	Store32(addr uint32, value uint32) error
}

// Load writes every segment of obj into dst: KindData segments write
// their literal words, KindBSS segments write zero words across their
// length.
func Load(dst Loader, obj *Object) error {
	for _, seg := range obj.Segments {
		switch seg.Kind {
		case KindData:
			for i, word := range seg.Words {
				addr := seg.BaseAddr + uint32(i)*4
				if err := dst.Store32(addr, word); err != nil {
					return fmt.Errorf("nvobj: load data segment at 0x%08X: %w", addr, err)
				}
			}
		case KindBSS:
			for i := uint32(0); i < seg.LengthWords; i++ {
				addr := seg.BaseAddr + i*4
				if err := dst.Store32(addr, 0); err != nil {
					return fmt.Errorf("nvobj: load bss segment at 0x%08X: %w", addr, err)
				}
			}
		default:
			return fmt.Errorf("nvobj: segment at 0x%08X has unknown kind %d", seg.BaseAddr, seg.Kind)
		}
	}
	return nil
}
