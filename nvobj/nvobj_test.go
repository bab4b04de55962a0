package nvobj

import "testing"

func TestRoundTripDataAndBSSSegments(t *testing.T) {
	obj := &Object{
		Segments: []Segment{
			{Kind: KindData, BaseAddr: 0x0, LengthWords: 3, Words: []uint32{1, 2, 3}},
			{Kind: KindBSS, BaseAddr: 0x1000, LengthWords: 8},
		},
	}

	data, err := Marshal(obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(got.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(got.Segments))
	}
	if got.Segments[0].Kind != KindData || len(got.Segments[0].Words) != 3 {
		t.Fatalf("segment 0 mismatch: %+v", got.Segments[0])
	}
	if got.Segments[0].Words[2] != 3 {
		t.Fatalf("got word 0x%X, want 3", got.Segments[0].Words[2])
	}
	if got.Segments[1].Kind != KindBSS || got.Segments[1].BaseAddr != 0x1000 {
		t.Fatalf("segment 1 mismatch: %+v", got.Segments[1])
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	data := []byte("XXXX\x01\x00\x00\x00\x00\x00\x00\x00")
	if _, err := Unmarshal(data); err == nil {
		t.Fatalf("expected error for bad magic")
	}
}

type fakeLoader struct {
	writes map[uint32]uint32
}

func (f *fakeLoader) Store32(addr uint32, value uint32) error {
	if f.writes == nil {
		f.writes = make(map[uint32]uint32)
	}
	f.writes[addr] = value
	return nil
}

func TestLoadWritesDataAndZeroesBSS(t *testing.T) {
	obj := &Object{
		Segments: []Segment{
			{Kind: KindData, BaseAddr: 0x100, LengthWords: 2, Words: []uint32{0xAAAA, 0xBBBB}},
			{Kind: KindBSS, BaseAddr: 0x200, LengthWords: 2},
		},
	}
	fl := &fakeLoader{}
	if err := Load(fl, obj); err != nil {
		t.Fatalf("load: %v", err)
	}

	if fl.writes[0x100] != 0xAAAA || fl.writes[0x104] != 0xBBBB {
		t.Fatalf("data segment not loaded correctly: %+v", fl.writes)
	}
	if fl.writes[0x200] != 0 || fl.writes[0x204] != 0 {
		t.Fatalf("bss segment not zeroed: %+v", fl.writes)
	}
}
