package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestBytesToFloat32(t *testing.T) {
	want := []float32{0, 0.5, -1, 1}
	buf := make([]byte, 4*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	got := bytesToFloat32(buf)
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBytesToFloat32RejectsUnalignedInput(t *testing.T) {
	if got := bytesToFloat32([]byte{1, 2, 3}); got != nil {
		t.Errorf("expected nil for misaligned input, got %v", got)
	}
}
