package audio

import (
	"bytes"
	"math"
	"testing"
)

func TestWriteWAVHeader(t *testing.T) {
	samples := Frame{0, 0.5, -1, 1}
	var buf bytes.Buffer
	if err := WriteWAV(&buf, samples, 16000); err != nil {
		t.Fatalf("WriteWAV returned error: %v", err)
	}

	got := buf.Bytes()
	if !bytes.HasPrefix(got, []byte("RIFF")) {
		t.Error("expected RIFF prefix")
	}
	if !bytes.Contains(got, []byte("WAVE")) {
		t.Error("expected WAVE format identifier")
	}

	wantLen := 44 + len(samples)*2
	if len(got) != wantLen {
		t.Errorf("length = %d, want %d", len(got), wantLen)
	}
}

func TestPCM16RoundTripWithinTolerance(t *testing.T) {
	samples := Frame{0, 0.5, -1, 1, -0.333, 1.5, -2}

	pcm := EncodePCM16(samples)
	roundTripped := DecodePCM16(pcm)

	const tolerance = 1.0 / 32767

	for i, s := range samples {
		clipped := s
		if clipped > 1 {
			clipped = 1
		} else if clipped < -1 {
			clipped = -1
		}
		if diff := math.Abs(float64(roundTripped[i] - clipped)); diff > tolerance {
			t.Errorf("sample %d: round-tripped %v, clipped original %v, diff %v exceeds tolerance %v",
				i, roundTripped[i], clipped, diff, tolerance)
		}
	}
}
