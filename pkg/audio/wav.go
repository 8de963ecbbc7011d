package audio

import (
	"bytes"
	"encoding/binary"
	"io"
)

// EncodePCM16 converts a float32 segment in [-1, 1] to mono 16-bit
// little-endian PCM, clipping out-of-range samples before scaling by 32767
// (spec §6, subprocess backend I/O).
func EncodePCM16(samples Frame) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// WriteWAV writes samples as a mono 16-bit PCM WAV file at sampleRate to w.
// Used by the subprocess transcriber backend, which hands the resulting file
// to an external binary.
func WriteWAV(w io.Writer, samples Frame, sampleRate int) error {
	pcm := EncodePCM16(samples)

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	_, err := w.Write(buf.Bytes())
	return err
}

// DecodePCM16 is the inverse of EncodePCM16, used by tests to verify the
// WAV round-trip invariant (spec §8, invariant 7).
func DecodePCM16(pcm []byte) Frame {
	out := make(Frame, len(pcm)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32767
	}
	return out
}
