// Package audio holds the realtime capture source, the fixed-duration
// rolling buffer, and the WAV encoding used by the subprocess transcriber.
package audio

// Frame is an immutable contiguous block of mono PCM samples as 32-bit
// floats in [-1, 1]. Its length equals samplerate * block_seconds.
type Frame []float32

// Clone returns a copy of the frame, safe to retain past the caller's own
// buffer lifetime.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}
