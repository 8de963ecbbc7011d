// Package segment implements the two segmentation strategies from spec §4.4
// and §4.5: fixed-overlap windowing and VAD-driven variable segmentation.
package segment

import "github.com/voxstream/voxstream/pkg/audio"

// Fixed accumulates incoming frames into overlapping chunks of exactly
// chunkSamples, advancing the window by chunkSamples-overlapSamples each
// time (spec §4.4, invariant 1). Precondition, validated by
// pkg/config.Config.Validate: overlapSamples < chunkSamples.
type Fixed struct {
	chunkSamples   int
	overlapSamples int
	buf            audio.Frame
}

// NewFixed returns a Fixed segmenter for the given chunk and overlap sizes,
// in samples.
func NewFixed(chunkSamples, overlapSamples int) *Fixed {
	return &Fixed{chunkSamples: chunkSamples, overlapSamples: overlapSamples}
}

// Push appends frame to the internal buffer and returns every complete chunk
// it now yields, in order. Each chunk is a fresh copy, safe to retain.
func (f *Fixed) Push(frame audio.Frame) []audio.Frame {
	f.buf = append(f.buf, frame...)

	var chunks []audio.Frame
	for len(f.buf) >= f.chunkSamples {
		chunk := make(audio.Frame, f.chunkSamples)
		copy(chunk, f.buf[:f.chunkSamples])
		chunks = append(chunks, chunk)

		advance := f.chunkSamples - f.overlapSamples
		f.buf = f.buf[advance:]
	}
	return chunks
}
