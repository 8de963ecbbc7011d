// Package transcribe implements the uniform transcribe(samples) -> text
// contract from spec §4.3 over two backends, plus the Decoder capability
// that encodes whether final and interim calls share one locked model or
// run against two independent ones (spec §9 rearchitecture hint).
package transcribe

import (
	"context"

	"github.com/voxstream/voxstream/pkg/audio"
)

// Mode distinguishes a final decode from an interim preview decode. The
// subprocess backend rejects ModeInterim outright (spec §4.3).
type Mode int

const (
	ModeFinal Mode = iota
	ModeInterim
)

// Backend is the uniform adapter contract both transcriber implementations
// satisfy.
type Backend interface {
	Transcribe(ctx context.Context, samples audio.Frame, mode Mode) (string, error)
}
