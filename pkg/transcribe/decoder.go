package transcribe

import (
	"context"
	"sync"

	"github.com/voxstream/voxstream/pkg/audio"
)

// Decoder is the capability the pipeline calls for both final and interim
// decodes. It owns the locking discipline spec §4.3/§5 describes: a single
// lock serializes calls to one model, or final and interim each take their
// own lock around their own model when a separate interim model is
// configured.
type Decoder interface {
	TranscribeFinal(ctx context.Context, samples audio.Frame) (string, error)
	TranscribeInterim(ctx context.Context, samples audio.Frame) (string, error)
}

// shared implements Decoder with one backend and one lock: final and
// interim calls serialize against each other, so a final always wins any
// race with an in-flight interim decode for the same model instance.
type shared struct {
	mu      sync.Mutex
	backend Backend
}

// NewShared returns a Decoder backed by a single Backend instance, shared
// between final and interim calls under one lock.
func NewShared(backend Backend) Decoder {
	return &shared{backend: backend}
}

func (s *shared) TranscribeFinal(ctx context.Context, samples audio.Frame) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Transcribe(ctx, samples, ModeFinal)
}

func (s *shared) TranscribeInterim(ctx context.Context, samples audio.Frame) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Transcribe(ctx, samples, ModeInterim)
}

// split implements Decoder with two independent backend+lock pairs, so
// final and interim decodes can run concurrently (spec's "separate_model"
// config option).
type split struct {
	finalMu      sync.Mutex
	finalBackend Backend

	interimMu      sync.Mutex
	interimBackend Backend
}

// NewSplit returns a Decoder backed by two independent Backend instances,
// each with its own lock.
func NewSplit(final, interim Backend) Decoder {
	return &split{finalBackend: final, interimBackend: interim}
}

func (s *split) TranscribeFinal(ctx context.Context, samples audio.Frame) (string, error) {
	s.finalMu.Lock()
	defer s.finalMu.Unlock()
	return s.finalBackend.Transcribe(ctx, samples, ModeFinal)
}

func (s *split) TranscribeInterim(ctx context.Context, samples audio.Frame) (string, error) {
	s.interimMu.Lock()
	defer s.interimMu.Unlock()
	return s.interimBackend.Transcribe(ctx, samples, ModeInterim)
}
