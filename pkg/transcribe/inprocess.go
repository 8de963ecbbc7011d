package transcribe

import (
	"context"
	"strings"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/config"
)

// DecodeOptions mirrors pkg/config.Config.Decoder, passed through to the
// acoustic model on every call.
type DecodeOptions struct {
	NoSpeechThreshold         float64
	LogProbThreshold          float64
	CompressionRatioThreshold float64
	Temperature               float64
	Language                  string
	Task                      string
	FP16                      bool
}

// DecodeOptionsFrom builds DecodeOptions from a config.Decoder.
func DecodeOptionsFrom(d config.Decoder) DecodeOptions {
	return DecodeOptions{
		NoSpeechThreshold:         d.NoSpeechThreshold,
		LogProbThreshold:          d.LogProbThreshold,
		CompressionRatioThreshold: d.CompressionRatioThreshold,
		Temperature:               d.Temperature,
		Language:                  d.Language,
		Task:                      d.Task,
		FP16:                      d.FP16,
	}
}

// DecodeResult is what an AcousticModel returns for one segment.
type DecodeResult struct {
	Text     string
	NoSpeech bool
}

// AcousticModel is the external collaborator spec §1 treats as a pure
// function "audio -> text": it is never implemented against the standard
// library alone, callers wire in a real model (e.g. the whisper.cpp
// bindings in whispercpp.go).
type AcousticModel interface {
	Transcribe(samples []float32, opts DecodeOptions) (DecodeResult, error)
}

// InProcess is the C3 in-process transcriber backend: it calls the acoustic
// model with the configured decoder options and returns the trimmed text,
// or empty on a no-speech rejection (spec §4.3).
type InProcess struct {
	Model   AcousticModel
	Options DecodeOptions
}

// NewInProcess returns an InProcess backend.
func NewInProcess(model AcousticModel, opts DecodeOptions) *InProcess {
	return &InProcess{Model: model, Options: opts}
}

// Transcribe implements Backend. mode is accepted for interface uniformity;
// the in-process model supports both final and interim calls identically.
func (p *InProcess) Transcribe(ctx context.Context, samples audio.Frame, mode Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := p.Model.Transcribe([]float32(samples), p.Options)
	if err != nil {
		return "", err
	}
	if result.NoSpeech {
		return "", nil
	}
	return strings.TrimSpace(result.Text), nil
}
