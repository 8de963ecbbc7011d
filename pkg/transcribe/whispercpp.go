package transcribe

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperModel adapts the whisper.cpp CGO bindings to the AcousticModel
// capability, grounded on other_examples' MrWong99/glyphoxa NativeProvider:
// a model is loaded once and shared across every call, guarded by a mutex
// since whisper.cpp contexts are not safe for concurrent decode.
type WhisperModel struct {
	mu    sync.Mutex
	model whisper.Model
}

// NewWhisperModel loads a whisper.cpp model from modelPath.
func NewWhisperModel(modelPath string) (*WhisperModel, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelPath, err)
	}
	return &WhisperModel{model: model}, nil
}

// Close releases the underlying whisper.cpp model.
func (w *WhisperModel) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

// Transcribe implements AcousticModel.
func (w *WhisperModel) Transcribe(samples []float32, opts DecodeOptions) (DecodeResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, err := w.model.NewContext()
	if err != nil {
		return DecodeResult{}, fmt.Errorf("new whisper context: %w", err)
	}

	if opts.Language != "" {
		if err := ctx.SetLanguage(opts.Language); err != nil {
			return DecodeResult{}, fmt.Errorf("set whisper language %q: %w", opts.Language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return DecodeResult{}, fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		segment, err := ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return DecodeResult{}, fmt.Errorf("read whisper segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	return DecodeResult{Text: text, NoSpeech: text == ""}, nil
}
