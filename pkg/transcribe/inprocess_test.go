package transcribe

import (
	"context"
	"testing"

	"github.com/voxstream/voxstream/pkg/audio"
)

type mockModel struct {
	result DecodeResult
	err    error
	got    []float32
}

func (m *mockModel) Transcribe(samples []float32, opts DecodeOptions) (DecodeResult, error) {
	m.got = samples
	return m.result, m.err
}

func TestInProcessTrimsText(t *testing.T) {
	model := &mockModel{result: DecodeResult{Text: "  hello world  "}}
	p := NewInProcess(model, DecodeOptions{})

	text, err := p.Transcribe(context.Background(), audio.Frame{1, 2, 3}, ModeFinal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if len(model.got) != 3 {
		t.Errorf("model received %d samples, want 3", len(model.got))
	}
}

func TestInProcessReturnsEmptyOnNoSpeech(t *testing.T) {
	model := &mockModel{result: DecodeResult{Text: "garbage", NoSpeech: true}}
	p := NewInProcess(model, DecodeOptions{})

	text, err := p.Transcribe(context.Background(), audio.Frame{1}, ModeFinal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty on no-speech rejection", text)
	}
}

func TestInProcessPropagatesModelError(t *testing.T) {
	model := &mockModel{err: context.DeadlineExceeded}
	p := NewInProcess(model, DecodeOptions{})

	_, err := p.Transcribe(context.Background(), audio.Frame{1}, ModeFinal)
	if err == nil {
		t.Fatal("expected error from the model to propagate")
	}
}

func TestInProcessRejectsCanceledContext(t *testing.T) {
	model := &mockModel{result: DecodeResult{Text: "should not be reached"}}
	p := NewInProcess(model, DecodeOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Transcribe(ctx, audio.Frame{1}, ModeFinal)
	if err == nil {
		t.Fatal("expected error for an already-canceled context")
	}
}
