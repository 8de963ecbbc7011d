package interim

import (
	"context"
	"testing"
	"time"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/config"
	"github.com/voxstream/voxstream/pkg/transcript"
)

type fakeSink struct {
	shown   []string
	cleared int
}

func (f *fakeSink) Show(text string) { f.shown = append(f.shown, text) }
func (f *fakeSink) Clear()           { f.cleared++ }

type fakeFinalState struct {
	suppressedUntil time.Time
	overlaps        bool
}

func (f *fakeFinalState) SuppressedUntil() time.Time { return f.suppressedUntil }
func (f *fakeFinalState) OverlapsLastFinal(_ string, _ time.Time, _ time.Duration) bool {
	return f.overlaps
}

type fakeDecoder struct {
	text string
	err  error
}

func (f *fakeDecoder) TranscribeFinal(_ context.Context, _ audio.Frame) (string, error) {
	return f.text, f.err
}
func (f *fakeDecoder) TranscribeInterim(_ context.Context, _ audio.Frame) (string, error) {
	return f.text, f.err
}

type fakeDelivery struct {
	sent []any
}

func (f *fakeDelivery) Send(v any) { f.sent = append(f.sent, v) }

func newTestLoop(sink Sink, state FinalState, decoder *fakeDecoder, delivery Delivery, rolling *audio.RollingBuffer) *Loop {
	return New(Params{
		PeriodSeconds:    0.01,
		WindowSeconds:    2.0,
		MinWindowSeconds: 0.0,
		SampleRate:       1000,
		Rolling:          rolling,
		Decoder:          decoder,
		Sink:             sink,
		FinalState:       state,
		Filtering:        config.Filtering{Excludes: map[string]struct{}{}},
		Delivery:         delivery,
		Task:             transcript.TaskTranscribe,
	})
}

func TestLoopTickShowsAndSendsOnNewText(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{}
	decoder := &fakeDecoder{text: "hello"}
	delivery := &fakeDelivery{}
	rolling := audio.NewRollingBuffer(1000)
	rolling.Add(audio.Frame{1, 2, 3})

	l := newTestLoop(sink, state, decoder, delivery, rolling)
	l.tick(context.Background())

	if len(sink.shown) != 1 || sink.shown[0] != "hello" {
		t.Fatalf("sink.shown = %v, want [\"hello\"]", sink.shown)
	}
	if len(delivery.sent) != 1 {
		t.Fatalf("delivery.sent = %d, want 1", len(delivery.sent))
	}
}

func TestLoopTickSkipsDuringSuppressionWindow(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{suppressedUntil: time.Now().Add(time.Hour)}
	decoder := &fakeDecoder{text: "hello"}
	delivery := &fakeDelivery{}
	rolling := audio.NewRollingBuffer(1000)
	rolling.Add(audio.Frame{1})

	l := newTestLoop(sink, state, decoder, delivery, rolling)
	l.tick(context.Background())

	if len(sink.shown) != 0 {
		t.Errorf("expected no preview shown during suppression window, got %v", sink.shown)
	}
	if len(delivery.sent) != 0 {
		t.Errorf("expected no delivery send during suppression window, got %d", len(delivery.sent))
	}
}

func TestLoopTickSkipsBelowMinWindow(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{}
	decoder := &fakeDecoder{text: "hello"}
	l := New(Params{
		PeriodSeconds:    0.01,
		WindowSeconds:    2.0,
		MinWindowSeconds: 1.0, // 1000 samples at 1000Hz
		SampleRate:       1000,
		Rolling:          audio.NewRollingBuffer(1000),
		Decoder:          decoder,
		Sink:             sink,
		FinalState:       state,
		Filtering:        config.Filtering{Excludes: map[string]struct{}{}},
	})

	l.tick(context.Background()) // rolling buffer is empty: below min window
	if len(sink.shown) != 0 {
		t.Errorf("expected no preview for an empty rolling buffer, got %v", sink.shown)
	}
}

func TestLoopTickSkipsOnFinalOverlapDedup(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{overlaps: true}
	decoder := &fakeDecoder{text: "alpha"}
	delivery := &fakeDelivery{}
	rolling := audio.NewRollingBuffer(1000)
	rolling.Add(audio.Frame{1})

	l := newTestLoop(sink, state, decoder, delivery, rolling)
	l.tick(context.Background())

	if len(sink.shown) != 0 || len(delivery.sent) != 0 {
		t.Errorf("expected dedup to suppress both preview and delivery, got shown=%v sent=%d", sink.shown, len(delivery.sent))
	}
}

func TestLoopTickDoesNotResendUnchangedText(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{}
	decoder := &fakeDecoder{text: "same"}
	delivery := &fakeDelivery{}
	rolling := audio.NewRollingBuffer(1000)
	rolling.Add(audio.Frame{1})

	l := newTestLoop(sink, state, decoder, delivery, rolling)
	l.tick(context.Background())
	l.tick(context.Background())

	if len(sink.shown) != 2 {
		t.Errorf("expected the sink to redraw on every tick, got %d shows", len(sink.shown))
	}
	if len(delivery.sent) != 1 {
		t.Errorf("expected delivery to receive the unchanged text only once, got %d", len(delivery.sent))
	}
}

func TestLoopTickSkipsExcludedText(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{}
	decoder := &fakeDecoder{text: "you"}
	delivery := &fakeDelivery{}
	rolling := audio.NewRollingBuffer(1000)
	rolling.Add(audio.Frame{1})

	l := New(Params{
		PeriodSeconds:    0.01,
		WindowSeconds:    2.0,
		SampleRate:       1000,
		Rolling:          rolling,
		Decoder:          decoder,
		Sink:             sink,
		FinalState:       state,
		Filtering:        config.Filtering{Excludes: map[string]struct{}{"you": {}}},
		Delivery:         delivery,
	})
	l.tick(context.Background())

	if len(sink.shown) != 0 || len(delivery.sent) != 0 {
		t.Errorf("expected excluded text to be dropped, got shown=%v sent=%d", sink.shown, len(delivery.sent))
	}
}

func TestLoopRunClearsSinkOnCancel(t *testing.T) {
	sink := &fakeSink{}
	state := &fakeFinalState{}
	decoder := &fakeDecoder{text: ""}
	rolling := audio.NewRollingBuffer(1000)

	l := newTestLoop(sink, state, decoder, nil, rolling)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if sink.cleared != 1 {
		t.Errorf("sink.cleared = %d, want 1", sink.cleared)
	}
}
