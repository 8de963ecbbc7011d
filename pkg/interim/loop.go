package interim

import (
	"context"
	"time"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/config"
	"github.com/voxstream/voxstream/pkg/transcribe"
	"github.com/voxstream/voxstream/pkg/transcript"
)

// FinalState is the subset of pkg/emit.Emitter the loop consults to honor
// the post-final suppression window and the final-overlap dedup rule (spec
// §4.6 steps 1 and 5).
type FinalState interface {
	SuppressedUntil() time.Time
	OverlapsLastFinal(text string, now time.Time, window time.Duration) bool
}

// Delivery is the subset of pkg/delivery.Channel the loop depends on.
type Delivery interface {
	Send(v any)
}

// Loop is the C6 component: a periodic worker that decodes a rolling tail
// window and redraws a preview, independent of the main segmentation loop.
type Loop struct {
	period           time.Duration
	minWindowSamples int
	dedupWindow      time.Duration

	rolling    *audio.RollingBuffer
	decoder    transcribe.Decoder
	sink       Sink
	finalState FinalState
	filtering  config.Filtering
	delivery   Delivery
	counters   *transcript.Counters

	sampleRate int
	model      string
	language   string
	task       transcript.Task

	lastSentText string
}

// Params configures a Loop from pkg/config.Interim plus its collaborators.
type Params struct {
	PeriodSeconds    float64
	WindowSeconds    float64
	MinWindowSeconds float64
	SampleRate       int

	Rolling    *audio.RollingBuffer
	Decoder    transcribe.Decoder
	Sink       Sink
	FinalState FinalState
	Filtering  config.Filtering
	Delivery   Delivery // may be nil when delivery is not configured
	Counters   *transcript.Counters
	Model      string
	Language   string
	Task       transcript.Task
}

// New builds a Loop from Params.
func New(p Params) *Loop {
	dedup := p.WindowSeconds
	if dedup < 2.5 {
		dedup = 2.5
	}
	if p.Counters == nil {
		p.Counters = &transcript.Counters{}
	}
	return &Loop{
		period:           time.Duration(p.PeriodSeconds * float64(time.Second)),
		minWindowSamples: int(p.MinWindowSeconds * float64(p.SampleRate)),
		dedupWindow:      time.Duration(dedup * float64(time.Second)),
		rolling:          p.Rolling,
		decoder:          p.Decoder,
		sink:             p.Sink,
		finalState:       p.FinalState,
		filtering:        p.Filtering,
		delivery:         p.Delivery,
		counters:         p.Counters,
		sampleRate:       p.SampleRate,
		model:            p.Model,
		language:         p.Language,
		task:             p.Task,
	}
}

// Run ticks every period until ctx is canceled, clearing the sink on exit.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()
	defer l.sink.Clear()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	now := time.Now()
	if now.Before(l.finalState.SuppressedUntil()) {
		return
	}

	snapshot := l.rolling.Get()
	if len(snapshot) < l.minWindowSamples {
		return
	}

	text, err := l.decoder.TranscribeInterim(ctx, snapshot)
	if err != nil || text == "" || l.filtering.IsExcluded(text) {
		return
	}

	// Re-check after decode completes: a final may have committed while this
	// decode was in flight (spec §9 open question decision).
	now = time.Now()
	if now.Before(l.finalState.SuppressedUntil()) {
		return
	}
	if l.finalState.OverlapsLastFinal(text, now, l.dedupWindow) {
		return
	}

	l.sink.Show(text)

	if text == l.lastSentText {
		return
	}
	l.lastSentText = text

	if l.delivery != nil {
		record := l.counters.NewInterim(transcript.Params{
			Text:       text,
			Model:      l.model,
			Language:   l.language,
			Task:       l.task,
			SampleRate: l.sampleRate,
			DurationMs: int64(float64(len(snapshot)) / float64(l.sampleRate) * 1000),
		}, now)
		l.delivery.Send(record)
	}
}
