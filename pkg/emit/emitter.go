// Package emit implements the C7 emitter: final-record filtering, stdout
// output, suppression-window bookkeeping, and delivery-channel enqueue
// (spec §4.7).
package emit

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/config"
	"github.com/voxstream/voxstream/pkg/transcript"
)

// Delivery is the subset of pkg/delivery.Channel the emitter depends on.
type Delivery interface {
	Send(v any)
}

// Sink is what the emitter clears when a final commits, so the interim
// preview line doesn't keep showing audio that is now part of a final
// (spec §4.7 step 2). Implemented by pkg/interim.Sink.
type Sink interface {
	Clear()
}

// Emitter is the C7 component. It is safe for concurrent use: EmitFinal is
// called from T-main (finals) under no additional lock, but its internal
// state (suppression window, last final text/time) is read by the interim
// loop under its own lock.
type Emitter struct {
	mu sync.Mutex

	filtering     config.Filtering
	interimPeriod float64
	interimSink   Sink
	rolling       *audio.RollingBuffer
	delivery      Delivery
	counters      *transcript.Counters
	out           io.Writer

	sampleRate int
	model      string
	language   string
	task       transcript.Task

	suppressUntil time.Time
	lastFinalText string
	lastFinalTime time.Time
}

// Params configures an Emitter.
type Params struct {
	Filtering     config.Filtering
	InterimPeriod float64 // 0 disables suppression-window bookkeeping
	InterimSink   Sink    // may be nil when interim is disabled
	Rolling       *audio.RollingBuffer
	Delivery      Delivery // may be nil when delivery is not configured
	Counters      *transcript.Counters
	Out           io.Writer // defaults to os.Stdout if nil
	SampleRate    int
	Model         string
	Language      string
	Task          transcript.Task
}

// New builds an Emitter from Params.
func New(p Params) *Emitter {
	if p.Counters == nil {
		p.Counters = &transcript.Counters{}
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
	return &Emitter{
		filtering:     p.Filtering,
		interimPeriod: p.InterimPeriod,
		interimSink:   p.InterimSink,
		rolling:       p.Rolling,
		delivery:      p.Delivery,
		counters:      p.Counters,
		out:           p.Out,
		sampleRate:    p.SampleRate,
		model:         p.Model,
		language:      p.Language,
		task:          p.Task,
	}
}

// EmitFinal implements spec §4.7's emit_final. text should already be
// trimmed. source and durationSamples describe the originating segment.
func (e *Emitter) EmitFinal(text string, source transcript.Source, durationSamples int, now time.Time) error {
	if text == "" || e.filtering.IsExcluded(text) {
		return nil
	}

	e.mu.Lock()
	if e.interimSink != nil {
		e.interimSink.Clear()
	}
	if e.rolling != nil {
		e.rolling.Clear()
	}
	if e.interimPeriod > 0 {
		suppress := e.interimPeriod * 2
		if suppress < 1.2 {
			suppress = 1.2
		}
		e.suppressUntil = now.Add(time.Duration(suppress * float64(time.Second)))
	}
	e.lastFinalText = text
	e.lastFinalTime = now
	e.mu.Unlock()

	if _, err := fmt.Fprintln(e.out, text); err != nil {
		return err
	}
	if flusher, ok := e.out.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}

	if e.delivery != nil {
		durationMs := int64(float64(durationSamples) / float64(e.sampleRate) * 1000)
		record := e.counters.NewFinal(transcript.Params{
			Text:       text,
			Source:     source,
			Model:      e.model,
			Language:   e.language,
			Task:       e.task,
			SampleRate: e.sampleRate,
			DurationMs: durationMs,
		}, now)
		e.delivery.Send(record)
	}
	return nil
}

// SuppressedUntil returns the current post-final suppression deadline, used
// by the interim loop to decide whether to skip a tick (spec §4.6 step 1).
func (e *Emitter) SuppressedUntil() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suppressUntil
}

// LastFinal returns the most recently committed final's text and emission
// time, used by the interim loop's dedup rule (spec §4.6 step 5).
func (e *Emitter) LastFinal() (text string, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFinalText, e.lastFinalTime
}

// OverlapsLastFinal reports whether text is a substring of the last final
// (or vice versa) within the given window after the final's emission time.
func (e *Emitter) OverlapsLastFinal(text string, now time.Time, window time.Duration) bool {
	last, at := e.LastFinal()
	if last == "" {
		return false
	}
	if now.Sub(at) >= window {
		return false
	}
	return strings.Contains(last, text) || strings.Contains(text, last)
}
