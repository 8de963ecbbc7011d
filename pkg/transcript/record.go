// Package transcript defines the wire record emitted for both stabilized
// final segments and unstable interim previews.
package transcript

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Source identifies which segmentation strategy produced the text.
type Source string

const (
	SourceChunk   Source = "chunk"
	SourceVAD     Source = "vad"
	SourceInterim Source = "interim"
)

// Task mirrors the decoder's transcribe-vs-translate mode.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Record is a single transcript event, serialized verbatim onto the delivery
// channel as a "transcript" JSON frame.
type Record struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	TimestampMs int64  `json:"timestamp_ms"`
	Text        string `json:"text"`
	IsInterim   bool   `json:"is_interim"`
	Source      Source `json:"source"`
	Model       string `json:"model"`
	Language    string `json:"language,omitempty"`
	Task        Task   `json:"task"`
	SampleRate  int    `json:"sample_rate"`
	DurationMs  int64  `json:"duration_ms"`
}

// Params bundles the fields callers supply when building a Record; ID/Seq/
// Timestamp/Type/IsInterim are filled in by the Counters that assemble it.
type Params struct {
	Text       string
	Source     Source
	Model      string
	Language   string
	Task       Task
	SampleRate int
	DurationMs int64
}

// Counters hands out the two independent, strictly-monotonic sequence numbers
// required by spec invariant 4 (one for finals, one for interims). Safe for
// concurrent use: the emitter (on the main loop) builds finals while the
// interim loop builds interims from its own goroutine.
type Counters struct {
	finalSeq   atomic.Int64
	interimSeq atomic.Int64
}

// NewFinal builds a final Record (IsInterim false) with a fresh uuid and an incremented
// final sequence number.
func (c *Counters) NewFinal(p Params, now time.Time) Record {
	return Record{
		Type:        "transcript",
		ID:          uuid.NewString(),
		Seq:         c.finalSeq.Add(1),
		TimestampMs: now.UnixMilli(),
		Text:        p.Text,
		IsInterim:   false,
		Source:      p.Source,
		Model:       p.Model,
		Language:    p.Language,
		Task:        p.Task,
		SampleRate:  p.SampleRate,
		DurationMs:  p.DurationMs,
	}
}

// NewInterim builds an interim Record (IsInterim true) with the literal id "interim"
// and an incremented interim sequence number.
func (c *Counters) NewInterim(p Params, now time.Time) Record {
	return Record{
		Type:        "transcript",
		ID:          "interim",
		Seq:         c.interimSeq.Add(1),
		TimestampMs: now.UnixMilli(),
		Text:        p.Text,
		IsInterim:   true,
		Source:      SourceInterim,
		Model:       p.Model,
		Language:    p.Language,
		Task:        p.Task,
		SampleRate:  p.SampleRate,
		DurationMs:  p.DurationMs,
	}
}

// Ping is the keep-alive frame sent by the delivery channel.
type Ping struct {
	Type string `json:"type"`
}

// NewPing returns the canonical keep-alive frame.
func NewPing() Ping {
	return Ping{Type: "ping"}
}
