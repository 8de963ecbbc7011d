// Package vad defines the speech-detection capability the VAD segmenter
// depends on, and a lightweight RMS-threshold default implementation. The
// scoring model itself is an external collaborator per spec §1 ("frame →
// speech-probability"); real model-backed scorers plug in behind the same
// Scorer interface.
package vad

import (
	"math"

	"github.com/voxstream/voxstream/pkg/audio"
)

// Event is the hysteresis-gated outcome of scoring one fixed-size VAD frame.
type Event int

const (
	EventNone Event = iota
	EventStart
	EventEnd
)

// Scorer scores one fixed-size VAD frame at a time and reports speech onset
// and offset after the configured hysteresis. Reset clears hysteresis state
// without otherwise reconfiguring the scorer (used on a forced max-length
// cut, spec §4.5 step 6).
type Scorer interface {
	Score(frame audio.Frame) Event
	Reset()
}

// RMSScorer is the default Scorer: speech starts as soon as a frame's RMS
// exceeds threshold, and ends only after a contiguous run of sub-threshold
// frames long enough to cover end_silence_ms at the configured frame size —
// the frame-count form of the hysteresis in spec §4.5 step 2. Grounded on
// the teacher's RMSVAD, adapted from a wall-clock silence timer to a
// frame-count one: the VAD segmenter calls Score once per fixed-size window
// in strict sequence, so counting frames is equivalent to and more testable
// than timing wall-clock gaps.
type RMSScorer struct {
	threshold     float64
	silenceFrames int

	speaking     bool
	silenceCount int
}

// NewRMSScorer builds a scorer whose end-of-speech hysteresis covers
// endSilenceMs at the given sample rate and VAD window size.
func NewRMSScorer(threshold float64, endSilenceMs int, sampleRate int, windowSamples int) *RMSScorer {
	frameMs := float64(windowSamples) / float64(sampleRate) * 1000
	silenceFrames := int(math.Ceil(float64(endSilenceMs) / frameMs))
	if silenceFrames < 1 {
		silenceFrames = 1
	}
	return &RMSScorer{threshold: threshold, silenceFrames: silenceFrames}
}

// Score implements Scorer.
func (s *RMSScorer) Score(frame audio.Frame) Event {
	rms := rms(frame)

	if rms > s.threshold {
		s.silenceCount = 0
		if !s.speaking {
			s.speaking = true
			return EventStart
		}
		return EventNone
	}

	if s.speaking {
		s.silenceCount++
		if s.silenceCount >= s.silenceFrames {
			s.speaking = false
			s.silenceCount = 0
			return EventEnd
		}
	}
	return EventNone
}

// Reset clears hysteresis state (speaking flag and silence run) without
// touching threshold/silenceFrames configuration.
func (s *RMSScorer) Reset() {
	s.speaking = false
	s.silenceCount = 0
}

func rms(frame audio.Frame) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
