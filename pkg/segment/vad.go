package segment

import (
	"math"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/vad"
)

type state int

const (
	stateIdle state = iota
	stateSpeaking
)

// Result is one segment flushed by VAD, ready to hand to the transcriber.
// Forced is true when the segment was cut by the max-length limit rather
// than a natural end-of-speech event (spec §4.5 step 6).
type Result struct {
	Samples audio.Frame
	Forced  bool
}

// VAD is the state machine from spec §4.5: it consumes fixed-size VAD
// windows, maintains a pre-roll ring while idle, accumulates speech_frames
// while speaking, and flushes on a natural end-of-speech event or a forced
// max-length cut.
type VAD struct {
	scorer        vad.Scorer
	windowSamples int
	preRollFrames int
	minSamples    int
	maxSamples    int

	scratch audio.Frame

	state        state
	preRoll      []audio.Frame
	speechFrames []audio.Frame
}

// NewVAD builds a VAD segmenter. preRollMs/minSeconds/maxSeconds/sampleRate
// mirror pkg/config.Config.VAD; windowSamples is
// pkg/config.Config.VADWindowSamples(). maxSeconds <= 0 disables the forced
// cut.
func NewVAD(scorer vad.Scorer, sampleRate, windowSamples, preRollMs int, minSeconds, maxSeconds float64) *VAD {
	preRollFrames := int(math.Ceil(float64(preRollMs) / 1000 * float64(sampleRate) / float64(windowSamples)))
	if preRollFrames < 0 {
		preRollFrames = 0
	}

	maxSamples := 0
	if maxSeconds > 0 {
		maxSamples = int(maxSeconds * float64(sampleRate))
	}

	return &VAD{
		scorer:        scorer,
		windowSamples: windowSamples,
		preRollFrames: preRollFrames,
		minSamples:    int(minSeconds * float64(sampleRate)),
		maxSamples:    maxSamples,
	}
}

// Push feeds a captured block, internally slicing it into windowSamples-sized
// VAD frames, and returns every segment flushed as a result of processing
// them, in order.
func (v *VAD) Push(block audio.Frame) []Result {
	v.scratch = append(v.scratch, block...)

	var out []Result
	for len(v.scratch) >= v.windowSamples {
		frame := v.scratch[:v.windowSamples]
		v.scratch = v.scratch[v.windowSamples:]

		if r, ok := v.processFrame(frame); ok {
			out = append(out, r)
		}
	}
	return out
}

func (v *VAD) processFrame(frame audio.Frame) (Result, bool) {
	if v.state == stateIdle {
		v.preRoll = append(v.preRoll, frame.Clone())
		if len(v.preRoll) > v.preRollFrames {
			v.preRoll = v.preRoll[1:]
		}
	}

	switch v.scorer.Score(frame) {
	case vad.EventStart:
		v.state = stateSpeaking
		v.speechFrames = append(v.speechFrames, v.preRoll...)
		v.preRoll = nil
		v.speechFrames = append(v.speechFrames, frame.Clone())

	case vad.EventEnd:
		if v.state == stateSpeaking {
			v.state = stateIdle
			return v.flush(false)
		}

	default:
		if v.state == stateSpeaking {
			v.speechFrames = append(v.speechFrames, frame.Clone())
		}
	}

	if v.state == stateSpeaking && v.maxSamples > 0 && v.speechLen() >= v.maxSamples {
		r, ok := v.flush(true)
		v.scorer.Reset()
		v.preRoll = nil
		v.state = stateIdle
		return r, ok
	}

	return Result{}, false
}

func (v *VAD) speechLen() int {
	n := 0
	for _, f := range v.speechFrames {
		n += len(f)
	}
	return n
}

// flush concatenates speech_frames into one segment. A natural flush
// (forced=false) below minSamples is discarded; a forced flush is always
// emitted regardless of length (spec §8 invariant 2).
func (v *VAD) flush(forced bool) (Result, bool) {
	total := v.speechLen()
	if !forced && total < v.minSamples {
		v.speechFrames = nil
		return Result{}, false
	}

	out := make(audio.Frame, 0, total)
	for _, f := range v.speechFrames {
		out = append(out, f...)
	}
	v.speechFrames = nil

	return Result{Samples: out, Forced: forced}, true
}
