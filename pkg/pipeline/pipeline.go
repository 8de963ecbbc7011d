// Package pipeline wires the capture, segmentation, transcription, emission,
// interim, and delivery components into one running pipeline (spec §2's
// data flow: C2 -> queue -> main loop -> (C4 or C5) -> C3 -> C7 -> C8, with
// C6 and C8 running as independent background workers).
package pipeline

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/config"
	"github.com/voxstream/voxstream/pkg/delivery"
	"github.com/voxstream/voxstream/pkg/emit"
	"github.com/voxstream/voxstream/pkg/interim"
	"github.com/voxstream/voxstream/pkg/logging"
	"github.com/voxstream/voxstream/pkg/pipeliner"
	"github.com/voxstream/voxstream/pkg/segment"
	"github.com/voxstream/voxstream/pkg/transcribe"
	"github.com/voxstream/voxstream/pkg/transcript"
	"github.com/voxstream/voxstream/pkg/vad"
)

// fixedSegmenter and vadSegmenter are the subset of segment.Fixed/segment.VAD
// the pipeline depends on, so tests can substitute a fake.
type fixedSegmenter interface {
	Push(frame audio.Frame) []audio.Frame
}

type vadSegmenter interface {
	Push(block audio.Frame) []segment.Result
}

// frameSource is the subset of audio.Capturer the pipeline drives, so tests
// can substitute a fake queue without opening a real device.
type frameSource interface {
	Start() error
	Stop()
	Frames() *audio.FrameQueue
}

// Pipeline wires C1-C8 together: it owns T-main (frame consumption,
// segmentation, final transcription, emission) and starts T-interim and
// T-delivery as background goroutines for the lifetime of Run (spec §5).
type Pipeline struct {
	capturer frameSource
	fixed    fixedSegmenter
	vadSeg   vadSegmenter
	decoder  transcribe.Decoder
	emitter  *emit.Emitter
	interim  *interim.Loop
	rolling  *audio.RollingBuffer
	delivery *delivery.Channel
	log      logging.Logger
}

// Params configures a Pipeline. Capturer and Decoder are required; Log
// defaults to a no-op logger and Out to os.Stdout. Delivery and Sink may be
// nil when those features are disabled.
type Params struct {
	Config   config.Config
	Capturer frameSource
	Decoder  transcribe.Decoder
	Delivery *delivery.Channel
	Sink     interim.Sink
	Log      logging.Logger
	Model    string
	Counters *transcript.Counters
	Out      io.Writer
}

// New validates cfg and wires the configured segmentation strategy,
// emitter, and (if enabled) interim loop around the given collaborators.
// Returns a pipeliner.Error of KindConfig if cfg fails validation.
func New(p Params) (*Pipeline, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	if p.Log == nil {
		p.Log = logging.NoOp{}
	}
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.Counters == nil {
		p.Counters = &transcript.Counters{}
	}

	cfg := p.Config
	sampleRate := cfg.Segmentation.SampleRate

	var rolling *audio.RollingBuffer
	if cfg.Interim.Enabled {
		windowSeconds := cfg.Interim.WindowSeconds
		if windowSeconds <= 0 {
			windowSeconds = 2.0
		}
		rolling = audio.NewRollingBuffer(int(windowSeconds * float64(sampleRate)))
	}

	var deliveryIface emit.Delivery
	if p.Delivery != nil {
		deliveryIface = p.Delivery
	}

	var sinkIface emit.Sink
	if p.Sink != nil {
		sinkIface = p.Sink
	}

	emitter := emit.New(emit.Params{
		Filtering:     cfg.Filtering,
		InterimPeriod: cfg.Interim.PeriodSeconds,
		InterimSink:   sinkIface,
		Rolling:       rolling,
		Delivery:      deliveryIface,
		Counters:      p.Counters,
		Out:           p.Out,
		SampleRate:    sampleRate,
		Model:         p.Model,
		Language:      cfg.Decoder.Language,
		Task:          transcript.Task(cfg.Decoder.Task),
	})

	var loop *interim.Loop
	if cfg.Interim.Enabled {
		if p.Sink == nil {
			return nil, pipeliner.New(pipeliner.KindConfig, "interim enabled but no sink configured")
		}
		loop = interim.New(interim.Params{
			PeriodSeconds:    cfg.Interim.PeriodSeconds,
			WindowSeconds:    cfg.Interim.WindowSeconds,
			MinWindowSeconds: cfg.Interim.MinWindowSeconds,
			SampleRate:       sampleRate,
			Rolling:          rolling,
			Decoder:          p.Decoder,
			Sink:             p.Sink,
			FinalState:       emitter,
			Filtering:        cfg.Filtering,
			Delivery:         deliveryIface,
			Counters:         p.Counters,
			Model:            p.Model,
			Language:         cfg.Decoder.Language,
			Task:             transcript.Task(cfg.Decoder.Task),
		})
	}

	pl := &Pipeline{
		capturer: p.Capturer,
		decoder:  p.Decoder,
		emitter:  emitter,
		interim:  loop,
		rolling:  rolling,
		delivery: p.Delivery,
		log:      p.Log,
	}

	if cfg.VAD.Enabled {
		scorer := vad.NewRMSScorer(cfg.VAD.Threshold, cfg.VAD.EndSilenceMs, sampleRate, cfg.VADWindowSamples())
		pl.vadSeg = segment.NewVAD(scorer, sampleRate, cfg.VADWindowSamples(), cfg.VAD.PreRollMs, cfg.VAD.MinSeconds, cfg.VAD.MaxSeconds)
	} else {
		pl.fixed = segment.NewFixed(cfg.ChunkSamples(), cfg.OverlapSamples())
	}

	return pl, nil
}

// Run drives T-main until ctx is canceled: it starts T-interim and
// T-delivery (if configured), opens the capture device, and consumes
// frames until the queue drains after cancellation (spec §5). It returns a
// pipeliner.Error of KindDevice if the device fails to start.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if p.delivery != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.delivery.Run(ctx)
		}()
	}
	if p.interim != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.interim.Run(ctx)
		}()
	}

	if err := p.capturer.Start(); err != nil {
		cancel()
		wg.Wait()
		return err
	}
	defer p.capturer.Stop()

	done := ctx.Done()
	for {
		frame, ok := p.capturer.Frames().Pop(done)
		if !ok {
			break
		}
		p.processFrame(ctx, frame)
	}

	cancel()
	wg.Wait()
	return nil
}

// processFrame runs one captured block through the configured segmentation
// strategy and transcribes/emits every segment it yields. It also feeds the
// interim rolling buffer, independent of which segmentation strategy is
// active, since the interim loop previews the raw captured tail rather than
// the final segmenter's output (spec §4.6).
func (p *Pipeline) processFrame(ctx context.Context, frame audio.Frame) {
	if p.rolling != nil {
		p.rolling.Add(frame)
	}

	if p.fixed != nil {
		for _, chunk := range p.fixed.Push(frame) {
			p.transcribeAndEmit(ctx, chunk, transcript.SourceChunk)
		}
		return
	}
	for _, r := range p.vadSeg.Push(frame) {
		p.transcribeAndEmit(ctx, r.Samples, transcript.SourceVAD)
	}
}

// transcribeAndEmit calls the final decode and hands the result to the
// emitter. A decode failure is a BackendError: logged and dropped, never
// fatal (spec §7).
func (p *Pipeline) transcribeAndEmit(ctx context.Context, samples audio.Frame, source transcript.Source) {
	text, err := p.decoder.TranscribeFinal(ctx, samples)
	if err != nil {
		p.log.Error("final transcription failed", "error", pipeliner.Wrap(pipeliner.KindBackend, "transcribe final", err))
		return
	}

	text = strings.TrimSpace(text)
	if err := p.emitter.EmitFinal(text, source, len(samples), time.Now()); err != nil {
		p.log.Error("emit final failed", "error", err)
	}
}
