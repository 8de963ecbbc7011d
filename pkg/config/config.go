// Package config holds the recognized pipeline options, grouped by concern,
// and validates the combinations the pipeline depends on.
package config

import (
	"time"

	"github.com/voxstream/voxstream/pkg/pipeliner"
)

// Segmentation controls capture blocking and fixed-window chunking (C2, C4).
type Segmentation struct {
	SampleRate     int
	BlockSeconds   float64
	ChunkSeconds   float64
	OverlapSeconds float64
	MaxQueueFrames int
}

// VAD controls the voice-activity segmenter (C5).
type VAD struct {
	Enabled      bool
	Threshold    float64
	EndSilenceMs int
	PreRollMs    int
	MinSeconds   float64
	MaxSeconds   float64
}

// Interim controls the sliding-window preview loop (C6).
type Interim struct {
	Enabled          bool
	PeriodSeconds    float64
	WindowSeconds    float64
	MinWindowSeconds float64
	SeparateModel    bool
}

// Decoder controls acoustic-model decoding parameters shared by final and
// interim transcription calls.
type Decoder struct {
	NoSpeechThreshold         float64
	LogProbThreshold          float64
	CompressionRatioThreshold float64
	Temperature               float64
	Language                  string
	Task                      string
	FP16                      bool
}

// Delivery controls the outbound websocket channel (C8).
type Delivery struct {
	URL              string
	ReconnectSeconds float64
	ConnectTimeout   time.Duration
	PingSeconds      float64
}

// Filtering holds the exact-match exclude set applied by the emitter and
// interim loop.
type Filtering struct {
	Excludes map[string]struct{}
}

// Config is the full recognized option set, grouped per spec §3.
type Config struct {
	Segmentation Segmentation
	VAD          VAD
	Interim      Interim
	Decoder      Decoder
	Delivery     Delivery
	Filtering    Filtering
}

// Default returns the same defaults as original_source/mic-recog/mic_stream.py.
func Default() Config {
	return Config{
		Segmentation: Segmentation{
			SampleRate:     16000,
			BlockSeconds:   0.5,
			ChunkSeconds:   5.0,
			OverlapSeconds: 1.0,
			MaxQueueFrames: 20,
		},
		VAD: VAD{
			Enabled:      false,
			Threshold:    0.5,
			EndSilenceMs: 300,
			PreRollMs:    150,
			MinSeconds:   0.4,
			MaxSeconds:   15.0,
		},
		Interim: Interim{
			Enabled:          false,
			PeriodSeconds:    0.5,
			WindowSeconds:    2.0,
			MinWindowSeconds: 0.3,
		},
		Decoder: Decoder{
			NoSpeechThreshold:         0.6,
			LogProbThreshold:          -1.0,
			CompressionRatioThreshold: 2.4,
			Temperature:               0.0,
			Task:                      "transcribe",
		},
		Delivery: Delivery{
			ReconnectSeconds: 5.0,
			ConnectTimeout:   5 * time.Second,
			PingSeconds:      20.0,
		},
		Filtering: Filtering{
			Excludes: map[string]struct{}{},
		},
	}
}

// IsExcluded reports whether text (after trimming by the caller) exactly
// matches an entry in the exclude set.
func (f Filtering) IsExcluded(text string) bool {
	if text == "" {
		return false
	}
	_, ok := f.Excludes[text]
	return ok
}

// Validate checks the fatal startup preconditions from spec §4.4 and §6,
// returning a Config-kind *pipeliner.Error (exit code 2) on failure.
func (c Config) Validate() error {
	if c.Segmentation.SampleRate <= 0 {
		return pipeliner.New(pipeliner.KindConfig, "samplerate must be positive")
	}
	if c.Segmentation.BlockSeconds <= 0 {
		return pipeliner.New(pipeliner.KindConfig, "block-seconds must be positive")
	}
	if c.Segmentation.MaxQueueFrames <= 0 {
		return pipeliner.New(pipeliner.KindConfig, "max-queue-frames must be positive")
	}

	if !c.VAD.Enabled {
		if c.Segmentation.OverlapSeconds >= c.Segmentation.ChunkSeconds {
			return pipeliner.New(pipeliner.KindConfig, "overlap-seconds must be smaller than chunk-seconds")
		}
	} else {
		if c.Segmentation.SampleRate != 8000 && c.Segmentation.SampleRate != 16000 {
			return pipeliner.New(pipeliner.KindConfig, "VAD supports samplerate 8000 or 16000 only")
		}
		if c.VAD.MinSeconds <= 0 {
			return pipeliner.New(pipeliner.KindConfig, "vad-min-seconds must be positive")
		}
	}

	if c.Delivery.URL != "" && c.Delivery.ReconnectSeconds <= 0 {
		return pipeliner.New(pipeliner.KindConfig, "reconnect-seconds must be positive when delivery is configured")
	}

	return nil
}

// VADWindowSamples returns the fixed VAD frame size for the configured
// sample rate (spec §4.5): 512 at 16 kHz, 256 at 8 kHz.
func (c Config) VADWindowSamples() int {
	if c.Segmentation.SampleRate == 8000 {
		return 256
	}
	return 512
}

// BlockSamples returns the capture blocksize in samples.
func (c Config) BlockSamples() int {
	return int(float64(c.Segmentation.SampleRate) * c.Segmentation.BlockSeconds)
}

// ChunkSamples returns the fixed-window chunk length in samples.
func (c Config) ChunkSamples() int {
	return int(float64(c.Segmentation.SampleRate) * c.Segmentation.ChunkSeconds)
}

// OverlapSamples returns the fixed-window overlap length in samples.
func (c Config) OverlapSamples() int {
	return int(float64(c.Segmentation.SampleRate) * c.Segmentation.OverlapSeconds)
}
