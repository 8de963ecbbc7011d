// Command voxstream performs realtime microphone speech-to-text: capture,
// segmentation (fixed-window or VAD), transcription, and emission to
// stdout, optionally mirrored to a websocket subscriber (see spec.md).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxstream/voxstream/pkg/config"
	"github.com/voxstream/voxstream/pkg/delivery"
	"github.com/voxstream/voxstream/pkg/interim"
	"github.com/voxstream/voxstream/pkg/logging"
	"github.com/voxstream/voxstream/pkg/pipeline"
	"github.com/voxstream/voxstream/pkg/pipeliner"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/transcribe"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: no .env file found, using system environment variables")
	}

	log.SetFlags(0)

	if err := run(); err != nil {
		log.Println(err)
		code := 1
		if pe, ok := err.(*pipeliner.Error); ok {
			code = pe.Kind.ExitCode()
		}
		os.Exit(code)
	}
}

func run() error {
	cfg := configFromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	topLog := logging.New("voxstream")

	decoder, closeDecoder, err := decoderFromEnv(cfg)
	if err != nil {
		return err
	}
	defer closeDecoder()

	capturer, err := audio.NewCapturer(cfg.Segmentation.SampleRate, cfg.BlockSamples(), cfg.Segmentation.MaxQueueFrames, logging.New("capture"))
	if err != nil {
		return err
	}

	var deliveryChannel *delivery.Channel
	if cfg.Delivery.URL != "" {
		deliveryChannel = delivery.New(delivery.Config{
			URL:              cfg.Delivery.URL,
			ConnectTimeout:   cfg.Delivery.ConnectTimeout,
			ReconnectSeconds: cfg.Delivery.ReconnectSeconds,
			PingSeconds:      cfg.Delivery.PingSeconds,
		}, logging.New("delivery"))
	}

	var sink interim.Sink
	if cfg.Interim.Enabled {
		if os.Getenv("VOXSTREAM_LOG_SINK") == "1" {
			sink = interim.NewLogSink(logging.New("interim"))
		} else {
			sink = interim.NewTTYSink(os.Stderr)
		}
	}

	pl, err := pipeline.New(pipeline.Params{
		Config:   cfg,
		Capturer: capturer,
		Decoder:  decoder,
		Delivery: deliveryChannel,
		Sink:     sink,
		Log:      topLog,
		Model:    os.Getenv("VOXSTREAM_MODEL_NAME"),
		Out:      os.Stdout,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "voxstream: samplerate=%dHz vad=%v interim=%v delivery=%v\n",
		cfg.Segmentation.SampleRate, cfg.VAD.Enabled, cfg.Interim.Enabled, cfg.Delivery.URL != "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- pl.Run(ctx)
	}()

	select {
	case <-sig:
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			topLog.Warn("pipeline did not stop within shutdown grace period")
		}
		return nil
	case err := <-done:
		return err
	}
}

// configFromEnv starts from config.Default() (original_source's argparse
// defaults) and overrides every field with its VOXSTREAM_* environment
// variable, when set.
func configFromEnv() config.Config {
	cfg := config.Default()

	if v, ok := envInt("VOXSTREAM_SAMPLE_RATE"); ok {
		cfg.Segmentation.SampleRate = v
	}
	if v, ok := envFloat("VOXSTREAM_BLOCK_SECONDS"); ok {
		cfg.Segmentation.BlockSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_CHUNK_SECONDS"); ok {
		cfg.Segmentation.ChunkSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_OVERLAP_SECONDS"); ok {
		cfg.Segmentation.OverlapSeconds = v
	}
	if v, ok := envInt("VOXSTREAM_MAX_QUEUE_FRAMES"); ok {
		cfg.Segmentation.MaxQueueFrames = v
	}

	if v, ok := envBool("VOXSTREAM_VAD_ENABLED"); ok {
		cfg.VAD.Enabled = v
	}
	if v, ok := envFloat("VOXSTREAM_VAD_THRESHOLD"); ok {
		cfg.VAD.Threshold = v
	}
	if v, ok := envInt("VOXSTREAM_VAD_END_SILENCE_MS"); ok {
		cfg.VAD.EndSilenceMs = v
	}
	if v, ok := envInt("VOXSTREAM_VAD_PRE_ROLL_MS"); ok {
		cfg.VAD.PreRollMs = v
	}
	if v, ok := envFloat("VOXSTREAM_VAD_MIN_SECONDS"); ok {
		cfg.VAD.MinSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_VAD_MAX_SECONDS"); ok {
		cfg.VAD.MaxSeconds = v
	}

	if v, ok := envBool("VOXSTREAM_INTERIM_ENABLED"); ok {
		cfg.Interim.Enabled = v
	}
	if v, ok := envFloat("VOXSTREAM_INTERIM_PERIOD_SECONDS"); ok {
		cfg.Interim.PeriodSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_INTERIM_WINDOW_SECONDS"); ok {
		cfg.Interim.WindowSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_INTERIM_MIN_WINDOW_SECONDS"); ok {
		cfg.Interim.MinWindowSeconds = v
	}
	if v, ok := envBool("VOXSTREAM_INTERIM_SEPARATE_MODEL"); ok {
		cfg.Interim.SeparateModel = v
	}

	if v := os.Getenv("VOXSTREAM_LANGUAGE"); v != "" {
		cfg.Decoder.Language = v
	}
	if v := os.Getenv("VOXSTREAM_TASK"); v != "" {
		cfg.Decoder.Task = v
	}
	if v, ok := envFloat("VOXSTREAM_NO_SPEECH_THRESHOLD"); ok {
		cfg.Decoder.NoSpeechThreshold = v
	}
	if v, ok := envFloat("VOXSTREAM_LOGPROB_THRESHOLD"); ok {
		cfg.Decoder.LogProbThreshold = v
	}
	if v, ok := envFloat("VOXSTREAM_COMPRESSION_RATIO_THRESHOLD"); ok {
		cfg.Decoder.CompressionRatioThreshold = v
	}
	if v, ok := envFloat("VOXSTREAM_TEMPERATURE"); ok {
		cfg.Decoder.Temperature = v
	}
	if v, ok := envBool("VOXSTREAM_FP16"); ok {
		cfg.Decoder.FP16 = v
	}

	if v := os.Getenv("VOXSTREAM_DELIVERY_URL"); v != "" {
		cfg.Delivery.URL = v
	}
	if v, ok := envFloat("VOXSTREAM_RECONNECT_SECONDS"); ok {
		cfg.Delivery.ReconnectSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_PING_SECONDS"); ok {
		cfg.Delivery.PingSeconds = v
	}
	if v, ok := envFloat("VOXSTREAM_CONNECT_TIMEOUT_SECONDS"); ok {
		cfg.Delivery.ConnectTimeout = time.Duration(v * float64(time.Second))
	}

	if v := os.Getenv("VOXSTREAM_EXCLUDES"); v != "" {
		excludes := map[string]struct{}{}
		for _, word := range strings.Split(v, ",") {
			word = strings.TrimSpace(word)
			if word != "" {
				excludes[word] = struct{}{}
			}
		}
		cfg.Filtering.Excludes = excludes
	}

	return cfg
}

// decoderFromEnv builds a transcribe.Decoder according to VOXSTREAM_BACKEND
// ("inprocess", the default, or "subprocess"), wiring a separate interim
// model only when VOXSTREAM_INTERIM_SEPARATE_MODEL is set (spec §4.3).
func decoderFromEnv(cfg config.Config) (transcribe.Decoder, func(), error) {
	opts := transcribe.DecodeOptionsFrom(cfg.Decoder)

	switch os.Getenv("VOXSTREAM_BACKEND") {
	case "subprocess":
		binPath := os.Getenv("VOXSTREAM_WHISPER_BIN")
		modelPath := os.Getenv("VOXSTREAM_MODEL_PATH")
		if binPath == "" || modelPath == "" {
			return nil, nil, pipeliner.New(pipeliner.KindConfig,
				"VOXSTREAM_WHISPER_BIN and VOXSTREAM_MODEL_PATH are required for the subprocess backend")
		}
		backend := &transcribe.Subprocess{
			BinPath:    binPath,
			ModelPath:  modelPath,
			SampleRate: cfg.Segmentation.SampleRate,
			Language:   cfg.Decoder.Language,
			Translate:  cfg.Decoder.Task == "translate",
		}
		return transcribe.NewShared(backend), func() {}, nil

	default:
		modelPath := os.Getenv("VOXSTREAM_MODEL_PATH")
		if modelPath == "" {
			return nil, nil, pipeliner.New(pipeliner.KindConfig, "VOXSTREAM_MODEL_PATH is required for the inprocess backend")
		}
		model, err := transcribe.NewWhisperModel(modelPath)
		if err != nil {
			return nil, nil, pipeliner.Wrap(pipeliner.KindDevice, "load acoustic model", err)
		}
		closeFn := func() { _ = model.Close() }

		finalBackend := transcribe.NewInProcess(model, opts)
		if !cfg.Interim.Enabled || !cfg.Interim.SeparateModel {
			return transcribe.NewShared(finalBackend), closeFn, nil
		}

		interimModelPath := os.Getenv("VOXSTREAM_INTERIM_MODEL_PATH")
		if interimModelPath == "" {
			interimModelPath = modelPath
		}
		interimModel, err := transcribe.NewWhisperModel(interimModelPath)
		if err != nil {
			closeFn()
			return nil, nil, pipeliner.Wrap(pipeliner.KindDevice, "load interim acoustic model", err)
		}
		interimBackend := transcribe.NewInProcess(interimModel, opts)
		combinedClose := func() {
			_ = model.Close()
			_ = interimModel.Close()
		}
		return transcribe.NewSplit(finalBackend, interimBackend), combinedClose, nil
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer environment variable", "name", name, "value", v)
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring invalid float environment variable", "name", name, "value", v)
		return 0, false
	}
	return f, true
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring invalid boolean environment variable", "name", name, "value", v)
		return false, false
	}
	return b, true
}
