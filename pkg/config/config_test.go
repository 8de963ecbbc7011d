package config

import (
	"testing"

	"github.com/voxstream/voxstream/pkg/pipeliner"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateRejectsOverlapGEChunk(t *testing.T) {
	c := Default()
	c.Segmentation.OverlapSeconds = 5.0
	c.Segmentation.ChunkSeconds = 5.0

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error when overlap-seconds >= chunk-seconds")
	}
	if !pipeliner.IsKind(err, pipeliner.KindConfig) {
		t.Fatalf("expected KindConfig error, got %v", err)
	}
}

func TestValidateRejectsBadVADSampleRate(t *testing.T) {
	c := Default()
	c.VAD.Enabled = true
	c.Segmentation.SampleRate = 44100

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error for unsupported VAD samplerate")
	}
	if !pipeliner.IsKind(err, pipeliner.KindConfig) {
		t.Fatalf("expected KindConfig error, got %v", err)
	}
}

func TestValidateAllowsVADOverlapIgnored(t *testing.T) {
	c := Default()
	c.VAD.Enabled = true
	c.Segmentation.OverlapSeconds = 10.0
	c.Segmentation.ChunkSeconds = 1.0

	if err := c.Validate(); err != nil {
		t.Fatalf("overlap/chunk relationship should not matter under VAD, got %v", err)
	}
}

func TestValidateRejectsNonPositiveSampleRate(t *testing.T) {
	c := Default()
	c.Segmentation.SampleRate = 0

	if err := c.Validate(); err == nil {
		t.Fatal("expected error for non-positive samplerate")
	}
}

func TestValidateRejectsDeliveryWithoutReconnect(t *testing.T) {
	c := Default()
	c.Delivery.URL = "ws://localhost:9000"
	c.Delivery.ReconnectSeconds = 0

	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero reconnect-seconds with delivery configured")
	}
}

func TestFilteringIsExcluded(t *testing.T) {
	f := Filtering{Excludes: map[string]struct{}{"you": {}, "thank you.": {}}}

	if !f.IsExcluded("you") {
		t.Error("expected exact match to be excluded")
	}
	if f.IsExcluded("You") {
		t.Error("exclude matching must be exact, not case-insensitive")
	}
	if f.IsExcluded("") {
		t.Error("empty text should never be reported excluded")
	}
}

func TestSampleDerivedSizes(t *testing.T) {
	c := Default()

	if got := c.VADWindowSamples(); got != 512 {
		t.Errorf("VADWindowSamples at 16kHz = %d, want 512", got)
	}
	c.Segmentation.SampleRate = 8000
	if got := c.VADWindowSamples(); got != 256 {
		t.Errorf("VADWindowSamples at 8kHz = %d, want 256", got)
	}

	c = Default()
	if got := c.BlockSamples(); got != 8000 {
		t.Errorf("BlockSamples = %d, want 8000", got)
	}
	if got := c.ChunkSamples(); got != 80000 {
		t.Errorf("ChunkSamples = %d, want 80000", got)
	}
	if got := c.OverlapSamples(); got != 16000 {
		t.Errorf("OverlapSamples = %d, want 16000", got)
	}
}
