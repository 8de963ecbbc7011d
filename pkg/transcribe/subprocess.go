package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/pipeliner"
)

// Subprocess is the out-of-process C3 backend: it writes samples as a
// 16-bit PCM WAV temp file, invokes an external whisper.cpp-CLI-compatible
// binary against it, and reads the produced .txt output (spec §4.3, §6).
// It rejects interim mode outright because process-spawn-plus-disk-I/O
// latency is incompatible with sub-second cadence.
type Subprocess struct {
	BinPath    string
	ModelPath  string
	SampleRate int
	Language   string
	Translate  bool
	Threads    int
	ExtraArgs  []string
	WorkDir    string
}

// Transcribe implements Backend.
func (s *Subprocess) Transcribe(ctx context.Context, samples audio.Frame, mode Mode) (string, error) {
	if mode == ModeInterim {
		return "", nil
	}

	wavFile, err := os.CreateTemp(s.WorkDir, "voxstream-*.wav")
	if err != nil {
		return "", pipeliner.Wrap(pipeliner.KindBackend, "create temp wav", err)
	}
	wavPath := wavFile.Name()
	defer os.Remove(wavPath)

	writeErr := audio.WriteWAV(wavFile, samples, s.SampleRate)
	closeErr := wavFile.Close()
	if writeErr != nil {
		return "", pipeliner.Wrap(pipeliner.KindBackend, "write temp wav", writeErr)
	}
	if closeErr != nil {
		return "", pipeliner.Wrap(pipeliner.KindBackend, "close temp wav", closeErr)
	}

	outPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))

	args := []string{"-m", s.ModelPath, "-f", wavPath, "-otxt", "-of", outPrefix}
	if s.Language != "" {
		args = append(args, "-l", s.Language)
	}
	if s.Translate {
		args = append(args, "-tr")
	}
	if s.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(s.Threads))
	}
	args = append(args, s.ExtraArgs...)

	cmd := exec.CommandContext(ctx, s.BinPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", pipeliner.Wrap(pipeliner.KindBackend,
			fmt.Sprintf("subprocess transcribe failed: %s", stderr.String()), err)
	}

	outPath := outPrefix + ".txt"
	defer os.Remove(outPath)

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return "", pipeliner.Wrap(pipeliner.KindBackend, "read subprocess output", err)
	}

	// The output is read with lossy UTF-8 replacement rather than rejected
	// outright (spec §9 open question: lossy replacement is kept).
	text := strings.ToValidUTF8(string(raw), "�")
	return strings.TrimSpace(text), nil
}
