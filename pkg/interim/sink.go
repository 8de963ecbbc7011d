// Package interim implements the C6 interim loop: periodic decoding of a
// rolling tail window, redrawn preview output, and final-overlap dedup
// (spec §4.6).
package interim

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/voxstream/voxstream/pkg/logging"
)

// Sink is the redrawable preview abstraction from spec §9's rearchitecture
// hint: "abstract as an InterimSink with show(text)/clear(); implementations
// for a TTY and for structured logs."
type Sink interface {
	Show(text string)
	Clear()
}

// TTYSink redraws a single line with carriage returns, right-padding with
// spaces to erase trailing characters from the previous, longer line (spec
// §4.6 step 6).
type TTYSink struct {
	mu     sync.Mutex
	out    io.Writer
	maxLen int
}

// NewTTYSink returns a Sink that writes redrawable lines to out (typically
// stderr, per spec §6).
func NewTTYSink(out io.Writer) *TTYSink {
	return &TTYSink{out: out}
}

// Show redraws the preview line with text, padded to erase any longer
// previous line.
func (s *TTYSink) Show(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(text) > s.maxLen {
		s.maxLen = len(text)
	}
	fmt.Fprintf(s.out, "\r%s", text+strings.Repeat(" ", s.maxLen-len(text)))
}

// Clear redraws the line as blank and resets the tracked max length.
func (s *TTYSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxLen > 0 {
		fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.maxLen))
	}
	s.maxLen = 0
}

// LogSink reports the preview through a structured logger instead of a
// redrawn terminal line, for non-TTY operation (spec §9).
type LogSink struct {
	log logging.Logger
}

// NewLogSink returns a Sink backed by log.
func NewLogSink(log logging.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Show(text string) { s.log.Debug("interim preview", "text", text) }
func (s *LogSink) Clear()           {}
