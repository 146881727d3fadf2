package feed

import (
	"os"
	"sync"

	"navhunter/pkg/logger"
)

// CaptureBuffer keeps the most recent raw feed frames in memory so the
// replay operation can re-run them. When a path is configured, frames
// are also appended to a stream log on disk.
type CaptureBuffer struct {
	log  *logger.Logger
	path string
	max  int

	mu    sync.Mutex
	lines []string
}

// NewCaptureBuffer creates a buffer bounded to max frames. path may be
// empty to keep the capture memory-only.
func NewCaptureBuffer(log *logger.Logger, path string, max int) *CaptureBuffer {
	if max <= 0 {
		max = 1000
	}
	return &CaptureBuffer{log: log, path: path, max: max}
}

// Append records one raw frame.
func (b *CaptureBuffer) Append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
	b.mu.Unlock()

	if b.path == "" {
		return
	}
	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		b.log.Warn("Failed to open stream log", logger.ErrorField(err), logger.StringField("path", b.path))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		b.log.Warn("Failed to append to stream log", logger.ErrorField(err))
	}
}

// Lines returns a copy of the captured frames, oldest first.
func (b *CaptureBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of captured frames.
func (b *CaptureBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}
