package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// DefaultRunBufferSize bounds the number of lines a run buffer retains.
// A runaway site that warns on every link must not grow the buffer without
// limit during a long crawl.
const DefaultRunBufferSize = 2000

// RunBuffer collects log lines emitted during a single scrape run.
//
// The debug digest email appends these lines so operators can see why items
// were skipped or excluded without shelling into the worker. A fresh buffer
// is created per run and passed down through the pipeline dependencies.
type RunBuffer struct {
	mu      sync.Mutex
	lines   []string
	max     int
	dropped int
}

// NewRunBuffer creates a buffer retaining at most max lines.
// Non-positive max selects DefaultRunBufferSize.
func NewRunBuffer(max int) *RunBuffer {
	if max <= 0 {
		max = DefaultRunBufferSize
	}
	return &RunBuffer{
		lines: make([]string, 0, 64),
		max:   max,
	}
}

// Append adds one line to the buffer. Lines beyond the cap are counted but
// not stored.
func (b *RunBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) >= b.max {
		b.dropped++
		return
	}
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the collected lines. When lines were dropped, a
// trailer reports how many.
func (b *RunBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.lines), len(b.lines)+1)
	copy(out, b.lines)
	if b.dropped > 0 {
		out = append(out, fmt.Sprintf("... %d more lines dropped", b.dropped))
	}
	return out
}

// Len returns the number of stored lines.
func (b *RunBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// BufferHandler is an slog.Handler that forwards every record to an inner
// handler and additionally copies records at or above a minimum level into a
// RunBuffer.
type BufferHandler struct {
	inner slog.Handler
	buf   *RunBuffer
	min   slog.Level
	attrs []slog.Attr
}

// NewBufferHandler wraps inner so that records with level >= min also land
// in buf. Typical usage tees Warn and Error records into the run buffer:
//
//	handler := logging.NewBufferHandler(base.Handler(), buf, slog.LevelWarn)
//	runLogger := slog.New(handler)
func NewBufferHandler(inner slog.Handler, buf *RunBuffer, min slog.Level) *BufferHandler {
	return &BufferHandler{inner: inner, buf: buf, min: min}
}

// Enabled reports whether either destination wants the record.
func (h *BufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min || h.inner.Enabled(ctx, level)
}

// Handle forwards the record and mirrors qualifying records into the buffer.
func (h *BufferHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= h.min {
		h.buf.Append(formatRecord(record, h.attrs))
	}
	if h.inner.Enabled(ctx, record.Level) {
		return h.inner.Handle(ctx, record)
	}
	return nil
}

// WithAttrs returns a handler carrying the additional attributes.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BufferHandler{
		inner: h.inner.WithAttrs(attrs),
		buf:   h.buf,
		min:   h.min,
		attrs: merged,
	}
}

// WithGroup returns a handler with the group applied to the inner handler.
// Buffer lines stay flat; groups only matter for the structured output.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{
		inner: h.inner.WithGroup(name),
		buf:   h.buf,
		min:   h.min,
		attrs: h.attrs,
	}
}

// formatRecord renders a record as one plain-text line for the digest email.
func formatRecord(record slog.Record, bound []slog.Attr) string {
	var b strings.Builder
	b.WriteString(record.Time.Format("15:04:05"))
	b.WriteString(" ")
	b.WriteString(record.Level.String())
	b.WriteString(" ")
	b.WriteString(record.Message)

	for _, attr := range bound {
		b.WriteString(" ")
		b.WriteString(attr.String())
	}
	record.Attrs(func(attr slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(attr.String())
		return true
	})
	return b.String()
}
