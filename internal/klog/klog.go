// Package klog provides the kernel's log/slog handler: every record is
// rendered into a fixed-size scratch buffer and written through a single
// sink, matching original_source/src/logger.rs's SimpleLogger ("always
// enabled", everything funneled through one println-equivalent) adapted to
// slog.Handler instead of the `log` crate's trait.
package klog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives one fully-rendered, newline-terminated log line. cmd/ksim
// binds this to the DBGU transmit path.
type Sink func(line []byte)

// Handler is a slog.Handler that never allocates on its formatting hot path
// (it renders into a stack buffer) and writes every record it sees — it has
// no level filter of its own beyond the slog.Leveler passed to New,
// mirroring SimpleLogger's "enabled" returning true unconditionally.
type Handler struct {
	mu    *sync.Mutex
	sink  Sink
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// New builds a Handler writing through sink at the given minimum level.
func New(sink Sink, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{mu: &sync.Mutex{}, sink: sink, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf [128]byte
	n := 0
	n += copy(buf[n:], r.Level.String())
	n += copy(buf[n:], " - ")
	if h.group != "" {
		n += copy(buf[n:], h.group)
		n += copy(buf[n:], ": ")
	}
	n += copy(buf[n:], r.Message)

	for _, a := range h.attrs {
		n += copy(buf[n:], fmt.Sprintf(" %s=%v", a.Key, a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		n += copy(buf[n:], fmt.Sprintf(" %s=%v", a.Key, a.Value))
		return n < len(buf)-1
	})
	if n < len(buf) {
		buf[n] = '\n'
		n++
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink(buf[:n])
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = name
	return &next
}

var _ slog.Handler = (*Handler)(nil)
