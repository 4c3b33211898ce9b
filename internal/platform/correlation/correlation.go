// Package correlation tags a request or a reveal sweep with an ID that every
// log line written on its behalf carries.
package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// HeaderName is the HTTP header used to propagate correlation IDs.
const HeaderName = "X-Correlation-ID"

const (
	maxIDLength = 64
	sweepPrefix = "sweep-"
)

type contextKey struct{}

// NewID generates an 8-character hex correlation ID (4 random bytes).
func NewID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewSweepID generates an ID for one reveal sweep, so sweep logs can be told
// apart from request logs.
func NewSweepID() string {
	return sweepPrefix + NewID()
}

// IsSweepID reports whether id was generated by NewSweepID.
func IsSweepID(id string) bool {
	return strings.HasPrefix(id, sweepPrefix)
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Ensure returns ctx carrying candidate when it is a usable ID, or a fresh ID
// otherwise. Client-supplied IDs end up in log lines and response headers, so
// only short tokens of letters, digits and "-_.:" are accepted.
func Ensure(ctx context.Context, candidate string) (context.Context, string) {
	id := candidate
	if !valid(id) {
		id = NewID()
	}
	return WithID(ctx, id), id
}

func valid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}

// ID extracts the correlation ID from ctx, returning ("", false) if not present.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Handler is a slog.Handler that adds a "correlation_id" attribute when the
// context carries one.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
