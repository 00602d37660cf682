package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// NewMultiHandler returns a handler which passes every record to all of
// handlers. The first handler also receives internal errors of the others.
func NewMultiHandler(handlers []slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

type MultiHandler struct {
	handlers []slog.Handler
	closers  []io.Closer
}

var _ slog.Handler = (*MultiHandler)(nil)

func (self *MultiHandler) WithClosers(closers []io.Closer) *MultiHandler {
	self.closers = closers
	return self
}

func (self *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range self.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (self *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range self.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err == nil {
		return nil
	}

	err = fmt.Errorf("logger: one of handlers failed: %w", err)
	self.logInternalErr(ctx, err)
	return err
}

func (self *MultiHandler) logInternalErr(ctx context.Context, err error) {
	h0 := self.handlers[0]
	if !h0.Enabled(ctx, slog.LevelError) {
		return
	}

	r := slog.NewRecord(time.Now(), slog.LevelError, "unable log message",
		uintptr(0))
	r.AddAttrs(slog.Any("error", err))
	_ = h0.Handle(ctx, r)
}

func (self *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return self.clone(func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

func (self *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return self
	}
	return self.clone(func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

func (self *MultiHandler) clone(fn func(h slog.Handler) slog.Handler,
) *MultiHandler {
	handlers := make([]slog.Handler, len(self.handlers))
	for i, h := range self.handlers {
		handlers[i] = fn(h)
	}
	return &MultiHandler{handlers: handlers, closers: self.closers}
}

func (self *MultiHandler) Close() error {
	for _, closer := range self.closers {
		if closer != nil {
			_ = closer.Close()
		}
	}
	return nil
}
