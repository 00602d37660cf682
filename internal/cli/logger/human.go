package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
)

// NewHumanTextHandler returns a handler which writes "LEVEL message k=v..."
// lines, optionally prefixed by the standard log date and time.
func NewHumanTextHandler(w io.Writer, opts *slog.HandlerOptions,
	logTime bool,
) *HumanTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	self := &HumanTextHandler{
		logTime: logTime,
		w:       w,
		opts:    *opts,
		shared:  new(humanShared),
	}
	return self.init()
}

type HumanTextHandler struct {
	logTime bool
	w       io.Writer

	h    slog.Handler
	opts slog.HandlerOptions

	// shared between handlers derived by WithAttrs and WithGroup, because all
	// of them write into the same buffer.
	shared *humanShared
}

type humanShared struct {
	mu     sync.Mutex
	b      bytes.Buffer
	stdLog *log.Logger
}

var _ slog.Handler = (*HumanTextHandler)(nil)

func (self *HumanTextHandler) init() *HumanTextHandler {
	if self.logTime {
		self.shared.stdLog = log.New(&self.shared.b, "", log.LstdFlags)
	}
	opts := self.opts
	opts.ReplaceAttr = self.replace
	self.h = slog.NewTextHandler(&self.shared.b, &opts)
	return self
}

func (self *HumanTextHandler) replace(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey, slog.LevelKey, slog.MessageKey:
			return slog.Attr{}
		}
	}
	if self.opts.ReplaceAttr != nil {
		return self.opts.ReplaceAttr(groups, a)
	}
	return a
}

func (self *HumanTextHandler) Enabled(ctx context.Context, level slog.Level,
) bool {
	return self.h.Enabled(ctx, level)
}

func (self *HumanTextHandler) Handle(ctx context.Context, r slog.Record) error {
	s := self.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.reset()

	if err := self.formatStd(r); err != nil {
		return err
	}

	if err := self.h.Handle(ctx, r); err != nil {
		return fmt.Errorf("logger: failed slog handler: %w", err)
	}

	// Discard trailing '\n', added by slog.TextHandler, and trailing ' ' added by
	// formatStd.
	b := bytes.TrimSpace(s.b.Bytes())
	s.b.Truncate(len(b))

	s.b.WriteByte('\n')
	if _, err := s.b.WriteTo(self.w); err != nil {
		return fmt.Errorf("logger: failed write formatted entry: %w", err)
	}
	return nil
}

func (self *humanShared) reset() {
	const maxBufferSize = 16 << 10
	if self.b.Cap() > maxBufferSize {
		self.b = bytes.Buffer{}
		return
	}
	self.b.Reset()
}

func (self *HumanTextHandler) formatStd(r slog.Record) error {
	b := &self.shared.b
	if self.logTime {
		// output log.LstdFlags
		if err := self.shared.stdLog.Output(2, ""); err != nil {
			return fmt.Errorf("logger: write prefix to log.Output: %w", err)
		}
		// Discard last byte (\n), added by log.Output.
		b.Truncate(b.Len() - 1)
	}

	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteByte(' ')
	return nil
}

func (self *HumanTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h := *self
	h.h = self.h.WithAttrs(attrs)
	return &h
}

func (self *HumanTextHandler) WithGroup(name string) slog.Handler {
	h := *self
	h.h = self.h.WithGroup(name)
	return &h
}
