package middleware // import "streamlance.app/internal/http/middleware"

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"streamlance.app/internal/http/request"
	"streamlance.app/internal/logging"
	"streamlance.app/internal/storage"
)

// WithAccessLog logs one line per request with its status, size, duration
// and database usage. Requests to paths starting with one of quiet are
// logged at debug level, so probes and scrapes don't flood the log.
func WithAccessLog(quiet ...string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return &AccessLog{quiet: quiet, next: next}
	}
}

type AccessLog struct {
	quiet []string
	next  http.Handler
}

func (self *AccessLog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := storage.WithQueryStats(r.Context())
	sw := newStatusResponseWriter(w)
	startTime := time.Now()
	self.next.ServeHTTP(sw, r.WithContext(ctx))

	attrs := []slog.Attr{
		slog.String("client_ip", request.ClientIP(r)),
		slog.String("proto", r.Proto),
		slog.Int("status_code", sw.StatusCode()),
		slog.Int("size", sw.Size()),
		slog.Duration("request_time", time.Since(startTime)),
	}
	if stats := storage.QueryStatsFrom(ctx); stats.Queries() > 0 {
		attrs = append(attrs, slog.Any("storage", stats))
	}

	logging.FromContext(ctx).LogAttrs(ctx, self.level(r.URL.Path),
		r.Method+" "+r.URL.RequestURI(), attrs...)
}

func (self *AccessLog) level(path string) slog.Level {
	for _, prefix := range self.quiet {
		if strings.HasPrefix(path, prefix) {
			return slog.LevelDebug
		}
	}
	return slog.LevelInfo
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

type statusResponseWriter struct {
	http.ResponseWriter

	statusCode    int
	headerWritten bool
	size          int
}

var (
	_ io.ReaderFrom       = (*statusResponseWriter)(nil)
	_ http.ResponseWriter = (*statusResponseWriter)(nil)
)

func (self *statusResponseWriter) StatusCode() int { return self.statusCode }
func (self *statusResponseWriter) Size() int       { return self.size }

func (self *statusResponseWriter) WriteHeader(statusCode int) {
	self.ResponseWriter.WriteHeader(statusCode)
	if !self.headerWritten {
		self.statusCode = statusCode
		self.headerWritten = true
	}
}

func (self *statusResponseWriter) Write(b []byte) (n int, err error) {
	self.headerWritten = true
	n, err = self.ResponseWriter.Write(b)
	self.size += n
	return n, err //nolint:wrapcheck // return as is
}

func (self *statusResponseWriter) Unwrap() http.ResponseWriter {
	return self.ResponseWriter
}

func (self *statusResponseWriter) ReadFrom(r io.Reader) (n int64, err error) {
	self.headerWritten = true
	switch v := self.ResponseWriter.(type) {
	case io.ReaderFrom:
		n, err = v.ReadFrom(r)
	default:
		n, err = io.Copy(self.ResponseWriter, r)
	}
	self.size += int(n)
	return n, err //nolint:wrapcheck // return as is
}
