package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamlance.app/internal/config"
	"streamlance.app/internal/http/request"
	"streamlance.app/internal/logging"
)

func withLogger(r *http.Request, b *bytes.Buffer) *http.Request {
	l := slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
	return r.WithContext(logging.WithLogger(r.Context(), l))
}

func TestClientIP(t *testing.T) {
	os.Clearenv()
	t.Setenv("TRUSTED_REVERSE_PROXY_NETWORKS", "10.0.0.0/8")
	require.NoError(t, config.Load(""))

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "direct",
			remoteAddr: "192.168.1.10:4242",
			want:       "192.168.1.10",
		},
		{
			name:       "spoofed header",
			remoteAddr: "192.168.1.10:4242",
			xff:        "203.0.113.7",
			want:       "192.168.1.10",
		},
		{
			name:       "behind trusted proxy",
			remoteAddr: "10.0.0.2:4242",
			xff:        "203.0.113.7, 10.0.0.3",
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = request.ClientIP(r)
			}))

			r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestId(t *testing.T) {
	var first, second string
	h := RequestId(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if first == "" {
			first = RequestIdFrom(r.Context())
		} else {
			second = RequestIdFrom(r.Context())
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, first, w.Header().Get("X-Request-Id"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	assert.Empty(t, RequestIdFrom(context.Background()))
}

func TestWithAccessLog(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "info", path: "/v1/stats", want: "level=INFO"},
		{name: "debug prefix", path: "/healthcheck", want: "level=DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			h := WithAccessLog("/healthcheck")(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusTeapot)
					_, _ = w.Write([]byte("hello"))
				}))

			r := withLogger(httptest.NewRequest(http.MethodGet, tt.path, nil), &b)
			h.ServeHTTP(httptest.NewRecorder(), r)
			assert.Contains(t, b.String(), tt.want)
			assert.Contains(t, b.String(), "status_code=418")
			assert.Contains(t, b.String(), "size=5")
			assert.NotContains(t, b.String(), "storage.queries")
		})
	}
}

func TestWithPanic(t *testing.T) {
	var b bytes.Buffer
	h := WithPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withLogger(httptest.NewRequest(http.MethodGet, "/", nil), &b))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Contains(t, b.String(), "request aborted with panic")
	assert.Contains(t, b.String(), "reason=boom")

	h = WithPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(),
			httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
