package mux

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagMiddleware(tag string, calls *[]string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*calls = append(*calls, tag)
			next.ServeHTTP(w, r)
		})
	}
}

func serve(t *testing.T, h http.Handler, method, target string) int {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w.Code
}

func TestServeMux_middlewares(t *testing.T) {
	var calls []string
	handler := func(name string) func(http.ResponseWriter, *http.Request) {
		return func(http.ResponseWriter, *http.Request) {
			calls = append(calls, name)
		}
	}

	m := New()
	m.HandleFunc("/liveness", handler("liveness"))
	m.Use(tagMiddleware("gzip", &calls), tagMiddleware("log", &calls))
	m.HandleFunc("/healthcheck", handler("healthcheck"))
	m.Group(func(m *ServeMux) {
		m.Use(tagMiddleware("auth", &calls))
		m.HandleFunc("/metrics", handler("metrics"))
	})
	m.HandleFunc("/version", handler("version"))

	tests := []struct {
		path string
		want []string
	}{
		{path: "/liveness", want: []string{"liveness"}},
		{path: "/healthcheck", want: []string{"gzip", "log", "healthcheck"}},
		{path: "/metrics", want: []string{"gzip", "log", "auth", "metrics"}},
		{path: "/version", want: []string{"gzip", "log", "version"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			calls = nil
			assert.Equal(t, http.StatusOK, serve(t, m, http.MethodGet, tt.path))
			assert.Equal(t, tt.want, calls)
		})
	}
}

func TestServeMux_PrefixGroup(t *testing.T) {
	var calls []string
	m := New().Use(tagMiddleware("log", &calls))

	var gotPath string
	m.PrefixGroup("/v1", func(m *ServeMux) {
		m.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
		})
	})
	assert.Equal(t, http.StatusOK, serve(t, m, http.MethodGet, "/v1/stats"))
	assert.Equal(t, "/stats", gotPath)
	assert.Equal(t, []string{"log"}, calls)

	assert.Equal(t, http.StatusMethodNotAllowed,
		serve(t, m, http.MethodPost, "/v1/stats"))
	assert.Equal(t, http.StatusNotFound,
		serve(t, m, http.MethodGet, "/v1/unknown"))
	assert.Equal(t, http.StatusNotFound, serve(t, m, http.MethodGet, "/stats"))
}

func TestServeMux_emptyPrefix(t *testing.T) {
	m := New()
	g := m.PrefixGroup("", func(m *ServeMux) {
		m.HandleFunc("/stats", func(http.ResponseWriter, *http.Request) {})
	})
	require.NotNil(t, g)
	assert.Equal(t, http.StatusOK, serve(t, m, http.MethodGet, "/stats"))
}
