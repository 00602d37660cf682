package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamlance.app/internal/config"
	"streamlance.app/internal/model"
	"streamlance.app/internal/taxonomy"
	"streamlance.app/internal/version"
)

type fakeStore struct {
	pingErr    error
	metricsErr error
	fromDB     []bool
}

func (self *fakeStore) Ping(context.Context) error { return self.pingErr }

func (self *fakeStore) RegisterMetrics() {}

func (self *fakeStore) Metrics(_ context.Context, fromDB bool) error {
	self.fromDB = append(self.fromDB, fromDB)
	return self.metricsErr
}

type fakeReporter struct {
	stats    *model.Stats
	trending []model.TrendingCategory
	err      error
}

func (self *fakeReporter) Stats(context.Context) (*model.Stats, error) {
	return self.stats, self.err
}

func (self *fakeReporter) Trending(context.Context,
) ([]model.TrendingCategory, error) {
	return self.trending, self.err
}

func newHandler(t *testing.T, store Store, rep Reporter) http.Handler {
	t.Helper()
	require.NoError(t, config.Load(""))
	return setupHandler(store, rep, taxonomy.Default())
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, target, nil)
	r.RemoteAddr = "127.0.0.1:50000"
	h.ServeHTTP(w, r)
	return w
}

func TestHealthProbes(t *testing.T) {
	os.Clearenv()
	tests := []struct {
		name     string
		path     string
		pingErr  error
		wantCode int
	}{
		{name: "liveness", path: "/liveness", wantCode: http.StatusOK},
		{
			name:     "liveness ignores database",
			path:     "/healthz",
			pingErr:  errors.New("connection refused"),
			wantCode: http.StatusOK,
		},
		{name: "readiness", path: "/readiness", wantCode: http.StatusOK},
		{
			name:     "readiness without database",
			path:     "/readyz",
			pingErr:  errors.New("connection refused"),
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "healthcheck without database",
			path:     "/healthcheck",
			pingErr:  errors.New("connection refused"),
			wantCode: http.StatusServiceUnavailable,
		},
		{name: "healthcheck", path: "/healthcheck", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, &fakeStore{pingErr: tt.pingErr}, &fakeReporter{})
			w := serve(h, http.MethodGet, tt.path)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "OK", w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func TestVersion(t *testing.T) {
	os.Clearenv()
	h := newHandler(t, &fakeStore{}, &fakeReporter{})
	w := serve(h, http.MethodGet, "/version")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, version.Version, w.Body.String())
}

func TestStats(t *testing.T) {
	os.Clearenv()
	rep := &fakeReporter{stats: &model.Stats{
		ActivePostings: 12,
		AvgBudget:      450.5,
		Users:          3,
		Delivered:      7,
	}}
	h := newHandler(t, &fakeStore{}, rep)

	w := serve(h, http.MethodGet, "/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, map[string]any{
		"active_gigs":    float64(12),
		"avg_budget":     450.5,
		"freelancers":    float64(3),
		"delivered_gigs": float64(7),
	}, got)
}

func TestStats_error(t *testing.T) {
	os.Clearenv()
	rep := &fakeReporter{err: errors.New("database is down")}
	h := newHandler(t, &fakeStore{}, rep)

	w := serve(h, http.MethodGet, "/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "database is down")
}

func TestTrending(t *testing.T) {
	os.Clearenv()
	rep := &fakeReporter{trending: []model.TrendingCategory{
		{Name: "Web Development", Current: 10, Previous: 4, Change: 150},
		{Name: "Content & Writing", Current: 3, Previous: 5, Change: 0},
	}}
	h := newHandler(t, &fakeStore{}, rep)

	w := serve(h, http.MethodGet, "/v1/trending")
	require.Equal(t, http.StatusOK, w.Code)

	var got []trendingCategory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []trendingCategory{
		{Name: "Web Development", Change: "+150%", Current: 10, Previous: 4},
		{Name: "Content & Writing", Change: "+0%", Current: 3, Previous: 5},
	}, got)
}

func TestTrending_empty(t *testing.T) {
	os.Clearenv()
	h := newHandler(t, &fakeStore{}, &fakeReporter{})

	w := serve(h, http.MethodGet, "/v1/trending")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestCategories(t *testing.T) {
	os.Clearenv()
	h := newHandler(t, &fakeStore{}, &fakeReporter{})

	w := serve(h, http.MethodGet, "/v1/categories")
	require.Equal(t, http.StatusOK, w.Code)

	var got []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, taxonomy.Default().Names(), got)
	assert.NotContains(t, got, "Other")
}

func TestAPI_methodNotAllowed(t *testing.T) {
	os.Clearenv()
	h := newHandler(t, &fakeStore{}, &fakeReporter{})
	w := serve(h, http.MethodPost, "/v1/stats")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetrics(t *testing.T) {
	os.Clearenv()
	store := &fakeStore{}
	h := newHandler(t, store, &fakeReporter{})
	w := serve(h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.fromDB)

	t.Setenv("METRICS_COLLECTOR", "true")
	h = newHandler(t, store, &fakeReporter{})
	w = serve(h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{true}, store.fromDB)

	store.metricsErr = errors.New("query failed")
	w = serve(h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []bool{true, false}, store.fromDB)
}
