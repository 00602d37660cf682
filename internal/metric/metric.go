// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package metric // import "streamlance.app/internal/metric"

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"streamlance.app/internal/config"
	"streamlance.app/internal/http/request"
	"streamlance.app/internal/logging"
)

const namespace = "streamlance"

// Prometheus Metrics.
var (
	IngestRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration",
			Help:      "Processing time of an ingest run over all feeds",
			Buckets:   prometheus.LinearBuckets(1, 2, 15),
		},
		[]string{"status"},
	)

	DispatchRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_run_duration",
			Help:      "Processing time of a notification dispatch run",
			Buckets:   prometheus.LinearBuckets(1, 5, 20),
		},
		[]string{"status"},
	)

	PostingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_created_total",
			Help:      "Number of new postings stored by category",
		},
		[]string{"category"},
	)

	DigestsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_total",
			Help:      "Number of digest deliveries by status",
		},
		[]string{"status"},
	)
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// StatusOf returns the status label of err.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Storage collects metrics which live in the database.
type Storage interface {
	RegisterMetrics()
	Metrics(ctx context.Context, fromDB bool) error
}

func RegisterMetrics(store Storage) {
	prometheus.MustRegister(IngestRunDuration)
	prometheus.MustRegister(DispatchRunDuration)
	prometheus.MustRegister(PostingsCreated)
	prometheus.MustRegister(DigestsSent)
	store.RegisterMetrics()
}

func Handler(store Storage) http.Handler {
	promHandler := promhttp.Handler()
	var mu sync.Mutex
	var lastStorageMetricsAt time.Time

	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logging.FromContext(ctx)
		if !isAllowedToAccessMetricsEndpoint(r) {
			log.Warn("Authentication failed while accessing the metrics endpoint",
				slog.String("client_ip", request.ClientIP(r)),
				slog.String("client_user_agent", r.UserAgent()),
				slog.String("client_remote_addr", r.RemoteAddr),
			)
			http.NotFound(w, r)
			return
		}

		mu.Lock()
		d := time.Since(lastStorageMetricsAt)
		fromDB := d >= config.Opts.MetricsRefreshInterval()
		if fromDB {
			lastStorageMetricsAt = time.Now()
		}
		mu.Unlock()

		log.Debug("Collecting storage metrics",
			slog.Duration("elapsed", d), slog.Bool("from_db", fromDB))
		if err := store.Metrics(ctx, fromDB); err != nil {
			log.Error("unable collect storage metrics", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError),
				http.StatusInternalServerError)
			return
		}
		promHandler.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func isAllowedToAccessMetricsEndpoint(r *http.Request) bool {
	log := logging.FromContext(r.Context()).With(
		slog.Bool("authentication_failed", true),
		slog.String("client_ip", request.ClientIP(r)),
		slog.String("client_user_agent", r.UserAgent()),
		slog.String("client_remote_addr", r.RemoteAddr))

	needAuth := config.Opts.MetricsUsername() != "" &&
		config.Opts.MetricsPassword() != ""
	if needAuth {
		username, password, authOK := r.BasicAuth()
		switch {
		case !authOK:
			log.Warn("Metrics endpoint accessed without authentication header")
			return false
		case username == "" || password == "":
			log.Warn("Metrics endpoint accessed with empty username or password")
			return false
		case username != config.Opts.MetricsUsername() || password != config.Opts.MetricsPassword():
			log.Warn("Metrics endpoint accessed with invalid username or password")
			return false
		}
	}

	// X-Forwarded-For can be spoofed, so only the TCP peer is checked.
	remoteIP := net.ParseIP(request.FindRemoteIP(r))
	for _, cidr := range config.Opts.MetricsAllowedNetworks() {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			log.Error("Metrics endpoint accessed with invalid CIDR",
				slog.String("cidr", cidr))
			return false
		}
		if network.Contains(remoteIP) {
			return true
		}
	}
	return false
}
