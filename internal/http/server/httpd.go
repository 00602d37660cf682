// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package server // import "streamlance.app/internal/http/server"

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"streamlance.app/internal/config"
	"streamlance.app/internal/http/middleware"
	"streamlance.app/internal/http/mux"
	"streamlance.app/internal/metric"
	"streamlance.app/internal/model"
	"streamlance.app/internal/taxonomy"
	"streamlance.app/internal/version"
)

// Store is the part of the storage used by HTTP handlers.
type Store interface {
	metric.Storage

	Ping(ctx context.Context) error
}

// Reporter builds catalog summaries for the API.
type Reporter interface {
	Stats(ctx context.Context) (*model.Stats, error)
	Trending(ctx context.Context) ([]model.TrendingCategory, error)
}

func StartWebServer(store Store, rep Reporter, tax *taxonomy.Taxonomy,
	g *errgroup.Group,
) *http.Server {
	server := &http.Server{
		Addr:         config.Opts.ListenAddr(),
		ReadTimeout:  config.Opts.HTTPServerTimeout(),
		WriteTimeout: config.Opts.HTTPServerTimeout(),
		IdleTimeout:  config.Opts.HTTPServerTimeout(),
		Handler:      setupHandler(store, rep, tax),
	}
	startHTTPServer(server, g)
	return server
}

func startHTTPServer(server *http.Server, g *errgroup.Group) {
	g.Go(func() error {
		slog.Info("Starting HTTP server",
			slog.String("listen_address", server.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("failed serve plain HTTP server", slog.Any("error", err))
			return fmt.Errorf("http/server: failed serve plain HTTP server: %w", err)
		}
		return nil
	})
}

func setupHandler(store Store, rep Reporter, tax *taxonomy.Taxonomy,
) http.Handler {
	m := mux.New()

	readinessProbe := makeReadinessProbe(store)
	m.HandleFunc("/liveness", livenessProbe).
		HandleFunc("/healthz", livenessProbe).
		HandleFunc("/readiness", readinessProbe).
		HandleFunc("/readyz", readinessProbe)

	m.Use(middleware.Gzip, middleware.RequestId, middleware.ClientIP,
		middleware.WithAccessLog("/healthcheck", "/metrics"),
		middleware.WithPanic)

	m.HandleFunc("/healthcheck", readinessProbe)
	m.HandleFunc("/version", handleVersion)

	if config.Opts.HasMetricsCollector() {
		m.Handle("/metrics", metric.Handler(store))
	}

	h := &handler{report: rep, tax: tax}
	m.PrefixGroup("/v1", func(m *mux.ServeMux) {
		m.HandleFunc("GET /stats", h.stats).
			HandleFunc("GET /trending", h.trending).
			HandleFunc("GET /categories", h.categories)
	})
	return m
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(version.Version))
}
