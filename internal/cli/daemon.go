// SPDX-FileCopyrightText: Copyright The Miniflux Authors. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cli // import "streamlance.app/internal/cli"

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"streamlance.app/internal/config"
	"streamlance.app/internal/http/server"
	"streamlance.app/internal/ingest"
	"streamlance.app/internal/metric"
	"streamlance.app/internal/notify"
	"streamlance.app/internal/report"
	"streamlance.app/internal/runlock"
	"streamlance.app/internal/storage"
	"streamlance.app/internal/taxonomy"
)

func NewDaemon() *Daemon { return &Daemon{} }

type Daemon struct {
	store      *storage.Storage
	redis      *redis.Client
	tax        *taxonomy.Taxonomy
	locker     runlock.Locker
	pipeline   *ingest.Pipeline
	dispatcher *notify.Dispatcher

	g          *errgroup.Group
	httpServer *http.Server
}

func (self *Daemon) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, os.Interrupt)
	defer cancel()

	slog.Info("Starting daemon...")
	defer self.close(ctx)

	if err := self.configure(ctx); err != nil {
		return err
	}

	if err := self.start(ctx); err != nil {
		return err
	}
	return self.wait(ctx)
}

func (self *Daemon) close(ctx context.Context) {
	if self.redis != nil {
		if err := self.redis.Close(); err != nil {
			slog.Error("failed close redis client", slog.Any("error", err))
		}
	}
	if self.store != nil {
		self.store.Close(ctx)
	}
}

func (self *Daemon) configure(ctx context.Context) error {
	store, err := makeStorage(ctx)
	if err != nil {
		return err
	}
	self.store = store

	if config.Opts.RunMigrations() {
		if err := self.store.Migrate(ctx); err != nil {
			return err
		}
	}

	if err := self.store.SchemaUpToDate(ctx); err != nil {
		return err
	}

	tax, err := loadTaxonomy()
	if err != nil {
		return err
	}
	self.tax = tax
	self.pipeline = newPipeline(store, tax)

	if config.Opts.HasMailer() {
		self.dispatcher = newDispatcher(store)
	} else {
		slog.Warn("SMTP is not configured, digests will not be sent")
	}
	return self.configureLocker(ctx)
}

func (self *Daemon) configureLocker(ctx context.Context) error {
	redisURL := config.Opts.RedisURL()
	if redisURL == "" {
		slog.Info("REDIS_URL is empty, runs are guarded inside this process only")
		self.locker = runlock.NewLocal()
		return nil
	}

	client, err := runlock.Connect(ctx, redisURL)
	if err != nil {
		return err
	}
	self.redis = client
	self.locker = runlock.NewRedis(client, config.Opts.RunLockTTL())
	return nil
}

func (self *Daemon) start(ctx context.Context) error {
	self.g, ctx = errgroup.WithContext(ctx)
	if config.Opts.HasSchedulerService() {
		if err := self.runScheduler(ctx); err != nil {
			return err
		}
	}

	if config.Opts.HasHTTPService() {
		self.httpServer = server.StartWebServer(self.store,
			report.New(self.store, self.tax), self.tax, self.g)
	}

	if config.Opts.HasMetricsCollector() {
		metric.RegisterMetrics(self.store)
	}
	return nil
}

func (self *Daemon) wait(ctx context.Context) error {
	<-ctx.Done()
	if self.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down the process gracefully...")
		if err := self.httpServer.Shutdown(ctx); err != nil {
			slog.Error("failed shutdown http server", slog.Any("error", err))
		}
	}

	if err := self.g.Wait(); err != nil {
		slog.Error("process stopped with error", slog.Any("error", err))
		return fmt.Errorf("process stopped with error: %w", err)
	}
	slog.Info("Process gracefully stopped")
	return nil
}
