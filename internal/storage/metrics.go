package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const metricsNamespace = "streamlance"

var (
	usersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "users",
		Help:      "Number of users",
	})

	brokenFeedsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "broken_feeds",
		Help:      "Number of feeds failed on the last ingest run",
	})

	postingsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "postings",
		Help:      "Number of stored postings by category",
	}, []string{"category"})

	sentNotificationsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sent_notifications",
		Help:      "Number of postings delivered to users",
	})
)

// RegisterMetrics registers gauges of stored rows, the query duration
// histogram and the connection pool collector.
func (s *Storage) RegisterMetrics() {
	prometheus.MustRegister(
		usersGauge,
		brokenFeedsGauge,
		postingsGauge,
		sentNotificationsGauge,
		queryDuration,
		newPoolCollector(s.db))
}

// Metrics refreshes gauges of stored rows if fromDB is true. Pool statistics
// are collected on every scrape.
func (s *Storage) Metrics(ctx context.Context, fromDB bool) error {
	if !fromDB {
		return nil
	}
	return s.metricsFromDB(ctx)
}

type poolStat struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(stat *pgxpool.Stat) float64
}

// poolCollector exports pgxpool statistics.
type poolCollector struct {
	db    *pgxpool.Pool
	stats []poolStat
}

var _ prometheus.Collector = (*poolCollector)(nil)

func newPoolCollector(db *pgxpool.Pool) *poolCollector {
	newDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "pgx", name), help, nil, nil)
	}
	counter, gauge := prometheus.CounterValue, prometheus.GaugeValue

	return &poolCollector{
		db: db,
		stats: []poolStat{
			{
				newDesc("acquire_count", "Successful acquires from the pool"),
				counter,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) },
			},
			{
				newDesc("acquire_duration_seconds",
					"Total duration of successful acquires from the pool"),
				counter,
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() },
			},
			{
				newDesc("canceled_acquire_count",
					"Acquires from the pool canceled by a context"),
				counter,
				func(s *pgxpool.Stat) float64 {
					return float64(s.CanceledAcquireCount())
				},
			},
			{
				newDesc("empty_acquire_count",
					"Acquires which waited because the pool was empty"),
				counter,
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) },
			},
			{
				newDesc("new_conns_count", "New connections opened"),
				counter,
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) },
			},
			{
				newDesc("acquired_conns", "Currently acquired connections"),
				gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) },
			},
			{
				newDesc("idle_conns", "Currently idle connections"),
				gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) },
			},
			{
				newDesc("total_conns", "Connections currently in the pool"),
				gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) },
			},
			{
				newDesc("max_conns", "Maximum size of the pool"),
				gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) },
			},
		},
	}
}

func (self *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	for i := range self.stats {
		ch <- self.stats[i].desc
	}
}

func (self *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := self.db.Stat()
	for i := range self.stats {
		s := &self.stats[i]
		ch <- prometheus.MustNewConstMetric(s.desc, s.valueType, s.value(stat))
	}
}

func (s *Storage) metricsFromDB(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.updateUsersGauge(ctx) })
	g.Go(func() error { return s.updateBrokenFeedsGauge(ctx) })
	g.Go(func() error { return s.updateSentNotificationsGauge(ctx) })

	if err := s.updatePostingsGauge(ctx); err != nil {
		_ = g.Wait()
		return err
	}
	return g.Wait() //nolint:wrapcheck // already wrapped
}

func (s *Storage) updateUsersGauge(ctx context.Context) error {
	usersCount, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	usersGauge.Set(float64(usersCount))
	return nil
}

func (s *Storage) updateBrokenFeedsGauge(ctx context.Context) error {
	feedsCount, err := s.CountFeedsWithErrors(ctx)
	if err != nil {
		return err
	}
	brokenFeedsGauge.Set(float64(feedsCount))
	return nil
}

func (s *Storage) updateSentNotificationsGauge(ctx context.Context) error {
	count, err := s.CountSentNotifications(ctx)
	if err != nil {
		return err
	}
	sentNotificationsGauge.Set(float64(count))
	return nil
}

func (s *Storage) updatePostingsGauge(ctx context.Context) error {
	postingsCount, err := s.CountPostings(ctx)
	if err != nil {
		return err
	}
	postingsGauge.Reset()
	for category, count := range postingsCount {
		postingsGauge.WithLabelValues(category).Set(float64(count))
	}
	return nil
}
