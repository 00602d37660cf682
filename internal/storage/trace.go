package storage

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Query kinds of the query duration histogram.
const (
	kindQuery = "query"
	kindBatch = "batch"
)

var queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: metricsNamespace,
	Name:      "storage_query_duration_seconds",
	Help:      "Duration of database round trips by kind",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
}, []string{"kind"})

// QueryStats counts database round trips made with a context and the time
// spent in them. It's safe for concurrent use.
type QueryStats struct {
	queries atomic.Int64
	elapsed atomic.Int64
}

func (self *QueryStats) Queries() int64 { return self.queries.Load() }

func (self *QueryStats) Elapsed() time.Duration {
	return time.Duration(self.elapsed.Load())
}

func (self *QueryStats) observe(queries int64, d time.Duration) {
	self.queries.Add(queries)
	self.elapsed.Add(int64(d))
}

func (self *QueryStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("queries", self.Queries()),
		slog.Duration("elapsed", self.Elapsed()))
}

type queryStatsKey struct{}

// WithQueryStats returns a context which collects QueryStats of every query
// made with it. Use QueryStatsFrom to read them.
func WithQueryStats(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStatsKey{}, &QueryStats{})
}

// QueryStatsFrom returns stats collected by ctx or nil.
func QueryStatsFrom(ctx context.Context) *QueryStats {
	s, _ := ctx.Value(queryStatsKey{}).(*QueryStats)
	return s
}

type roundTripKey struct{}

// roundTrip is started by Trace*Start and finished by Trace*End.
type roundTrip struct {
	kind    string
	started time.Time
	queries int64
}

func startRoundTrip(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, roundTripKey{},
		&roundTrip{kind: kind, started: time.Now()})
}

func finishRoundTrip(ctx context.Context) {
	rt, ok := ctx.Value(roundTripKey{}).(*roundTrip)
	if !ok {
		return
	}

	d := time.Since(rt.started)
	queryDuration.WithLabelValues(rt.kind).Observe(d.Seconds())
	if s := QueryStatsFrom(ctx); s != nil {
		s.observe(max(rt.queries, 1), d)
	}
}

// queryTracer feeds QueryStats and the query duration histogram. A batch is
// one round trip, which counts every query queued in it.
type queryTracer struct{}

var (
	_ pgx.BatchTracer = queryTracer{}
	_ pgx.QueryTracer = queryTracer{}
)

func (queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn,
	_ pgx.TraceQueryStartData,
) context.Context {
	if rt, ok := ctx.Value(roundTripKey{}).(*roundTrip); ok &&
		rt.kind == kindBatch {
		return ctx
	}
	return startRoundTrip(ctx, kindQuery)
}

func (queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn,
	_ pgx.TraceQueryEndData,
) {
	if rt, ok := ctx.Value(roundTripKey{}).(*roundTrip); ok &&
		rt.kind == kindQuery {
		finishRoundTrip(ctx)
	}
}

func (queryTracer) TraceBatchStart(ctx context.Context, _ *pgx.Conn,
	_ pgx.TraceBatchStartData,
) context.Context {
	return startRoundTrip(ctx, kindBatch)
}

func (queryTracer) TraceBatchQuery(ctx context.Context, _ *pgx.Conn,
	_ pgx.TraceBatchQueryData,
) {
	if rt, ok := ctx.Value(roundTripKey{}).(*roundTrip); ok {
		rt.queries++
	}
}

func (queryTracer) TraceBatchEnd(ctx context.Context, _ *pgx.Conn,
	_ pgx.TraceBatchEndData,
) {
	finishRoundTrip(ctx)
}
