// Package ingest pulls gig feeds, classifies their postings and stores new
// ones.
package ingest // import "streamlance.app/internal/ingest"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"streamlance.app/internal/logging"
	"streamlance.app/internal/metric"
	"streamlance.app/internal/model"
	"streamlance.app/internal/reader/fetcher"
	"streamlance.app/internal/storage"
)

var ErrPanic = errors.New("ingest: run aborted with panic")

type Store interface {
	FeedState(ctx context.Context, feedURL string) (*model.FeedState, error)
	UpdateFeedState(ctx context.Context, state *model.FeedState) error
	CreatePostings(ctx context.Context, postings model.Postings) (int, error)
}

type Classifier interface {
	Classify(title string, skills []string, description string) string
}

// Result summarizes an ingest run.
type Result struct {
	Feeds       int
	Failed      int
	NotModified int
	Parsed      int
	Created     int
}

func New(store Store, classifier Classifier, platform string,
	feedURLs []string,
) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: classifier,
		platform:   platform,
		feedURLs:   feedURLs,
		newRequest: fetcher.NewRequestFeed,
	}
}

type Pipeline struct {
	store      Store
	classifier Classifier
	platform   string
	feedURLs   []string

	newRequest func(state *model.FeedState) *fetcher.RequestBuilder
}

// Run refreshes every feed one after another. A failed feed is logged and
// doesn't stop the run. Run returns an error only if it panicked or ctx was
// canceled.
func (self *Pipeline) Run(ctx context.Context) (result Result, err error) {
	ctx = logging.WithRun(ctx, "ingest", uuid.NewString())
	ctx = storage.WithQueryStats(ctx)
	log := logging.FromContext(ctx)
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("ingest run aborted with panic", slog.Any("reason", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		metric.IngestRunDuration.WithLabelValues(metric.StatusOf(err)).
			Observe(time.Since(startTime).Seconds())
	}()

	log.Info("Starting ingest run", slog.Int("feeds", len(self.feedURLs)))
	for _, feedURL := range self.feedURLs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("ingest: %w", err)
		}

		result.Feeds++
		r, err := self.RefreshFeed(ctx, feedURL)
		if err != nil {
			result.Failed++
			log.Error("Unable refresh feed",
				slog.String("feed_url", feedURL), slog.Any("error", err))
			continue
		}
		result.Parsed += r.Parsed
		result.Created += r.Created
		if r.NotModified {
			result.NotModified++
		}
	}

	log.Info("Ingest run completed",
		slog.Int("feeds", result.Feeds),
		slog.Int("failed", result.Failed),
		slog.Int("not_modified", result.NotModified),
		slog.Int("parsed", result.Parsed),
		slog.Int("created", result.Created),
		slog.Any("storage", storage.QueryStatsFrom(ctx)),
		slog.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

// FeedResult summarizes refresh of a single feed.
type FeedResult struct {
	NotModified bool
	Parsed      int
	Created     int
}
