package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"streamlance.app/internal/logging"
	"streamlance.app/internal/metric"
	"streamlance.app/internal/model"
	"streamlance.app/internal/reader/parser"
)

// RefreshFeed downloads feedURL, unless it wasn't modified since the last
// run, and ingests its postings. The feed state is saved even if the refresh
// failed.
func (self *Pipeline) RefreshFeed(ctx context.Context, feedURL string,
) (FeedResult, error) {
	log := logging.FromContext(ctx).With(slog.String("feed_url", feedURL))
	ctx = logging.WithLogger(ctx, log)
	log.Debug("Begin feed refresh process")

	state, err := self.store.FeedState(ctx, feedURL)
	if err != nil {
		return FeedResult{}, fmt.Errorf("ingest: %w", err)
	}

	startTime := time.Now()
	state.CheckedNow()
	result, err := self.refresh(ctx, state)
	if err != nil {
		state.WithError(err.Error())
	} else {
		state.ResetErrorCounter()
	}

	if err := self.store.UpdateFeedState(ctx, state); err != nil {
		log.Error("Unable save feed state", slog.Any("error", err))
	}
	if err != nil {
		return result, err
	}

	log.Info("Feed refreshed",
		slog.Bool("not_modified", result.NotModified),
		slog.Int("parsed", result.Parsed),
		slog.Int("created", result.Created),
		slog.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

func (self *Pipeline) refresh(ctx context.Context, state *model.FeedState,
) (FeedResult, error) {
	var result FeedResult
	resp, err := self.newRequest(state).RequestWithContext(ctx, state.FeedURL)
	if err != nil {
		return result, fmt.Errorf("ingest: request %q: %w", state.FeedURL, err)
	}
	defer resp.Close()

	if err := resp.Err(); err != nil {
		return result, fmt.Errorf("ingest: fetch %q: %w", state.FeedURL, err)
	}

	log := logging.FromContext(ctx)
	if !resp.IsModified(state.EtagHeader, state.LastModifiedHeader) {
		log.Debug("Feed not modified")
		// Last-Modified may be updated even if ETag is not.
		if lm := resp.LastModified(); lm != "" {
			state.LastModifiedHeader = lm
		}
		result.NotModified = true
		return result, nil
	}

	body, err := resp.ReadBody()
	if err != nil {
		return result, fmt.Errorf("ingest: read %q: %w", state.FeedURL, err)
	}

	oldSize, oldHash := state.Size, state.Hash
	if !state.ContentChanged(body) {
		log.Debug("Feed content not changed", slog.Int("size", len(body)))
		state.EtagHeader, state.LastModifiedHeader = resp.ETag(), resp.LastModified()
		result.NotModified = true
		return result, nil
	}

	postings, err := parser.ParseBytes(ctx, body, self.platform)
	if err != nil {
		state.Size, state.Hash = oldSize, oldHash
		return result, fmt.Errorf("ingest: parse %q: %w", state.FeedURL, err)
	}
	result.Parsed = len(postings)

	created, err := self.Ingest(ctx, postings)
	if err != nil {
		// Keep old validators, so the next run downloads the feed again.
		state.Size, state.Hash = oldSize, oldHash
		return result, err
	}
	result.Created = created
	state.EtagHeader, state.LastModifiedHeader = resp.ETag(), resp.LastModified()
	return result, nil
}

// Ingest classifies postings and stores them. Postings with a link already
// stored are skipped. It returns the number of new postings.
func (self *Pipeline) Ingest(ctx context.Context, postings model.Postings,
) (int, error) {
	for _, p := range postings {
		if p.SourcePlatform == "" {
			p.SourcePlatform = self.platform
		}
		p.Category = self.classifier.Classify(p.Title, p.Skills, p.Description)
	}

	created, err := self.store.CreatePostings(ctx, postings)
	if err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}

	for _, p := range postings {
		if p.ID != 0 {
			metric.PostingsCreated.WithLabelValues(p.Category).Inc()
		}
	}
	logging.FromContext(ctx).Debug("Postings stored",
		slog.Int("count", len(postings)), slog.Int("created", created))
	return created, nil
}
