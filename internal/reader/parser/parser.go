package parser // import "streamlance.app/internal/reader/parser"

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"streamlance.app/internal/logging"
	"streamlance.app/internal/model"
)

var ErrFeedFormatNotDetected = errors.New(
	"reader/parser: unable to detect feed format")

// ParseFeed parses a RSS, Atom or JSON feed and returns its postings tagged
// with platform. Category of returned postings isn't set.
func ParseFeed(ctx context.Context, r io.Reader, platform string,
) (model.Postings, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reader/parser: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, ErrFeedFormatNotDetected
		}
		return nil, fmt.Errorf("reader/parser: parse feed: %w", err)
	}

	log := logging.FromContext(ctx)
	postings := make(model.Postings, 0, len(feed.Items))
	for i, item := range feed.Items {
		p := NewPosting(item, platform)
		if p == nil {
			log.Warn("Skip feed item without title and link",
				slog.Int("index", i), slog.String("guid", item.GUID))
			continue
		}
		postings = append(postings, p)
	}
	return postings, nil
}

// ParseBytes is like ParseFeed, but reads the feed from b.
func ParseBytes(ctx context.Context, b []byte, platform string,
) (model.Postings, error) {
	return ParseFeed(ctx, bytes.NewReader(b), platform)
}
