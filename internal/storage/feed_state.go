package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"streamlance.app/internal/model"
)

// FeedState returns the stored state of the feed or a new empty state.
func (s *Storage) FeedState(ctx context.Context, feedURL string,
) (*model.FeedState, error) {
	rows, _ := s.db.Query(ctx, `
SELECT feed_url,
       etag_header,
       last_modified_header,
       size,
       hash,
       checked_at,
       parsing_error_count,
       parsing_error_msg
  FROM feed_states
 WHERE feed_url = $1`, feedURL)

	state, err := pgx.CollectExactlyOneRow(rows,
		pgx.RowToAddrOfStructByName[model.FeedState])
	if errors.Is(err, pgx.ErrNoRows) {
		return model.NewFeedState(feedURL), nil
	} else if err != nil {
		return nil, fmt.Errorf("storage: unable fetch state of %q: %w",
			feedURL, err)
	}
	return state, nil
}

// UpdateFeedState inserts or updates the state of a feed.
func (s *Storage) UpdateFeedState(ctx context.Context, state *model.FeedState,
) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO feed_states (
  feed_url,
  etag_header,
  last_modified_header,
  size,
  hash,
  checked_at,
  parsing_error_count,
  parsing_error_msg)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (feed_url) DO UPDATE SET
       etag_header = EXCLUDED.etag_header,
       last_modified_header = EXCLUDED.last_modified_header,
       size = EXCLUDED.size,
       hash = EXCLUDED.hash,
       checked_at = EXCLUDED.checked_at,
       parsing_error_count = EXCLUDED.parsing_error_count,
       parsing_error_msg = EXCLUDED.parsing_error_msg`,
		state.FeedURL,
		state.EtagHeader,
		state.LastModifiedHeader,
		state.Size,
		state.Hash,
		state.CheckedAt,
		state.ParsingErrorCount,
		state.ParsingErrorMsg)
	if err != nil {
		return fmt.Errorf("storage: unable update state of %q: %w",
			state.FeedURL, err)
	}
	return nil
}

// CountFeedsWithErrors returns the number of feeds failed last time.
func (s *Storage) CountFeedsWithErrors(ctx context.Context) (int, error) {
	rows, _ := s.db.Query(ctx,
		`SELECT count(*) FROM feed_states WHERE parsing_error_count > 0`)
	count, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int])
	if err != nil {
		return 0, fmt.Errorf("storage: unable count broken feeds: %w", err)
	}
	return count, nil
}
