package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"streamlance.app/internal/logging"
	"streamlance.app/internal/model"
)

// Recipients returns active users having at least one preference.
func (s *Storage) Recipients(ctx context.Context) ([]model.Recipient, error) {
	rows, _ := s.db.Query(ctx, `
SELECT u.id,
       u.email,
       array_agg(up.category_name ORDER BY up.category_name) AS categories
  FROM users u
  JOIN user_preferences up ON up.user_id = u.id
 WHERE u.is_active
 GROUP BY u.id, u.email
 ORDER BY u.id`)

	recipients, err := pgx.CollectRows(rows,
		pgx.RowToStructByName[model.Recipient])
	if err != nil {
		return nil, fmt.Errorf("storage: unable fetch recipients: %w", err)
	}
	return recipients, nil
}

// PendingPostings returns postings of given categories published after since
// and not delivered to the user yet, newest first.
func (s *Storage) PendingPostings(ctx context.Context, userID int64,
	categories []string, since time.Time,
) (model.Postings, error) {
	if len(categories) == 0 {
		return model.Postings{}, nil
	}

	rows, _ := s.db.Query(ctx, `
SELECT`+postingColumns+`
  FROM postings p
  LEFT JOIN sent_notifications sn
         ON sn.posting_id = p.id AND sn.user_id = $1
 WHERE sn.id IS NULL
   AND p.category = ANY($2)
   AND p.published_at >= $3
 ORDER BY p.published_at DESC, p.id DESC`, userID, categories, since)

	postings, err := pgx.CollectRows(rows,
		pgx.RowToAddrOfStructByName[model.Posting])
	if err != nil {
		return nil, fmt.Errorf(
			"storage: unable fetch pending postings of user #%d: %w", userID, err)
	}
	return postings, nil
}

// RecordSent records postings as delivered to the user. Every row is
// inserted inside its own savepoint, so a failed row is logged and skipped
// while the rest is committed. Already recorded pairs are ignored. It
// returns the number of new ledger rows.
func (s *Storage) RecordSent(ctx context.Context, userID int64,
	postingIDs []int64,
) (int, error) {
	log := logging.FromContext(ctx).With(slog.Int64("user_id", userID))
	var recorded int

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, id := range postingIDs {
			ok, err := recordSent(ctx, tx, userID, id)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Error("Unable record sent notification",
					slog.Int64("posting_id", id), slog.Any("error", err))
				continue
			} else if ok {
				recorded++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf(
			"storage: unable record notifications of user #%d: %w", userID, err)
	}
	return recorded, nil
}

func recordSent(ctx context.Context, tx pgx.Tx, userID, postingID int64,
) (created bool, err error) {
	err = pgx.BeginFunc(ctx, tx, func(tx pgx.Tx) error {
		rows, _ := tx.Query(ctx, `
INSERT INTO sent_notifications (user_id, posting_id)
VALUES ($1, $2)
    ON CONFLICT (user_id, posting_id) DO NOTHING
RETURNING id`, userID, postingID)

		_, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		} else if err != nil {
			return fmt.Errorf("insert posting #%d: %w", postingID, err)
		}
		created = true
		return nil
	})
	return
}

// CountSentNotifications returns the total number of ledger rows.
func (s *Storage) CountSentNotifications(ctx context.Context) (int64, error) {
	rows, _ := s.db.Query(ctx, `SELECT count(*) FROM sent_notifications`)
	count, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("storage: unable count sent notifications: %w", err)
	}
	return count, nil
}
