package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Preferences returns categories the user subscribed to, sorted by name.
func (s *Storage) Preferences(ctx context.Context, userID int64,
) ([]string, error) {
	rows, _ := s.db.Query(ctx, `
SELECT category_name
  FROM user_preferences
 WHERE user_id = $1
 ORDER BY category_name`, userID)

	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("storage: unable fetch preferences of user #%d: %w",
			userID, err)
	}
	return categories, nil
}

// ReplacePreferences deletes all preferences of the user and inserts given
// categories instead, in one transaction.
func (s *Storage) ReplacePreferences(ctx context.Context, userID int64,
	categories []string,
) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM user_preferences WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("delete preferences: %w", err)
		}

		_, err = tx.Exec(ctx, `
INSERT INTO user_preferences (user_id, category_name)
SELECT $1, unnest($2::text[])
    ON CONFLICT DO NOTHING`, userID, categories)
		if err != nil {
			return fmt.Errorf("insert preferences: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf(
			"storage: unable replace preferences of user #%d: %w", userID, err)
	}
	return nil
}
