package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"streamlance.app/internal/model"
)

const postingColumns = `
  p.id,
  p.title,
  COALESCE(p.link, '') AS link,
  p.description,
  p.published_at,
  p.category,
  p.budget_amount::float8 AS budget_amount,
  p.budget_currency,
  p.skills,
  p.source_platform,
  p.created_at`

// CreatePostings inserts postings in one transaction and skips those with a
// link already known. It returns the number of actually inserted postings and
// sets ID and CreatedAt of them.
func (s *Storage) CreatePostings(ctx context.Context, postings model.Postings,
) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	var created int
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		b := new(pgx.Batch)
		for _, p := range postings {
			b.Queue(`
INSERT INTO postings (
  title,
  link,
  description,
  published_at,
  category,
  budget_amount,
  budget_currency,
  skills,
  source_platform)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (link) DO NOTHING
RETURNING id, created_at`,
				truncate(p.Title, 512),
				p.Link,
				p.Description,
				p.PublishedAt,
				p.Category,
				p.BudgetAmount,
				p.BudgetCurrency,
				nonNilStrings(p.Skills),
				p.SourcePlatform,
			).QueryRow(func(row pgx.Row) error {
				err := row.Scan(&p.ID, &p.CreatedAt)
				if errors.Is(err, pgx.ErrNoRows) {
					return nil
				} else if err != nil {
					return fmt.Errorf("insert posting %q: %w", p.Link, err)
				}
				created++
				return nil
			})
		}
		return tx.SendBatch(ctx, b).Close() //nolint:wrapcheck // wrapped below
	})
	if err != nil {
		return 0, fmt.Errorf("storage: unable to create postings: %w", err)
	}
	return created, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// PostingByLink returns a posting with given link or nil.
func (s *Storage) PostingByLink(ctx context.Context, link string,
) (*model.Posting, error) {
	rows, _ := s.db.Query(ctx, `
SELECT`+postingColumns+`
  FROM postings p
 WHERE p.link = $1`, link)

	p, err := pgx.CollectExactlyOneRow(rows,
		pgx.RowToAddrOfStructByName[model.Posting])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("storage: unable fetch posting %q: %w", link, err)
	}
	return p, nil
}

// PostingsByCategories returns postings of given categories published after
// since, newest first.
func (s *Storage) PostingsByCategories(ctx context.Context,
	categories []string, since time.Time,
) (model.Postings, error) {
	if len(categories) == 0 {
		return model.Postings{}, nil
	}

	rows, _ := s.db.Query(ctx, `
SELECT`+postingColumns+`
  FROM postings p
 WHERE p.category = ANY($1) AND p.published_at >= $2
 ORDER BY p.published_at DESC, p.id DESC`, categories, since)

	postings, err := pgx.CollectRows(rows,
		pgx.RowToAddrOfStructByName[model.Posting])
	if err != nil {
		return nil, fmt.Errorf("storage: unable fetch postings by categories: %w",
			err)
	}
	return postings, nil
}

// RecommendedPostings returns postings matching preferences of the user and
// published after since, newest first.
func (s *Storage) RecommendedPostings(ctx context.Context, userID int64,
	since time.Time,
) (model.Postings, error) {
	rows, _ := s.db.Query(ctx, `
SELECT`+postingColumns+`
  FROM postings p
  JOIN user_preferences up ON up.category_name = p.category
 WHERE up.user_id = $1 AND p.published_at >= $2
 ORDER BY p.published_at DESC, p.id DESC`, userID, since)

	postings, err := pgx.CollectRows(rows,
		pgx.RowToAddrOfStructByName[model.Posting])
	if err != nil {
		return nil, fmt.Errorf(
			"storage: unable fetch recommendations for user #%d: %w", userID, err)
	}
	return postings, nil
}

// Stats returns a summary of postings published after activeSince, users and
// delivered notifications.
func (s *Storage) Stats(ctx context.Context, activeSince time.Time,
) (*model.Stats, error) {
	rows, _ := s.db.Query(ctx, `
SELECT
  (SELECT count(*) FROM postings WHERE published_at >= $1) AS active_postings,
  (SELECT COALESCE(AVG(budget_amount), 0)::float8
     FROM postings WHERE budget_amount IS NOT NULL) AS avg_budget,
  (SELECT count(*) FROM users) AS users,
  (SELECT count(*) FROM sent_notifications) AS delivered`, activeSince)

	stats, err := pgx.CollectExactlyOneRow(rows,
		pgx.RowToAddrOfStructByName[model.Stats])
	if err != nil {
		return nil, fmt.Errorf("storage: unable collect stats: %w", err)
	}
	stats.AvgBudget = math.Round(stats.AvgBudget*100) / 100
	return stats, nil
}

// CategoryCounts returns number of postings per category published inside
// [from, to).
func (s *Storage) CategoryCounts(ctx context.Context, from, to time.Time,
) ([]model.CategoryCount, error) {
	rows, _ := s.db.Query(ctx, `
SELECT category, count(*) AS count
  FROM postings
 WHERE published_at >= $1 AND published_at < $2
 GROUP BY category
 ORDER BY category`, from, to)

	counts, err := pgx.CollectRows(rows,
		pgx.RowToStructByName[model.CategoryCount])
	if err != nil {
		return nil, fmt.Errorf("storage: unable count postings by category: %w",
			err)
	}
	return counts, nil
}

// CountPostings returns the number of postings per category.
func (s *Storage) CountPostings(ctx context.Context) (map[string]int64, error) {
	rows, _ := s.db.Query(ctx,
		`SELECT category, count(*) AS count FROM postings GROUP BY category`)

	counts, err := pgx.CollectRows(rows,
		pgx.RowToStructByName[model.CategoryCount])
	if err != nil {
		return nil, fmt.Errorf("storage: unable count postings: %w", err)
	}

	results := make(map[string]int64, len(counts))
	for _, c := range counts {
		results[c.Category] = c.Count
	}
	return results, nil
}
