// Package report computes catalog summaries shown by the CLI and the HTTP
// API.
package report // import "streamlance.app/internal/report"

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"streamlance.app/internal/model"
	"streamlance.app/internal/taxonomy"
)

const (
	// ActiveWindow is the age of postings counted as active by Stats.
	ActiveWindow = 30 * 24 * time.Hour

	// TrendingWindow is the length of each of the two compared windows.
	TrendingWindow = 48 * time.Hour

	trendingMinCurrent = 3
	trendingLimit      = 5
)

type Store interface {
	Stats(ctx context.Context, activeSince time.Time) (*model.Stats, error)
	CategoryCounts(ctx context.Context, from, to time.Time,
	) ([]model.CategoryCount, error)
}

func New(store Store, tax *taxonomy.Taxonomy) *Report {
	return &Report{store: store, tax: tax, now: time.Now}
}

type Report struct {
	store Store
	tax   *taxonomy.Taxonomy
	now   func() time.Time
}

// Stats returns the catalog summary as of now.
func (self *Report) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := self.store.Stats(ctx, self.now().Add(-ActiveWindow))
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return stats, nil
}

// Trending compares the last TrendingWindow with the window before it and
// returns categories with the biggest growth.
func (self *Report) Trending(ctx context.Context,
) ([]model.TrendingCategory, error) {
	now := self.now()
	from := now.Add(-TrendingWindow)
	current, err := self.store.CategoryCounts(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("report: current window: %w", err)
	}

	previous, err := self.store.CategoryCounts(ctx, from.Add(-TrendingWindow),
		from)
	if err != nil {
		return nil, fmt.Errorf("report: previous window: %w", err)
	}
	return Trending(self.tax, current, previous), nil
}

// Trending ranks categories of tax by growth between previous and current
// counts. The fallback category and categories with less than 3 current
// postings are skipped. Equal growth keeps the taxonomy order.
func Trending(tax *taxonomy.Taxonomy, current, previous []model.CategoryCount,
) []model.TrendingCategory {
	cur, prev := countsByName(current), countsByName(previous)
	trending := make([]model.TrendingCategory, 0, trendingLimit)

	for _, name := range tax.Names() {
		if name == tax.Fallback || cur[name] < trendingMinCurrent {
			continue
		}
		trending = append(trending, model.TrendingCategory{
			Name:     name,
			Current:  cur[name],
			Previous: prev[name],
			Change:   growth(cur[name], prev[name]),
		})
	}

	slices.SortStableFunc(trending, func(a, b model.TrendingCategory) int {
		return cmp.Compare(b.Change, a.Change)
	})
	if len(trending) > trendingLimit {
		trending = trending[:trendingLimit]
	}
	return trending
}

func countsByName(counts []model.CategoryCount) map[string]int64 {
	m := make(map[string]int64, len(counts))
	for _, c := range counts {
		m[c.Category] += c.Count
	}
	return m
}

// growth returns percentage growth from prev to cur, never negative.
func growth(cur, prev int64) float64 {
	return max(0, float64(cur-prev)/float64(max(prev, 1))*100)
}

// FormatChange formats growth like "+150%".
func FormatChange(change float64) string {
	return "+" + strconv.FormatFloat(math.Round(change), 'f', 0, 64) + "%"
}
