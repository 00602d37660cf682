package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamlance.app/internal/model"
	"streamlance.app/internal/taxonomy"
)

type fakeStore struct {
	stats       *model.Stats
	activeSince time.Time
	windows     [][2]time.Time
	counts      [][]model.CategoryCount
	err         error
}

func (self *fakeStore) Stats(_ context.Context, activeSince time.Time,
) (*model.Stats, error) {
	self.activeSince = activeSince
	return self.stats, self.err
}

func (self *fakeStore) CategoryCounts(_ context.Context, from, to time.Time,
) ([]model.CategoryCount, error) {
	if self.err != nil {
		return nil, self.err
	}
	i := len(self.windows)
	self.windows = append(self.windows, [2]time.Time{from, to})
	return self.counts[i], nil
}

func newTestReport(store Store, now time.Time) *Report {
	r := New(store, taxonomy.Default())
	r.now = func() time.Time { return now }
	return r
}

func TestTrending(t *testing.T) {
	tax := taxonomy.Default()
	tests := []struct {
		name     string
		current  []model.CategoryCount
		previous []model.CategoryCount
		want     []string
		changes  []float64
	}{
		{
			name: "empty",
			want: []string{},
		},
		{
			name: "growth ordered",
			current: []model.CategoryCount{
				{Category: "Web Development", Count: 10},
				{Category: "AI/ML & Data Science", Count: 6},
				{Category: "Design & Creative", Count: 3},
			},
			previous: []model.CategoryCount{
				{Category: "Web Development", Count: 5},
				{Category: "AI/ML & Data Science", Count: 1},
				{Category: "Design & Creative", Count: 3},
			},
			want:    []string{"AI/ML & Data Science", "Web Development", "Design & Creative"},
			changes: []float64{500, 100, 0},
		},
		{
			name: "skips fallback and small categories",
			current: []model.CategoryCount{
				{Category: "Other", Count: 50},
				{Category: "System Admin & DevOps", Count: 2},
				{Category: "Mobile Development", Count: 4},
			},
			want:    []string{"Mobile Development"},
			changes: []float64{300},
		},
		{
			name: "decline is zero",
			current: []model.CategoryCount{
				{Category: "Content & Writing", Count: 3},
			},
			previous: []model.CategoryCount{
				{Category: "Content & Writing", Count: 9},
			},
			want:    []string{"Content & Writing"},
			changes: []float64{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trending(tax, tt.current, tt.previous)
			names := make([]string, len(got))
			for i, c := range got {
				names[i] = c.Name
			}
			assert.Equal(t, tt.want, names)
			for i, change := range tt.changes {
				assert.InDelta(t, change, got[i].Change, 0.001)
			}
		})
	}
}

func TestTrending_tieKeepsTaxonomyOrder(t *testing.T) {
	tax := taxonomy.Default()
	names := tax.Names()
	require.GreaterOrEqual(t, len(names), 7)

	current := make([]model.CategoryCount, 0, len(names))
	for _, name := range names {
		if name != tax.Fallback {
			current = append(current, model.CategoryCount{Category: name, Count: 4})
		}
	}

	got := Trending(tax, current, nil)
	require.Len(t, got, trendingLimit)
	for i := range got {
		assert.Equal(t, current[i].Category, got[i].Name)
		assert.InDelta(t, 300, got[i].Change, 0.001)
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		change float64
		want   string
	}{
		{0, "+0%"},
		{33.333, "+33%"},
		{66.666, "+67%"},
		{500, "+500%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatChange(tt.change))
	}
}

func TestReport_Trending(t *testing.T) {
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{counts: [][]model.CategoryCount{
		{{Category: "System Admin & DevOps", Count: 3}},
		{{Category: "System Admin & DevOps", Count: 1}},
	}}

	got, err := newTestReport(store, now).Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "System Admin & DevOps", got[0].Name)
	assert.InDelta(t, 200, got[0].Change, 0.001)

	require.Len(t, store.windows, 2)
	assert.Equal(t, [2]time.Time{now.Add(-48 * time.Hour), now}, store.windows[0])
	assert.Equal(t, [2]time.Time{now.Add(-96 * time.Hour), now.Add(-48 * time.Hour)},
		store.windows[1])
}

func TestReport_Stats(t *testing.T) {
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	want := &model.Stats{ActivePostings: 12, AvgBudget: 412.5, Users: 3}
	store := &fakeStore{stats: want}

	got, err := newTestReport(store, now).Stats(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, now.AddDate(0, 0, -30), store.activeSince)

	store.err = errors.New("connection refused")
	_, err = newTestReport(store, now).Stats(context.Background())
	require.ErrorContains(t, err, "connection refused")
	_, err = newTestReport(store, now).Trending(context.Background())
	require.Error(t, err)
}
