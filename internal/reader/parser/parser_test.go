package parser // import "streamlance.app/internal/reader/parser"

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeed(t *testing.T) {
	f, err := os.Open("testdata/freelancer.xml")
	require.NoError(t, err)
	defer f.Close()

	postings, err := ParseFeed(context.Background(), f, "Freelancer")
	require.NoError(t, err)
	require.Len(t, postings, 3)

	p := postings[0]
	assert.Equal(t, "Build a machine learning model for churn prediction", p.Title)
	assert.Equal(t,
		"https://www.freelancer.com/projects/machine-learning/churn-model", p.Link)
	assert.Contains(t, p.Description, "PyTorch")
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, time.Date(2025, 10, 14, 9, 30, 0, 0, time.UTC), *p.PublishedAt)
	assert.Equal(t, []string{"Machine Learning (ML)", "Python"}, p.Skills)
	require.True(t, p.HasBudget())
	assert.Equal(t, "600 USD", p.Budget())
	assert.Equal(t, "Freelancer", p.SourcePlatform)
	assert.Empty(t, p.Category)

	p = postings[1]
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, time.Date(2025, 10, 14, 10, 15, 0, 0, time.UTC), *p.PublishedAt)
	assert.Equal(t, "250 EUR", p.Budget())

	p = postings[2]
	assert.Equal(t, "https://www.freelancer.com/projects/misc/walk-dog", p.Link)
	assert.Nil(t, p.PublishedAt)
	assert.Nil(t, p.BudgetAmount)
	assert.Nil(t, p.BudgetCurrency)
	assert.Empty(t, p.Skills)
}

func TestParseFeed_notFeed(t *testing.T) {
	_, err := ParseFeed(context.Background(),
		strings.NewReader("<html><body>hello</body></html>"), "Freelancer")
	require.ErrorIs(t, err, ErrFeedFormatNotDetected)
}

func TestParseFeed_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseBytes(ctx, []byte("<rss/>"), "Freelancer")
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseBytes_budgetOutOfRange(t *testing.T) {
	const feed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Projects</title>
<item><title>Rebuild ERP</title><link>https://www.freelancer.com/projects/erp</link>
<description>(Budget: 150000000 IDR, Jobs: ERP)</description></item>
<item><title>Fix CSS</title><link>https://www.freelancer.com/projects/css</link>
<description>(Budget: $50 USD, Jobs: CSS)</description></item>
</channel></rss>`

	postings, err := ParseBytes(context.Background(), []byte(feed), "Freelancer")
	require.NoError(t, err)
	require.Len(t, postings, 2)

	assert.Equal(t, "https://www.freelancer.com/projects/erp", postings[0].Link)
	assert.Nil(t, postings[0].BudgetAmount)
	assert.Nil(t, postings[0].BudgetCurrency)

	assert.Equal(t, "https://www.freelancer.com/projects/css", postings[1].Link)
	require.True(t, postings[1].HasBudget())
	assert.Equal(t, "50 USD", postings[1].Budget())
}

func TestNewPosting(t *testing.T) {
	tests := []struct {
		name     string
		item     gofeed.Item
		wantNil  bool
		wantLink string
		wantDesc string
	}{
		{
			name:    "neither title nor link",
			item:    gofeed.Item{Description: "Budget: $5"},
			wantNil: true,
		},
		{
			name:     "title only",
			item:     gofeed.Item{Title: "Data entry"},
			wantLink: "",
		},
		{
			name:     "guid not an url",
			item:     gofeed.Item{Title: "Data entry", GUID: "42"},
			wantLink: "",
		},
		{
			name:     "content fallback",
			item:     gofeed.Item{Link: "https://example.org/1", Content: "<p>body</p>"},
			wantLink: "https://example.org/1",
			wantDesc: "<p>body</p>",
		},
		{
			name: "description first",
			item: gofeed.Item{
				Link:        " https://example.org/2 ",
				Description: "summary",
				Content:     "content",
			},
			wantLink: "https://example.org/2",
			wantDesc: "summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPosting(&tt.item, "Freelancer")
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantLink, p.Link)
			assert.Equal(t, tt.wantDesc, p.Description)
		})
	}
}

func TestItemPublished(t *testing.T) {
	parsed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("", 3600))
	want := time.Date(2025, 1, 2, 2, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		item gofeed.Item
		want *time.Time
	}{
		{name: "structured", item: gofeed.Item{PublishedParsed: &parsed}, want: &want},
		{name: "datetime", item: gofeed.Item{Published: "2025-01-02 02:04:05"}, want: &want},
		{name: "rfc1123z", item: gofeed.Item{Published: "Thu, 02 Jan 2025 03:04:05 +0100"}, want: &want},
		{name: "rfc1123", item: gofeed.Item{Published: "Thu, 02 Jan 2025 02:04:05 UTC"}, want: &want},
		{name: "garbage", item: gofeed.Item{Published: "yesterday"}},
		{name: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := itemPublished(&tt.item)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func BenchmarkParseBytes(b *testing.B) {
	data, err := os.ReadFile("testdata/freelancer.xml")
	require.NoError(b, err)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = ParseBytes(context.Background(), data, "Freelancer")
	}
}
