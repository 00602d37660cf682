package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamlance.app/internal/model"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Latest Projects</title>
    <item>
      <title>Build a machine learning model</title>
      <link>https://gigs.example/projects/ml-model</link>
      <description>PyTorch please. (Budget: $500 - $700 USD, Jobs: Python)</description>
      <pubDate>Tue, 14 Oct 2025 09:30:00 +0000</pubDate>
      <category>Python</category>
    </item>
    <item>
      <title>Logo design for bakery</title>
      <link>https://gigs.example/projects/logo</link>
      <description>Need a fresh logo.</description>
      <pubDate>Tue, 14 Oct 2025 10:30:00 +0000</pubDate>
    </item>
    <item>
      <title>Walk my dog</title>
      <guid>https://gigs.example/projects/dog</guid>
    </item>
  </channel>
</rss>`

type fakeStore struct {
	mu        sync.Mutex
	states    map[string]*model.FeedState
	links     map[string]struct{}
	postings  model.Postings
	nextID    int64
	createErr error
	stateErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states: make(map[string]*model.FeedState),
		links:  make(map[string]struct{}),
	}
}

func (self *fakeStore) FeedState(_ context.Context, feedURL string,
) (*model.FeedState, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.stateErr != nil {
		return nil, self.stateErr
	}
	if s, ok := self.states[feedURL]; ok {
		state := *s
		return &state, nil
	}
	return model.NewFeedState(feedURL), nil
}

func (self *fakeStore) UpdateFeedState(_ context.Context,
	state *model.FeedState,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	s := *state
	self.states[state.FeedURL] = &s
	return nil
}

func (self *fakeStore) CreatePostings(_ context.Context,
	postings model.Postings,
) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.createErr != nil {
		return 0, self.createErr
	}

	var created int
	for _, p := range postings {
		if p.Link != "" {
			if _, ok := self.links[p.Link]; ok {
				continue
			}
			self.links[p.Link] = struct{}{}
		}
		self.nextID++
		p.ID = self.nextID
		self.postings = append(self.postings, p)
		created++
	}
	return created, nil
}

func (self *fakeStore) state(feedURL string) *model.FeedState {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.states[feedURL]
}

type keywordClassifier struct{}

func (keywordClassifier) Classify(title string, _ []string, _ string) string {
	switch {
	case strings.Contains(strings.ToLower(title), "machine learning"):
		return "AI/ML & Data Science"
	case strings.Contains(strings.ToLower(title), "logo"):
		return "Design & Creative"
	}
	return "Other"
}

type panicClassifier struct{}

func (panicClassifier) Classify(string, []string, string) string {
	panic("taxonomy is gone")
}

func feedServer(t *testing.T, etag string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if etag != "" {
				if r.Header.Get("If-None-Match") == etag {
					w.WriteHeader(http.StatusNotModified)
					return
				}
				w.Header().Set("ETag", etag)
			}
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(testFeed))
		}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestPipeline_Ingest(t *testing.T) {
	store := newFakeStore()
	p := New(store, keywordClassifier{}, "Freelancer", nil)

	batch := func() model.Postings {
		return model.Postings{
			{Title: "Build a machine learning model", Link: "https://gigs.example/1"},
			{Title: "Logo design", Link: "https://gigs.example/2"},
		}
	}

	first := batch()
	created, err := p.Ingest(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, "AI/ML & Data Science", first[0].Category)
	assert.Equal(t, "Design & Creative", first[1].Category)
	assert.Equal(t, "Freelancer", first[0].SourcePlatform)

	created, err = p.Ingest(context.Background(), batch())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, store.postings, 2)

	created, err = p.Ingest(context.Background(), model.Postings{})
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestPipeline_Ingest_storeError(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("deadlock detected")
	p := New(store, keywordClassifier{}, "Freelancer", nil)

	_, err := p.Ingest(context.Background(), model.Postings{
		{Title: "Logo design", Link: "https://gigs.example/2"},
	})
	require.ErrorContains(t, err, "deadlock detected")
}

func TestPipeline_Run(t *testing.T) {
	srv, hits := feedServer(t, `"v1"`)
	store := newFakeStore()
	p := New(store, keywordClassifier{}, "Freelancer", []string{srv.URL})

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Feeds: 1, Parsed: 3, Created: 3}, result)

	state := store.state(srv.URL)
	require.NotNil(t, state)
	assert.Equal(t, `"v1"`, state.EtagHeader)
	assert.NotZero(t, state.Hash)
	assert.False(t, state.CheckedAt.IsZero())
	assert.Zero(t, state.ParsingErrorCount)

	categories := make(map[string]string, len(store.postings))
	for _, posting := range store.postings {
		categories[posting.Link] = posting.Category
	}
	assert.Equal(t, map[string]string{
		"https://gigs.example/projects/ml-model": "AI/ML & Data Science",
		"https://gigs.example/projects/logo":     "Design & Creative",
		"https://gigs.example/projects/dog":      "Other",
	}, categories)

	result, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Feeds: 1, NotModified: 1}, result)
	assert.Equal(t, int32(2), hits.Load())
	assert.Len(t, store.postings, 3)
}

func TestPipeline_Run_sameContent(t *testing.T) {
	srv, _ := feedServer(t, "")
	store := newFakeStore()
	p := New(store, keywordClassifier{}, "Freelancer", []string{srv.URL})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Feeds: 1, NotModified: 1}, result)
}

func TestPipeline_Run_failedFeed(t *testing.T) {
	good, _ := feedServer(t, "")
	bad := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		}))
	t.Cleanup(bad.Close)

	store := newFakeStore()
	p := New(store, keywordClassifier{}, "Freelancer",
		[]string{bad.URL, good.URL})

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Feeds)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 3, result.Created)

	state := store.state(bad.URL)
	require.NotNil(t, state)
	assert.Equal(t, 1, state.ParsingErrorCount)
	assert.Contains(t, state.ParsingErrorMsg, "503")
}

func TestPipeline_Run_notFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html><body>Hello</body></html>"))
		}))
	t.Cleanup(srv.Close)

	store := newFakeStore()
	p := New(store, keywordClassifier{}, "Freelancer", []string{srv.URL})
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	state := store.state(srv.URL)
	require.NotNil(t, state)
	assert.Zero(t, state.Hash)
	assert.Equal(t, 1, state.ParsingErrorCount)
}

func TestPipeline_Run_storeErrorKeepsFeedPending(t *testing.T) {
	srv, _ := feedServer(t, `"v1"`)
	store := newFakeStore()
	store.createErr = errors.New("connection reset")
	p := New(store, keywordClassifier{}, "Freelancer", []string{srv.URL})

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	state := store.state(srv.URL)
	require.NotNil(t, state)
	assert.Empty(t, state.EtagHeader)
	assert.Zero(t, state.Hash)

	store.createErr = nil
	result, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
}

func TestPipeline_Run_stateError(t *testing.T) {
	store := newFakeStore()
	store.stateErr = errors.New("too many connections")
	p := New(store, keywordClassifier{}, "Freelancer",
		[]string{"https://gigs.example/rss"})

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Feeds: 1, Failed: 1}, result)
}

func TestPipeline_Run_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(newFakeStore(), keywordClassifier{}, "Freelancer",
		[]string{"https://gigs.example/rss"})
	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_panic(t *testing.T) {
	srv, _ := feedServer(t, "")
	p := New(newFakeStore(), panicClassifier{}, "Freelancer", []string{srv.URL})

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrPanic)
	assert.ErrorContains(t, err, "taxonomy is gone")
}
