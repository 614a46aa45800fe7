package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lifequest/internal/infrastructure/cache"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const everythingBody = `{"status":"ok","totalResults":3,"articles":[
	{"source":{"id":"bbc-news","name":"BBC News"},"title":"Rates held steady","description":"The central bank paused.","url":"https://example.com/a","publishedAt":"2026-10-19T08:00:00Z"},
	{"source":{"id":null,"name":"Removed"},"title":"[Removed]","description":"","url":"https://removed.com"},
	{"source":{"id":"the-verge","name":"The Verge"},"title":"New chip launched","description":"Faster and cooler.","url":"https://example.com/b","publishedAt":"2026-10-19T09:00:00Z"}
]}`

func newTestClient(t *testing.T, store cache.Store, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.NewsAPIConfig{
		BaseURL:  srv.URL,
		APIKey:   "news-key",
		Sources:  []string{"bbc-news", "the-verge"},
		Language: "en",
		PageSize: 20,
		Timeout:  5 * time.Second,
	}, store)
}

func TestClient_Headlines(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "news-key", r.Header.Get("X-Api-Key"))
		q := r.URL.Query()
		assert.Equal(t, "bbc-news,the-verge", q.Get("sources"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "10", q.Get("pageSize"))
		assert.Equal(t, `technology OR "interest rates"`, q.Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(everythingBody))
	})

	articles, err := c.Headlines(context.Background(), Query{
		Keywords: []string{"technology", "interest rates", " "},
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Rates held steady", articles[0].Title)
	assert.Equal(t, "BBC News", articles[0].SourceName)
	assert.Equal(t, "The Verge", articles[1].SourceName)
}

func TestClient_HeadlinesIsCached(t *testing.T) {
	var calls int32
	store := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Hour})
	defer store.Close()
	c := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(everythingBody))
	})

	for i := 0; i < 2; i++ {
		articles, err := c.Headlines(context.Background(), Query{Keywords: []string{"science"}})
		require.NoError(t, err)
		assert.Len(t, articles, 2)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_HeadlinesError(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
	})

	_, err := c.Headlines(context.Background(), Query{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstream)
	assert.Contains(t, err.Error(), "Your API key is invalid.")
}

func TestClient_HeadlinesNotConfigured(t *testing.T) {
	c := NewClient(config.NewsAPIConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Headlines(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestKeywordQuery(t *testing.T) {
	assert.Equal(t, "", KeywordQuery(nil))
	assert.Equal(t, "go", KeywordQuery([]string{" go "}))
	assert.Equal(t, `ai OR "climate change"`, KeywordQuery([]string{"ai", "climate change"}))
}
