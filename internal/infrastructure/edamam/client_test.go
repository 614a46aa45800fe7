package edamam

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

const searchBody = `{"hits":[{"recipe":{
	"label":"Chicken Salad","source":"Serious Eats","url":"https://example.com/salad","yield":4,
	"dietLabels":["High-Protein"],"mealType":["lunch/dinner"],
	"ingredientLines":["2 chicken breasts","1 head lettuce"],
	"calories":1600,
	"totalNutrients":{"PROCNT":{"quantity":120,"unit":"g"},"FAT":{"quantity":60,"unit":"g"},"CHOCDF":{"quantity":40,"unit":"g"}}
}}]}`

func newTestClient(t *testing.T, store cache.Store, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.EdamamConfig{
		BaseURL:     srv.URL,
		AppID:       "app",
		AppKey:      "key",
		AccountUser: "tester",
		Timeout:     5 * time.Second,
	}, store)
}

func TestClient_Search(t *testing.T) {
	var calls int32
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/recipes/v2", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "public", q.Get("type"))
		assert.Equal(t, "chicken", q.Get("q"))
		assert.Equal(t, "app", q.Get("app_id"))
		assert.Equal(t, "key", q.Get("app_key"))
		assert.Equal(t, "high-protein", q.Get("diet"))
		assert.Equal(t, "300-700", q.Get("calories"))
		assert.Equal(t, "lunch", q.Get("mealType"))
		assert.Equal(t, "tester", r.Header.Get("Edamam-Account-User"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	})

	hits, err := c.Search(context.Background(), SearchParams{
		Query:       " chicken ",
		Diet:        "high-protein",
		MinCalories: 300,
		MaxCalories: 700,
		MealType:    "lunch",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hit := hits[0]
	assert.Equal(t, "Chicken Salad", hit.Name)
	assert.Equal(t, 400.0, *hit.Calories)
	assert.Equal(t, 30.0, *hit.Protein)
	assert.Equal(t, 10.0, *hit.Carbs)
	assert.Equal(t, 15.0, *hit.Fat)
	require.Len(t, hit.Ingredients, 2)
	assert.Equal(t, "2 chicken breasts", hit.Ingredients[0].Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_SearchIsCached(t *testing.T) {
	var calls int32
	store := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Hour})
	defer store.Close()
	c := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	})

	for i := 0; i < 2; i++ {
		hits, err := c.Search(context.Background(), SearchParams{Query: "chicken"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_SearchErrors(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("bad credentials"))
		})
		_, err := c.Search(context.Background(), SearchParams{Query: "soup"})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrUpstream)
	})

	t.Run("blank query", func(t *testing.T) {
		c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not be called")
		})
		_, err := c.Search(context.Background(), SearchParams{Query: "  "})
		assert.True(t, common.IsValidationError(err))
	})

	t.Run("not configured", func(t *testing.T) {
		c := NewClient(config.EdamamConfig{BaseURL: "http://127.0.0.1:1"}, nil)
		_, err := c.Search(context.Background(), SearchParams{Query: "soup"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestCalorieRange(t *testing.T) {
	assert.Equal(t, "", calorieRange(0, 0))
	assert.Equal(t, "200+", calorieRange(200, 0))
	assert.Equal(t, "600", calorieRange(0, 600))
	assert.Equal(t, "200-600", calorieRange(200, 600))
}
