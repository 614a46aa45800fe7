package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifequest/internal/api/handlers/health"
	"lifequest/internal/core/ai/aitest"
	"lifequest/internal/core/grocery"
	"lifequest/internal/core/mealplan"
	"lifequest/internal/core/news"
	"lifequest/internal/core/preferences"
	"lifequest/internal/core/upsert"
	"lifequest/internal/infrastructure/cache"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/infrastructure/edamam"
	"lifequest/internal/infrastructure/newsapi"
	"lifequest/internal/infrastructure/storage/memory"
	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const planResponse = "```json\n[" +
	`{"meal_type": "breakfast", "description": "Oatmeal", "breakdown": {"calories": 350, "protein": 12, "carbs": 60, "fat": 7}},` +
	`{"meal_type": "lunch", "description": "Chicken wrap", "breakdown": {"calories": 550, "protein": 35, "carbs": 50, "fat": 18}},` +
	`{"meal_type": "snack", "description": "Greek yogurt", "breakdown": {"calories": 150, "protein": 15, "carbs": 10, "fat": 4}},` +
	`{"meal_type": "dinner", "description": "Salmon and rice", "breakdown": {"calories": 650, "protein": 40, "carbs": 70, "fat": 22}}` +
	"]\n```"

type fakeSearcher struct {
	params edamam.SearchParams
}

func (f *fakeSearcher) Search(ctx context.Context, params edamam.SearchParams) ([]edamam.Hit, error) {
	f.params = params
	return []edamam.Hit{{Name: "Chicken Salad", Source: "Serious Eats"}}, nil
}

type fakeHeadlines struct{}

func (fakeHeadlines) Headlines(ctx context.Context, q newsapi.Query) ([]newsapi.Article, error) {
	return []newsapi.Article{{Title: "Rates held steady", Description: "The bank paused.", URL: "https://example.com/a", SourceName: "BBC News"}}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testServer struct {
	router   http.Handler
	store    *memory.Store
	ai       *aitest.Scripted
	searcher *fakeSearcher
}

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Version: "test", Debug: true},
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		DedupWindow: time.Second,
	}
}

func newTestServer(t *testing.T, checks map[string]health.Pinger, responses ...string) *testServer {
	t.Helper()
	clock := common.Clock(func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) })
	store := memory.New(clock)
	scripted := aitest.NewScripted(responses...)
	searcher := &fakeSearcher{}
	if checks == nil {
		checks = map[string]health.Pinger{"store": store}
	}

	router := SetupRouter(testConfig(), Services{
		Meals:        mealplan.NewService(scripted, store, upsert.New(store, upsert.DefaultPolicy()), clock),
		Grocery:      grocery.NewService(scripted, store),
		News:         news.NewService(scripted, store, fakeHeadlines{}, 5, clock),
		Preferences:  preferences.NewService(store, clock),
		RecipeSearch: searcher,
		HealthChecks: checks,
	})
	return &testServer{router: router, store: store, ai: scripted, searcher: searcher}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) savePreferences(t *testing.T) {
	t.Helper()
	w := s.do(http.MethodPost, "/api/v1/save-preferences",
		`{"user_id": "u1", "calories": 2000, "protein": 100, "carbs": 250, "fat": 70, "dietary_restrictions": ["no shellfish"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPreferencesEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/v1/preferences?user_id=u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodePreferencesNotFound, decode(t, w)["code"])

	s.savePreferences(t)

	w = s.do(http.MethodGet, "/api/v1/preferences?user_id=u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	nutrition := body["nutrition"].(map[string]interface{})
	assert.Equal(t, 2000.0, nutrition["calories"])
	assert.Nil(t, body["news"])

	w = s.do(http.MethodPost, "/api/v1/save-news-preferences", `{"user_id": "u1", "interests": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRequest, decode(t, w)["code"])
}

func TestGenerateMealPlanEndpoint(t *testing.T) {
	s := newTestServer(t, nil, planResponse)

	w := s.do(http.MethodPost, "/api/v1/generate-meal-plan", `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, s.ai.Calls())

	s.savePreferences(t)
	w = s.do(http.MethodPost, "/api/v1/generate-meal-plan", `{"user_id": "u1", "date": "2026-10-19"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 4.0, body["inserted"])
	assert.Len(t, body["meals"], 4)

	w = s.do(http.MethodGet, "/api/v1/meals?user_id=u1&from=2026-10-19", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["meals"], 4)
}

func TestGenerateMealPlanEndpoint_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, nil)
	s.ai.FailAt(0, errors.New("connection reset"))
	s.savePreferences(t)

	w := s.do(http.MethodPost, "/api/v1/generate-meal-plan", `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, common.ErrCodeUpstream, body["code"])
	assert.NotContains(t, body["error"], "connection reset")
}

func TestGroceryEndpoints(t *testing.T) {
	s := newTestServer(t, nil, `[{"name": "Rolled oats", "quantity": "500", "unit": "g"}, {"name": "Milk", "quantity": "1", "unit": "l"}]`)

	w := s.do(http.MethodPost, "/api/v1/generate-grocery-list", `{"user_id": "u1", "week_start": "2026-10-19"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeNoMealsForWeek, decode(t, w)["code"])

	w = s.do(http.MethodPost, "/api/v1/log-meal",
		`{"user_id": "u1", "date": "2026-10-20", "meal_type": "breakfast", "description": "Oatmeal", "ingredients": [{"name": "rolled oats", "quantity": "80", "unit": "g"}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/generate-grocery-list", `{"user_id": "u1", "weekStart": "2026-10-19"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["items"], 2)

	w = s.do(http.MethodPost, "/api/v1/grocery-list/item/toggle", `{"user_id": "u1", "week_start": "2026-10-19", "index": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{false, true}, decode(t, w)["checklist"])

	w = s.do(http.MethodPost, "/api/v1/grocery-list/item/toggle", `{"user_id": "u1", "week_start": "2026-10-19", "index": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{false, false}, decode(t, w)["checklist"])

	w = s.do(http.MethodPost, "/api/v1/grocery-list/item/remove", `{"user_id": "u1", "week_start": "2026-10-19", "index": 7}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodeItemIndex, decode(t, w)["code"])

	w = s.do(http.MethodGet, "/api/v1/grocery-list?user_id=u1&week_start=2026-10-19", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)
}

func TestRecipeEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{"user_id": "u1", "name": "Lentil soup", "calories": 320}`
	w := s.do(http.MethodPost, "/api/v1/save-recipe", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)

	w = s.do(http.MethodPost, "/api/v1/save-recipe", `{"user_id": "u1", "name": "Lentil soup", "calories": 330}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/recipes?user_id=u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["recipes"], 1)

	w = s.do(http.MethodPost, "/api/v1/delete-recipe", `{"user_id": "u1", "id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["deleted"])

	w = s.do(http.MethodPost, "/api/v1/delete-recipe", `{"id": "`+id+`", "user_id": "u1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodeRecipeNotFound, decode(t, w)["code"])
}

func TestFindRecipeEndpoint(t *testing.T) {
	s := newTestServer(t, nil, `{"meal_type": "dinner", "description": "Mushroom risotto", "calories": 600, "ingredients": ["arborio rice", "mushrooms"]}`)

	w := s.do(http.MethodPost, "/api/v1/find-recipe", `{"user_id": "u1", "query": "creamy risotto"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	meal := body["meal"].(map[string]interface{})
	assert.Equal(t, "dinner", meal["meal_type"])
	assert.Equal(t, "find_recipe", meal["source"])
	assert.NotNil(t, body["recipe"])
}

func TestSearchRecipesEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/search-recipes", `{"user_id": "u1", "query": "chicken", "diet": "high-protein", "max_calories": 700}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["hits"], 1)
	assert.Equal(t, "chicken", s.searcher.params.Query)
	assert.Equal(t, 700, s.searcher.params.MaxCalories)

	w = s.do(http.MethodPost, "/api/v1/search-recipes", `{"query": "chicken", "min_calories": 800, "max_calories": 100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewsFeedEndpoints(t *testing.T) {
	s := newTestServer(t, nil, `[{"headline": "Rates held steady", "summary": "The bank paused.", "url": "https://example.com/a"}]`)

	w := s.do(http.MethodPost, "/api/v1/generate-news-feed", `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/generate-news-feed", `{"user_id": "u1", "preferences": ["economy"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["items"], 1)

	w = s.do(http.MethodGet, "/api/v1/news-feed?user_id=u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
}

func TestDuplicateGenerationIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"user_id": "u1", "week_start": "2026-10-19"}`

	w := s.do(http.MethodPost, "/api/v1/generate-grocery-list", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/generate-grocery-list", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, common.ErrCodeTooManyRequests, decode(t, w)["code"])

	w = s.do(http.MethodPost, "/api/v1/generate-grocery-list", `{"user_id": "u2", "week_start": "2026-10-19"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterErrorResponses(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"wrong method", http.MethodGet, "/api/v1/log-meal", "", http.StatusMethodNotAllowed, common.ErrCodeMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound, common.ErrCodeNotFound},
		{"malformed json", http.MethodPost, "/api/v1/log-meal", `{"user_id": `, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"invalid slot", http.MethodPost, "/api/v1/generate-meal-plan", `{"user_id": "u1", "meal_type": "brunch"}`, http.StatusBadRequest, common.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, map[string]interface{}{"store": "ok"}, body["checks"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", "").Code)

	down := newTestServer(t, map[string]health.Pinger{"cache": failingPinger{}})
	w = down.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = down.do(http.MethodGet, "/health", "")
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestHealthReportsCacheStats(t *testing.T) {
	mgr := cache.NewManager(config.CacheConfig{MaxSize: 8, TTL: time.Minute})
	t.Cleanup(func() { _ = mgr.Close() })
	_, err := mgr.Get(context.Background(), "completion", "k")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	s := newTestServer(t, map[string]health.Pinger{"cache": mgr})
	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])

	stats, ok := body["stats"].(map[string]interface{})
	require.True(t, ok)
	cacheStats, ok := stats["cache"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(8), cacheStats["max_size"])
	assert.Equal(t, float64(1), cacheStats["misses"])
	assert.Equal(t, float64(0), cacheStats["hits"])
}
