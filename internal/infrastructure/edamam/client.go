// Package edamam 食譜/營養搜尋 API 客戶端
package edamam

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"lifequest/internal/infrastructure/cache"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const cacheNamespace = "recipes"

// ErrNotConfigured 未設定 app_id / app_key
var ErrNotConfigured = errors.New("recipe search is not configured")

// SearchParams 搜尋條件
type SearchParams struct {
	Query       string `json:"query"`
	Diet        string `json:"diet,omitempty"`
	MinCalories int    `json:"min_calories,omitempty"`
	MaxCalories int    `json:"max_calories,omitempty"`
	MealType    string `json:"meal_type,omitempty"`
}

// Hit 一筆搜尋結果，營養素以每份計
type Hit struct {
	Name        string              `json:"name"`
	Source      string              `json:"source,omitempty"`
	URL         string              `json:"url,omitempty"`
	Image       string              `json:"image,omitempty"`
	Servings    float64             `json:"servings,omitempty"`
	DietLabels  []string            `json:"diet_labels,omitempty"`
	MealTypes   []string            `json:"meal_types,omitempty"`
	Ingredients []common.Ingredient `json:"ingredients,omitempty"`
	common.Macros
}

// searchResponse Edamam Recipe Search v2 回應
type searchResponse struct {
	Hits []struct {
		Recipe struct {
			Label           string   `json:"label"`
			Image           string   `json:"image"`
			Source          string   `json:"source"`
			URL             string   `json:"url"`
			Yield           float64  `json:"yield"`
			DietLabels      []string `json:"dietLabels"`
			MealType        []string `json:"mealType"`
			IngredientLines []string `json:"ingredientLines"`
			Calories        float64  `json:"calories"`
			TotalNutrients  map[string]struct {
				Quantity float64 `json:"quantity"`
				Unit     string  `json:"unit"`
			} `json:"totalNutrients"`
		} `json:"recipe"`
	} `json:"hits"`
}

// Client 搜尋客戶端
type Client struct {
	client      *resty.Client
	appID       string
	appKey      string
	accountUser string
	cache       cache.Store
}

// NewClient 建立客戶端，store 可為 nil
func NewClient(cfg config.EdamamConfig, store cache.Store) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		client:      client,
		appID:       cfg.AppID,
		appKey:      cfg.AppKey,
		accountUser: cfg.AccountUser,
		cache:       store,
	}
}

// Search 依條件搜尋食譜，結果會快取
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Hit, error) {
	if c.appID == "" || c.appKey == "" {
		return nil, common.Wrap(common.ErrUpstream, ErrNotConfigured)
	}
	params.Query = strings.TrimSpace(params.Query)
	if params.Query == "" {
		return nil, common.NewValidationError("query is required")
	}

	key := cache.Key(params.Query, params.Diet, strconv.Itoa(params.MinCalories), strconv.Itoa(params.MaxCalories), params.MealType)
	var hits []Hit
	if cache.GetJSON(ctx, c.cache, cacheNamespace, key, &hits) {
		return hits, nil
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Edamam-Account-User", c.accountUser).
		SetQueryParams(map[string]string{
			"type":    "public",
			"q":       params.Query,
			"app_id":  c.appID,
			"app_key": c.appKey,
		})
	if params.Diet != "" {
		req.SetQueryParam("diet", params.Diet)
	}
	if params.MealType != "" {
		req.SetQueryParam("mealType", params.MealType)
	}
	if r := calorieRange(params.MinCalories, params.MaxCalories); r != "" {
		req.SetQueryParam("calories", r)
	}

	var result searchResponse
	start := time.Now()
	resp, err := req.SetResult(&result).Get("/api/recipes/v2")
	if err == nil && resp.IsError() {
		err = fmt.Errorf("recipe search error (status %d): %s", resp.StatusCode(), common.Preview(resp.String(), 300))
	}
	metrics.ObserveUpstream("edamam", start, err)
	if err != nil {
		common.LogError("食譜搜尋失敗", zap.String("query", params.Query), zap.Error(err))
		return nil, common.Wrap(common.ErrUpstream, err)
	}

	hits = toHits(result)
	cache.SetJSON(ctx, c.cache, cacheNamespace, key, hits)
	return hits, nil
}

// calorieRange 轉為 Edamam 的 "min-max" / "min+" / "max" 格式
func calorieRange(min, max int) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("%d-%d", min, max)
	case min > 0:
		return fmt.Sprintf("%d+", min)
	case max > 0:
		return strconv.Itoa(max)
	}
	return ""
}

func toHits(result searchResponse) []Hit {
	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		r := h.Recipe
		servings := r.Yield
		if servings <= 0 {
			servings = 1
		}
		perServing := func(v float64) *float64 {
			return common.Float(math.Round(v/servings*10) / 10)
		}

		hit := Hit{
			Name:       r.Label,
			Source:     r.Source,
			URL:        r.URL,
			Image:      r.Image,
			Servings:   r.Yield,
			DietLabels: r.DietLabels,
			MealTypes:  r.MealType,
		}
		hit.Calories = perServing(r.Calories)
		if n, ok := r.TotalNutrients["PROCNT"]; ok {
			hit.Protein = perServing(n.Quantity)
		}
		if n, ok := r.TotalNutrients["CHOCDF"]; ok {
			hit.Carbs = perServing(n.Quantity)
		}
		if n, ok := r.TotalNutrients["FAT"]; ok {
			hit.Fat = perServing(n.Quantity)
		}
		for _, line := range r.IngredientLines {
			hit.Ingredients = append(hit.Ingredients, common.Ingredient{Name: line})
		}
		hits = append(hits, hit)
	}
	return hits
}
