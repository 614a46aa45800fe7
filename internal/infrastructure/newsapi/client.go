// Package newsapi 新聞標題 API 客戶端
package newsapi

import (
	"context"
	"errors"
	"fmt"
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

const cacheNamespace = "headlines"

// ErrNotConfigured 未設定 API key
var ErrNotConfigured = errors.New("headline source is not configured")

// Query 標題查詢條件
type Query struct {
	Keywords []string
	Sources  []string
	Language string
	PageSize int
}

// Article 一則標題
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	SourceName  string    `json:"source_name,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// everythingResponse /v2/everything 回應
type everythingResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Client 標題客戶端
type Client struct {
	client   *resty.Client
	apiKey   string
	sources  []string
	language string
	pageSize int
	cache    cache.Store
}

// NewClient 建立客戶端，store 可為 nil
func NewClient(cfg config.NewsAPIConfig, store cache.Store) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		client:   client,
		apiKey:   cfg.APIKey,
		sources:  cfg.Sources,
		language: cfg.Language,
		pageSize: cfg.PageSize,
		cache:    store,
	}
}

// KeywordQuery 由興趣組成 OR 查詢字串
func KeywordQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.ContainsAny(k, " \t") {
			k = strconv.Quote(k)
		}
		terms = append(terms, k)
	}
	return strings.Join(terms, " OR ")
}

// Headlines 取得符合條件的標題，未指定的條件使用預設值
func (c *Client) Headlines(ctx context.Context, q Query) ([]Article, error) {
	if c.apiKey == "" {
		return nil, common.Wrap(common.ErrUpstream, ErrNotConfigured)
	}
	if len(q.Sources) == 0 {
		q.Sources = c.sources
	}
	if q.Language == "" {
		q.Language = c.language
	}
	if q.PageSize <= 0 {
		q.PageSize = c.pageSize
	}
	keywords := KeywordQuery(q.Keywords)
	sources := strings.Join(q.Sources, ",")

	key := cache.Key(keywords, sources, q.Language, strconv.Itoa(q.PageSize), time.Now().UTC().Format("2006-01-02T15"))
	var articles []Article
	if cache.GetJSON(ctx, c.cache, cacheNamespace, key, &articles) {
		return articles, nil
	}

	params := map[string]string{
		"language": q.Language,
		"pageSize": strconv.Itoa(q.PageSize),
		"sortBy":   "publishedAt",
	}
	if sources != "" {
		params["sources"] = sources
	}
	if keywords != "" {
		params["q"] = keywords
	}

	var result everythingResponse
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", c.apiKey).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&result).
		Get("/v2/everything")
	if err == nil && resp.IsError() {
		msg := result.Message
		if msg == "" {
			msg = common.Preview(resp.String(), 300)
		}
		err = fmt.Errorf("headline API error (status %d): %s", resp.StatusCode(), msg)
	}
	metrics.ObserveUpstream("newsapi", start, err)
	if err != nil {
		common.LogError("取得新聞標題失敗", zap.String("query", keywords), zap.Error(err))
		return nil, common.Wrap(common.ErrUpstream, err)
	}

	articles = make([]Article, 0, len(result.Articles))
	for _, a := range result.Articles {
		if strings.TrimSpace(a.Title) == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	cache.SetJSON(ctx, c.cache, cacheNamespace, key, articles)
	return articles, nil
}
