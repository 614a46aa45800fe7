package openrouter

import (
	"context"
	"fmt"
	"strings"

	"lifequest/internal/core/ai/provider"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client OpenRouter 相容的補全 API 客戶端
type Client struct {
	client      *resty.Client
	model       string
	maxTokens   int
	temperature float64
}

var _ provider.Provider = (*Client)(nil)

// Request 表示 API 請求
type Request struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []Choice       `json:"choices"`
	Usage   provider.Usage `json:"usage"`
}

// Choice 選擇結構
type Choice struct {
	Message provider.Message `json:"message"`
}

// Error 表示 API 錯誤
type Error struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg config.OpenRouterConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://lifequest.app").
		SetHeader("X-Title", "LifeQuest")

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// GetModel 目前使用的模型
func (c *Client) GetModel() string {
	return c.model
}

// Generate 送出一次補全請求，不重試
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := Request{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}

	common.LogDebug("Sending request to completion API",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	var result Response
	var apiErr Error
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = common.Preview(resp.String(), 300)
		}
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", body.Model),
			zap.String("response", msg),
		)
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode(), msg)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}
	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty content in response")
	}

	return &provider.Response{
		Content: content,
		Model:   result.Model,
		Usage:   result.Usage,
	}, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
