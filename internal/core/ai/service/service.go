package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"lifequest/internal/core/ai"
	"lifequest/internal/core/ai/provider"
	"lifequest/internal/infrastructure/cache"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Service AI 服務：包裝補全提供者，必要時快取結果
type Service struct {
	provider provider.Provider
	cache    cache.Store
}

var _ ai.Completer = (*Service)(nil)

// NewService 創建 AI 服務，store 可為 nil
func NewService(p provider.Provider, store cache.Store) *Service {
	return &Service{
		provider: p,
		cache:    store,
	}
}

// Complete 送出一次補全請求，失敗時不重試
func (s *Service) Complete(ctx context.Context, prompt string, opts ...ai.Option) (string, error) {
	o := ai.ApplyOptions(opts)
	prompt = strings.TrimSpace(prompt)

	var key string
	if o.CacheNamespace != "" && s.cache != nil {
		key = cache.Key(s.provider.GetModel(), prompt)
		val, err := s.cache.Get(ctx, o.CacheNamespace, key)
		switch {
		case err == nil && val != "":
			common.LogCacheHit(o.CacheNamespace)
			metrics.RecordCache(o.CacheNamespace, true)
			return val, nil
		case err != nil && !errors.Is(err, cache.ErrCacheMiss):
			common.LogWarn("讀取快取失敗", zap.String("namespace", o.CacheNamespace), zap.Error(err))
		}
		common.LogCacheMiss(o.CacheNamespace)
		metrics.RecordCache(o.CacheNamespace, false)
	}

	req := provider.UserPrompt(prompt)
	req.MaxTokens = o.MaxTokens
	req.Temperature = o.Temperature

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	metrics.ObserveUpstream("completion", start, err)
	common.LogAICall(o.Purpose, time.Since(start), err)
	if err != nil {
		return "", common.Wrap(common.ErrUpstream, err)
	}

	if key != "" {
		if err := s.cache.Set(ctx, o.CacheNamespace, key, resp.Content); err != nil {
			common.LogWarn("寫入快取失敗", zap.String("namespace", o.CacheNamespace), zap.Error(err))
		}
	}

	return resp.Content, nil
}

// Model 目前使用的模型
func (s *Service) Model() string {
	return s.provider.GetModel()
}

// Close 關閉提供者
func (s *Service) Close() error {
	return s.provider.Close()
}
