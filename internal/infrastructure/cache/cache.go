// Package cache 提供外部 API 回應的快取
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// ErrCacheMiss 查無快取
var ErrCacheMiss = errors.New("cache miss")

// Store 快取介面，namespace 區分用途（completion / recipes / headlines）
type Store interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// New 依設定選擇快取：有 Redis 位址時用 Redis，否則用記憶體；停用時回傳 nil
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	if cfg.Redis.Addr != "" {
		store, err := NewRedisStore(ctx, cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return NewManager(cfg.Cache), nil
}

// Key 由多個部分組成雜湊鍵
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}

// GetJSON 讀取並解碼 JSON 快取，store 為 nil 時視為未命中
func GetJSON(ctx context.Context, store Store, namespace, key string, v interface{}) bool {
	if store == nil {
		return false
	}
	raw, err := store.Get(ctx, namespace, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.String("namespace", namespace), zap.Error(err))
		}
		common.LogCacheMiss(namespace)
		metrics.RecordCache(namespace, false)
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		common.LogWarn("快取內容無法解析", zap.String("namespace", namespace), zap.Error(err))
		metrics.RecordCache(namespace, false)
		return false
	}
	common.LogCacheHit(namespace)
	metrics.RecordCache(namespace, true)
	return true
}

// SetJSON 編碼並寫入快取，失敗只記錄警告
func SetJSON(ctx context.Context, store Store, namespace, key string, v interface{}) {
	if store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		common.LogWarn("快取內容無法編碼", zap.String("namespace", namespace), zap.Error(err))
		return
	}
	if err := store.Set(ctx, namespace, key, string(data)); err != nil {
		common.LogWarn("寫入快取失敗", zap.String("namespace", namespace), zap.Error(err))
	}
}
