package ai

import (
	"context"
)

// Completer 送出提示詞並取得模型輸出的純文字
type Completer interface {
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// CallOptions 單次呼叫的選項
type CallOptions struct {
	// Purpose 用於日誌與指標
	Purpose string
	// CacheNamespace 非空時相同提示詞的結果會被快取
	CacheNamespace string
	MaxTokens      int
	Temperature    *float64
}

// Option 呼叫選項
type Option func(*CallOptions)

// WithPurpose 標記呼叫用途
func WithPurpose(purpose string) Option {
	return func(o *CallOptions) { o.Purpose = purpose }
}

// WithCache 啟用快取
func WithCache(namespace string) Option {
	return func(o *CallOptions) { o.CacheNamespace = namespace }
}

// WithMaxTokens 覆寫最大 token 數
func WithMaxTokens(n int) Option {
	return func(o *CallOptions) { o.MaxTokens = n }
}

// WithTemperature 覆寫溫度
func WithTemperature(t float64) Option {
	return func(o *CallOptions) { o.Temperature = &t }
}

// ApplyOptions 套用選項
func ApplyOptions(opts []Option) CallOptions {
	o := CallOptions{Purpose: "completion"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
