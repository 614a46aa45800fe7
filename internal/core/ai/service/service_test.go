package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifequest/internal/core/ai"
	"lifequest/internal/core/ai/provider"
	"lifequest/internal/infrastructure/cache"
	"lifequest/internal/infrastructure/config"
	"lifequest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls   int
	lastReq *provider.Request
	content string
	err     error
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content}, nil
}

func (f *fakeProvider) GetModel() string { return "fake/model" }
func (f *fakeProvider) Close() error     { return nil }

func TestService_CompleteWithoutCacheAlwaysCalls(t *testing.T) {
	p := &fakeProvider{content: "[]"}
	store := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Hour})
	defer store.Close()
	s := NewService(p, store)

	for i := 0; i < 2; i++ {
		out, err := s.Complete(context.Background(), "  plan  ", ai.WithPurpose("meal_plan"), ai.WithTemperature(0.2))
		require.NoError(t, err)
		assert.Equal(t, "[]", out)
	}
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, "plan", p.lastReq.Messages[0].Content)
	require.NotNil(t, p.lastReq.Temperature)
	assert.Equal(t, 0.2, *p.lastReq.Temperature)
}

func TestService_CompleteUsesCacheWhenAsked(t *testing.T) {
	p := &fakeProvider{content: `[{"name":"flour"}]`}
	store := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Hour})
	defer store.Close()
	s := NewService(p, store)

	for i := 0; i < 3; i++ {
		out, err := s.Complete(context.Background(), "extract ingredients", ai.WithCache("ingredients"))
		require.NoError(t, err)
		assert.Equal(t, `[{"name":"flour"}]`, out)
	}
	assert.Equal(t, 1, p.calls)
}

func TestService_CompleteWrapsUpstreamError(t *testing.T) {
	p := &fakeProvider{err: errors.New("timeout")}
	s := NewService(p, nil)

	_, err := s.Complete(context.Background(), "x", ai.WithCache("ingredients"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstream)
	assert.Contains(t, err.Error(), "timeout")
}
