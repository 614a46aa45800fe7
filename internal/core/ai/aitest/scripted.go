// Package aitest 提供測試用的補全替身
package aitest

import (
	"context"
	"errors"
	"sync"

	"lifequest/internal/core/ai"
)

// ErrExhausted 腳本回應已用完
var ErrExhausted = errors.New("scripted completer: no more responses")

// Call 一次呼叫的紀錄
type Call struct {
	Prompt  string
	Options ai.CallOptions
}

// Scripted 依序回傳預先設定的回應
type Scripted struct {
	mu        sync.Mutex
	responses []string
	errs      map[int]error
	calls     []Call
}

var _ ai.Completer = (*Scripted)(nil)

// NewScripted 建立腳本補全
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses, errs: map[int]error{}}
}

// FailAt 讓第 n 次（從 0 起算）呼叫回傳錯誤
func (s *Scripted) FailAt(n int, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[n] = err
	return s
}

// Complete 實作 ai.Completer
func (s *Scripted) Complete(ctx context.Context, prompt string, opts ...ai.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.calls)
	s.calls = append(s.calls, Call{Prompt: prompt, Options: ai.ApplyOptions(opts)})
	if err, ok := s.errs[n]; ok {
		return "", err
	}
	if len(s.responses) == 0 {
		return "", ErrExhausted
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return out, nil
}

// Calls 目前的呼叫紀錄
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
