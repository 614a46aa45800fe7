// Package news 每日新聞摘要的生成
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifequest/internal/core/ai"
	"lifequest/internal/core/ai/extract"
	"lifequest/internal/core/normalize"
	"lifequest/internal/infrastructure/newsapi"
	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultItems 每日摘要預設則數
const DefaultItems = 5

// Store 新聞流程需要的儲存能力
type Store interface {
	storage.NewsStore
	storage.PreferenceStore
}

// HeadlineSource 新聞標題來源
type HeadlineSource interface {
	Headlines(ctx context.Context, q newsapi.Query) ([]newsapi.Article, error)
}

// NewsFeedRequest 生成請求，Preferences 為空時使用已儲存的興趣
type NewsFeedRequest struct {
	UserID      string   `json:"user_id"`
	Preferences []string `json:"preferences"`
	Feedback    string   `json:"regenerate_feedback"`
}

// Service 新聞摘要服務
// --------------------------------------------------
type Service struct {
	completer ai.Completer
	store     Store
	headlines HeadlineSource
	items     int
	clock     common.Clock
}

// NewService 創建新聞摘要服務，items <= 0 時使用 DefaultItems
func NewService(completer ai.Completer, store Store, headlines HeadlineSource, items int, clock common.Clock) *Service {
	if items <= 0 {
		items = DefaultItems
	}
	return &Service{
		completer: completer,
		store:     store,
		headlines: headlines,
		items:     items,
		clock:     clock,
	}
}

// GenerateNewsFeed 刪除今日摘要後重新生成，回傳今日完整摘要
func (s *Service) GenerateNewsFeed(ctx context.Context, req NewsFeedRequest) (digest []common.NewsDigestItem, err error) {
	defer func() { metrics.RecordGeneration("news_feed", err) }()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, common.NewValidationError("user_id is required")
	}

	prefs, err := s.resolvePreferences(ctx, userID, req.Preferences)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	today := now.Format(common.DateLayout)

	// 每日整份取代
	deleted, err := s.store.DeleteDigest(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("clear digest: %w", err)
	}

	articles, err := s.fetch(ctx, prefs)
	if err != nil {
		return nil, err
	}

	prompt := buildDigestPrompt(prefs.Interests, articles, s.items, strings.TrimSpace(req.Feedback))
	text, err := s.completer.Complete(ctx, prompt, ai.WithPurpose("news_feed"))
	if err != nil {
		return nil, common.WrapUpstream(err)
	}
	payload, err := extract.Extract(text, extract.ShapeArray)
	if err != nil {
		return nil, extract.WrapFailure("news_feed", err)
	}
	items := normalize.NewsItems(payload.Records())
	if len(items) == 0 {
		return nil, extract.WrapFailure("news_feed", errors.New("no usable news items in response"))
	}
	if len(items) > s.items {
		items = items[:s.items]
	}

	for i := range items {
		items[i].UserID = userID
		items[i].DeliveredOn = today
		// 依輸出順序遞增
		items[i].DeliveredAt = now.Add(time.Duration(i) * time.Millisecond)
	}
	if err := s.store.InsertDigestItems(ctx, items); err != nil {
		return nil, fmt.Errorf("insert digest: %w", err)
	}
	for range items {
		metrics.RecordAction("news_item", "inserted")
	}

	common.LogInfo("新聞摘要已生成",
		zap.String("user_id", userID),
		zap.Int64("replaced", deleted),
		zap.Int("headlines", len(articles)),
		zap.Int("items", len(items)),
	)
	return s.store.ListDigest(ctx, userID, today)
}

// TodayDigest 今日摘要，依遞送時間排序
func (s *Service) TodayDigest(ctx context.Context, userID string) ([]common.NewsDigestItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	return s.store.ListDigest(ctx, userID, s.clock.Now().UTC().Format(common.DateLayout))
}

// resolvePreferences 請求內的興趣優先並會被儲存，否則讀取已儲存的設定
func (s *Service) resolvePreferences(ctx context.Context, userID string, requested []string) (*common.NewsPreferences, error) {
	stored, err := s.store.GetNewsPreferences(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load news preferences: %w", err)
	}

	interests := make([]string, 0, len(requested))
	for _, p := range requested {
		if p = strings.TrimSpace(p); p != "" {
			interests = append(interests, p)
		}
	}
	if len(interests) == 0 {
		if stored == nil || len(stored.Interests) == 0 {
			return nil, common.ErrPreferencesNotFound
		}
		return stored, nil
	}

	prefs := &common.NewsPreferences{UserID: userID, Interests: interests}
	if stored != nil {
		prefs.Sources = stored.Sources
	}
	if err := s.store.SaveNewsPreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("save news preferences: %w", err)
	}
	return prefs, nil
}

// fetch 依興趣取得標題，關鍵字查無結果時改取來源清單的最新標題
func (s *Service) fetch(ctx context.Context, prefs *common.NewsPreferences) ([]newsapi.Article, error) {
	q := newsapi.Query{Keywords: prefs.Interests, Sources: prefs.Sources}
	articles, err := s.headlines.Headlines(ctx, q)
	if err != nil {
		return nil, common.WrapUpstream(err)
	}
	if len(articles) > 0 {
		return articles, nil
	}

	common.LogWarn("關鍵字查無新聞，改用來源最新標題", zap.Strings("interests", prefs.Interests))
	q.Keywords = nil
	articles, err = s.headlines.Headlines(ctx, q)
	if err != nil {
		return nil, common.WrapUpstream(err)
	}
	if len(articles) == 0 {
		return nil, common.Wrap(common.ErrUpstream, errors.New("no headlines available"))
	}
	return articles, nil
}

func buildDigestPrompt(interests []string, articles []newsapi.Article, count int, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pick the %d headlines below that best match these interests: %s.\n",
		count, common.JoinList(interests, "general news"))
	if feedback != "" {
		fmt.Fprintf(&b, "Feedback on the previous digest, take it into account: %s\n", feedback)
	}
	b.WriteString("Write a neutral two-sentence summary for each one.\n\nHeadlines:\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s (%s) %s\n", i+1, a.Title, a.SourceName, a.URL)
		if a.Description != "" {
			fmt.Fprintf(&b, "   %s\n", a.Description)
		}
	}
	fmt.Fprintf(&b, "\nReturn ONLY a JSON array with at most %d objects using exactly these field names:\n", count)
	b.WriteString(`{"headline": "text", "summary": "text", "url": "text", "source": "text"}`)
	return b.String()
}
