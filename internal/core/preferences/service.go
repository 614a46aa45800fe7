// Package preferences 飲食與新聞偏好（問卷）
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 偏好服務
// --------------------------------------------------
type Service struct {
	store storage.PreferenceStore
	clock common.Clock
}

// NewService 創建偏好服務
func NewService(store storage.PreferenceStore, clock common.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// SaveNutrition 儲存飲食問卷
func (s *Service) SaveNutrition(ctx context.Context, prefs common.NutritionPreferences) (*common.NutritionPreferences, error) {
	// 驗證必要欄位
	prefs.UserID = strings.TrimSpace(prefs.UserID)
	if prefs.UserID == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	if prefs.Calories <= 0 {
		return nil, common.NewValidationError("calories target must be positive")
	}
	if prefs.Protein < 0 || prefs.Carbs < 0 || prefs.Fat < 0 {
		return nil, common.NewValidationError("macro targets must not be negative")
	}
	prefs.DietaryRestrictions = cleanList(prefs.DietaryRestrictions)
	prefs.Cuisines = cleanList(prefs.Cuisines)
	prefs.Notes = strings.TrimSpace(prefs.Notes)
	prefs.UpdatedAt = s.clock.Now().UTC()

	if err := s.store.SaveNutritionPreferences(ctx, &prefs); err != nil {
		return nil, fmt.Errorf("save nutrition preferences: %w", err)
	}
	common.LogInfo("飲食偏好已儲存", zap.String("user_id", prefs.UserID))
	return &prefs, nil
}

// GetNutrition 取得飲食問卷，未填寫時回傳 ErrPreferencesNotFound
func (s *Service) GetNutrition(ctx context.Context, userID string) (*common.NutritionPreferences, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	prefs, err := s.store.GetNutritionPreferences(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load nutrition preferences: %w", err)
	}
	return prefs, nil
}

// SaveNews 儲存新聞興趣
func (s *Service) SaveNews(ctx context.Context, prefs common.NewsPreferences) (*common.NewsPreferences, error) {
	prefs.UserID = strings.TrimSpace(prefs.UserID)
	if prefs.UserID == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	prefs.Interests = cleanList(prefs.Interests)
	if len(prefs.Interests) == 0 {
		return nil, common.NewValidationError("at least one interest is required")
	}
	prefs.Sources = cleanList(prefs.Sources)
	prefs.UpdatedAt = s.clock.Now().UTC()

	if err := s.store.SaveNewsPreferences(ctx, &prefs); err != nil {
		return nil, fmt.Errorf("save news preferences: %w", err)
	}
	common.LogInfo("新聞偏好已儲存", zap.String("user_id", prefs.UserID), zap.Int("interests", len(prefs.Interests)))
	return &prefs, nil
}

// GetNews 取得新聞興趣，未設定時回傳 ErrPreferencesNotFound
func (s *Service) GetNews(ctx context.Context, userID string) (*common.NewsPreferences, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	prefs, err := s.store.GetNewsPreferences(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load news preferences: %w", err)
	}
	return prefs, nil
}

// cleanList 去除空白與重複（不分大小寫），保留順序
func cleanList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
