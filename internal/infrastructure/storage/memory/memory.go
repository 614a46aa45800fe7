// Package memory 以記憶體實作儲存層，供本機執行與測試使用
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"
)

var _ storage.Store = (*Store)(nil)

// Store 記憶體儲存，可並行存取
type Store struct {
	mu        sync.RWMutex
	clock     common.Clock
	meals     []common.MealRecord
	recipes   []common.RecipeRecord
	groceries map[string]common.GroceryList
	digest    []common.NewsDigestItem
	nutrition map[string]common.NutritionPreferences
	news      map[string]common.NewsPreferences
}

// New 建立空的記憶體儲存
func New(clock common.Clock) *Store {
	return &Store{
		clock:     clock,
		groceries: make(map[string]common.GroceryList),
		nutrition: make(map[string]common.NutritionPreferences),
		news:      make(map[string]common.NewsPreferences),
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

// FindMeal 精確查詢 (user, date, slot)
func (s *Store) FindMeal(ctx context.Context, userID, date string, slot common.MealSlot) (*common.MealRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.meals {
		if m.UserID == userID && m.Date == date && m.MealType == slot {
			found := m
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

// InsertMeal 新增餐點
func (s *Store) InsertMeal(ctx context.Context, meal *common.MealRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meal.ID == "" {
		meal.ID = common.GenerateUUID()
	}
	meal.CreatedAt = s.clock.Now()
	s.meals = append(s.meals, *meal)
	return nil
}

// DeleteMealSlot 刪除某日某餐別
func (s *Store) DeleteMealSlot(ctx context.Context, userID, date string, slot common.MealSlot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.meals[:0]
	var deleted int64
	for _, m := range s.meals {
		if m.UserID == userID && m.Date == date && m.MealType == slot {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.meals = kept
	return deleted, nil
}

// CountGeneratedMeals 計算 AI 生成的餐點數
func (s *Store) CountGeneratedMeals(ctx context.Context, userID, date string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	daily, lifetime := 0, 0
	for _, m := range s.meals {
		if m.UserID != userID || m.Source != common.SourceGenerated {
			continue
		}
		lifetime++
		if m.Date == date {
			daily++
		}
	}
	return daily, lifetime, nil
}

// ListMeals 依日期區間列出餐點
func (s *Store) ListMeals(ctx context.Context, userID, from, to string) ([]common.MealRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []common.MealRecord{}
	for _, m := range s.meals {
		if m.UserID == userID && m.Date >= from && m.Date <= to {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return slotOrder(out[i].MealType) < slotOrder(out[j].MealType)
	})
	return out, nil
}

func slotOrder(slot common.MealSlot) int {
	for i, s := range common.FixedSlots {
		if s == slot {
			return i
		}
	}
	return len(common.FixedSlots)
}

// FindRecipeByName 依名稱查詢（不分大小寫）
func (s *Store) FindRecipeByName(ctx context.Context, userID, name string) (*common.RecipeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.recipes {
		if r.UserID == userID && strings.EqualFold(r.Name, name) {
			found := r
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

// InsertRecipe 新增食譜
func (s *Store) InsertRecipe(ctx context.Context, recipe *common.RecipeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	recipe.CreatedAt = s.clock.Now()
	s.recipes = append(s.recipes, *recipe)
	return nil
}

// DeleteRecipe 刪除食譜
func (s *Store) DeleteRecipe(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.recipes {
		if r.UserID == userID && r.ID == id {
			s.recipes = append(s.recipes[:i], s.recipes[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// ListRecipes 依建立時間列出食譜
func (s *Store) ListRecipes(ctx context.Context, userID string) ([]common.RecipeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []common.RecipeRecord{}
	for _, r := range s.recipes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func groceryKey(userID, weekStart string) string {
	return userID + "|" + weekStart
}

// GetGroceryList 取得某週清單
func (s *Store) GetGroceryList(ctx context.Context, userID, weekStart string) (*common.GroceryList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.groceries[groceryKey(userID, weekStart)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	list.Items = append([]common.GroceryItem(nil), list.Items...)
	list.Checklist = append([]bool(nil), list.Checklist...)
	return &list, nil
}

// SaveGroceryList 整份覆寫
func (s *Store) SaveGroceryList(ctx context.Context, list *common.GroceryList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := groceryKey(list.UserID, list.WeekStart)
	if existing, ok := s.groceries[key]; ok && list.ID == "" {
		list.ID = existing.ID
	}
	if list.ID == "" {
		list.ID = common.GenerateUUID()
	}
	list.UpdatedAt = s.clock.Now()

	stored := *list
	stored.Items = append([]common.GroceryItem(nil), list.Items...)
	stored.Checklist = append([]bool(nil), list.Checklist...)
	s.groceries[key] = stored
	return nil
}

// DeleteDigest 刪除某日所有摘要
func (s *Store) DeleteDigest(ctx context.Context, userID, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.digest[:0]
	var deleted int64
	for _, item := range s.digest {
		if item.UserID == userID && item.DeliveredOn == day {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	s.digest = kept
	return deleted, nil
}

// InsertDigestItems 新增一批摘要
func (s *Store) InsertDigestItems(ctx context.Context, items []common.NewsDigestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = common.GenerateUUID()
		}
		s.digest = append(s.digest, items[i])
	}
	return nil
}

// ListDigest 依遞送時間排序列出某日摘要
func (s *Store) ListDigest(ctx context.Context, userID, day string) ([]common.NewsDigestItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []common.NewsDigestItem{}
	for _, item := range s.digest {
		if item.UserID == userID && item.DeliveredOn == day {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DeliveredAt.Before(out[j].DeliveredAt)
	})
	return out, nil
}

func (s *Store) GetNutritionPreferences(ctx context.Context, userID string) (*common.NutritionPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.nutrition[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) SaveNutritionPreferences(ctx context.Context, prefs *common.NutritionPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.UpdatedAt = s.clock.Now()
	s.nutrition[prefs.UserID] = *prefs
	return nil
}

func (s *Store) GetNewsPreferences(ctx context.Context, userID string) (*common.NewsPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.news[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) SaveNewsPreferences(ctx context.Context, prefs *common.NewsPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.UpdatedAt = s.clock.Now()
	s.news[prefs.UserID] = *prefs
	return nil
}
