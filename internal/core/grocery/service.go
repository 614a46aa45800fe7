// Package grocery 每週採購清單的生成與編輯
package grocery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lifequest/internal/core/ai"
	"lifequest/internal/core/ai/extract"
	"lifequest/internal/core/normalize"
	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Store 採購清單流程需要的儲存能力
type Store interface {
	storage.MealStore
	storage.GroceryStore
}

// Service 採購清單服務
// --------------------------------------------------
type Service struct {
	completer ai.Completer
	store     Store
}

// NewService 創建採購清單服務
func NewService(completer ai.Completer, store Store) *Service {
	return &Service{completer: completer, store: store}
}

// GenerateGroceryList 彙整一週餐點的食材並整份覆寫該週清單
func (s *Service) GenerateGroceryList(ctx context.Context, userID, weekStart string) (list *common.GroceryList, err error) {
	defer func() { metrics.RecordGeneration("grocery_list", err) }()

	userID, weekStart, err = validateKey(userID, weekStart)
	if err != nil {
		return nil, err
	}

	meals, err := s.store.ListMeals(ctx, userID, weekStart, common.AddDays(weekStart, 6))
	if err != nil {
		return nil, fmt.Errorf("load meals: %w", err)
	}
	if len(meals) == 0 {
		return nil, common.ErrNoMealsForWeek
	}

	inputs := make([]mealIngredients, 0, len(meals))
	for _, meal := range meals {
		ingredients, err := s.ingredientsFor(ctx, meal)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, mealIngredients{Date: meal.Date, Name: meal.Description, Ingredients: ingredients})
	}

	text, err := s.completer.Complete(ctx, buildListPrompt(weekStart, inputs), ai.WithPurpose("grocery_list"))
	if err != nil {
		return nil, common.WrapUpstream(err)
	}
	payload, err := extract.Extract(text, extract.ShapeArray)
	if err != nil {
		return nil, extract.WrapFailure("grocery_list", err)
	}
	items := normalize.GroceryItems(payload.Records())
	if len(items) == 0 {
		return nil, extract.WrapFailure("grocery_list", errors.New("no usable grocery items in response"))
	}

	list = &common.GroceryList{
		UserID:    userID,
		WeekStart: weekStart,
		Items:     items,
		Checklist: make([]bool, len(items)),
	}
	if err := s.store.SaveGroceryList(ctx, list); err != nil {
		return nil, fmt.Errorf("save grocery list: %w", err)
	}

	common.LogInfo("採購清單已生成",
		zap.String("user_id", userID),
		zap.String("week_start", weekStart),
		zap.Int("meals", len(meals)),
		zap.Int("items", len(items)),
	)
	return list, nil
}

// ingredientsFor 優先使用結構化食材，否則由食譜文字萃取（結果依食譜文字快取）
func (s *Service) ingredientsFor(ctx context.Context, meal common.MealRecord) ([]common.Ingredient, error) {
	if len(meal.Ingredients) > 0 || strings.TrimSpace(meal.Recipe) == "" {
		return meal.Ingredients, nil
	}

	text, err := s.completer.Complete(ctx, buildIngredientPrompt(meal.Recipe),
		ai.WithPurpose("ingredient_extraction"),
		ai.WithCache("ingredients"),
	)
	if err != nil {
		return nil, common.WrapUpstream(err)
	}
	payload, err := extract.Extract(text, extract.ShapeArray)
	if err != nil {
		// 單筆萃取失敗只略過該餐的食材
		common.LogWarn("食材萃取失敗，改用菜名",
			zap.String("meal", meal.Description),
			zap.Error(err),
		)
		return nil, nil
	}
	return normalize.Ingredients(payload.Records()), nil
}

// GetGroceryList 取得清單，讀取時校正勾選清單長度
func (s *Service) GetGroceryList(ctx context.Context, userID, weekStart string) (*common.GroceryList, error) {
	userID, weekStart, err := validateKey(userID, weekStart)
	if err != nil {
		return nil, err
	}
	list, err := s.store.GetGroceryList(ctx, userID, weekStart)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrGroceryListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load grocery list: %w", err)
	}
	list.Reconcile()
	return list, nil
}

// AddItem 新增項目（未勾選）
func (s *Service) AddItem(ctx context.Context, userID, weekStart string, item common.GroceryItem) (*common.GroceryList, error) {
	item, err := cleanItem(item)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, weekStart, "added", func(list *common.GroceryList) error {
		list.Items = append(list.Items, item)
		list.Checklist = append(list.Checklist, false)
		return nil
	})
}

// UpdateItem 取代指定位置的項目，保留勾選狀態
func (s *Service) UpdateItem(ctx context.Context, userID, weekStart string, index int, item common.GroceryItem) (*common.GroceryList, error) {
	item, err := cleanItem(item)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, weekStart, "updated", func(list *common.GroceryList) error {
		if err := checkIndex(list, index); err != nil {
			return err
		}
		list.Items[index] = item
		return nil
	})
}

// RemoveItem 移除指定位置的項目
func (s *Service) RemoveItem(ctx context.Context, userID, weekStart string, index int) (*common.GroceryList, error) {
	return s.mutate(ctx, userID, weekStart, "removed", func(list *common.GroceryList) error {
		if err := checkIndex(list, index); err != nil {
			return err
		}
		list.Items = append(list.Items[:index], list.Items[index+1:]...)
		list.Checklist = append(list.Checklist[:index], list.Checklist[index+1:]...)
		return nil
	})
}

// ToggleItem 切換指定位置的勾選狀態
func (s *Service) ToggleItem(ctx context.Context, userID, weekStart string, index int) (*common.GroceryList, error) {
	return s.mutate(ctx, userID, weekStart, "toggled", func(list *common.GroceryList) error {
		if err := checkIndex(list, index); err != nil {
			return err
		}
		list.Checklist[index] = !list.Checklist[index]
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, userID, weekStart, action string, fn func(*common.GroceryList) error) (*common.GroceryList, error) {
	list, err := s.GetGroceryList(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	if err := fn(list); err != nil {
		return nil, err
	}
	if err := s.store.SaveGroceryList(ctx, list); err != nil {
		return nil, fmt.Errorf("save grocery list: %w", err)
	}
	metrics.RecordAction("grocery_item", action)
	return list, nil
}

func validateKey(userID, weekStart string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", common.NewValidationError("user_id is required")
	}
	if strings.TrimSpace(weekStart) == "" {
		return "", "", common.NewValidationError("week_start is required")
	}
	weekStart, err := common.ParseDate(weekStart)
	if err != nil {
		return "", "", err
	}
	return userID, weekStart, nil
}

func cleanItem(item common.GroceryItem) (common.GroceryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	item.Quantity = strings.TrimSpace(item.Quantity)
	item.Unit = strings.TrimSpace(item.Unit)
	item.Brand = strings.TrimSpace(item.Brand)
	item.Notes = strings.TrimSpace(item.Notes)
	if item.Name == "" {
		return item, common.NewValidationError("item name is required")
	}
	return item, nil
}

func checkIndex(list *common.GroceryList, index int) error {
	if index < 0 || index >= len(list.Items) {
		return common.ErrItemIndex
	}
	return nil
}
