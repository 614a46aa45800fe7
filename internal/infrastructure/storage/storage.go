// Package storage 定義各類紀錄的儲存介面
package storage

import (
	"context"
	"errors"

	"lifequest/internal/pkg/common"
)

// ErrNotFound 查無紀錄
var ErrNotFound = errors.New("record not found")

// MealStore 每日餐點
type MealStore interface {
	// FindMeal 以 (user, date, slot) 精確查詢，查無時回傳 ErrNotFound
	FindMeal(ctx context.Context, userID, date string, slot common.MealSlot) (*common.MealRecord, error)
	// InsertMeal 新增餐點並填入 ID 與建立時間
	InsertMeal(ctx context.Context, meal *common.MealRecord) error
	// DeleteMealSlot 刪除某日某餐別的紀錄，回傳刪除筆數
	DeleteMealSlot(ctx context.Context, userID, date string, slot common.MealSlot) (int64, error)
	// CountGeneratedMeals 回傳當日與累計的 AI 生成餐點數
	CountGeneratedMeals(ctx context.Context, userID, date string) (daily int, lifetime int, err error)
	// ListMeals 依日期區間（含頭尾）列出餐點
	ListMeals(ctx context.Context, userID, from, to string) ([]common.MealRecord, error)
}

// RecipeStore 食譜
type RecipeStore interface {
	FindRecipeByName(ctx context.Context, userID, name string) (*common.RecipeRecord, error)
	InsertRecipe(ctx context.Context, recipe *common.RecipeRecord) error
	DeleteRecipe(ctx context.Context, userID, id string) error
	ListRecipes(ctx context.Context, userID string) ([]common.RecipeRecord, error)
}

// GroceryStore 每週採購清單
type GroceryStore interface {
	GetGroceryList(ctx context.Context, userID, weekStart string) (*common.GroceryList, error)
	// SaveGroceryList 依 (user, week_start) 整份覆寫
	SaveGroceryList(ctx context.Context, list *common.GroceryList) error
}

// NewsStore 每日新聞摘要
type NewsStore interface {
	DeleteDigest(ctx context.Context, userID, day string) (int64, error)
	InsertDigestItems(ctx context.Context, items []common.NewsDigestItem) error
	// ListDigest 依遞送時間排序
	ListDigest(ctx context.Context, userID, day string) ([]common.NewsDigestItem, error)
}

// PreferenceStore 使用者偏好
type PreferenceStore interface {
	GetNutritionPreferences(ctx context.Context, userID string) (*common.NutritionPreferences, error)
	SaveNutritionPreferences(ctx context.Context, prefs *common.NutritionPreferences) error
	GetNewsPreferences(ctx context.Context, userID string) (*common.NewsPreferences, error)
	SaveNewsPreferences(ctx context.Context, prefs *common.NewsPreferences) error
}

// Store 完整的儲存層
type Store interface {
	MealStore
	RecipeStore
	GroceryStore
	NewsStore
	PreferenceStore

	Ping(ctx context.Context) error
	Close()
}
