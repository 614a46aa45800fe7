package common

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期格式（僅日期）
const DateLayout = "2006-01-02"

// MealSlot 餐別
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotSnack     MealSlot = "snack"
	SlotDinner    MealSlot = "dinner"
	SlotCustom    MealSlot = "custom"
)

// FixedSlots 每日固定的四個餐別，依提示詞順序排列
var FixedSlots = []MealSlot{SlotBreakfast, SlotLunch, SlotSnack, SlotDinner}

// IsFixed 是否為四個固定餐別之一
func (s MealSlot) IsFixed() bool {
	switch s {
	case SlotBreakfast, SlotLunch, SlotSnack, SlotDinner:
		return true
	}
	return false
}

// Valid 是否為合法餐別（含 custom）
func (s MealSlot) Valid() bool {
	return s.IsFixed() || s == SlotCustom
}

// ParseSlot 解析餐別字串
func ParseSlot(raw string) (MealSlot, bool) {
	slot := MealSlot(strings.ToLower(strings.TrimSpace(raw)))
	return slot, slot.Valid()
}

// Source 紀錄來源
type Source string

const (
	SourceUser       Source = "user"
	SourceFindRecipe Source = "find_recipe"
	SourceGenerated  Source = "generated"
)

// Macros 營養素，缺值為 nil 而非 0
type Macros struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fat      *float64 `json:"fat,omitempty"`
}

// Ingredient 食材
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// String 食材的單行描述
func (i Ingredient) String() string {
	parts := []string{}
	if q := strings.TrimSpace(i.Quantity + " " + i.Unit); q != "" {
		parts = append(parts, q)
	}
	parts = append(parts, i.Name)
	line := strings.Join(parts, " ")
	if i.Brand != "" {
		line += fmt.Sprintf(" (%s)", i.Brand)
	}
	if i.Notes != "" {
		line += ", " + i.Notes
	}
	return line
}

// MealRecord 一筆計畫或已記錄的餐點
type MealRecord struct {
	ID          string       `json:"id,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
	Date        string       `json:"date,omitempty"`
	MealType    MealSlot     `json:"meal_type"`
	Description string       `json:"description"`
	Macros
	ServingSize string       `json:"serving_size,omitempty"`
	Recipe      string       `json:"recipe,omitempty"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Source      Source       `json:"source,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
}

// RecipeRecord 可重複使用的食譜
type RecipeRecord struct {
	ID          string       `json:"id,omitempty"`
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
	Recipe      string       `json:"recipe,omitempty"`
	ServingSize string       `json:"serving_size,omitempty"`
	Macros
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// RecipeFromMeal 由餐點建立食譜紀錄
func RecipeFromMeal(m MealRecord) RecipeRecord {
	return RecipeRecord{
		UserID:      m.UserID,
		Name:        m.Description,
		Ingredients: m.Ingredients,
		Recipe:      m.Recipe,
		ServingSize: m.ServingSize,
		Macros:      m.Macros,
	}
}

// GroceryItem 採購清單項目
type GroceryItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// GroceryList 每位使用者每週一份
type GroceryList struct {
	ID        string        `json:"id,omitempty"`
	UserID    string        `json:"user_id"`
	WeekStart string        `json:"week_start"`
	Items     []GroceryItem `json:"items"`
	Checklist []bool        `json:"checklist"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Reconcile 讓勾選清單長度與項目數一致
func (g *GroceryList) Reconcile() {
	switch {
	case len(g.Checklist) > len(g.Items):
		g.Checklist = g.Checklist[:len(g.Items)]
	case len(g.Checklist) < len(g.Items):
		g.Checklist = append(g.Checklist, make([]bool, len(g.Items)-len(g.Checklist))...)
	}
	if g.Items == nil {
		g.Items = []GroceryItem{}
	}
	if g.Checklist == nil {
		g.Checklist = []bool{}
	}
}

// NewsDigestItem 每日新聞摘要中的一則
type NewsDigestItem struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url,omitempty"`
	SourceName  string    `json:"source_name,omitempty"`
	DeliveredOn string    `json:"delivered_on"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// NutritionPreferences 飲食問卷
type NutritionPreferences struct {
	UserID              string    `json:"user_id"`
	Calories            float64   `json:"calories"`
	Protein             float64   `json:"protein"`
	Carbs               float64   `json:"carbs"`
	Fat                 float64   `json:"fat"`
	DietaryRestrictions []string  `json:"dietary_restrictions,omitempty"`
	Cuisines            []string  `json:"cuisines,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// NewsPreferences 新聞興趣設定
type NewsPreferences struct {
	UserID    string    `json:"user_id"`
	Interests []string  `json:"interests"`
	Sources   []string  `json:"sources,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ParseDate 驗證並正規化 YYYY-MM-DD 日期
func ParseDate(raw string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
	}
	return t.Format(DateLayout), nil
}

// AddDays 日期加減天數
func AddDays(date string, days int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, days).Format(DateLayout)
}

// Float 回傳浮點數指標
func Float(v float64) *float64 {
	return &v
}
