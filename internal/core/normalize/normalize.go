// Package normalize 將模型輸出的鬆散紀錄對應到標準資料結構
package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"lifequest/internal/pkg/common"
)

// Record 解析後的原始紀錄
type Record = map[string]interface{}

// 欄位別名表，依優先順序排列
var (
	SlotKeys        = []string{"meal_type", "type", "slot", "category"}
	NameKeys        = []string{"description", "name", "meal_name", "title", "dish_name"}
	MacroHolderKeys = []string{"breakdown", "macros", "nutrition"}
	CaloriesKeys    = []string{"calories", "kcal"}
	ProteinKeys     = []string{"protein", "protein_g"}
	CarbsKeys       = []string{"carbs", "carbs_g", "carbohydrates"}
	FatKeys         = []string{"fat", "fat_g"}
	RecipeKeys      = []string{"recipe", "recipe_instructions", "full_recipe"}
	IngredientsKeys = []string{"ingredients"}
	ServingKeys     = []string{"serving_size", "serving", "servings"}
	TagKeys         = []string{"tags"}

	ItemNameKeys     = []string{"name", "item", "ingredient"}
	ItemQuantityKeys = []string{"quantity", "amount", "qty"}
	ItemUnitKeys     = []string{"unit"}
	ItemBrandKeys    = []string{"brand"}
	ItemNotesKeys    = []string{"notes", "note"}

	HeadlineKeys   = []string{"headline", "title"}
	SummaryKeys    = []string{"summary", "description"}
	URLKeys        = []string{"url", "source_url", "link"}
	SourceNameKeys = []string{"source", "source_name", "publisher"}
)

// slotPrefix 顯示名稱中 "Breakfast: ..." / "Lunch - ..." 的前綴
var slotPrefix = regexp.MustCompile(`^\s*([A-Za-z]+)\s*(?::|\s-\s|–|—)`)

// nonNumeric 數值字串中要去除的字元
var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// MealOptions 批次正規化選項
type MealOptions struct {
	// AllowedSlots 非空時只接受這些餐別
	AllowedSlots []common.MealSlot
}

// Meals 正規化一批餐點：餐別無法解析、非固定餐別或同批重複的紀錄會被略過，先出現者優先
func Meals(records []Record, opts MealOptions) []common.MealRecord {
	allowed := make(map[common.MealSlot]bool, len(opts.AllowedSlots))
	for _, s := range opts.AllowedSlots {
		allowed[s] = true
	}

	seen := make(map[common.MealSlot]bool, len(common.FixedSlots))
	out := make([]common.MealRecord, 0, len(records))
	for _, rec := range records {
		meal := Meal(rec, "")
		switch {
		case !meal.MealType.IsFixed():
			continue
		case len(allowed) > 0 && !allowed[meal.MealType]:
			continue
		case seen[meal.MealType]:
			continue
		case meal.Description == "":
			continue
		}
		seen[meal.MealType] = true
		out = append(out, meal)
	}
	return out
}

// Meal 正規化單筆餐點，無法判斷餐別時使用 fallback
func Meal(rec Record, fallback common.MealSlot) common.MealRecord {
	name := firstString(rec, NameKeys)
	slot, ok := resolveSlot(rec, name)
	if !ok {
		slot = fallback
	}

	meal := common.MealRecord{
		ID:          firstString(rec, []string{"id"}),
		UserID:      firstString(rec, []string{"user_id"}),
		Date:        firstString(rec, []string{"date"}),
		MealType:    slot,
		Description: name,
		Macros:      macros(rec),
		ServingSize: firstText(rec, ServingKeys),
		Recipe:      recipeText(rec),
		Ingredients: ingredients(first(rec, IngredientsKeys)),
		Tags:        tags(first(rec, TagKeys)),
		Source:      common.Source(firstString(rec, []string{"source"})),
	}
	return meal
}

// Recipe 將單筆紀錄正規化為食譜
func Recipe(rec Record) common.RecipeRecord {
	return common.RecipeFromMeal(Meal(rec, common.SlotCustom))
}

// Ingredients 正規化食材陣列（次要萃取呼叫的輸出）
func Ingredients(records []Record) []common.Ingredient {
	arr := make([]interface{}, 0, len(records))
	for _, r := range records {
		arr = append(arr, r)
	}
	return ingredients(arr)
}

// GroceryItems 正規化採購項目，沒有名稱的項目會被略過，同名同單位只保留第一筆
func GroceryItems(records []Record) []common.GroceryItem {
	seen := make(map[string]bool, len(records))
	out := make([]common.GroceryItem, 0, len(records))
	for _, rec := range records {
		item := common.GroceryItem{
			Name:     firstString(rec, ItemNameKeys),
			Quantity: firstText(rec, ItemQuantityKeys),
			Unit:     firstString(rec, ItemUnitKeys),
			Brand:    firstString(rec, ItemBrandKeys),
			Notes:    firstString(rec, ItemNotesKeys),
		}
		if item.Name == "" {
			continue
		}
		key := strings.ToLower(item.Name) + "|" + strings.ToLower(item.Unit)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// NewsItems 正規化新聞摘要，缺少標題或摘要者略過
func NewsItems(records []Record) []common.NewsDigestItem {
	out := make([]common.NewsDigestItem, 0, len(records))
	for _, rec := range records {
		item := common.NewsDigestItem{
			Headline:   firstString(rec, HeadlineKeys),
			Summary:    firstString(rec, SummaryKeys),
			URL:        firstString(rec, URLKeys),
			SourceName: sourceName(rec),
		}
		if item.Headline == "" || item.Summary == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Number 將數值或數值字串轉為浮點數，"250kcal" → 250；無法解析或為負數時回傳 nil
func Number(v interface{}) *float64 {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return Number(val.String())
		}
		f = parsed
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		cleaned := nonNumeric.ReplaceAllString(val, "")
		if cleaned == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 {
		return nil
	}
	return &f
}

// resolveSlot 第一個有值的餐別欄位即為結果，無效時不再參考其他別名或名稱前綴
func resolveSlot(rec Record, name string) (common.MealSlot, bool) {
	for _, key := range SlotKeys {
		if s, ok := rec[key].(string); ok && strings.TrimSpace(s) != "" {
			return common.ParseSlot(s)
		}
	}
	if m := slotPrefix.FindStringSubmatch(name); m != nil {
		if slot, valid := common.ParseSlot(m[1]); valid {
			return slot, true
		}
	}
	return "", false
}

func macros(rec Record) common.Macros {
	var holder Record
	for _, key := range MacroHolderKeys {
		if h, ok := rec[key].(map[string]interface{}); ok {
			holder = h
			break
		}
	}

	lookup := func(keys []string) *float64 {
		if holder != nil {
			if v := Number(first(holder, keys)); v != nil {
				return v
			}
		}
		return Number(first(rec, keys))
	}

	return common.Macros{
		Calories: lookup(CaloriesKeys),
		Protein:  lookup(ProteinKeys),
		Carbs:    lookup(CarbsKeys),
		Fat:      lookup(FatKeys),
	}
}

func recipeText(rec Record) string {
	switch v := first(rec, RecipeKeys).(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		lines := make([]string, 0, len(v))
		for _, line := range v {
			if s := text(line); s != "" {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

func ingredients(v interface{}) []common.Ingredient {
	var arr []interface{}
	switch val := v.(type) {
	case []interface{}:
		arr = val
	case string:
		var parsed []interface{}
		if err := common.ParseJSON(val, &parsed); err != nil {
			return nil
		}
		arr = parsed
	default:
		return nil
	}

	out := make([]common.Ingredient, 0, len(arr))
	for _, entry := range arr {
		switch e := entry.(type) {
		case string:
			if s := strings.TrimSpace(e); s != "" {
				out = append(out, common.Ingredient{Name: s})
			}
		case map[string]interface{}:
			ing := common.Ingredient{
				Name:     firstString(e, ItemNameKeys),
				Quantity: firstText(e, ItemQuantityKeys),
				Unit:     firstString(e, ItemUnitKeys),
				Brand:    firstString(e, ItemBrandKeys),
				Notes:    firstString(e, ItemNotesKeys),
			}
			if ing.Name != "" {
				out = append(out, ing)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func tags(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case []interface{}:
		for _, t := range val {
			if s := text(t); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func sourceName(rec Record) string {
	for _, key := range SourceNameKeys {
		switch v := rec[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]interface{}:
			if s := firstString(v, []string{"name"}); s != "" {
				return s
			}
		}
	}
	return ""
}

// first 依別名順序取第一個存在且非 null 的值
func first(rec Record, keys []string) interface{} {
	for _, key := range keys {
		if v, ok := rec[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstString 依別名順序取第一個非空字串
func firstString(rec Record, keys []string) string {
	for _, key := range keys {
		if s, ok := rec[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstText 與 firstString 相同，但數值也會轉為字串
func firstText(rec Record, keys []string) string {
	for _, key := range keys {
		if s := text(rec[key]); s != "" {
			return s
		}
	}
	return ""
}

func text(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	}
	return ""
}
