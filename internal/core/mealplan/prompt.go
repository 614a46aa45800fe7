package mealplan

import (
	"fmt"
	"strings"

	"lifequest/internal/pkg/common"
)

// mealSchema 要求模型使用的欄位
const mealSchema = `{"meal_type": "breakfast|lunch|snack|dinner", "description": "dish name", ` +
	`"breakdown": {"calories": 0, "protein": 0, "carbs": 0, "fat": 0}, "serving_size": "text", ` +
	`"recipe": "step by step instructions", ` +
	`"ingredients": [{"name": "text", "quantity": "text", "unit": "text"}], "tags": ["text"]}`

// buildPlanPrompt 組合每日餐點計畫的提示詞
func buildPlanPrompt(prefs *common.NutritionPreferences, date string, slots []common.MealSlot, feedback string) string {
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, string(s))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a nutritionist planning meals for %s.\n", date)
	fmt.Fprintf(&b, "Daily targets: %g kcal, %g g protein, %g g carbs, %g g fat.\n",
		prefs.Calories, prefs.Protein, prefs.Carbs, prefs.Fat)
	fmt.Fprintf(&b, "Dietary restrictions: %s\n", common.JoinList(prefs.DietaryRestrictions, "none"))
	fmt.Fprintf(&b, "Preferred cuisines: %s\n", common.JoinList(prefs.Cuisines, "any"))
	if prefs.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", prefs.Notes)
	}
	if feedback != "" {
		fmt.Fprintf(&b, "Feedback on the previous suggestion, take it into account: %s\n", feedback)
	}
	if len(slots) == 1 {
		fmt.Fprintf(&b, "Suggest a replacement %s only, sized to fit the daily targets.\n", names[0])
	}
	fmt.Fprintf(&b, "\nReturn ONLY a JSON array with exactly %d objects, one for each meal_type in: %s.\n",
		len(slots), strings.Join(names, ", "))
	b.WriteString("Never repeat a meal_type. Macro values are plain numbers without units.\n")
	b.WriteString("Each object must use exactly these field names:\n")
	b.WriteString(mealSchema)
	return b.String()
}

// buildFindPrompt 組合單一食譜查詢的提示詞，偏好可為 nil
func buildFindPrompt(query string, slot common.MealSlot, prefs *common.NutritionPreferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find a recipe for: %s\n", query)
	if slot != "" && slot != common.SlotCustom {
		fmt.Fprintf(&b, "It will be eaten as %s.\n", slot)
	}
	if prefs != nil {
		fmt.Fprintf(&b, "Dietary restrictions: %s\n", common.JoinList(prefs.DietaryRestrictions, "none"))
		fmt.Fprintf(&b, "Preferred cuisines: %s\n", common.JoinList(prefs.Cuisines, "any"))
	}
	b.WriteString("\nReturn ONLY one JSON object (not an array) with exactly these field names, ")
	b.WriteString("use \"custom\" as meal_type when it is not a regular meal:\n")
	b.WriteString(mealSchema)
	return b.String()
}
