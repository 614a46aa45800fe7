package grocery

import (
	"fmt"
	"strings"

	"lifequest/internal/pkg/common"
)

// mealIngredients 一餐與其食材
type mealIngredients struct {
	Date        string
	Name        string
	Ingredients []common.Ingredient
}

func buildIngredientPrompt(recipe string) string {
	return "Extract the ingredient list from this recipe.\n" +
		"Return ONLY a JSON array of objects with the fields \"name\", \"quantity\", \"unit\", \"notes\".\n\n" +
		"Recipe:\n" + recipe
}

func buildListPrompt(weekStart string, meals []mealIngredients) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build one consolidated grocery list for the week starting %s from these meals.\n", weekStart)
	b.WriteString("Combine duplicate ingredients and add up their quantities, use common store units.\n\n")
	for _, m := range meals {
		fmt.Fprintf(&b, "- %s, %s:", m.Date, m.Name)
		if len(m.Ingredients) == 0 {
			b.WriteString(" ingredients unknown, infer typical ones from the dish name\n")
			continue
		}
		b.WriteString("\n")
		for _, ing := range m.Ingredients {
			fmt.Fprintf(&b, "    * %s\n", ing.String())
		}
	}
	b.WriteString("\nReturn ONLY a JSON array of objects with exactly these field names:\n")
	b.WriteString(`{"name": "text", "quantity": "text", "unit": "text", "brand": "text", "notes": "text"}`)
	return b.String()
}
