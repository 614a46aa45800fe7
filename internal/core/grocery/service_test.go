package grocery

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifequest/internal/core/ai/aitest"
	"lifequest/internal/infrastructure/storage/memory"
	"lifequest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weekStart = "2026-10-19"

const groceryResponse = "```json\n[" +
	`{"item": "Rolled oats", "amount": 500, "unit": "g"},` +
	`{"name": "Chicken breast", "quantity": "2", "unit": "lb", "notes": "boneless"},` +
	`{"name": "rolled oats", "quantity": "100", "unit": "G"},` +
	`{"quantity": "3"}` +
	"]\n```"

func newService(t *testing.T, responses ...string) (*Service, *memory.Store, *aitest.Scripted) {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC) }
	store := memory.New(clock)
	scripted := aitest.NewScripted(responses...)
	return NewService(scripted, store), store, scripted
}

func insertMeal(t *testing.T, store *memory.Store, meal common.MealRecord) {
	t.Helper()
	meal.UserID = "u1"
	require.NoError(t, store.InsertMeal(context.Background(), &meal))
}

func TestGenerateGroceryList_NoMealsWritesNothing(t *testing.T) {
	svc, store, scripted := newService(t)

	_, err := svc.GenerateGroceryList(context.Background(), "u1", weekStart)
	require.ErrorIs(t, err, common.ErrNoMealsForWeek)
	status, body := common.ResolveError(err)
	assert.Equal(t, 400, status)
	assert.Equal(t, "no meals found for this week", body.Error)

	_, err = store.GetGroceryList(context.Background(), "u1", weekStart)
	assert.Error(t, err)
	assert.Empty(t, scripted.Calls())
}

func TestGenerateGroceryList(t *testing.T) {
	svc, store, scripted := newService(t,
		`[{"name": "chicken breast", "quantity": "1", "unit": "lb"}]`,
		groceryResponse,
	)
	insertMeal(t, store, common.MealRecord{
		Date: weekStart, MealType: common.SlotBreakfast, Description: "Oatmeal",
		Ingredients: []common.Ingredient{{Name: "rolled oats", Quantity: "80", Unit: "g"}},
	})
	insertMeal(t, store, common.MealRecord{
		Date: "2026-10-21", MealType: common.SlotDinner, Description: "Grilled chicken",
		Recipe: "Season and grill one pound of chicken breast.",
	})
	// 週外的餐點不計入
	insertMeal(t, store, common.MealRecord{Date: "2026-10-26", MealType: common.SlotLunch, Description: "Out of range"})

	list, err := svc.GenerateGroceryList(context.Background(), "u1", weekStart)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Rolled oats", list.Items[0].Name)
	assert.Equal(t, "500", list.Items[0].Quantity)
	assert.Equal(t, "boneless", list.Items[1].Notes)
	assert.Equal(t, []bool{false, false}, list.Checklist)

	calls := scripted.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "ingredients", calls[0].Options.CacheNamespace)
	assert.Contains(t, calls[0].Prompt, "Season and grill")
	assert.Contains(t, calls[1].Prompt, "80 g rolled oats")
	assert.Contains(t, calls[1].Prompt, "1 lb chicken breast")
	assert.NotContains(t, calls[1].Prompt, "Out of range")

	stored, err := store.GetGroceryList(context.Background(), "u1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, list.ID, stored.ID)
}

func TestGenerateGroceryList_ReplacesWholesale(t *testing.T) {
	svc, store, _ := newService(t, groceryResponse, `[{"name": "Milk"}]`)
	insertMeal(t, store, common.MealRecord{Date: weekStart, MealType: common.SlotLunch, Description: "Soup"})
	ctx := context.Background()

	first, err := svc.GenerateGroceryList(ctx, "u1", weekStart)
	require.NoError(t, err)
	_, err = svc.ToggleItem(ctx, "u1", weekStart, 0)
	require.NoError(t, err)

	second, err := svc.GenerateGroceryList(ctx, "u1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []common.GroceryItem{{Name: "Milk"}}, second.Items)
	assert.Equal(t, []bool{false}, second.Checklist)
}

func TestGenerateGroceryList_BadIngredientExtractionFallsBackToName(t *testing.T) {
	svc, store, scripted := newService(t, "no idea", `[{"name": "Tortillas"}]`)
	insertMeal(t, store, common.MealRecord{Date: weekStart, MealType: common.SlotLunch, Description: "Tacos", Recipe: "Make tacos."})

	list, err := svc.GenerateGroceryList(context.Background(), "u1", weekStart)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
	assert.Contains(t, scripted.Calls()[1].Prompt, "Tacos: ingredients unknown")
}

func TestGenerateGroceryList_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	for _, tc := range [][2]string{{"", weekStart}, {"u1", ""}, {"u1", "10/19/2026"}} {
		_, err := svc.GenerateGroceryList(context.Background(), tc[0], tc[1])
		assert.True(t, common.IsValidationError(err), tc)
	}
}

func TestItemMutations(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", weekStart, common.GroceryItem{Name: "Eggs"})
	assert.ErrorIs(t, err, common.ErrGroceryListNotFound)

	require.NoError(t, store.SaveGroceryList(ctx, &common.GroceryList{
		UserID: "u1", WeekStart: weekStart,
		Items:     []common.GroceryItem{{Name: "Bread"}, {Name: "Butter"}},
		Checklist: []bool{true},
	}))

	list, err := svc.GetGroceryList(ctx, "u1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, list.Checklist)

	list, err = svc.AddItem(ctx, "u1", weekStart, common.GroceryItem{Name: " Eggs ", Quantity: "12"})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	assert.Equal(t, "Eggs", list.Items[2].Name)
	assert.Equal(t, []bool{true, false, false}, list.Checklist)

	list, err = svc.ToggleItem(ctx, "u1", weekStart, 2)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, list.Checklist)

	list, err = svc.UpdateItem(ctx, "u1", weekStart, 1, common.GroceryItem{Name: "Salted butter", Brand: "Kerrygold"})
	require.NoError(t, err)
	assert.Equal(t, "Kerrygold", list.Items[1].Brand)

	list, err = svc.RemoveItem(ctx, "u1", weekStart, 0)
	require.NoError(t, err)
	assert.Equal(t, []common.GroceryItem{{Name: "Salted butter", Brand: "Kerrygold"}, {Name: "Eggs", Quantity: "12"}}, list.Items)
	assert.Equal(t, []bool{false, true}, list.Checklist)

	_, err = svc.RemoveItem(ctx, "u1", weekStart, 5)
	assert.ErrorIs(t, err, common.ErrItemIndex)
	_, err = svc.ToggleItem(ctx, "u1", weekStart, -1)
	assert.ErrorIs(t, err, common.ErrItemIndex)
	_, err = svc.UpdateItem(ctx, "u1", weekStart, 0, common.GroceryItem{})
	assert.True(t, common.IsValidationError(err))

	stored, err := svc.GetGroceryList(ctx, "u1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, list.Items, stored.Items)
}

func TestGenerateGroceryList_UpstreamFailure(t *testing.T) {
	t.Run("list completion", func(t *testing.T) {
		svc, store, scripted := newService(t)
		scripted.FailAt(0, errors.New("connection reset"))
		insertMeal(t, store, common.MealRecord{Date: weekStart, MealType: common.SlotLunch, Description: "Soup"})

		_, err := svc.GenerateGroceryList(context.Background(), "u1", weekStart)
		assert.ErrorIs(t, err, common.ErrUpstream)
		status, body := common.ResolveError(err)
		assert.Equal(t, 500, status)
		assert.Equal(t, common.ErrCodeUpstream, body.Code)

		_, err = store.GetGroceryList(context.Background(), "u1", weekStart)
		assert.Error(t, err)
	})

	t.Run("ingredient extraction", func(t *testing.T) {
		svc, store, scripted := newService(t)
		scripted.FailAt(0, errors.New("timeout"))
		insertMeal(t, store, common.MealRecord{Date: weekStart, MealType: common.SlotLunch, Description: "Tacos", Recipe: "Make tacos."})

		_, err := svc.GenerateGroceryList(context.Background(), "u1", weekStart)
		assert.ErrorIs(t, err, common.ErrUpstream)
		assert.Len(t, scripted.Calls(), 1)
	})
}
