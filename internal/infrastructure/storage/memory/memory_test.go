package memory

import (
	"context"
	"testing"
	"time"

	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MealLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	require.NoError(t, s.InsertMeal(ctx, &common.MealRecord{UserID: "u1", Date: "2026-10-19", MealType: common.SlotDinner, Description: "Curry", Source: common.SourceGenerated}))
	require.NoError(t, s.InsertMeal(ctx, &common.MealRecord{UserID: "u1", Date: "2026-10-19", MealType: common.SlotBreakfast, Description: "Oats", Source: common.SourceUser}))
	require.NoError(t, s.InsertMeal(ctx, &common.MealRecord{UserID: "u1", Date: "2026-10-18", MealType: common.SlotLunch, Description: "Wrap", Source: common.SourceGenerated}))

	m, err := s.FindMeal(ctx, "u1", "2026-10-19", common.SlotDinner)
	require.NoError(t, err)
	assert.Equal(t, "Curry", m.Description)
	assert.NotEmpty(t, m.ID)

	daily, lifetime, err := s.CountGeneratedMeals(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 1, daily)
	assert.Equal(t, 2, lifetime)

	meals, err := s.ListMeals(ctx, "u1", "2026-10-18", "2026-10-19")
	require.NoError(t, err)
	require.Len(t, meals, 3)
	assert.Equal(t, "Wrap", meals[0].Description)
	assert.Equal(t, "Oats", meals[1].Description)
	assert.Equal(t, "Curry", meals[2].Description)

	n, err := s.DeleteMealSlot(ctx, "u1", "2026-10-19", common.SlotDinner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = s.FindMeal(ctx, "u1", "2026-10-19", common.SlotDinner)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_GroceryListIsCopied(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	list := &common.GroceryList{UserID: "u1", WeekStart: "2026-10-19", Items: []common.GroceryItem{{Name: "eggs"}}, Checklist: []bool{false}}
	require.NoError(t, s.SaveGroceryList(ctx, list))
	firstID := list.ID

	got, err := s.GetGroceryList(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	got.Checklist[0] = true

	again, err := s.GetGroceryList(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	assert.False(t, again.Checklist[0])

	require.NoError(t, s.SaveGroceryList(ctx, &common.GroceryList{UserID: "u1", WeekStart: "2026-10-19"}))
	again, err = s.GetGroceryList(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, firstID, again.ID)
	assert.Empty(t, again.Items)
}

func TestStore_DigestOrderedByDelivery(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	base := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDigestItems(ctx, []common.NewsDigestItem{
		{UserID: "u1", Headline: "second", DeliveredOn: "2026-10-19", DeliveredAt: base.Add(time.Second)},
		{UserID: "u1", Headline: "first", DeliveredOn: "2026-10-19", DeliveredAt: base},
		{UserID: "u1", Headline: "yesterday", DeliveredOn: "2026-10-18", DeliveredAt: base.Add(-24 * time.Hour)},
	}))

	items, err := s.ListDigest(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Headline)
	assert.Equal(t, "second", items[1].Headline)

	n, err := s.DeleteDigest(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err = s.ListDigest(ctx, "u1", "2026-10-18")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_RecipeByNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	require.NoError(t, s.InsertRecipe(ctx, &common.RecipeRecord{UserID: "u1", Name: "Lentil Curry"}))
	r, err := s.FindRecipeByName(ctx, "u1", "lentil curry")
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecipe(ctx, "u1", r.ID))
	assert.ErrorIs(t, s.DeleteRecipe(ctx, "u1", r.ID), storage.ErrNotFound)
}
