package upsert

import (
	"context"
	"fmt"
	"testing"

	"lifequest/internal/infrastructure/storage/memory"
	"lifequest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner = "u1"
	today = "2026-10-19"
)

func generated(slot common.MealSlot, name string) common.MealRecord {
	return common.MealRecord{UserID: owner, Date: today, MealType: slot, Description: name, Source: common.SourceGenerated}
}

func TestApply_InsertsFreeSlots(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	u := New(store, DefaultPolicy())

	res, err := u.Apply(ctx, []common.MealRecord{
		generated(common.SlotBreakfast, "Oats"),
		generated(common.SlotLunch, "Wrap"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Skipped)
	for _, rec := range res.Records() {
		assert.NotEmpty(t, rec.ID)
	}
}

func TestApply_OccupiedSlotIsSkippedAndUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	existing := &common.MealRecord{UserID: owner, Date: today, MealType: common.SlotBreakfast, Description: "Logged eggs", Source: common.SourceUser}
	require.NoError(t, store.InsertMeal(ctx, existing))

	u := New(store, DefaultPolicy())
	res, err := u.Apply(ctx, []common.MealRecord{generated(common.SlotBreakfast, "Pancakes")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, SkippedOccupied, res.Outcomes[0].Decision)
	assert.Equal(t, "Pancakes", res.Records()[0].Description)

	meals, err := store.ListMeals(ctx, owner, today, today)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, *existing, meals[0])
}

func TestApply_CustomSlotIsNotDeduplicated(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	u := New(store, DefaultPolicy())

	custom := common.MealRecord{UserID: owner, Date: today, MealType: common.SlotCustom, Description: "Toast", Source: common.SourceFindRecipe}
	_, err := u.Apply(ctx, []common.MealRecord{custom, custom})
	require.NoError(t, err)

	meals, err := store.ListMeals(ctx, owner, today, today)
	require.NoError(t, err)
	assert.Len(t, meals, 2)
}

func TestCheckCapacity(t *testing.T) {
	tests := []struct {
		name     string
		yester   int
		today    int
		wantErr  error
		wantSeen Counts
	}{
		{"below caps", 2, 2, nil, Counts{Daily: 2, Lifetime: 4}},
		{"daily cap", 0, 5, common.ErrDailyCapReached, Counts{Daily: 5, Lifetime: 5}},
		{"lifetime cap", 8, 2, common.ErrLifetimeCapReached, Counts{Daily: 2, Lifetime: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New(nil)
			seed(t, store, "2026-10-18", tt.yester)
			seed(t, store, today, tt.today)

			counts, err := New(store, DefaultPolicy()).CheckCapacity(ctx, owner, today)
			assert.Equal(t, tt.wantSeen, counts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckReplaceCapacity(t *testing.T) {
	tests := []struct {
		name    string
		source  common.Source
		wantErr error
	}{
		{"generated occupant is not counted", common.SourceGenerated, nil},
		{"logged occupant leaves cap reached", common.SourceUser, common.ErrDailyCapReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New(nil)
			seed(t, store, today, 4)
			lunch := generated(common.SlotLunch, "Wrap")
			lunch.Source = tt.source
			require.NoError(t, store.InsertMeal(ctx, &lunch))
			if tt.source != common.SourceGenerated {
				seed(t, store, today, 1)
			}

			u := New(store, DefaultPolicy())
			_, err := u.CheckCapacity(ctx, owner, today)
			assert.ErrorIs(t, err, common.ErrDailyCapReached)

			_, err = u.CheckReplaceCapacity(ctx, owner, today, common.SlotLunch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApply_LifetimeCapFailsWholeBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	seed(t, store, "2026-10-17", 5)
	seed(t, store, "2026-10-18", 5)

	u := New(store, DefaultPolicy())
	res, err := u.Apply(ctx, []common.MealRecord{generated(common.SlotDinner, "Curry")})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, common.ErrLifetimeCapReached)

	_, lifetime, err := store.CountGeneratedMeals(ctx, owner, today)
	require.NoError(t, err)
	assert.Equal(t, 10, lifetime)
}

func TestApply_RunningCountStopsMidBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	seed(t, store, "2026-10-18", 8)

	u := New(store, DefaultPolicy())
	res, err := u.Apply(ctx, []common.MealRecord{
		generated(common.SlotBreakfast, "Oats"),
		generated(common.SlotLunch, "Wrap"),
		generated(common.SlotSnack, "Apple"),
		generated(common.SlotDinner, "Curry"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, SkippedCap, res.Outcomes[3].Decision)
	assert.Len(t, res.Records(), 4)
}

func seed(t *testing.T, store *memory.Store, date string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.InsertMeal(context.Background(), &common.MealRecord{
			UserID: owner, Date: date, MealType: common.SlotCustom,
			Description: fmt.Sprintf("seed %d", i), Source: common.SourceGenerated,
		})
		require.NoError(t, err)
	}
}
