package preferences

import (
	"context"
	"testing"
	"time"

	"lifequest/internal/infrastructure/storage/memory"
	"lifequest/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return NewService(memory.New(now), now)
}

func TestService_Nutrition(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.GetNutrition(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrPreferencesNotFound)

	saved, err := s.SaveNutrition(ctx, common.NutritionPreferences{
		UserID:              " u1 ",
		Calories:            2000,
		Protein:             100,
		Carbs:               250,
		Fat:                 70,
		DietaryRestrictions: []string{"vegetarian", " ", "Vegetarian", "no nuts"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, []string{"vegetarian", "no nuts"}, saved.DietaryRestrictions)

	got, err := s.GetNutrition(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got.Calories)
	assert.Equal(t, 70.0, got.Fat)
}

func TestService_NutritionValidation(t *testing.T) {
	s := newService()
	tests := []struct {
		name  string
		prefs common.NutritionPreferences
	}{
		{"missing user", common.NutritionPreferences{Calories: 2000}},
		{"no calories", common.NutritionPreferences{UserID: "u1"}},
		{"negative macro", common.NutritionPreferences{UserID: "u1", Calories: 1800, Fat: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveNutrition(context.Background(), tt.prefs)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestService_News(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.SaveNews(ctx, common.NewsPreferences{UserID: "u1", Interests: []string{" "}})
	assert.True(t, common.IsValidationError(err))

	_, err = s.GetNews(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrPreferencesNotFound)

	_, err = s.SaveNews(ctx, common.NewsPreferences{UserID: "u1", Interests: []string{"technology", "space"}})
	require.NoError(t, err)

	got, err := s.GetNews(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"technology", "space"}, got.Interests)
}
