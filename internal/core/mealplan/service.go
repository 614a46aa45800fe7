// Package mealplan 餐點計畫、記錄與食譜的生成流程
package mealplan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lifequest/internal/core/ai"
	"lifequest/internal/core/ai/extract"
	"lifequest/internal/core/normalize"
	"lifequest/internal/core/upsert"
	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Store 餐點流程需要的儲存能力
type Store interface {
	storage.MealStore
	storage.RecipeStore
	storage.PreferenceStore
}

// MealPlanRequest 生成（或重新生成單一餐別）請求
type MealPlanRequest struct {
	UserID   string `json:"user_id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	Feedback string `json:"regenerate_feedback"`
}

// MealPlanResult 所有候選餐點（含未寫入者）與寫入統計
type MealPlanResult struct {
	Meals    []common.MealRecord `json:"meals"`
	Inserted int                 `json:"inserted"`
	Skipped  int                 `json:"skipped"`
}

// FindRecipeRequest 食譜查詢請求
type FindRecipeRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
}

// FindRecipeResult 當日餐點與食譜紀錄
type FindRecipeResult struct {
	Meal   common.MealRecord   `json:"meal"`
	Recipe common.RecipeRecord `json:"recipe"`
}

// Service 餐點服務
// --------------------------------------------------
type Service struct {
	completer ai.Completer
	store     Store
	upserter  *upsert.Upserter
	clock     common.Clock
}

// NewService 創建餐點服務
func NewService(completer ai.Completer, store Store, upserter *upsert.Upserter, clock common.Clock) *Service {
	return &Service{
		completer: completer,
		store:     store,
		upserter:  upserter,
		clock:     clock,
	}
}

// GenerateMealPlan 依飲食偏好生成當日餐點；指定固定餐別時先刪除該餐別再只生成該餐
func (s *Service) GenerateMealPlan(ctx context.Context, req MealPlanRequest) (result *MealPlanResult, err error) {
	defer func() { metrics.RecordGeneration("meal_plan", err) }()

	// 驗證必要欄位
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}
	slots := common.FixedSlots
	var scoped common.MealSlot
	if strings.TrimSpace(req.MealType) != "" {
		slot, ok := common.ParseSlot(req.MealType)
		if !ok || !slot.IsFixed() {
			return nil, common.NewValidationError("meal_type must be one of breakfast, lunch, snack, dinner")
		}
		scoped = slot
		slots = []common.MealSlot{slot}
	}

	prefs, err := s.store.GetNutritionPreferences(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, common.ErrPreferencesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load nutrition preferences: %w", err)
	}

	// 先確認容量並取得新餐點，成功後才取代原有紀錄
	if scoped != "" {
		_, err = s.upserter.CheckReplaceCapacity(ctx, userID, date, scoped)
	} else {
		_, err = s.upserter.CheckCapacity(ctx, userID, date)
	}
	if err != nil {
		return nil, err
	}

	prompt := buildPlanPrompt(prefs, date, slots, strings.TrimSpace(req.Feedback))
	text, err := s.completer.Complete(ctx, prompt, ai.WithPurpose("meal_plan"))
	if err != nil {
		return nil, common.WrapUpstream(err)
	}

	payload, err := extract.Extract(text, extract.ShapeArray)
	if err != nil {
		return nil, extract.WrapFailure("meal_plan", err)
	}
	meals := normalize.Meals(payload.Records(), normalize.MealOptions{AllowedSlots: slots})
	if len(meals) == 0 {
		return nil, extract.WrapFailure("meal_plan", errors.New("no usable meal records in response"))
	}
	for i := range meals {
		meals[i].ID = ""
		meals[i].UserID = userID
		meals[i].Date = date
		meals[i].Source = common.SourceGenerated
	}

	if scoped != "" {
		deleted, err := s.store.DeleteMealSlot(ctx, userID, date, scoped)
		if err != nil {
			return nil, fmt.Errorf("clear %s: %w", scoped, err)
		}
		common.LogInfo("重新生成餐別",
			zap.String("user_id", userID),
			zap.String("date", date),
			zap.String("meal_type", string(scoped)),
			zap.Int64("deleted", deleted),
		)
	}

	applied, err := s.upserter.Apply(ctx, meals)
	if err != nil {
		return nil, err
	}

	return &MealPlanResult{
		Meals:    applied.Records(),
		Inserted: applied.Inserted,
		Skipped:  applied.Skipped,
	}, nil
}

// LogMeal 使用者手動記錄餐點，固定餐別會取代當日同餐別的紀錄
func (s *Service) LogMeal(ctx context.Context, meal common.MealRecord) (*common.MealRecord, error) {
	meal.UserID = strings.TrimSpace(meal.UserID)
	meal.Description = strings.TrimSpace(meal.Description)
	if meal.UserID == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	if meal.Description == "" {
		return nil, common.NewValidationError("description is required")
	}
	slot, ok := common.ParseSlot(string(meal.MealType))
	if !ok {
		return nil, common.NewValidationError("meal_type must be one of breakfast, lunch, snack, dinner, custom")
	}
	if err := validateMacros(meal.Macros); err != nil {
		return nil, err
	}
	date, err := s.resolveDate(meal.Date)
	if err != nil {
		return nil, err
	}

	meal.ID = ""
	meal.MealType = slot
	meal.Date = date
	meal.Source = common.SourceUser

	if err := s.replaceMeal(ctx, &meal); err != nil {
		return nil, err
	}
	metrics.RecordAction("meal", "logged")

	if _, _, err := s.ensureRecipe(ctx, common.RecipeFromMeal(meal)); err != nil {
		return nil, err
	}
	return &meal, nil
}

// FindRecipe 以模型生成一份食譜，同時寫入當日餐點與食譜庫
func (s *Service) FindRecipe(ctx context.Context, req FindRecipeRequest) (result *FindRecipeResult, err error) {
	defer func() { metrics.RecordGeneration("find_recipe", err) }()

	userID := strings.TrimSpace(req.UserID)
	query := strings.TrimSpace(req.Query)
	if userID == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	if query == "" {
		return nil, common.NewValidationError("query is required")
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}
	var requested common.MealSlot
	if strings.TrimSpace(req.MealType) != "" {
		slot, ok := common.ParseSlot(req.MealType)
		if !ok {
			return nil, common.NewValidationError("meal_type must be one of breakfast, lunch, snack, dinner, custom")
		}
		requested = slot
	}

	// 偏好非必要
	prefs, err := s.store.GetNutritionPreferences(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load nutrition preferences: %w", err)
	}

	text, err := s.completer.Complete(ctx, buildFindPrompt(query, requested, prefs), ai.WithPurpose("find_recipe"))
	if err != nil {
		return nil, common.WrapUpstream(err)
	}
	payload, err := extract.Extract(text, extract.ShapeObject)
	if err != nil {
		return nil, extract.WrapFailure("find_recipe", err)
	}
	rec, ok := payload.First()
	if !ok {
		return nil, extract.WrapFailure("find_recipe", errors.New("no recipe object in response"))
	}

	meal := normalize.Meal(rec, common.SlotCustom)
	if requested != "" {
		meal.MealType = requested
	}
	if !meal.MealType.Valid() {
		meal.MealType = common.SlotCustom
	}
	if meal.Description == "" {
		meal.Description = query
	}
	meal.ID = ""
	meal.UserID = userID
	meal.Date = date
	meal.Source = common.SourceFindRecipe

	if err := s.replaceMeal(ctx, &meal); err != nil {
		return nil, err
	}
	metrics.RecordAction("meal", "found")

	recipe, _, err := s.ensureRecipe(ctx, common.RecipeFromMeal(meal))
	if err != nil {
		return nil, err
	}
	return &FindRecipeResult{Meal: meal, Recipe: *recipe}, nil
}

// SaveRecipe 儲存食譜；同名食譜已存在時回傳既有紀錄與 false
func (s *Service) SaveRecipe(ctx context.Context, recipe common.RecipeRecord) (*common.RecipeRecord, bool, error) {
	recipe.UserID = strings.TrimSpace(recipe.UserID)
	recipe.Name = strings.TrimSpace(recipe.Name)
	if recipe.UserID == "" {
		return nil, false, common.NewValidationError("user_id is required")
	}
	if recipe.Name == "" {
		return nil, false, common.NewValidationError("name is required")
	}
	if err := validateMacros(recipe.Macros); err != nil {
		return nil, false, err
	}
	recipe.ID = ""
	return s.ensureRecipe(ctx, recipe)
}

// DeleteRecipe 刪除食譜
func (s *Service) DeleteRecipe(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return common.NewValidationError("user_id and id are required")
	}
	err := s.store.DeleteRecipe(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return common.ErrRecipeNotFound
	}
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	metrics.RecordAction("recipe", "deleted")
	return nil
}

// ListRecipes 列出使用者的食譜
func (s *Service) ListRecipes(ctx context.Context, userID string) ([]common.RecipeRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	return s.store.ListRecipes(ctx, userID)
}

// ListMeals 列出日期區間內的餐點，未指定時為今日
func (s *Service) ListMeals(ctx context.Context, userID, from, to string) ([]common.MealRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.NewValidationError("user_id is required")
	}
	from, err := s.resolveDate(from)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(to) == "" {
		to = from
	}
	to, err = common.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if to < from {
		return nil, common.NewValidationError("to must not be before from")
	}
	return s.store.ListMeals(ctx, userID, from, to)
}

// replaceMeal 固定餐別先刪除當日同餐別再寫入
func (s *Service) replaceMeal(ctx context.Context, meal *common.MealRecord) error {
	if meal.MealType.IsFixed() {
		if _, err := s.store.DeleteMealSlot(ctx, meal.UserID, meal.Date, meal.MealType); err != nil {
			return fmt.Errorf("clear %s: %w", meal.MealType, err)
		}
	}
	if err := s.store.InsertMeal(ctx, meal); err != nil {
		return fmt.Errorf("insert meal: %w", err)
	}
	return nil
}

// ensureRecipe 同名食譜不存在時才寫入
func (s *Service) ensureRecipe(ctx context.Context, recipe common.RecipeRecord) (*common.RecipeRecord, bool, error) {
	existing, err := s.store.FindRecipeByName(ctx, recipe.UserID, recipe.Name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup recipe: %w", err)
	}
	if err := s.store.InsertRecipe(ctx, &recipe); err != nil {
		return nil, false, fmt.Errorf("insert recipe: %w", err)
	}
	metrics.RecordAction("recipe", "saved")
	return &recipe, true, nil
}

func (s *Service) resolveDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return s.clock.Today(), nil
	}
	return common.ParseDate(raw)
}

func validateMacros(m common.Macros) error {
	for _, v := range []*float64{m.Calories, m.Protein, m.Carbs, m.Fat} {
		if v != nil && *v < 0 {
			return common.NewValidationError("macro values must not be negative")
		}
	}
	return nil
}
