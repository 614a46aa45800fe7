package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"

	"github.com/jackc/pgx/v5"
)

var _ storage.Store = (*Store)(nil)

// Store PostgreSQL 儲存
type Store struct {
	db    DatabaseIface
	clock common.Clock
}

// New 建立 PostgreSQL 儲存
func New(db DatabaseIface, clock common.Clock) *Store {
	return &Store{db: db, clock: clock}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *Store) Close() { s.db.Close() }

const mealColumns = `id, user_id, to_char(date, 'YYYY-MM-DD'), meal_type, description,
	calories, protein, carbs, fat, serving_size, recipe, ingredients, tags, source, created_at`

func scanMeal(row pgx.Row) (common.MealRecord, error) {
	var (
		m           common.MealRecord
		slot        string
		source      string
		ingredients []byte
	)
	err := row.Scan(&m.ID, &m.UserID, &m.Date, &slot, &m.Description,
		&m.Calories, &m.Protein, &m.Carbs, &m.Fat, &m.ServingSize, &m.Recipe,
		&ingredients, &m.Tags, &source, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	m.MealType = common.MealSlot(slot)
	m.Source = common.Source(source)
	if len(m.Tags) == 0 {
		m.Tags = nil
	}
	if err := unmarshalList(ingredients, &m.Ingredients); err != nil {
		return m, fmt.Errorf("failed to decode ingredients: %w", err)
	}
	return m, nil
}

// FindMeal 精確查詢 (user, date, slot)
func (s *Store) FindMeal(ctx context.Context, userID, date string, slot common.MealSlot) (*common.MealRecord, error) {
	query := `SELECT ` + mealColumns + ` FROM meals
		WHERE user_id = $1 AND date = $2::date AND meal_type = $3
		ORDER BY created_at LIMIT 1`

	m, err := scanMeal(s.db.QueryRow(ctx, query, userID, date, string(slot)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meal: %w", err)
	}
	return &m, nil
}

// InsertMeal 新增餐點
func (s *Store) InsertMeal(ctx context.Context, meal *common.MealRecord) error {
	if meal.ID == "" {
		meal.ID = common.GenerateUUID()
	}
	meal.CreatedAt = s.clock.Now().UTC()

	ingredients, err := marshalList(meal.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to encode ingredients: %w", err)
	}
	tags := meal.Tags
	if tags == nil {
		tags = []string{}
	}

	query := `INSERT INTO meals (
			id, user_id, date, meal_type, description, calories, protein, carbs, fat,
			serving_size, recipe, ingredients, tags, source, created_at
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = s.db.Exec(ctx, query,
		meal.ID, meal.UserID, meal.Date, string(meal.MealType), meal.Description,
		meal.Calories, meal.Protein, meal.Carbs, meal.Fat,
		meal.ServingSize, meal.Recipe, ingredients, tags, string(meal.Source), meal.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

// DeleteMealSlot 刪除某日某餐別
func (s *Store) DeleteMealSlot(ctx context.Context, userID, date string, slot common.MealSlot) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM meals WHERE user_id = $1 AND date = $2::date AND meal_type = $3`,
		userID, date, string(slot))
	if err != nil {
		return 0, fmt.Errorf("failed to delete meal: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountGeneratedMeals 計算 AI 生成的餐點數
func (s *Store) CountGeneratedMeals(ctx context.Context, userID, date string) (int, int, error) {
	query := `SELECT COUNT(*) FILTER (WHERE date = $2::date), COUNT(*)
		FROM meals WHERE user_id = $1 AND source = $3`

	var daily, lifetime int
	if err := s.db.QueryRow(ctx, query, userID, date, string(common.SourceGenerated)).Scan(&daily, &lifetime); err != nil {
		return 0, 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return daily, lifetime, nil
}

// ListMeals 依日期區間列出餐點
func (s *Store) ListMeals(ctx context.Context, userID, from, to string) ([]common.MealRecord, error) {
	query := `SELECT ` + mealColumns + ` FROM meals
		WHERE user_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date,
			CASE meal_type WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 WHEN 'snack' THEN 2 WHEN 'dinner' THEN 3 ELSE 4 END,
			created_at`

	rows, err := s.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	meals := []common.MealRecord{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return meals, nil
}

const recipeColumns = `id, user_id, name, ingredients, recipe, serving_size, calories, protein, carbs, fat, created_at`

func scanRecipe(row pgx.Row) (common.RecipeRecord, error) {
	var (
		r           common.RecipeRecord
		ingredients []byte
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &ingredients, &r.Recipe, &r.ServingSize,
		&r.Calories, &r.Protein, &r.Carbs, &r.Fat, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	if err := unmarshalList(ingredients, &r.Ingredients); err != nil {
		return r, fmt.Errorf("failed to decode ingredients: %w", err)
	}
	return r, nil
}

// FindRecipeByName 依名稱查詢（不分大小寫）
func (s *Store) FindRecipeByName(ctx context.Context, userID, name string) (*common.RecipeRecord, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes
		WHERE user_id = $1 AND lower(name) = lower($2) LIMIT 1`

	r, err := scanRecipe(s.db.QueryRow(ctx, query, userID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	return &r, nil
}

// InsertRecipe 新增食譜
func (s *Store) InsertRecipe(ctx context.Context, recipe *common.RecipeRecord) error {
	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	recipe.CreatedAt = s.clock.Now().UTC()

	ingredients, err := marshalList(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to encode ingredients: %w", err)
	}

	query := `INSERT INTO recipes (
			id, user_id, name, ingredients, recipe, serving_size, calories, protein, carbs, fat, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = s.db.Exec(ctx, query,
		recipe.ID, recipe.UserID, recipe.Name, ingredients, recipe.Recipe, recipe.ServingSize,
		recipe.Calories, recipe.Protein, recipe.Carbs, recipe.Fat, recipe.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// DeleteRecipe 刪除食譜
func (s *Store) DeleteRecipe(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM recipes WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRecipes 依建立時間列出食譜
func (s *Store) ListRecipes(ctx context.Context, userID string) ([]common.RecipeRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []common.RecipeRecord{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// GetGroceryList 取得某週清單
func (s *Store) GetGroceryList(ctx context.Context, userID, weekStart string) (*common.GroceryList, error) {
	query := `SELECT id, user_id, to_char(week_start, 'YYYY-MM-DD'), items, checklist, updated_at
		FROM grocery_lists WHERE user_id = $1 AND week_start = $2::date`

	var (
		list             common.GroceryList
		items, checklist []byte
	)
	err := s.db.QueryRow(ctx, query, userID, weekStart).
		Scan(&list.ID, &list.UserID, &list.WeekStart, &items, &checklist, &list.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grocery list: %w", err)
	}
	if err := unmarshalList(items, &list.Items); err != nil {
		return nil, fmt.Errorf("failed to decode grocery items: %w", err)
	}
	if err := unmarshalList(checklist, &list.Checklist); err != nil {
		return nil, fmt.Errorf("failed to decode checklist: %w", err)
	}
	return &list, nil
}

// SaveGroceryList 依 (user, week_start) 整份覆寫
func (s *Store) SaveGroceryList(ctx context.Context, list *common.GroceryList) error {
	if list.ID == "" {
		list.ID = common.GenerateUUID()
	}
	list.UpdatedAt = s.clock.Now().UTC()

	items, err := marshalList(list.Items)
	if err != nil {
		return fmt.Errorf("failed to encode grocery items: %w", err)
	}
	checklist, err := marshalList(list.Checklist)
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}

	query := `INSERT INTO grocery_lists (id, user_id, week_start, items, checklist, updated_at)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		ON CONFLICT (user_id, week_start) DO UPDATE
		SET items = EXCLUDED.items, checklist = EXCLUDED.checklist, updated_at = EXCLUDED.updated_at
		RETURNING id`

	var id string
	err = s.db.QueryRow(ctx, query, list.ID, list.UserID, list.WeekStart, items, checklist, list.UpdatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to save grocery list: %w", err)
	}
	list.ID = id
	return nil
}

// DeleteDigest 刪除某日所有摘要
func (s *Store) DeleteDigest(ctx context.Context, userID, day string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM news_digest_items WHERE user_id = $1 AND delivered_on = $2::date`, userID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to delete digest: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertDigestItems 逐筆新增摘要，失敗時已寫入的項目保留
func (s *Store) InsertDigestItems(ctx context.Context, items []common.NewsDigestItem) error {
	query := `INSERT INTO news_digest_items (id, user_id, headline, summary, url, source_name, delivered_on, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8)`

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = common.GenerateUUID()
		}
		_, err := s.db.Exec(ctx, query, item.ID, item.UserID, item.Headline, item.Summary,
			item.URL, item.SourceName, item.DeliveredOn, item.DeliveredAt)
		if err != nil {
			return fmt.Errorf("failed to insert digest item %d: %w", i, err)
		}
	}
	return nil
}

// ListDigest 依遞送時間排序列出某日摘要
func (s *Store) ListDigest(ctx context.Context, userID, day string) ([]common.NewsDigestItem, error) {
	query := `SELECT id, user_id, headline, summary, url, source_name, to_char(delivered_on, 'YYYY-MM-DD'), delivered_at
		FROM news_digest_items WHERE user_id = $1 AND delivered_on = $2::date
		ORDER BY delivered_at`

	rows, err := s.db.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest: %w", err)
	}
	defer rows.Close()

	items := []common.NewsDigestItem{}
	for rows.Next() {
		var item common.NewsDigestItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Headline, &item.Summary,
			&item.URL, &item.SourceName, &item.DeliveredOn, &item.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan digest item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list digest: %w", err)
	}
	return items, nil
}

func (s *Store) GetNutritionPreferences(ctx context.Context, userID string) (*common.NutritionPreferences, error) {
	query := `SELECT user_id, calories, protein, carbs, fat, dietary_restrictions, cuisines, notes, updated_at
		FROM nutrition_preferences WHERE user_id = $1`

	var p common.NutritionPreferences
	err := s.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Calories, &p.Protein, &p.Carbs, &p.Fat,
		&p.DietaryRestrictions, &p.Cuisines, &p.Notes, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition preferences: %w", err)
	}
	return &p, nil
}

func (s *Store) SaveNutritionPreferences(ctx context.Context, p *common.NutritionPreferences) error {
	p.UpdatedAt = s.clock.Now().UTC()

	query := `INSERT INTO nutrition_preferences
			(user_id, calories, protein, carbs, fat, dietary_restrictions, cuisines, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			calories = EXCLUDED.calories, protein = EXCLUDED.protein, carbs = EXCLUDED.carbs, fat = EXCLUDED.fat,
			dietary_restrictions = EXCLUDED.dietary_restrictions, cuisines = EXCLUDED.cuisines,
			notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`

	_, err := s.db.Exec(ctx, query, p.UserID, p.Calories, p.Protein, p.Carbs, p.Fat,
		nonNil(p.DietaryRestrictions), nonNil(p.Cuisines), p.Notes, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save nutrition preferences: %w", err)
	}
	return nil
}

func (s *Store) GetNewsPreferences(ctx context.Context, userID string) (*common.NewsPreferences, error) {
	var p common.NewsPreferences
	err := s.db.QueryRow(ctx,
		`SELECT user_id, interests, sources, updated_at FROM news_preferences WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Interests, &p.Sources, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get news preferences: %w", err)
	}
	return &p, nil
}

func (s *Store) SaveNewsPreferences(ctx context.Context, p *common.NewsPreferences) error {
	p.UpdatedAt = s.clock.Now().UTC()

	query := `INSERT INTO news_preferences (user_id, interests, sources, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			interests = EXCLUDED.interests, sources = EXCLUDED.sources, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, query, p.UserID, nonNil(p.Interests), nonNil(p.Sources), p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save news preferences: %w", err)
	}
	return nil
}

// marshalList 將切片編碼為 JSONB，nil 視為空陣列
func marshalList[T any](v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}

func unmarshalList[T any](data []byte, out *[]T) error {
	if len(data) == 0 || string(data) == "null" {
		*out = nil
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	if len(*out) == 0 {
		*out = nil
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
