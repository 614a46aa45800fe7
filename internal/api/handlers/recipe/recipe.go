// Package recipe 食譜查詢、儲存與搜尋的處理器
package recipe

import (
	"context"
	"net/http"

	"lifequest/internal/api/handlers"
	"lifequest/internal/core/mealplan"
	"lifequest/internal/infrastructure/edamam"
	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Searcher 食譜/營養搜尋 API
type Searcher interface {
	Search(ctx context.Context, params edamam.SearchParams) ([]edamam.Hit, error)
}

// DeleteRecipeRequest 刪除食譜請求
type DeleteRecipeRequest struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

// SearchRecipesRequest 搜尋請求
type SearchRecipesRequest struct {
	UserID string `json:"user_id"`
	edamam.SearchParams
}

// Handler 食譜處理器
type Handler struct {
	meals    *mealplan.Service
	searcher Searcher
}

// NewHandler 創建食譜處理器
func NewHandler(meals *mealplan.Service, searcher Searcher) *Handler {
	return &Handler{meals: meals, searcher: searcher}
}

// HandleFindRecipe POST /find-recipe，201 回傳當日餐點與食譜
func (h *Handler) HandleFindRecipe(c *gin.Context) {
	var req mealplan.FindRecipeRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	result, err := h.meals.FindRecipe(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// HandleSaveRecipe POST /save-recipe，新增時 201，同名已存在時 200
func (h *Handler) HandleSaveRecipe(c *gin.Context) {
	var req common.RecipeRecord
	if !handlers.BindJSON(c, &req) {
		return
	}

	recipe, created, err := h.meals.SaveRecipe(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, recipe)
}

// HandleDeleteRecipe POST /delete-recipe
func (h *Handler) HandleDeleteRecipe(c *gin.Context) {
	var req DeleteRecipeRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	if err := h.meals.DeleteRecipe(c.Request.Context(), req.UserID, req.ID); err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": req.ID})
}

// HandleListRecipes GET /recipes?user_id=
func (h *Handler) HandleListRecipes(c *gin.Context) {
	recipes, err := h.meals.ListRecipes(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// HandleSearchRecipes POST /search-recipes，代理食譜搜尋 API
func (h *Handler) HandleSearchRecipes(c *gin.Context) {
	var req SearchRecipesRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	if req.MinCalories < 0 || req.MaxCalories < 0 || (req.MaxCalories > 0 && req.MinCalories > req.MaxCalories) {
		handlers.RespondError(c, common.NewValidationError("invalid calorie range"))
		return
	}

	hits, err := h.searcher.Search(c.Request.Context(), req.SearchParams)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("食譜搜尋完成",
		zap.String("query", req.Query),
		zap.Int("hits", len(hits)),
	)
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}
