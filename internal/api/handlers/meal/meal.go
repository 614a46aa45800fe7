// Package meal 餐點計畫與記錄的處理器
package meal

import (
	"net/http"

	"lifequest/internal/api/handlers"
	"lifequest/internal/core/mealplan"
	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Handler 餐點處理器
type Handler struct {
	meals *mealplan.Service
}

// NewHandler 創建餐點處理器
func NewHandler(meals *mealplan.Service) *Handler {
	return &Handler{meals: meals}
}

// HandleGenerateMealPlan POST /generate-meal-plan
func (h *Handler) HandleGenerateMealPlan(c *gin.Context) {
	var req mealplan.MealPlanRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	result, err := h.meals.GenerateMealPlan(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleLogMeal POST /log-meal，201 回傳儲存後的紀錄
func (h *Handler) HandleLogMeal(c *gin.Context) {
	var req common.MealRecord
	if !handlers.BindJSON(c, &req) {
		return
	}

	meal, err := h.meals.LogMeal(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

// HandleListMeals GET /meals?user_id=&from=&to=
func (h *Handler) HandleListMeals(c *gin.Context) {
	meals, err := h.meals.ListMeals(c.Request.Context(), c.Query("user_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}
