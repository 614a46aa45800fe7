// Package preferences 飲食問卷與新聞興趣的處理器
package preferences

import (
	"errors"
	"net/http"

	"lifequest/internal/api/handlers"
	"lifequest/internal/core/preferences"
	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Response 讀取偏好的回應，未設定的部分為 null
type Response struct {
	Nutrition *common.NutritionPreferences `json:"nutrition"`
	News      *common.NewsPreferences      `json:"news"`
}

// Handler 偏好處理器
type Handler struct {
	prefs *preferences.Service
}

// NewHandler 創建偏好處理器
func NewHandler(prefs *preferences.Service) *Handler {
	return &Handler{prefs: prefs}
}

// HandleSaveNutrition POST /save-preferences
func (h *Handler) HandleSaveNutrition(c *gin.Context) {
	var req common.NutritionPreferences
	if !handlers.BindJSON(c, &req) {
		return
	}

	saved, err := h.prefs.SaveNutrition(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// HandleSaveNews POST /save-news-preferences
func (h *Handler) HandleSaveNews(c *gin.Context) {
	var req common.NewsPreferences
	if !handlers.BindJSON(c, &req) {
		return
	}

	saved, err := h.prefs.SaveNews(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// HandleGet GET /preferences?user_id=，兩者皆未設定時 404
func (h *Handler) HandleGet(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Query("user_id")

	var resp Response
	nutrition, err := h.prefs.GetNutrition(ctx, userID)
	switch {
	case err == nil:
		resp.Nutrition = nutrition
	case !errors.Is(err, common.ErrPreferencesNotFound):
		handlers.RespondError(c, err)
		return
	}

	news, err := h.prefs.GetNews(ctx, userID)
	switch {
	case err == nil:
		resp.News = news
	case !errors.Is(err, common.ErrPreferencesNotFound):
		handlers.RespondError(c, err)
		return
	}

	if resp.Nutrition == nil && resp.News == nil {
		handlers.RespondError(c, common.ErrPreferencesNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}
