// Package news 每日新聞摘要的處理器
package news

import (
	"net/http"

	"lifequest/internal/api/handlers"
	"lifequest/internal/core/news"

	"github.com/gin-gonic/gin"
)

// Handler 新聞摘要處理器
type Handler struct {
	feed *news.Service
}

// NewHandler 創建新聞摘要處理器
func NewHandler(feed *news.Service) *Handler {
	return &Handler{feed: feed}
}

// HandleGenerate POST /generate-news-feed
func (h *Handler) HandleGenerate(c *gin.Context) {
	var req news.NewsFeedRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	items, err := h.feed.GenerateNewsFeed(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleToday GET /news-feed?user_id=
func (h *Handler) HandleToday(c *gin.Context) {
	items, err := h.feed.TodayDigest(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
