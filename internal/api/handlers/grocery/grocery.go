// Package grocery 每週採購清單的處理器
package grocery

import (
	"net/http"

	"lifequest/internal/api/handlers"
	"lifequest/internal/core/grocery"
	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// GenerateRequest 生成採購清單請求，週起始日接受兩種寫法
type GenerateRequest struct {
	UserID       string `json:"user_id"`
	WeekStart    string `json:"week_start"`
	WeekStartAlt string `json:"weekStart"`
}

func (r GenerateRequest) weekStart() string {
	if r.WeekStart != "" {
		return r.WeekStart
	}
	return r.WeekStartAlt
}

// ItemRequest 清單項目操作請求
type ItemRequest struct {
	UserID    string             `json:"user_id"`
	WeekStart string             `json:"week_start"`
	Index     int                `json:"index"`
	Item      common.GroceryItem `json:"item"`
}

// Handler 採購清單處理器
type Handler struct {
	lists *grocery.Service
}

// NewHandler 創建採購清單處理器
func NewHandler(lists *grocery.Service) *Handler {
	return &Handler{lists: lists}
}

// HandleGenerate POST /generate-grocery-list
func (h *Handler) HandleGenerate(c *gin.Context) {
	var req GenerateRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	list, err := h.lists.GenerateGroceryList(c.Request.Context(), req.UserID, req.weekStart())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HandleGet GET /grocery-list?user_id=&week_start=
func (h *Handler) HandleGet(c *gin.Context) {
	list, err := h.lists.GetGroceryList(c.Request.Context(), c.Query("user_id"), c.Query("week_start"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HandleAddItem POST /grocery-list/item/add
func (h *Handler) HandleAddItem(c *gin.Context) {
	h.handleItem(c, func(req ItemRequest) (*common.GroceryList, error) {
		return h.lists.AddItem(c.Request.Context(), req.UserID, req.WeekStart, req.Item)
	})
}

// HandleUpdateItem POST /grocery-list/item/update
func (h *Handler) HandleUpdateItem(c *gin.Context) {
	h.handleItem(c, func(req ItemRequest) (*common.GroceryList, error) {
		return h.lists.UpdateItem(c.Request.Context(), req.UserID, req.WeekStart, req.Index, req.Item)
	})
}

// HandleRemoveItem POST /grocery-list/item/remove
func (h *Handler) HandleRemoveItem(c *gin.Context) {
	h.handleItem(c, func(req ItemRequest) (*common.GroceryList, error) {
		return h.lists.RemoveItem(c.Request.Context(), req.UserID, req.WeekStart, req.Index)
	})
}

// HandleToggleItem POST /grocery-list/item/toggle
func (h *Handler) HandleToggleItem(c *gin.Context) {
	h.handleItem(c, func(req ItemRequest) (*common.GroceryList, error) {
		return h.lists.ToggleItem(c.Request.Context(), req.UserID, req.WeekStart, req.Index)
	})
}

func (h *Handler) handleItem(c *gin.Context, op func(ItemRequest) (*common.GroceryList, error)) {
	var req ItemRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	list, err := op(req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
