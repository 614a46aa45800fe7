// Package handlers 提供各處理器共用的請求綁定與錯誤回應
package handlers

import (
	"net/http"

	"lifequest/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BindJSON 綁定請求體，失敗時直接回應 400
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
		)
		RespondError(c, common.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// RespondError 將錯誤轉為 {error, code} 回應，5xx 的原因只寫入日誌
func RespondError(c *gin.Context, err error) {
	status, body := common.ResolveError(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("code", body.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求被拒絕", fields...)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// MethodNotAllowed 405 回應
func MethodNotAllowed(c *gin.Context) {
	RespondError(c, common.ErrMethodNotAllowed)
}

// NotFound 404 回應
func NotFound(c *gin.Context) {
	RespondError(c, common.ErrNotFound)
}
