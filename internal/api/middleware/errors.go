package middleware

import (
	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// abortWithError 以統一的 {error, code} 格式中止請求
func abortWithError(c *gin.Context, err error) {
	status, body := common.ResolveError(err)
	c.AbortWithStatusJSON(status, body)
}
