package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SubjectKey gin context 中已驗證使用者的鍵
const SubjectKey = "auth_subject"

// Auth 驗證 HS256 Bearer token，且 sub 必須與請求的 user_id 相同；secret 為空時不啟用
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortWithError(c, common.ErrUnauthorized)
			return
		}

		var claims jwt.RegisteredClaims
		token, err := parser.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			common.LogWarn("Invalid token", zap.String("ip", c.ClientIP()), zap.Error(err))
			abortWithError(c, common.ErrUnauthorized)
			return
		}

		userID, err := requestUserID(c)
		if err != nil {
			abortWithError(c, common.ErrInvalidRequest)
			return
		}
		if userID != "" && userID != claims.Subject {
			common.LogWarn("Token subject does not match user_id",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			abortWithError(c, common.ErrForbidden)
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}

// requestUserID 從查詢參數或 JSON 請求體取得 user_id，讀取後會還原請求體
func requestUserID(c *gin.Context) (string, error) {
	if id := c.Query("user_id"); id != "" {
		return id, nil
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return "", nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// 非 JSON 請求體交由處理器驗證
		return "", nil
	}
	return strings.TrimSpace(payload.UserID), nil
}
