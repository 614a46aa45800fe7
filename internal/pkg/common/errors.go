package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Error string `json:"error"`          // 錯誤信息
	Code  string `json:"code,omitempty"` // 錯誤代碼
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 回傳原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓包裝過的錯誤仍可用 errors.Is 判斷
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以預定義錯誤為基礎附加原因
func Wrap(base *CustomError, err error) *CustomError {
	return &CustomError{
		Code:    base.Code,
		Message: base.Message,
		Status:  base.Status,
		Err:     err,
	}
}

// WrapUpstream 將外部服務錯誤標記為 ErrUpstream，已標記者原樣回傳
func WrapUpstream(err error) error {
	if err == nil || errors.Is(err, ErrUpstream) {
		return err
	}
	return Wrap(ErrUpstream, err)
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeUnauthorized     = "UNAUTHORIZED"       // 401
	ErrCodeForbidden        = "FORBIDDEN"          // 403
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"  // 413
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError = "INTERNAL_ERROR" // 500

	// 業務錯誤
	ErrCodePreferencesNotFound = "PREFERENCES_NOT_FOUND"
	ErrCodeDailyCapReached     = "DAILY_LIMIT_REACHED"
	ErrCodeLifetimeCapReached  = "LIFETIME_LIMIT_REACHED"
	ErrCodeNoMealsForWeek      = "NO_MEALS_FOR_WEEK"
	ErrCodeAIParse             = "AI_PARSE_ERROR"
	ErrCodeUpstream            = "UPSTREAM_ERROR"
	ErrCodeRecipeNotFound      = "RECIPE_NOT_FOUND"
	ErrCodeGroceryNotFound     = "GROCERY_LIST_NOT_FOUND"
	ErrCodeItemIndex           = "ITEM_NOT_FOUND"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "unauthorized", http.StatusUnauthorized, nil)
	ErrForbidden        = NewError(ErrCodeForbidden, "forbidden", http.StatusForbidden, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "method not allowed", http.StatusMethodNotAllowed, nil)
	ErrPayloadTooLarge  = NewError(ErrCodePayloadTooLarge, "request body too large", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)

	// 業務錯誤
	ErrPreferencesNotFound = NewError(ErrCodePreferencesNotFound, "preferences not found", http.StatusNotFound, nil)
	ErrDailyCapReached     = NewError(ErrCodeDailyCapReached, "daily meal generation limit reached", http.StatusBadRequest, nil)
	ErrLifetimeCapReached  = NewError(ErrCodeLifetimeCapReached, "meal generation limit reached", http.StatusBadRequest, nil)
	ErrNoMealsForWeek      = NewError(ErrCodeNoMealsForWeek, "no meals found for this week", http.StatusBadRequest, nil)
	ErrAIParse             = NewError(ErrCodeAIParse, "failed to parse AI response", http.StatusInternalServerError, nil)
	ErrUpstream            = NewError(ErrCodeUpstream, "upstream service error", http.StatusInternalServerError, nil)
	ErrRecipeNotFound      = NewError(ErrCodeRecipeNotFound, "recipe not found", http.StatusNotFound, nil)
	ErrGroceryListNotFound = NewError(ErrCodeGroceryNotFound, "grocery list not found", http.StatusNotFound, nil)
	ErrItemIndex           = NewError(ErrCodeItemIndex, "grocery item not found", http.StatusNotFound, nil)
)

// ResolveError 將任意錯誤轉為 HTTP 狀態碼與錯誤響應
func ResolveError(err error) (int, ErrorResponse) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Status, ErrorResponse{Error: ce.Message, Code: ce.Code}
	}
	if IsValidationError(err) {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: ErrCodeInvalidRequest}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: ErrInternalError.Message, Code: ErrCodeInternalError}
}
