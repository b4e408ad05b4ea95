package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
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
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 Wrap 過的錯誤也能與預定義錯誤比較
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

// Wrap 以預定義錯誤包裝原始錯誤
func Wrap(base *CustomError, err error) *CustomError {
	return NewError(base.Code, base.Message, base.Status, err)
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StatusOf 取出錯誤對應的 HTTP 狀態碼
func StatusOf(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	if IsValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInvalidToken     = "INVALID_TOKEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeEntityTooLarge   = "ENTITY_TOO_LARGE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeGatewayTimeout   = "GATEWAY_TIMEOUT"
	ErrCodeAnalysisFailed   = "ANALYSIS_FAILED"
	ErrCodeEnhancerFailed   = "ENHANCER_UNAVAILABLE"
	ErrCodeInvalidImage     = "INVALID_IMAGE_FORMAT"
	ErrCodeInvalidImageSize = "INVALID_IMAGE_SIZE"
)

// 預定義錯誤
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "잘못된 요청입니다.", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "인증 토큰이 필요합니다.", http.StatusUnauthorized, nil)
	ErrInvalidToken    = NewError(ErrCodeInvalidToken, "유효하지 않은 토큰입니다.", http.StatusForbidden, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "리소스를 찾을 수 없습니다.", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "요청이 너무 많습니다.", http.StatusTooManyRequests, nil)
	ErrEntityTooLarge  = NewError(ErrCodeEntityTooLarge, "요청 본문이 너무 큽니다.", http.StatusRequestEntityTooLarge, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "서버 오류가 발생했습니다.", http.StatusInternalServerError, nil)
	ErrGatewayTimeout  = NewError(ErrCodeGatewayTimeout, "요청 시간이 초과되었습니다.", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrAnalysisFailed     = NewError(ErrCodeAnalysisFailed, "분석 중 오류가 발생했습니다.", http.StatusInternalServerError, nil)
	ErrEnhancerFailed     = NewError(ErrCodeEnhancerFailed, "텍스트 보완 서비스를 사용할 수 없습니다.", http.StatusServiceUnavailable, nil)
	ErrInvalidImageFormat = NewError(ErrCodeInvalidImage, "이미지 파일만 업로드 가능합니다!", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError(ErrCodeInvalidImageSize, "이미지 크기가 제한을 초과했습니다.", http.StatusBadRequest, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "캐시 미스", http.StatusNotFound, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "캐시가 가득 찼습니다.", http.StatusServiceUnavailable, nil)
)
