package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	geminiService "menu-scanner/internal/core/ai/gemini"
	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/core/ai/service"
	"menu-scanner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxTokens = 500

// Enhancer 補完並正規化菜單名稱
type Enhancer interface {
	ProcessRequest(ctx context.Context, req provider.Request) (*service.Response, error)
}

// Prober 檢查 Gemini 是否可用
type Prober interface {
	Ping(ctx context.Context) error
	Model() string
}

// Handler Gemini 代理處理器，兩個依賴皆可為 nil 表示尚未設定 API 金鑰
type Handler struct {
	enhancer Enhancer
	prober   Prober
	now      func() time.Time
}

// NewHandler 創建 Gemini 處理器
func NewHandler(enhancer Enhancer, prober Prober) *Handler {
	return &Handler{
		enhancer: enhancer,
		prober:   prober,
		now:      time.Now,
	}
}

// EnhanceRequest /enhance 請求
type EnhanceRequest struct {
	Prompt    string `json:"prompt"`
	Text      string `json:"text"`
	MaxTokens int    `json:"maxTokens"`
}

// EnhanceResponse /enhance 回應
type EnhanceResponse struct {
	Success              bool     `json:"success"`
	EnhancedText         string   `json:"enhancedText"`
	OriginalResponse     string   `json:"originalResponse"`
	TransformationMethod string   `json:"transformationMethod"`
	MenuNames            []string `json:"menuNames"`
}

// HandleEnhance 補完 OCR 文字並回傳 JSON 陣列格式的菜單名稱
func (h *Handler) HandleEnhance(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.NewValidationError("prompt와 text는 필수입니다."))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(req.Text) == "" {
		common.WriteError(c, common.NewValidationError("prompt와 text는 필수입니다."))
		return
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	if h.enhancer == nil {
		common.WriteError(c, common.ErrEnhancerFailed)
		return
	}

	resp, err := h.enhancer.ProcessRequest(c.Request.Context(), provider.Request{
		Prompt:    req.Prompt,
		Text:      req.Text,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		common.LogError("Gemini enhancement failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{
			Success: false,
			Code:    common.ErrCodeEnhancerFailed,
			Message: geminiService.DescribeError(err),
		})
		return
	}

	c.JSON(http.StatusOK, EnhanceResponse{
		Success:              true,
		EnhancedText:         resp.Result.JSON,
		OriginalResponse:     resp.Raw,
		TransformationMethod: string(resp.Result.Method),
		MenuNames:            resp.Result.Names,
	})
}

// HandleStatus 回報 Gemini API 狀態
func (h *Handler) HandleStatus(c *gin.Context) {
	if h.prober == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"status":  "API_KEY_MISSING",
			"message": "Gemini API 키가 설정되지 않았습니다.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.prober.Ping(ctx); err != nil {
		common.LogWarn("Gemini status check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"status":    "ERROR",
			"message":   "Gemini API 상태 확인에 실패했습니다.",
			"error":     geminiService.DescribeError(err),
			"timestamp": h.now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    "ACTIVE",
		"message":   "Gemini API가 정상적으로 작동 중입니다.",
		"model":     h.prober.Model(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
