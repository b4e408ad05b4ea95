package enhancer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client 呼叫外部 /enhance 端點的文字補完客戶端
type Client struct {
	client *resty.Client
}

type enhanceResponse struct {
	Success              bool   `json:"success"`
	EnhancedText         string `json:"enhancedText"`
	TransformationMethod string `json:"transformationMethod"`
	Error                string `json:"error"`
	Message              string `json:"message"`
}

// NewClient 創建補完服務客戶端，baseURL 不含 /enhance
func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{client: client}
}

// Name 供應者名稱
func (c *Client) Name() string {
	return "http"
}

// Complete 送出補完請求，上游回報的 transformationMethod 一併帶回
func (c *Client) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/enhance")
	if err != nil {
		return provider.Completion{}, fmt.Errorf("failed to send request to enhancer: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return provider.Completion{}, fmt.Errorf("enhancer returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var result enhanceResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return provider.Completion{}, fmt.Errorf("failed to parse enhancer response: %w", err)
	}

	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = result.Message
		}
		return provider.Completion{}, fmt.Errorf("enhancer reported failure: %s", reason)
	}

	if strings.TrimSpace(result.EnhancedText) == "" {
		return provider.Completion{}, fmt.Errorf("enhancer returned empty text")
	}

	return provider.Completion{
		Text:   result.EnhancedText,
		Method: result.TransformationMethod,
	}, nil
}
