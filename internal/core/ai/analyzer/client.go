package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"menu-scanner/internal/core/ai"
	"menu-scanner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// maxLoggedBody 錯誤訊息中保留的回應長度
const maxLoggedBody = 500

// Upload 送往分析服務的圖片
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	Allergies   []string
}

// Client OCR/分析服務客戶端，每次呼叫只送出一次請求，重試由呼叫端負責
type Client struct {
	client *resty.Client
}

// NewClient 創建分析服務客戶端
func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)

	return &Client{client: client}
}

// Analyze 上傳圖片並取得分析結果
func (c *Client) Analyze(ctx context.Context, upload Upload) (*ai.RawServiceResult, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	req := c.client.R().
		SetContext(ctx).
		SetMultipartField("file", upload.Filename, upload.ContentType, bytes.NewReader(upload.Data))

	if allergies := common.JoinNonEmpty(upload.Allergies, ","); allergies != "" {
		req.SetMultipartFormData(map[string]string{
			"user_allergies": allergies,
		})
	}

	common.LogDebug("Sending image to analysis service",
		zap.String("filename", upload.Filename),
		zap.Int("size", len(upload.Data)),
		zap.String("content_type", upload.ContentType),
		zap.Int("allergies", len(upload.Allergies)),
	)

	resp, err := req.Post("/analyze-image")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to analysis service: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("analysis service returned status %d: %s", resp.StatusCode(), truncate(resp.String()))
	}

	result, err := ai.DecodeRawServiceResult(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	if result.AnalysisMalformed {
		common.LogWarn("Analysis field has unexpected shape",
			zap.String("filename", upload.Filename),
		)
	}

	return result, nil
}

// truncate 截斷過長的回應內容
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLoggedBody {
		return s
	}
	return string([]rune(s)[:maxLoggedBody]) + "..."
}
