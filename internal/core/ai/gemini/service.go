package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"menu-scanner/internal/core/ai/provider"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Service Gemini 文字補完服務，client 於啟動時建立並重複使用
type Service struct {
	client *genai.Client
	model  string
}

// NewService 創建 Gemini 服務
func NewService(ctx context.Context, apiKey, model string) (*Service, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Service{
		client: client,
		model:  strings.TrimSpace(model),
	}, nil
}

// Name 供應者名稱
func (s *Service) Name() string {
	return "gemini"
}

// Model 使用中的模型
func (s *Service) Model() string {
	return s.model
}

// Complete 以固定且確定性的參數產生回應，只送出 prompt
func (s *Service) Complete(ctx context.Context, req provider.Request) (provider.Completion, error) {
	m := s.client.GenerativeModel(s.model)
	m.GenerationConfig = GenerationConfig(req.MaxTokens)

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return provider.Completion{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := firstText(resp)
	if strings.TrimSpace(text) == "" {
		return provider.Completion{}, errors.New("gemini: empty response")
	}
	return provider.Completion{Text: text}, nil
}

// Ping 以極短的請求確認 API 可用
func (s *Service) Ping(ctx context.Context) error {
	m := s.client.GenerativeModel(s.model)
	m.GenerationConfig = genai.GenerationConfig{MaxOutputTokens: ptrInt32(10)}

	if _, err := m.GenerateContent(ctx, genai.Text("Hello")); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

// Close 關閉客戶端
func (s *Service) Close() error {
	return s.client.Close()
}

// GenerationConfig 補完使用的生成參數
func GenerationConfig(maxTokens int) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		Temperature:    ptrFloat32(0),
		TopP:           ptrFloat32(0.1),
		TopK:           ptrInt32(1),
		CandidateCount: ptrInt32(1),
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = ptrInt32(int32(maxTokens))
	}
	return cfg
}

// DescribeError 將 Gemini 錯誤轉為使用者可讀訊息
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "quota"):
		return "API 할당량이 초과되었습니다."
	case strings.Contains(msg, "content"):
		return "부적절한 콘텐츠로 인해 차단되었습니다."
	case strings.Contains(msg, "key"):
		return "API 키가 유효하지 않습니다."
	case strings.Contains(msg, "model"):
		return "모델을 찾을 수 없습니다."
	}
	return "Gemini API 호출 중 오류가 발생했습니다."
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

func ptrInt32(v int32) *int32 { return &v }
