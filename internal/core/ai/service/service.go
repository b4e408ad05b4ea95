package service

import (
	"context"
	"time"

	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/core/menu"
	"menu-scanner/internal/core/retry"
	"menu-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// Response 補完與正規化後的結果
type Response struct {
	// Raw 為模型原始輸出
	Raw    string
	Result menu.Result
}

// Service 文字補完服務：重試呼叫 Completer 後把輸出整理成菜單名稱
type Service struct {
	completer  provider.Completer
	normalizer *menu.Normalizer
	policy     retry.Policy
}

// NewService 創建補完服務，policy 的 OnFailure 未設定時會補上日誌
func NewService(completer provider.Completer, normalizer *menu.Normalizer, policy retry.Policy) *Service {
	if policy.Name == "" {
		policy.Name = "enhancement"
	}
	if policy.OnFailure == nil {
		name := policy.Name
		providerName := completer.Name()
		policy.OnFailure = func(attempt int, err error) {
			common.LogWarn("Text completion attempt failed",
				zap.String("operation", name),
				zap.String("provider", providerName),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	return &Service{
		completer:  completer,
		normalizer: normalizer,
		policy:     policy,
	}
}

// DefaultPolicy 補完呼叫的重試設定：指數退避
func DefaultPolicy(maxAttempts int, baseDelay, timeout time.Duration) retry.Policy {
	return retry.Policy{
		Name:        "enhancement",
		MaxAttempts: maxAttempts,
		Delay:       retry.Exponential(baseDelay),
		Timeout:     timeout,
	}
}

// ProcessRequest 呼叫補完服務並正規化輸出，重試耗盡時回傳 *retry.ExhaustedError
func (s *Service) ProcessRequest(ctx context.Context, req provider.Request) (*Response, error) {
	start := time.Now()
	attempts := 0

	completion, err := retry.Do(ctx, s.policy, func(ctx context.Context) (provider.Completion, error) {
		attempts++
		return s.completer.Complete(ctx, req)
	})
	common.LogUpstreamCall(s.completer.Name(), attempts, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	result := s.normalizer.Normalize(completion.Text)
	// 上游已正規化過時，以上游實際使用的階段為準
	if m, ok := menu.ParseMethod(completion.Method); ok {
		result.Method = m
	}
	common.LogDebug("Text completion normalized",
		zap.String("method", string(result.Method)),
		zap.Int("names", len(result.Names)),
	)

	return &Response{Raw: completion.Text, Result: result}, nil
}
