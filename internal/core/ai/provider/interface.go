package provider

import (
	"context"
)

// Request 文字補完請求
type Request struct {
	Prompt    string `json:"prompt"`
	Text      string `json:"text"`
	MaxTokens int    `json:"maxTokens"`
}

// Completion 補完結果；Method 只有上游已自行正規化時才會填入
type Completion struct {
	Text   string `json:"text"`
	Method string `json:"method,omitempty"`
}

// Completer 定義文字補完服務介面
type Completer interface {
	// Complete 回傳模型原始輸出，不保證任何格式
	Complete(ctx context.Context, req Request) (Completion, error)

	// Name 供應者名稱，用於日誌
	Name() string
}

// CompleterFunc 以回傳純文字的函式實作 Completer
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete 呼叫函式本身
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	text, err := f(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Text: text}, nil
}

// Name 回傳固定名稱
func (f CompleterFunc) Name() string {
	return "func"
}
