// Package store 保存分析紀錄與使用者過敏設定
package store

import (
	"context"
	"encoding/json"
	"time"

	"menu-scanner/internal/core/allergy"
)

// AnalysisRecord 一次分析的儲存內容
type AnalysisRecord struct {
	UserID         int64           `json:"userId"`
	ImageURL       string          `json:"imageUrl"`
	ExtractedText  string          `json:"extractedText"`
	TranslatedText *string         `json:"translatedText"`
	AnalysisResult json.RawMessage `json:"analysisResult"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// AnalysisStore 分析紀錄寫入
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, record AnalysisRecord) error
}

// AllergyStore 使用者過敏設定
type AllergyStore interface {
	ListAllergies(ctx context.Context, userID int64) ([]allergy.Allergy, error)
	// ReplaceAllergies 以新清單整批取代既有設定
	ReplaceAllergies(ctx context.Context, userID int64, allergies []allergy.Allergy) error
}

// Pinger 可檢查連線的儲存後端
type Pinger interface {
	Ping(ctx context.Context) error
}
