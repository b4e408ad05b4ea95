package analysis

import (
	"encoding/json"
	"time"

	"menu-scanner/internal/core/allergy"
)

// SectionType 分析區段類型
type SectionType string

const (
	SectionClassification  SectionType = "classification"
	SectionIngredients     SectionType = "ingredients"
	SectionRiskAssessment  SectionType = "risk_assessment"
	SectionRecommendations SectionType = "recommendations"
)

// 分析結果缺少時的顯示文字
const (
	extractionFailedText = "텍스트 추출 실패"
	malformedResultError = "분석 결과 형식 오류"
)

// Section 一個分析區段，Data 依 Type 不同而異
type Section struct {
	Type SectionType `json:"type"`
	Data any         `json:"data"`
}

// IngredientsData ingredients 區段內容
type IngredientsData struct {
	Ingredients  []string              `json:"ingredients"`
	RiskAnalysis allergy.RiskPartition `json:"riskAnalysis"`
}

// RiskAssessmentData risk_assessment 區段內容，資料直接取自分析服務
type RiskAssessmentData struct {
	RiskLevel         string                `json:"riskLevel"`
	RiskInfo          allergy.RiskLevelInfo `json:"riskInfo"`
	MLPrediction      json.RawMessage       `json:"mlPrediction,omitempty"`
	RuleBasedAnalysis json.RawMessage       `json:"ruleBasedAnalysis,omitempty"`
}

// AssembledAnalysis 回傳給使用者的完整分析結果
type AssembledAnalysis struct {
	ExtractedText        string    `json:"extractedText"`
	TranslatedText       *string   `json:"translatedText,omitempty"`
	EnhancedText         *string   `json:"enhancedText,omitempty"`
	MenuNames            []string  `json:"menuNames,omitempty"`
	TransformationMethod string    `json:"transformationMethod,omitempty"`
	MenuAnalysis         []Section `json:"menuAnalysis"`
	UserAllergies        []string  `json:"userAllergies"`
	Timestamp            time.Time `json:"timestamp"`
	Error                string    `json:"error,omitempty"`
}

// Input 一次分析請求
type Input struct {
	UserID      int64
	ImageURL    string
	Image       []byte
	Filename    string
	ContentType string
	Allergies   []string
}

// SectionOf 取出指定類型的區段
func (a *AssembledAnalysis) SectionOf(t SectionType) (Section, bool) {
	for _, s := range a.MenuAnalysis {
		if s.Type == t {
			return s, true
		}
	}
	return Section{}, false
}
