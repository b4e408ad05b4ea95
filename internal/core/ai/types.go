package ai

import (
	"bytes"
	"encoding/json"
)

// RawServiceResult OCR/分析服務的回應，所有巢狀欄位都可能缺少。
// Analysis 為 nil 代表服務未回傳可用的分析結果，AnalysisRaw 保留原始 analysis JSON 供儲存使用。
type RawServiceResult struct {
	ExtractedText     string          `json:"extracted_text"`
	TranslatedText    *string         `json:"translated_text"`
	Analysis          *Analysis       `json:"-"`
	AnalysisRaw       json.RawMessage `json:"-"`
	AnalysisMalformed bool            `json:"-"`
}

// Analysis 分析結果
type Analysis struct {
	MenuClassification json.RawMessage     `json:"menu_classification,omitempty"`
	IngredientAnalysis *IngredientAnalysis `json:"ingredient_analysis,omitempty"`
	AllergyRisk        *AllergyRisk        `json:"allergy_risk,omitempty"`
	Recommendations    json.RawMessage     `json:"recommendations,omitempty"`
}

// IngredientAnalysis 成分分析
type IngredientAnalysis struct {
	ExtractedIngredients StringList `json:"extracted_ingredients"`
}

// AllergyRisk 服務端計算的過敏風險
type AllergyRisk struct {
	FinalRiskLevel    string          `json:"final_risk_level"`
	MLPrediction      json.RawMessage `json:"ml_prediction,omitempty"`
	RuleBasedAnalysis json.RawMessage `json:"rule_based_analysis,omitempty"`
}

// StringList 只保留字串元素的陣列，null 或非陣列視為空
type StringList []string

// UnmarshalJSON 略過非字串元素
func (l *StringList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		*l = StringList{}
		return nil
	}

	out := make(StringList, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// Present 判斷原始 JSON 欄位是否存在且非 null
func Present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeRawServiceResult 解析服務回應，analysis 結構不符時標記為 AnalysisMalformed 而不回傳錯誤
func DecodeRawServiceResult(body []byte) (*RawServiceResult, error) {
	var envelope struct {
		ExtractedText  json.RawMessage `json:"extracted_text"`
		TranslatedText json.RawMessage `json:"translated_text"`
		Analysis       json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	result := &RawServiceResult{}
	var text string
	if json.Unmarshal(envelope.ExtractedText, &text) == nil {
		result.ExtractedText = text
	}
	var translated string
	if Present(envelope.TranslatedText) && json.Unmarshal(envelope.TranslatedText, &translated) == nil {
		result.TranslatedText = &translated
	}

	if !Present(envelope.Analysis) {
		return result, nil
	}

	var analysis Analysis
	if err := json.Unmarshal(envelope.Analysis, &analysis); err != nil {
		result.AnalysisMalformed = true
		return result, nil
	}
	result.Analysis = &analysis
	result.AnalysisRaw = envelope.Analysis
	return result, nil
}

// Ingredients 取得成分清單，欄位缺少時回傳空陣列
func (a *Analysis) Ingredients() []string {
	if a == nil || a.IngredientAnalysis == nil || a.IngredientAnalysis.ExtractedIngredients == nil {
		return []string{}
	}
	return a.IngredientAnalysis.ExtractedIngredients
}

// TranslatedOrEmpty 取得翻譯文字
func (r *RawServiceResult) TranslatedOrEmpty() string {
	if r == nil || r.TranslatedText == nil {
		return ""
	}
	return *r.TranslatedText
}
