package allergy

// RiskLevelInfo 風險等級的顯示資訊
type RiskLevelInfo struct {
	Level       string `json:"level"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

var riskLevels = map[string]RiskLevelInfo{
	"safe": {
		Level:       "safe",
		Color:       "#10B981",
		Icon:        "🟢",
		Title:       "안전",
		Description: "알레르기 성분이 포함되지 않았습니다.",
		Severity:    "low",
	},
	"low_risk": {
		Level:       "low_risk",
		Color:       "#F59E0B",
		Icon:        "🟡",
		Title:       "주의",
		Description: "잠재적 알레르기 성분이 포함될 수 있습니다.",
		Severity:    "medium",
	},
	"high_risk": {
		Level:       "high_risk",
		Color:       "#EF4444",
		Icon:        "🔴",
		Title:       "위험",
		Description: "알레르기 성분이 포함되어 있습니다.",
		Severity:    "high",
	},
	"dangerous": {
		Level:       "dangerous",
		Color:       "#DC2626",
		Icon:        "🚨",
		Title:       "매우 위험",
		Description: "다량의 알레르기 성분이 포함되어 있습니다.",
		Severity:    "critical",
	},
}

// LookupRiskLevel 查詢 OCR 服務回傳的風險等級，未知等級視為 safe
func LookupRiskLevel(level string) RiskLevelInfo {
	if info, ok := riskLevels[level]; ok {
		return info
	}
	return riskLevels["safe"]
}
