package allergy

import (
	"strings"
)

// Severity 過敏嚴重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity 空字串視為 medium，無效值回傳 false
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return SeverityMedium, true
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	}
	return "", false
}

// Allergy 使用者的一筆過敏設定
type Allergy struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
}

// NormalizeNames 去除空白與空值，並以不分大小寫方式去重（保留第一次出現的寫法）
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Names 取出過敏名稱
func Names(allergies []Allergy) []string {
	names := make([]string, 0, len(allergies))
	for _, a := range allergies {
		names = append(names, a.Name)
	}
	return names
}
