// Package allergy 比對成分與使用者過敏清單
package allergy

import (
	"strings"
)

// DangerItem 含有過敏原的成分與所有命中的過敏名稱
type DangerItem struct {
	Ingredient       string   `json:"ingredient"`
	MatchedAllergies []string `json:"matchedAllergies"`
}

// RiskPartition 成分分類結果，Safe 與 Danger 互斥且涵蓋全部輸入。
// Warning 為保留欄位，目前分類邏輯不會填入。
type RiskPartition struct {
	Safe             []string     `json:"safe"`
	Warning          []string     `json:"warning"`
	Danger           []DangerItem `json:"danger"`
	TotalIngredients int          `json:"totalIngredients"`
}

// Classify 以不分大小寫的子字串比對分類成分。
// 每個成分列出所有命中的過敏名稱，順序與清單一致。
func Classify(ingredients []string, allergies []string) RiskPartition {
	p := RiskPartition{
		Safe:             []string{},
		Danger:           []DangerItem{},
		Warning:          []string{},
		TotalIngredients: len(ingredients),
	}

	lowered := make([]string, len(allergies))
	for i, a := range allergies {
		lowered[i] = strings.ToLower(a)
	}

	for _, ingredient := range ingredients {
		target := strings.ToLower(ingredient)
		var matched []string
		for i, a := range lowered {
			if strings.Contains(target, a) {
				matched = append(matched, allergies[i])
			}
		}
		if len(matched) > 0 {
			p.Danger = append(p.Danger, DangerItem{Ingredient: ingredient, MatchedAllergies: matched})
			continue
		}
		p.Safe = append(p.Safe, ingredient)
	}

	return p
}

// HasDanger 是否有任何危險成分
func (p RiskPartition) HasDanger() bool {
	return len(p.Danger) > 0
}
