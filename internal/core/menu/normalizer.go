// Package menu 將文字補完服務的自由文字整理成菜單名稱陣列
package menu

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"menu-scanner/internal/pkg/common"

	"go.uber.org/zap"
)

// Method 標記由哪一個階段產生結果
type Method string

const (
	MethodJSONArray       Method = "json_array"
	MethodLineSeparated   Method = "line_separated"
	MethodQuotedTexts     Method = "quoted_texts"
	MethodBracketTexts    Method = "bracket_texts"
	MethodMeaningfulWords Method = "meaningful_words"
	MethodFallback        Method = "fallback_original"
)

// ParseMethod 解析階段名稱，未知值回傳 false
func ParseMethod(s string) (Method, bool) {
	switch m := Method(s); m {
	case MethodJSONArray, MethodLineSeparated, MethodQuotedTexts,
		MethodBracketTexts, MethodMeaningfulWords, MethodFallback:
		return m, true
	}
	return "", false
}

// 長度上限固定，用於限制前端標籤長度與輸出大小
const (
	maxLineLength  = 50
	maxQuoteLength = 50
	minWordLength  = 2
	maxWordLength  = 20
	maxWords       = 10
)

// lineExclusions 含有這些記號的行不是菜單名稱
var lineExclusions = []string{
	"```", "---", "===",
	"⚠",
	"📋", "🎯", "🔍", "📝", "🎨", "📤",
}

// stopWords 模型回應中常見的說明用詞
var stopWords = map[string]struct{}{
	"ocr": {}, "텍스트": {}, "메뉴": {}, "음료": {}, "카페": {},
	"변환": {}, "완성": {}, "분석": {}, "결과": {},
	"text": {}, "menu": {}, "drink": {}, "cafe": {}, "convert": {},
	"complete": {}, "analysis": {}, "result": {},
}

var (
	quotedPattern  = regexp.MustCompile(`["“”]([^"“”]+)["“”]`)
	bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)
	wordPattern    = regexp.MustCompile(`[가-힣A-Za-z0-9]+`)
)

// Result 正規化結果，Names 永遠非 nil 且至少一個元素
type Result struct {
	Names  []string `json:"names"`
	JSON   string   `json:"json"`
	Method Method   `json:"transformationMethod"`
}

// strategy 單一解析階段；applies 為 nil 表示永遠嘗試
type strategy struct {
	method  Method
	applies func(text string) bool
	extract func(text string) []string
}

// Normalizer 依序嘗試各階段，第一個產生有效非空陣列的階段勝出
type Normalizer struct {
	stages []strategy
}

// NewNormalizer 建立預設階段順序的正規化器
func NewNormalizer() *Normalizer {
	return &Normalizer{
		stages: []strategy{
			{method: MethodJSONArray, applies: looksLikeArray, extract: parseArray},
			{method: MethodLineSeparated, extract: splitLines},
			{method: MethodQuotedTexts, extract: quotedTexts},
			{method: MethodBracketTexts, extract: bracketTexts},
			{method: MethodMeaningfulWords, extract: meaningfulWords},
		},
	}
}

// Normalize 轉換任意文字；不會失敗，最差情況回傳只含原始輸入的陣列
func (n *Normalizer) Normalize(raw string) Result {
	text := strings.TrimSpace(raw)

	for _, st := range n.stages {
		if st.applies != nil && !st.applies(text) {
			continue
		}
		names := st.extract(text)
		if len(names) == 0 {
			continue
		}
		validated, encoded, ok := validate(names)
		if !ok {
			common.LogDebug("Normalized candidate failed validation", zap.String("method", string(st.method)))
			continue
		}
		return Result{Names: validated, JSON: encoded, Method: st.method}
	}

	return fallback(raw)
}

// validate 序列化後再解析一次，確認是非空的字串陣列；回傳解析回來的內容
func validate(names []string) ([]string, string, bool) {
	encoded, err := common.ToJSON(names)
	if err != nil {
		return nil, "", false
	}
	var back []string
	if err := json.Unmarshal([]byte(encoded), &back); err != nil || len(back) == 0 {
		return nil, "", false
	}
	return back, encoded, true
}

// fallback 把原始輸入包成單一元素陣列
func fallback(raw string) Result {
	names, encoded, ok := validate([]string{raw})
	if !ok {
		names, encoded = []string{""}, `[""]`
	}
	return Result{Names: names, JSON: encoded, Method: MethodFallback}
}

func looksLikeArray(text string) bool {
	return strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")
}

// parseArray 字串元素原樣保留，數字與布林轉為其 JSON 字面值；含 null、物件或巢狀陣列時放棄
func parseArray(text string) []string {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		var v interface{}
		if err := json.Unmarshal(item, &v); err != nil {
			return nil
		}
		switch x := v.(type) {
		case string:
			names = append(names, x)
		case float64, bool:
			names = append(names, strings.TrimSpace(string(item)))
		default:
			return nil
		}
	}
	return names
}

func splitLines(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		if n == 0 || n > maxLineLength || containsAny(line, lineExclusions) {
			continue
		}
		names = append(names, line)
	}
	return names
}

func quotedTexts(text string) []string {
	return collectMatches(quotedPattern, text, nil)
}

func bracketTexts(text string) []string {
	return collectMatches(bracketPattern, text, func(s string) string {
		return strings.ReplaceAll(s, "[", "")
	})
}

// collectMatches 取出第一個捕獲群組，去空白後保留長度在範圍內的項目
func collectMatches(re *regexp.Regexp, text string, clean func(string) string) []string {
	var names []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if clean != nil {
			name = clean(name)
		}
		name = strings.TrimSpace(name)
		n := utf8.RuneCountInString(name)
		if n == 0 || n >= maxQuoteLength {
			continue
		}
		names = append(names, name)
	}
	return names
}

func meaningfulWords(text string) []string {
	var words []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		n := utf8.RuneCountInString(w)
		if n < minWordLength || n > maxWordLength {
			continue
		}
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			continue
		}
		words = append(words, w)
		if len(words) == maxWords {
			break
		}
	}
	return words
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
