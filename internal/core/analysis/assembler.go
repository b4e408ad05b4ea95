// Package analysis 串接 OCR、文字補完與過敏比對，組成單張菜單的分析結果
package analysis

import (
	"context"
	"strings"
	"time"

	"menu-scanner/internal/core/ai"
	"menu-scanner/internal/core/ai/analyzer"
	"menu-scanner/internal/core/ai/provider"
	"menu-scanner/internal/core/ai/service"
	"menu-scanner/internal/core/allergy"
	"menu-scanner/internal/core/retry"
	"menu-scanner/internal/pkg/common"
	"menu-scanner/internal/store"

	"go.uber.org/zap"
)

const defaultPersistTimeout = 10 * time.Second

// Analyzer OCR/分析服務
type Analyzer interface {
	Analyze(ctx context.Context, upload analyzer.Upload) (*ai.RawServiceResult, error)
}

// Enhancer 文字補完並正規化
type Enhancer interface {
	ProcessRequest(ctx context.Context, req provider.Request) (*service.Response, error)
}

// Options Assembler 設定
type Options struct {
	OCRPolicy      retry.Policy
	MaxTokens      int
	PersistTimeout time.Duration
	Now            func() time.Time
}

// Assembler 依序執行單張圖片的分析流程
type Assembler struct {
	analyzer  Analyzer
	enhancer  Enhancer
	analyses  store.AnalysisStore
	ocrPolicy retry.Policy
	maxTokens int
	persistTO time.Duration
	now       func() time.Time
}

// OCRPolicy OCR 呼叫的重試設定：固定間隔
func OCRPolicy(maxAttempts int, delay, timeout time.Duration) retry.Policy {
	return retry.Policy{
		Name:        "analysis service",
		MaxAttempts: maxAttempts,
		Delay:       retry.Fixed(delay),
		Timeout:     timeout,
	}
}

// NewAssembler 創建 Assembler，enhancer 與 analyses 可為 nil
func NewAssembler(a Analyzer, enhancer Enhancer, analyses store.AnalysisStore, opts Options) *Assembler {
	policy := opts.OCRPolicy
	if policy.OnFailure == nil {
		policy.OnFailure = func(attempt int, err error) {
			common.LogWarn("Analysis service attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(err),
			)
		}
	}
	persistTO := opts.PersistTimeout
	if persistTO <= 0 {
		persistTO = defaultPersistTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Assembler{
		analyzer:  a,
		enhancer:  enhancer,
		analyses:  analyses,
		ocrPolicy: policy,
		maxTokens: opts.MaxTokens,
		persistTO: persistTO,
		now:       now,
	}
}

// Analyze 執行完整分析。只有 OCR 重試耗盡會回傳錯誤（common.ErrAnalysisFailed），
// 補完失敗、分析欄位缺少與儲存失敗都反映在回傳結果或日誌中。
func (a *Assembler) Analyze(ctx context.Context, in Input) (*AssembledAnalysis, error) {
	allergies := in.Allergies
	if allergies == nil {
		allergies = []string{}
	}

	start := a.now()
	attempts := 0
	raw, err := retry.Do(ctx, a.ocrPolicy, func(ctx context.Context) (*ai.RawServiceResult, error) {
		attempts++
		return a.analyzer.Analyze(ctx, analyzer.Upload{
			Data:        in.Image,
			Filename:    in.Filename,
			ContentType: in.ContentType,
			Allergies:   allergies,
		})
	})
	common.LogUpstreamCall("analysis service", attempts, a.now().Sub(start), err)
	if err != nil {
		common.LogError("Menu analysis aborted",
			zap.Int64("user_id", in.UserID),
			zap.String("filename", in.Filename),
			zap.Error(err),
		)
		return nil, common.Wrap(common.ErrAnalysisFailed, err)
	}

	if raw.Analysis == nil {
		common.LogWarn("Analysis service returned no usable analysis",
			zap.Int64("user_id", in.UserID),
			zap.Bool("malformed", raw.AnalysisMalformed),
		)
		return a.degraded(raw, allergies), nil
	}

	result := &AssembledAnalysis{
		ExtractedText:  raw.ExtractedText,
		TranslatedText: raw.TranslatedText,
		UserAllergies:  allergies,
		Timestamp:      a.now().UTC(),
	}

	a.enhance(ctx, raw, result)

	partition := allergy.Classify(raw.Analysis.Ingredients(), allergies)
	result.MenuAnalysis = BuildSections(raw.Analysis, partition)
	common.LogInfo("Ingredient risk classified",
		zap.Int64("user_id", in.UserID),
		zap.Int("total", partition.TotalIngredients),
		zap.Int("danger", len(partition.Danger)),
		zap.Bool("has_danger", partition.HasDanger()),
	)

	a.persist(ctx, in, raw)

	return result, nil
}

// enhance 補完失敗時只記錄，結果維持未補完狀態
func (a *Assembler) enhance(ctx context.Context, raw *ai.RawServiceResult, result *AssembledAnalysis) {
	if a.enhancer == nil {
		return
	}
	if strings.TrimSpace(raw.ExtractedText) == "" {
		common.LogDebug("Skipping enhancement for empty extracted text")
		return
	}

	resp, err := a.enhancer.ProcessRequest(ctx, provider.Request{
		Prompt:    BuildPrompt(raw.ExtractedText, raw.TranslatedOrEmpty()),
		Text:      raw.ExtractedText,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		common.LogWarn("Enhancement unavailable, using extracted text", zap.Error(err))
		return
	}

	enhanced := resp.Result.JSON
	result.EnhancedText = &enhanced
	result.MenuNames = resp.Result.Names
	result.TransformationMethod = string(resp.Result.Method)
}

// persist 儲存失敗只記錄，不影響回應
func (a *Assembler) persist(ctx context.Context, in Input, raw *ai.RawServiceResult) {
	if a.analyses == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.persistTO)
	defer cancel()

	err := a.analyses.SaveAnalysis(ctx, store.AnalysisRecord{
		UserID:         in.UserID,
		ImageURL:       in.ImageURL,
		ExtractedText:  raw.ExtractedText,
		TranslatedText: raw.TranslatedText,
		AnalysisResult: raw.AnalysisRaw,
		CreatedAt:      a.now(),
	})
	if err != nil {
		common.LogError("Failed to save menu analysis",
			zap.Int64("user_id", in.UserID),
			zap.Error(err),
		)
		return
	}
	common.LogDebug("Menu analysis saved", zap.Int64("user_id", in.UserID))
}

// degraded 分析欄位缺少時的結果，不做補完也不儲存
func (a *Assembler) degraded(raw *ai.RawServiceResult, allergies []string) *AssembledAnalysis {
	extracted := raw.ExtractedText
	if extracted == "" {
		extracted = extractionFailedText
	}
	return &AssembledAnalysis{
		ExtractedText: extracted,
		MenuAnalysis:  []Section{},
		UserAllergies: allergies,
		Timestamp:     a.now().UTC(),
		Error:         malformedResultError,
	}
}

// BuildSections 依固定順序組成分析區段，來源欄位缺少的區段略過
func BuildSections(analysis *ai.Analysis, partition allergy.RiskPartition) []Section {
	sections := []Section{}
	if analysis == nil {
		return sections
	}

	if ai.Present(analysis.MenuClassification) {
		sections = append(sections, Section{
			Type: SectionClassification,
			Data: analysis.MenuClassification,
		})
	}

	if analysis.IngredientAnalysis != nil {
		sections = append(sections, Section{
			Type: SectionIngredients,
			Data: IngredientsData{
				Ingredients:  analysis.Ingredients(),
				RiskAnalysis: partition,
			},
		})
	}

	if analysis.AllergyRisk != nil {
		level := analysis.AllergyRisk.FinalRiskLevel
		sections = append(sections, Section{
			Type: SectionRiskAssessment,
			Data: RiskAssessmentData{
				RiskLevel:         level,
				RiskInfo:          allergy.LookupRiskLevel(level),
				MLPrediction:      analysis.AllergyRisk.MLPrediction,
				RuleBasedAnalysis: analysis.AllergyRisk.RuleBasedAnalysis,
			},
		})
	}

	if ai.Present(analysis.Recommendations) {
		sections = append(sections, Section{
			Type: SectionRecommendations,
			Data: analysis.Recommendations,
		})
	}

	return sections
}
