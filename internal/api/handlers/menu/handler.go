package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"menu-scanner/internal/api/middleware"
	"menu-scanner/internal/core/ai/image"
	"menu-scanner/internal/core/allergy"
	"menu-scanner/internal/core/analysis"
	"menu-scanner/internal/pkg/common"
	"menu-scanner/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const successMessage = "분석이 완료되었습니다!"

// Analyzer 菜單分析流程
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*analysis.AssembledAnalysis, error)
}

// Handler 菜單分析處理器
type Handler struct {
	analyzer  Analyzer
	allergies store.AllergyStore
	images    *image.Processor
	now       func() time.Time
}

// NewHandler 創建菜單分析處理器
func NewHandler(analyzer Analyzer, allergies store.AllergyStore, images *image.Processor) *Handler {
	return &Handler{
		analyzer:  analyzer,
		allergies: allergies,
		images:    images,
		now:       time.Now,
	}
}

// AnalyzeResponse 分析成功的回應
type AnalyzeResponse struct {
	Success  bool                        `json:"success"`
	Message  string                      `json:"message"`
	Analysis *analysis.AssembledAnalysis `json:"analysis"`
}

// HandleAnalyze 處理 multipart 欄位 image 的菜單分析請求
func (h *Handler) HandleAnalyze(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.WriteError(c, common.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.WriteError(c, common.Wrap(common.ErrInvalidImageSize, err))
			return
		}
		common.WriteError(c, common.NewValidationError("이미지 파일이 필요합니다."))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.images.Validate(fileHeader.Filename, contentType, fileHeader.Size); err != nil {
		common.LogWarn("Rejected upload",
			zap.Int64("user_id", userID),
			zap.String("filename", fileHeader.Filename),
			zap.String("content_type", contentType),
			zap.Error(err),
		)
		common.WriteError(c, err)
		return
	}

	data, err := readUpload(fileHeader, h.images.MaxSize())
	if err != nil {
		common.LogError("Failed to read upload", zap.Int64("user_id", userID), zap.Error(err))
		common.WriteError(c, common.Wrap(common.ErrAnalysisFailed, err))
		return
	}

	profile, err := h.allergies.ListAllergies(c.Request.Context(), userID)
	if err != nil {
		common.LogError("Failed to load allergy profile", zap.Int64("user_id", userID), zap.Error(err))
		common.WriteError(c, common.Wrap(common.ErrAnalysisFailed, err))
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), analysis.Input{
		UserID:      userID,
		ImageURL:    image.StorageKey(fileHeader.Filename, h.now()),
		Image:       data,
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Allergies:   allergy.Names(profile),
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:  true,
		Message:  successMessage,
		Analysis: result,
	})
}

func readUpload(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, common.Wrap(common.ErrInvalidImageSize, fmt.Errorf("upload exceeds %d bytes", maxSize))
	}
	return data, nil
}
