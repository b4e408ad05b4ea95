package user

import (
	"net/http"

	"menu-scanner/internal/api/middleware"
	"menu-scanner/internal/core/allergy"
	"menu-scanner/internal/pkg/common"
	"menu-scanner/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 使用者過敏設定處理器
type Handler struct {
	allergies store.AllergyStore
}

// NewHandler 創建使用者處理器
func NewHandler(allergies store.AllergyStore) *Handler {
	return &Handler{allergies: allergies}
}

// UpdateAllergiesRequest 過敏設定更新請求
type UpdateAllergiesRequest struct {
	Allergies []string `json:"allergies"`
	Severity  string   `json:"severity"`
}

// HandleGetAllergies 取得目前使用者的過敏設定
func (h *Handler) HandleGetAllergies(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.WriteError(c, common.ErrUnauthorized)
		return
	}

	allergies, err := h.allergies.ListAllergies(c.Request.Context(), userID)
	if err != nil {
		common.LogError("Failed to list allergies", zap.Int64("user_id", userID), zap.Error(err))
		common.WriteError(c, common.ErrInternalError)
		return
	}
	if allergies == nil {
		allergies = []allergy.Allergy{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"allergies": allergies},
	})
}

// HandleUpdateAllergies 以請求內容整批取代過敏設定
func (h *Handler) HandleUpdateAllergies(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.WriteError(c, common.ErrUnauthorized)
		return
	}

	var req UpdateAllergiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest)
		return
	}

	severity, ok := allergy.ParseSeverity(req.Severity)
	if !ok {
		common.WriteError(c, common.NewValidationError("severity는 low, medium, high 중 하나여야 합니다."))
		return
	}

	names := allergy.NormalizeNames(req.Allergies)
	profile := make([]allergy.Allergy, 0, len(names))
	for _, n := range names {
		profile = append(profile, allergy.Allergy{Name: n, Severity: severity})
	}

	if err := h.allergies.ReplaceAllergies(c.Request.Context(), userID, profile); err != nil {
		common.LogError("Failed to save allergies", zap.Int64("user_id", userID), zap.Error(err))
		common.WriteError(c, common.ErrInternalError)
		return
	}

	common.LogInfo("Allergy profile updated", zap.Int64("user_id", userID), zap.Int("count", len(profile)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "알레르기 정보가 저장되었습니다.",
		"data": gin.H{
			"allergies": names,
			"severity":  severity,
		},
	})
}
