package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/chart_editor_server/internal/api/middleware"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/service"
)

// QuotaHandler 只读；扣减发生在创建、复制图表时
type QuotaHandler struct {
	quotaService *service.QuotaService
}

func NewQuotaHandler(quotaService *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

// GetQuota 今日已用、上限与剩余；premium 的上限与剩余为 -1
// GET /api/v1/user/quota
func (h *QuotaHandler) GetQuota(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.quotaService.GetQuotaInfo(userID)
	if err != nil {
		respondAccountError(c, err)
		return
	}
	response.Success(c, info)
}
