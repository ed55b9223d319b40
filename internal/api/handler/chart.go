package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/chart_editor_server/internal/api/middleware"
	"github.com/qs3c/chart_editor_server/internal/chartspec"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ChartHandler struct {
	chartService *service.ChartService
	logger       *zap.Logger
}

func NewChartHandler(chartService *service.ChartService, log *zap.Logger) *ChartHandler {
	return &ChartHandler{
		chartService: chartService,
		logger:       logger.Nop(log),
	}
}

// Create 创建图表
// POST /api/v1/charts
func (h *ChartHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.chartService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", detail)
}

// List 获取当前用户的图表列表
// GET /api/v1/charts
func (h *ChartHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ChartListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.chartService.List(userID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// Get 获取图表详情
// GET /api/v1/charts/:id
func (h *ChartHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	detail, err := h.chartService.Get(userID, chartID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, detail)
}

// Update 更新图表
// PUT /api/v1/charts/:id
func (h *ChartHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.chartService.Update(c.Request.Context(), userID, chartID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", detail)
}

// Delete 删除图表
// DELETE /api/v1/charts/:id
func (h *ChartHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	if err := h.chartService.Delete(c.Request.Context(), userID, chartID); err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Duplicate 复制图表，消耗配额
// POST /api/v1/charts/:id/duplicate
func (h *ChartHandler) Duplicate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	detail, err := h.chartService.Duplicate(c.Request.Context(), userID, chartID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "复制成功", detail)
}

// Publish 发布到画廊
// POST /api/v1/charts/:id/publish
func (h *ChartHandler) Publish(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	var req dto.PublishChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.chartService.Publish(c.Request.Context(), userID, chartID, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "发布成功", item)
}

// UploadPreview 上传预览图
// POST /api/v1/charts/:id/preview
func (h *ChartHandler) UploadPreview(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择文件")
		return
	}
	if file.Size > service.MaxPreviewSize {
		response.ParamError(c, service.ErrPreviewTooLarge.Error())
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}
	defer f.Close()

	url, err := h.chartService.UploadPreview(userID, chartID, f, file.Filename)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "上传成功", gin.H{
		"preview_image_url": url,
	})
}

// Export 导出当前用户的全部图表为 xlsx
// GET /api/v1/charts/export
func (h *ChartHandler) Export(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	data, err := h.chartService.Export(userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("charts-%s.xlsx", time.Now().UTC().Format("20060102"))
	response.Attachment(c, filename, xlsxContentType, data)
}

// OpenDraft 打开编辑会话
// POST /api/v1/charts/:id/draft
func (h *ChartHandler) OpenDraft(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	d, err := h.chartService.OpenDraft(c.Request.Context(), userID, chartID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, d)
}

// PatchDraft 在草稿上应用修改
// PATCH /api/v1/charts/:id/draft
func (h *ChartHandler) PatchDraft(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	var delta chartspec.Delta
	if err := c.ShouldBindJSON(&delta); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	d, err := h.chartService.PatchDraft(c.Request.Context(), userID, chartID, &delta)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.Success(c, d)
}

// SaveDraft 保存草稿
// POST /api/v1/charts/:id/draft/save
func (h *ChartHandler) SaveDraft(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	detail, err := h.chartService.SaveDraft(c.Request.Context(), userID, chartID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "保存成功", detail)
}

// DiscardDraft 丢弃草稿
// DELETE /api/v1/charts/:id/draft
func (h *ChartHandler) DiscardDraft(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	chartID, ok := chartIDParam(c)
	if !ok {
		return
	}

	if err := h.chartService.DiscardDraft(c.Request.Context(), userID, chartID); err != nil {
		h.handleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已丢弃草稿", nil)
}

// handleError 把服务层错误映射为业务码
func (h *ChartHandler) handleError(c *gin.Context, err error) {
	var quotaErr *service.QuotaExceededError
	var validationErr *chartspec.ValidationError

	switch {
	case errors.As(err, &quotaErr):
		response.QuotaExceeded(c, quotaErr.Error(), &dto.QuotaExceededData{
			Current: quotaErr.Decision.Current,
			Limit:   quotaErr.Decision.Limit,
		})
	case errors.As(err, &validationErr):
		response.ParamError(c, validationErr.Error())
	case errors.Is(err, service.ErrUnsupportedImage),
		errors.Is(err, service.ErrPreviewTooLarge):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrChartNotFound),
		errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrChartPermission):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrAlreadyPublished):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		response.ServerError(c, err.Error())
	default:
		h.logger.Error("chart request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		response.ServerError(c, "")
	}
}

func chartIDParam(c *gin.Context) (int64, bool) {
	chartID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || chartID <= 0 {
		response.ParamError(c, "无效的图表ID")
		return 0, false
	}
	return chartID, true
}
