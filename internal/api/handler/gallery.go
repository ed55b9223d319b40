package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chart_editor_server/internal/api/middleware"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/response"
	"github.com/qs3c/chart_editor_server/internal/service"
)

type GalleryHandler struct {
	galleryService *service.GalleryService
}

func NewGalleryHandler(galleryService *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{
		galleryService: galleryService,
	}
}

// List 画廊列表
// GET /api/v1/gallery
func (h *GalleryHandler) List(c *gin.Context) {
	var req dto.GalleryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, err := h.galleryService.List(&req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Get 画廊详情
// GET /api/v1/gallery/:id
func (h *GalleryHandler) Get(c *gin.Context) {
	itemID, ok := galleryIDParam(c)
	if !ok {
		return
	}

	// 获取用户ID（可选）
	var userID *int64
	if id, ok := middleware.GetUserID(c); ok {
		userID = &id
	}

	detail, err := h.galleryService.Get(itemID, userID)
	if err != nil {
		handleGalleryError(c, err)
		return
	}

	response.Success(c, detail)
}

// Use 以画廊条目为模板
// POST /api/v1/gallery/:id/use
func (h *GalleryHandler) Use(c *gin.Context) {
	itemID, ok := galleryIDParam(c)
	if !ok {
		return
	}

	chart, err := h.galleryService.Use(itemID)
	if err != nil {
		handleGalleryError(c, err)
		return
	}

	response.Success(c, chart)
}

// Favorite 收藏
// POST /api/v1/gallery/:id/favorite
func (h *GalleryHandler) Favorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	itemID, ok := galleryIDParam(c)
	if !ok {
		return
	}

	resp, err := h.galleryService.Favorite(userID, itemID)
	if err != nil {
		handleGalleryError(c, err)
		return
	}

	response.Success(c, resp)
}

// Unfavorite 取消收藏
// DELETE /api/v1/gallery/:id/favorite
func (h *GalleryHandler) Unfavorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	itemID, ok := galleryIDParam(c)
	if !ok {
		return
	}

	resp, err := h.galleryService.Unfavorite(userID, itemID)
	if err != nil {
		handleGalleryError(c, err)
		return
	}

	response.Success(c, resp)
}

func handleGalleryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGalleryItemNotFound),
		errors.Is(err, service.ErrChartNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrAlreadyFavorited),
		errors.Is(err, service.ErrNotFavorited):
		response.DuplicateError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

func galleryIDParam(c *gin.Context) (int64, bool) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		response.ParamError(c, "无效的画廊ID")
		return 0, false
	}
	return itemID, true
}
