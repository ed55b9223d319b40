package dto

import (
	"encoding/json"

	"github.com/qs3c/chart_editor_server/internal/chartspec"
)

// CreateChartRequest 创建图表请求，Spec 为空时使用默认模板
type CreateChartRequest struct {
	Name        string          `json:"name" binding:"required,max=200"`
	Description string          `json:"description,omitempty" binding:"omitempty,max=2000"`
	Spec        json.RawMessage `json:"spec,omitempty"`
	IsPublic    bool            `json:"is_public"`
}

// UpdateChartRequest 更新图表请求
//
// Spec 整体替换已保存的文档，Delta 在其之上应用局部修改。
type UpdateChartRequest struct {
	Name        *string          `json:"name,omitempty" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty" binding:"omitempty,max=2000"`
	IsPublic    *bool            `json:"is_public,omitempty"`
	Spec        json.RawMessage  `json:"spec,omitempty"`
	Delta       *chartspec.Delta `json:"delta,omitempty"`
}

// ChartListRequest 图表列表请求参数
type ChartListRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
	Search   string `form:"search"`
}

// ChartListItem 图表列表项
type ChartListItem struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ChartType          string `json:"chart_type"`
	IsPublic           bool   `json:"is_public"`
	PublishedToGallery bool   `json:"published_to_gallery"`
	PreviewImageURL    string `json:"preview_image_url,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// ChartDetail 图表详情
type ChartDetail struct {
	ID                 int64           `json:"id"`
	UserID             int64           `json:"user_id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Spec               json.RawMessage `json:"spec"`
	ChartType          string          `json:"chart_type"`
	IsPublic           bool            `json:"is_public"`
	PublishedToGallery bool            `json:"published_to_gallery"`
	PreviewImageURL    string          `json:"preview_image_url,omitempty"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

// PublishChartRequest 发布到画廊请求
type PublishChartRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description,omitempty" binding:"omitempty,max=2000"`
	Tags        []string `json:"tags,omitempty" binding:"omitempty,max=5,dive,max=20"`
}

// DraftResponse 草稿会话
type DraftResponse struct {
	ChartID   int64           `json:"chart_id"`
	Spec      json.RawMessage `json:"spec"`
	Revision  int             `json:"revision"`
	ExpiresAt string          `json:"expires_at"`
}

// QuotaExceededData 配额不足时返回的数据
type QuotaExceededData struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
}
