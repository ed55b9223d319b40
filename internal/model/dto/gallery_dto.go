package dto

// GalleryListRequest 画廊列表请求参数
type GalleryListRequest struct {
	Category string `form:"category"`
	Search   string `form:"search"`
}

// GalleryItem 画廊列表项
type GalleryItem struct {
	ID              int64       `json:"id"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	PreviewImageURL string      `json:"preview_image_url,omitempty"`
	ChartID         int64       `json:"chart_id"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags"`
	Creator         *AuthorInfo `json:"creator,omitempty"`
	ViewCount       int         `json:"view_count"`
	UseCount        int         `json:"use_count"`
	FavoriteCount   int         `json:"favorite_count"`
	CreatedAt       string      `json:"created_at"`
}

// GalleryDetail 画廊详情，包含图表规格
type GalleryDetail struct {
	GalleryItem
	Chart     *ChartDetail `json:"chart,omitempty"`
	Favorited bool         `json:"favorited"`
}

// AuthorInfo 作者信息
type AuthorInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// FavoriteResponse 收藏响应
type FavoriteResponse struct {
	Favorited     bool `json:"favorited"`
	FavoriteCount int  `json:"favorite_count"`
}
