package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringArray 用于 JSON 数组字段
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringArray) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}
	return json.Unmarshal(raw, s)
}

// 画廊分类
const (
	CategoryUserCreated = "user-created"
	CategoryTemplate    = "template"
)

type GalleryItem struct {
	ID              int64       `gorm:"primaryKey" json:"id"`
	Slug            string      `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title           string      `gorm:"size:200;not null" json:"title"`
	Description     string      `gorm:"type:text" json:"description"`
	PreviewImageURL string      `gorm:"size:500" json:"preview_image_url,omitempty"`
	ChartID         int64       `gorm:"not null;index" json:"chart_id"`
	CreatorID       int64       `gorm:"not null;index" json:"creator_id"`
	Category        string      `gorm:"size:50;default:user-created;index" json:"category"`
	Tags            StringArray `gorm:"type:json" json:"tags"`
	ViewCount       int         `gorm:"default:0" json:"view_count"`
	UseCount        int         `gorm:"default:0" json:"use_count"`
	FavoriteCount   int         `gorm:"default:0" json:"favorite_count"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	// 关联
	Chart   *Chart `gorm:"foreignKey:ChartID" json:"chart,omitempty"`
	Creator *User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}

func (GalleryItem) TableName() string {
	return "gallery_items"
}
