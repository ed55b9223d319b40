package model

import (
	"time"

	"gorm.io/datatypes"
)

type Chart struct {
	ID                 int64          `gorm:"primaryKey" json:"id"`
	UserID             int64          `gorm:"not null;index" json:"user_id"`
	Name               string         `gorm:"size:200;not null" json:"name"`
	Description        string         `gorm:"type:text" json:"description"`
	Spec               datatypes.JSON `gorm:"not null" json:"spec"`
	ChartType          string         `gorm:"size:30;default:bar" json:"chart_type"`
	IsPublic           bool           `gorm:"default:false;index" json:"is_public"`
	PublishedToGallery bool           `gorm:"default:false" json:"published_to_gallery"`
	PreviewImageURL    string         `gorm:"size:500" json:"preview_image_url,omitempty"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Chart) TableName() string {
	return "charts"
}
