package model

import (
	"time"

	"gorm.io/datatypes"
)

// 活动类型
const (
	ActionChartCreated    = "chart_created"
	ActionChartUpdated    = "chart_updated"
	ActionChartDeleted    = "chart_deleted"
	ActionChartDuplicated = "chart_duplicated"
	ActionChartPublished  = "chart_published"
)

type ActivityLog struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	UserID      int64          `gorm:"not null;index" json:"user_id"`
	Action      string         `gorm:"size:50;not null;index" json:"action"`
	Description string         `gorm:"size:500" json:"description"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// AllModels 需要迁移的模型
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Chart{},
		&GalleryItem{},
		&Favorite{},
		&ActivityLog{},
	}
}
