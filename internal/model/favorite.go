package model

import (
	"time"
)

type Favorite struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	UserID        int64     `gorm:"not null;uniqueIndex:idx_favorite_user_item" json:"user_id"`
	GalleryItemID int64     `gorm:"not null;uniqueIndex:idx_favorite_user_item;index" json:"gallery_item_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}
