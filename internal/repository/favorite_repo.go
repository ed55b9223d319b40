package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/model"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Create 创建收藏记录
func (r *FavoriteRepository) Create(fav *model.Favorite) error {
	return r.db.Create(fav).Error
}

// Delete 删除收藏记录，返回是否存在
func (r *FavoriteRepository) Delete(userID, itemID int64) (bool, error) {
	result := r.db.Where("user_id = ? AND gallery_item_id = ?", userID, itemID).Delete(&model.Favorite{})
	return result.RowsAffected > 0, result.Error
}

// Exists 检查收藏是否存在
func (r *FavoriteRepository) Exists(userID, itemID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.Favorite{}).
		Where("user_id = ? AND gallery_item_id = ?", userID, itemID).
		Count(&count).Error
	return count > 0, err
}
