package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/model"
)

type GalleryRepository struct {
	db *gorm.DB
}

func NewGalleryRepository(db *gorm.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

func (r *GalleryRepository) Create(item *model.GalleryItem) error {
	return r.db.Create(item).Error
}

// Publish 创建画廊条目并标记图表已发布，二者同一事务
func (r *GalleryRepository) Publish(item *model.GalleryItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		res := tx.Model(&model.Chart{}).Where("id = ?", item.ChartID).Updates(map[string]interface{}{
			"published_to_gallery": true,
			"is_public":            true,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GalleryRepository) GetByID(id int64) (*model.GalleryItem, error) {
	var item model.GalleryItem
	err := r.db.Preload("Creator").Preload("Chart").Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GalleryRepository) GetBySlug(slug string) (*model.GalleryItem, error) {
	var item model.GalleryItem
	err := r.db.Preload("Creator").Preload("Chart").Where("slug = ?", slug).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List 画廊列表，按创建时间倒序
func (r *GalleryRepository) List(category, search string, limit int) ([]*model.GalleryItem, error) {
	var items []*model.GalleryItem

	query := r.db.Model(&model.GalleryItem{}).Preload("Creator")

	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&items).Error
	return items, err
}

// IncrementViewCount 增加浏览数
func (r *GalleryRepository) IncrementViewCount(id int64) error {
	return r.db.Model(&model.GalleryItem{}).Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + 1")).Error
}

// IncrementUseCount 增加使用数
func (r *GalleryRepository) IncrementUseCount(id int64) error {
	return r.db.Model(&model.GalleryItem{}).Where("id = ?", id).
		Update("use_count", gorm.Expr("use_count + 1")).Error
}

// IncrementFavoriteCount 调整收藏数
func (r *GalleryRepository) IncrementFavoriteCount(id int64, delta int) error {
	return r.db.Model(&model.GalleryItem{}).Where("id = ?", id).
		Update("favorite_count", gorm.Expr("favorite_count + ?", delta)).Error
}

// ExistsForChart 图表是否已发布
func (r *GalleryRepository) ExistsForChart(chartID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.GalleryItem{}).Where("chart_id = ?", chartID).Count(&count).Error
	return count > 0, err
}
