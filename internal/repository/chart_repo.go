package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/model"
)

type ChartRepository struct {
	db *gorm.DB
}

func NewChartRepository(db *gorm.DB) *ChartRepository {
	return &ChartRepository{db: db}
}

func (r *ChartRepository) Create(chart *model.Chart) error {
	return r.db.Create(chart).Error
}

func (r *ChartRepository) GetByID(id int64) (*model.Chart, error) {
	var chart model.Chart
	err := r.db.Where("id = ?", id).First(&chart).Error
	if err != nil {
		return nil, err
	}
	return &chart, nil
}

// Update 整体保存图表
func (r *ChartRepository) Update(chart *model.Chart) error {
	return r.db.Save(chart).Error
}

func (r *ChartRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Chart{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除图表及其画廊条目、收藏
func (r *ChartRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		itemIDs := tx.Model(&model.GalleryItem{}).Select("id").Where("chart_id = ?", id)
		if err := tx.Where("gallery_item_id IN (?)", itemIDs).Delete(&model.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chart_id = ?", id).Delete(&model.GalleryItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Chart{}, id).Error
	})
}

// ListByUserID 获取用户的图表列表
func (r *ChartRepository) ListByUserID(userID int64, page, pageSize int, search string) ([]*model.Chart, int64, error) {
	var charts []*model.Chart
	var total int64

	query := r.db.Model(&model.Chart{}).Where("user_id = ?", userID)

	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("updated_at DESC").Offset(offset).Limit(pageSize).Find(&charts).Error; err != nil {
		return nil, 0, err
	}

	return charts, total, nil
}

// ListAllByUserID 获取用户全部图表（导出用）
func (r *ChartRepository) ListAllByUserID(userID int64) ([]*model.Chart, error) {
	var charts []*model.Chart
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Order("id ASC").Find(&charts).Error
	return charts, err
}
