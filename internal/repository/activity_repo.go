package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/model"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(log *model.ActivityLog) error {
	return r.db.Create(log).Error
}

// ListByUserID 最近的活动记录
func (r *ActivityRepository) ListByUserID(userID int64, limit int) ([]*model.ActivityLog, error) {
	var logs []*model.ActivityLog
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// DeleteBefore 删除早于 cutoff 的活动记录，返回删除条数
func (r *ActivityRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&model.ActivityLog{})
	return result.RowsAffected, result.Error
}
