package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// SetTier 修改订阅等级，返回是否命中用户
func (r *UserRepository) SetTier(email, tier string) (bool, error) {
	result := r.db.Model(&model.User{}).Where("email = ?", email).Update("tier", tier)
	return result.RowsAffected > 0, result.Error
}

// IncrementChartsCreated 今日创建数 +1
func (r *UserRepository) IncrementChartsCreated(id int64) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).
		Update("charts_created_today", gorm.Expr("charts_created_today + 1")).Error
}

// IncrementChartsWithCeiling 仅在未达到上限时 +1，单条 UPDATE 保证原子性
func (r *UserRepository) IncrementChartsWithCeiling(id int64, limit int) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND charts_created_today < ?", id, limit).
		Update("charts_created_today", gorm.Expr("charts_created_today + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DecrementChartsCreated 今日创建数 -1，不低于 0
func (r *UserRepository) DecrementChartsCreated(id int64) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).
		Update("charts_created_today", gorm.Expr("CASE WHEN charts_created_today > 0 THEN charts_created_today - 1 ELSE 0 END")).Error
}

// ResetQuota 重置今日计数
func (r *UserRepository) ResetQuota(id int64, resetAt time.Time) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"charts_created_today": 0,
		"quota_reset_at":       resetAt,
	}).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}
