package model

import (
	"time"
)

// 订阅等级
const (
	TierFree    = "free"
	TierPremium = "premium"
)

type User struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Name               string     `gorm:"size:100" json:"name"`
	PasswordHash       string     `gorm:"size:255;not null" json:"-"`
	AvatarURL          string     `gorm:"size:500" json:"avatar_url"`
	Tier               string     `gorm:"size:20;default:free;index" json:"tier"`
	ChartsCreatedToday int        `gorm:"default:0" json:"charts_created_today"`
	QuotaResetAt       *time.Time `json:"quota_reset_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsPremium 是否为付费用户
func (u *User) IsPremium() bool {
	return u.Tier == TierPremium
}
