package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	user := &model.User{
		Email:        fmt.Sprintf("test_%d@example.com", n),
		Name:         fmt.Sprintf("testuser_%d", n),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Tier:         model.TierFree,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithName 设置用户名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithTier 设置订阅等级
func WithTier(tier string) func(*model.User) {
	return func(u *model.User) {
		u.Tier = tier
	}
}

// WithChartsToday 设置今日已创建数量，resetAt 为上次重置时间
func WithChartsToday(count int, resetAt time.Time) func(*model.User) {
	return func(u *model.User) {
		u.ChartsCreatedToday = count
		u.QuotaResetAt = &resetAt
	}
}

// TestSpec 最小的合法图表规格
const TestSpec = `{"$schema":"https://vega.github.io/schema/vega-lite/v5.json","data":{"name":"dataset"},"mark":{"type":"bar","tooltip":true},"encoding":{"x":{"field":"category","type":"nominal"},"y":{"field":"value","type":"quantitative"}}}`

// TestChart 创建测试图表
func TestChart(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Chart)) *model.Chart {
	t.Helper()

	chart := &model.Chart{
		UserID:    userID,
		Name:      fmt.Sprintf("Test Chart %d", nextSeq()),
		Spec:      datatypes.JSON(TestSpec),
		ChartType: "bar",
	}

	for _, opt := range opts {
		opt(chart)
	}

	if err := db.Create(chart).Error; err != nil {
		t.Fatalf("Failed to create test chart: %v", err)
	}

	return chart
}

// WithChartName 设置图表名称
func WithChartName(name string) func(*model.Chart) {
	return func(c *model.Chart) {
		c.Name = name
	}
}

// WithSpec 设置图表规格
func WithSpec(spec string) func(*model.Chart) {
	return func(c *model.Chart) {
		c.Spec = datatypes.JSON(spec)
	}
}

// WithPublic 设置为公开
func WithPublic(isPublic bool) func(*model.Chart) {
	return func(c *model.Chart) {
		c.IsPublic = isPublic
	}
}

// TestGalleryItem 创建测试画廊条目
func TestGalleryItem(t *testing.T, db *gorm.DB, chart *model.Chart, opts ...func(*model.GalleryItem)) *model.GalleryItem {
	t.Helper()

	n := nextSeq()
	item := &model.GalleryItem{
		Slug:      fmt.Sprintf("test-item-%d", n),
		Title:     fmt.Sprintf("Test Item %d", n),
		ChartID:   chart.ID,
		CreatorID: chart.UserID,
		Category:  model.CategoryUserCreated,
		Tags:      model.StringArray{},
	}

	for _, opt := range opts {
		opt(item)
	}

	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to create test gallery item: %v", err)
	}

	return item
}

// WithItemTitle 设置画廊标题
func WithItemTitle(title string) func(*model.GalleryItem) {
	return func(g *model.GalleryItem) {
		g.Title = title
	}
}

// WithCategory 设置画廊分类
func WithCategory(category string) func(*model.GalleryItem) {
	return func(g *model.GalleryItem) {
		g.Category = category
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.GalleryItem) {
	return func(g *model.GalleryItem) {
		g.CreatedAt = at
	}
}

// TestFavorite 创建测试收藏
func TestFavorite(t *testing.T, db *gorm.DB, userID, itemID int64) *model.Favorite {
	t.Helper()

	fav := &model.Favorite{
		UserID:        userID,
		GalleryItemID: itemID,
	}

	if err := db.Create(fav).Error; err != nil {
		t.Fatalf("Failed to create test favorite: %v", err)
	}

	return fav
}
