package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/repository"
	"github.com/qs3c/chart_editor_server/internal/testutil"
)

var quotaNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func setupQuotaService(t *testing.T, limit int) (*QuotaService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{Quota: config.QuotaConfig{DailyLimit: limit}}
	service := NewQuotaService(repository.NewUserRepository(db), cfg, nil)
	service.now = func() time.Time { return quotaNow }
	return service, db
}

func reloadUser(t *testing.T, db *gorm.DB, id int64) *model.User {
	t.Helper()
	user, err := repository.NewUserRepository(db).GetByID(id)
	require.NoError(t, err)
	return user
}

func TestQuotaService_CheckQuota_FirstUse(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	user := testutil.TestUser(t, db)

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.Equal(t, &Decision{Allowed: true, Current: 0, Limit: 1}, d)

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.QuotaResetAt)
	assert.True(t, stored.QuotaResetAt.Equal(quotaNow))
}

func TestQuotaService_CheckQuota_SameDayAtLimit(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	user := testutil.TestUser(t, db, testutil.WithChartsToday(1, quotaNow.Add(-2*time.Hour)))

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.Current)
	assert.Equal(t, 1, d.Limit)
	assert.True(t, d.Metered())
}

func TestQuotaService_CheckQuota_ResetsNextDay(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	user := testutil.TestUser(t, db, testutil.WithChartsToday(1, quotaNow.Add(-24*time.Hour)))

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Current)

	stored := reloadUser(t, db, user.ID)
	assert.Equal(t, 0, stored.ChartsCreatedToday)
}

func TestQuotaService_CheckQuota_Idempotent(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		resetAt time.Time
		want    *Decision
	}{
		{"same day at limit", 1, quotaNow.Add(-time.Hour), &Decision{Allowed: false, Current: 1, Limit: 1}},
		{"stale counter reset", 1, quotaNow.Add(-24 * time.Hour), &Decision{Allowed: true, Current: 0, Limit: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, db := setupQuotaService(t, 1)
			user := testutil.TestUser(t, db, testutil.WithChartsToday(tt.count, tt.resetAt))

			first, err := service.CheckQuota(user.ID)
			require.NoError(t, err)
			second, err := service.CheckQuota(user.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second)
		})
	}
}

func TestQuotaService_CheckQuota_ResetPersistsOnDeny(t *testing.T) {
	service, db := setupQuotaService(t, 0)
	user := testutil.TestUser(t, db, testutil.WithChartsToday(3, quotaNow.Add(-48*time.Hour)))

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Current)

	stored := reloadUser(t, db, user.ID)
	assert.Equal(t, 0, stored.ChartsCreatedToday)
	require.NotNil(t, stored.QuotaResetAt)
	assert.True(t, stored.QuotaResetAt.Equal(quotaNow))
}

func TestQuotaService_CheckQuota_ReferenceTimezone(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	service.loc = time.FixedZone("UTC+8", 8*3600)
	service.now = func() time.Time { return time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC) }

	// 同一个 UTC 日期，但在 UTC+8 已经是第二天
	user := testutil.TestUser(t, db, testutil.WithChartsToday(1, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Current)
}

func TestQuotaService_CheckQuota_Premium(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	user := testutil.TestUser(t, db,
		testutil.WithTier(model.TierPremium),
		testutil.WithChartsToday(40, quotaNow.Add(-72*time.Hour)),
	)

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.Equal(t, &Decision{Allowed: true, Current: 0, Limit: Unmetered}, d)
	assert.False(t, d.Metered())

	// 付费用户不触发重置
	stored := reloadUser(t, db, user.ID)
	assert.Equal(t, 40, stored.ChartsCreatedToday)
}

func TestQuotaService_CheckQuota_UserNotFound(t *testing.T) {
	service, _ := setupQuotaService(t, 1)

	_, err := service.CheckQuota(99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestQuotaService_Consume(t *testing.T) {
	service, db := setupQuotaService(t, 3)
	user := testutil.TestUser(t, db, testutil.WithChartsToday(1, quotaNow))

	require.NoError(t, service.Consume(user.ID))

	d, err := service.CheckQuota(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Current)
	assert.True(t, d.Allowed)
}

func TestQuotaService_ReserveAndRelease(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	user := testutil.TestUser(t, db)

	d, err := service.Reserve(user.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Current)
	assert.Equal(t, 1, reloadUser(t, db, user.ID).ChartsCreatedToday)

	d, err = service.Reserve(user.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.Current)
	assert.Equal(t, 1, reloadUser(t, db, user.ID).ChartsCreatedToday)

	require.NoError(t, service.Release(user.ID))
	require.NoError(t, service.Release(user.ID))
	assert.Equal(t, 0, reloadUser(t, db, user.ID).ChartsCreatedToday)
}

func TestQuotaService_Reserve_Premium(t *testing.T) {
	service, db := setupQuotaService(t, 1)
	user := testutil.TestUser(t, db, testutil.WithTier(model.TierPremium))

	for i := 0; i < 3; i++ {
		d, err := service.Reserve(user.ID)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.False(t, d.Metered())
	}
	assert.Equal(t, 0, reloadUser(t, db, user.ID).ChartsCreatedToday)
}

func TestQuotaService_GetQuotaInfo(t *testing.T) {
	service, db := setupQuotaService(t, 5)
	user := testutil.TestUser(t, db, testutil.WithChartsToday(2, quotaNow))

	info, err := service.GetQuotaInfo(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierFree, info.Tier)
	assert.Equal(t, 5, info.DailyLimit)
	assert.Equal(t, 2, info.UsedToday)
	assert.Equal(t, 3, info.Remaining)
	assert.Equal(t, "2024-03-01T10:00:00Z", info.QuotaResetAt)
}

func TestQuotaService_GetQuotaInfo_Premium(t *testing.T) {
	service, db := setupQuotaService(t, 5)
	user := testutil.TestUser(t, db, testutil.WithTier(model.TierPremium))

	info, err := service.GetQuotaInfo(user.ID)
	require.NoError(t, err)
	assert.Equal(t, Unmetered, info.DailyLimit)
	assert.Equal(t, Unmetered, info.Remaining)
}

func TestQuotaExceededError(t *testing.T) {
	var err error = &QuotaExceededError{Decision: Decision{Current: 1, Limit: 1}}

	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	var qe *QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 1, qe.Decision.Limit)
}
