package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/chart_editor_server/config"
	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/model/dto"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

// Unmetered 付费用户的配额上限
const Unmetered = -1

var ErrQuotaExceeded = errors.New("今日配额已用完")

// Decision 一次创建请求的配额判定
type Decision struct {
	Allowed bool
	Current int
	Limit   int
}

// Metered 是否计入每日配额
func (d *Decision) Metered() bool {
	return d.Limit != Unmetered
}

// QuotaExceededError 携带判定结果的配额错误
type QuotaExceededError struct {
	Decision Decision
}

func (e *QuotaExceededError) Error() string {
	return ErrQuotaExceeded.Error()
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}

type QuotaService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewQuotaService(userRepo *repository.UserRepository, cfg *config.Config, log *zap.Logger) *QuotaService {
	log = logger.Nop(log)
	loc, err := cfg.Quota.Location()
	if err != nil {
		log.Warn("invalid quota timezone, using UTC", zap.String("timezone", cfg.Quota.Timezone), zap.Error(err))
	}
	return &QuotaService{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   log,
		loc:      loc,
		now:      time.Now,
	}
}

// DailyLimit 免费用户每日上限
func (s *QuotaService) DailyLimit() int {
	return s.cfg.Quota.DailyLimit
}

// CheckQuota 检查是否还能创建图表
//
// 跨天后先把计数清零并落库，即使随后判定为拒绝也保留这次重置。
func (s *QuotaService) CheckQuota(userID int64) (*Decision, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}
	if user.IsPremium() {
		return &Decision{Allowed: true, Current: 0, Limit: Unmetered}, nil
	}

	current, err := s.currentCount(user)
	if err != nil {
		return nil, err
	}
	limit := s.DailyLimit()
	return &Decision{Allowed: current < limit, Current: current, Limit: limit}, nil
}

// Consume 创建成功后计数 +1，失败只记录日志
func (s *QuotaService) Consume(userID int64) error {
	if err := s.userRepo.IncrementChartsCreated(userID); err != nil {
		s.logger.Warn("failed to consume quota", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// Reserve 检查并预占一次配额，计数与上限比较在同一条 UPDATE 中完成
func (s *QuotaService) Reserve(userID int64) (*Decision, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}
	if user.IsPremium() {
		return &Decision{Allowed: true, Current: 0, Limit: Unmetered}, nil
	}
	if _, err := s.currentCount(user); err != nil {
		return nil, err
	}

	limit := s.DailyLimit()
	ok, err := s.userRepo.IncrementChartsWithCeiling(userID, limit)
	if err != nil {
		return nil, err
	}

	user, err = s.getUser(userID)
	if err != nil {
		return nil, err
	}
	current := user.ChartsCreatedToday
	if ok {
		current--
	}
	return &Decision{Allowed: ok, Current: current, Limit: limit}, nil
}

// Release 退还 Reserve 占用的配额
func (s *QuotaService) Release(userID int64) error {
	return s.userRepo.DecrementChartsCreated(userID)
}

// GetQuotaInfo 获取用户配额信息
func (s *QuotaService) GetQuotaInfo(userID int64) (*dto.QuotaInfo, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}
	return s.quotaInfo(user)
}

func (s *QuotaService) quotaInfo(user *model.User) (*dto.QuotaInfo, error) {
	if user.IsPremium() {
		return &dto.QuotaInfo{
			Tier:       user.Tier,
			DailyLimit: Unmetered,
			Remaining:  Unmetered,
		}, nil
	}

	current, err := s.currentCount(user)
	if err != nil {
		return nil, err
	}
	limit := s.DailyLimit()
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}

	info := &dto.QuotaInfo{
		Tier:       user.Tier,
		DailyLimit: limit,
		UsedToday:  current,
		Remaining:  remaining,
	}
	if user.QuotaResetAt != nil {
		info.QuotaResetAt = user.QuotaResetAt.In(s.loc).Format(time.RFC3339)
	}
	return info, nil
}

// currentCount 返回今天的计数，必要时先重置
func (s *QuotaService) currentCount(user *model.User) (int, error) {
	now := s.now()
	if user.QuotaResetAt != nil && sameDay(*user.QuotaResetAt, now, s.loc) {
		return user.ChartsCreatedToday, nil
	}
	if err := s.userRepo.ResetQuota(user.ID, now); err != nil {
		return 0, err
	}
	user.ChartsCreatedToday = 0
	user.QuotaResetAt = &now
	return 0, nil
}

func (s *QuotaService) getUser(userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
