package cron

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

const defaultInterval = time.Hour

type Service struct {
	activityRepo *repository.ActivityRepository
	retention    time.Duration
	interval     time.Duration
	logger       *zap.Logger
	now          func() time.Time
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewService retentionDays <= 0 时不清理
func NewService(activityRepo *repository.ActivityRepository, retentionDays int, log *zap.Logger) *Service {
	return &Service{
		activityRepo: activityRepo,
		retention:    time.Duration(retentionDays) * 24 * time.Hour,
		interval:     defaultInterval,
		logger:       logger.Nop(log),
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	if s.retention <= 0 {
		s.logger.Info("activity retention disabled")
		return
	}

	s.wg.Add(1)
	go s.runCleanup()
	s.logger.Info("cron service started", zap.Duration("retention", s.retention))
}

// Stop 停止定时任务并等待退出
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runCleanup 启动后先执行一次，之后按间隔执行
func (s *Service) runCleanup() {
	defer s.wg.Done()

	s.cleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Service) cleanup() {
	if _, err := s.RunNow(); err != nil {
		s.logger.Error("activity cleanup failed", zap.Error(err))
	}
}

// RunNow 立即清理过期的活动记录
func (s *Service) RunNow() (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.retention)
	removed, err := s.activityRepo.DeleteBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired activity removed",
			zap.Int64("count", removed),
			zap.Time("cutoff", cutoff))
	}
	return removed, nil
}
