package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/pkg/queue"
)

const (
	defaultPopTimeout = 5 * time.Second
	// Redis 不可用时的重试间隔
	errorBackoff = time.Second
)

// Source 活动消息来源，超时返回 nil
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.ActivityMessage, error)
}

// Pool 并发消费活动队列
type Pool struct {
	source     Source
	processor  *Processor
	workers    int
	popTimeout time.Duration
	logger     *zap.Logger
}

func NewPool(source Source, processor *Processor, workers int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		source:     source,
		processor:  processor,
		workers:    workers,
		popTimeout: defaultPopTimeout,
		logger:     logger.Nop(log),
	}
}

// Run 启动 worker 并阻塞到 ctx 取消且所有 worker 退出
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.logger.With(zap.Int("worker", workerID))
	for {
		if ctx.Err() != nil {
			log.Debug("worker shutting down")
			return
		}

		msg, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("failed to pop activity", zap.Error(err))
			if !errors.Is(err, queue.ErrMalformedMessage) {
				p.backoff(ctx)
			}
			continue
		}
		if msg == nil {
			continue
		}

		if err := p.processor.Process(ctx, msg); err != nil {
			log.Error("activity failed",
				zap.Int64("user_id", msg.UserID),
				zap.String("action", msg.Action),
				zap.Error(err))
		}
	}
}

func (p *Pool) backoff(ctx context.Context) {
	t := time.NewTimer(errorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
