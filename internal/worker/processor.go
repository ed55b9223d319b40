package worker

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/qs3c/chart_editor_server/internal/model"
	"github.com/qs3c/chart_editor_server/internal/pkg/logger"
	"github.com/qs3c/chart_editor_server/internal/pkg/queue"
	"github.com/qs3c/chart_editor_server/internal/repository"
)

// Processor 把队列中的活动写入 activity_logs
type Processor struct {
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewProcessor 创建活动处理器
func NewProcessor(activityRepo *repository.ActivityRepository, log *zap.Logger) *Processor {
	return &Processor{
		activityRepo: activityRepo,
		logger:       logger.Nop(log),
	}
}

// Process 处理一条活动消息
func (p *Processor) Process(ctx context.Context, msg *queue.ActivityMessage) error {
	if msg.UserID == 0 || msg.Action == "" {
		return fmt.Errorf("invalid activity message: user_id=%d action=%q", msg.UserID, msg.Action)
	}

	entry := &model.ActivityLog{
		UserID:      msg.UserID,
		Action:      msg.Action,
		Description: msg.Description,
		CreatedAt:   msg.CreatedAt,
	}
	if len(msg.Metadata) > 0 {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		entry.Metadata = datatypes.JSON(data)
	}

	if err := p.activityRepo.Create(entry); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	p.logger.Debug("activity saved",
		zap.Int64("user_id", msg.UserID),
		zap.String("action", msg.Action))
	return nil
}
