package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
)

// ErrMalformedMessage 无法解析的消息，已转入死信列表
var ErrMalformedMessage = errors.New("malformed activity message")

// Queue Redis 列表实现的活动队列：LPUSH 入队，BRPOP 出队
type Queue struct {
	client *redis.Client
	name   string
	dead   string
}

// ActivityMessage 用户活动记录，由 worker 写入 activity_logs
type ActivityMessage struct {
	UserID      int64          `json:"user_id"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewQueue(client *redis.Client, name string) *Queue {
	return &Queue{
		client: client,
		name:   name,
		dead:   name + ":dead",
	}
}

func (q *Queue) Push(ctx context.Context, msg *ActivityMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	return q.client.LPush(ctx, q.name, data).Err()
}

// Pop 阻塞等待一条活动，超时返回 (nil, nil)
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*ActivityMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop activity: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	raw := result[1]
	var msg ActivityMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		if dlErr := q.client.LPush(ctx, q.dead, raw).Err(); dlErr != nil {
			return nil, fmt.Errorf("%w: %v (dead letter: %v)", ErrMalformedMessage, err, dlErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// DeadLength 死信列表长度
func (q *Queue) DeadLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.dead).Result()
}
