package pubsub

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
)

// 图表事件类型
const (
	EventChartCreated   = "chart_created"
	EventChartUpdated   = "chart_updated"
	EventChartDeleted   = "chart_deleted"
	EventChartPublished = "chart_published"
	EventDraftUpdated   = "draft_updated"
)

// ChartEvent 推送给图表所有者的事件
type ChartEvent struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id"`
	ChartID int64  `json:"chart_id"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish 发布图表事件
func (p *Publisher) Publish(ctx context.Context, event *ChartEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal chart event: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅图表事件，直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ChartEvent)) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// 等待订阅确认，保证之后发布的消息不会丢失
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event ChartEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
