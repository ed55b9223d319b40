// Package draft keeps in-progress chart edits in Redis. A draft belongs to
// one user and one chart, lives until it is saved, discarded, expired or the
// user logs out.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
)

var ErrNotFound = errors.New("draft not found")

// Draft 编辑会话
type Draft struct {
	UserID    int64           `json:"user_id"`
	ChartID   int64           `json:"chart_id"`
	Spec      json.RawMessage `json:"spec"`
	Revision  int             `json:"revision"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(userID, chartID int64) string {
	return fmt.Sprintf("draft:%d:%d", userID, chartID)
}

// Put 写入草稿并刷新过期时间
func (s *Store) Put(ctx context.Context, d *Draft) error {
	d.ExpiresAt = time.Now().Add(s.ttl)
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	return s.client.Set(ctx, key(d.UserID, d.ChartID), data, s.ttl).Err()
}

// Get 读取草稿，不存在返回 ErrNotFound
func (s *Store) Get(ctx context.Context, userID, chartID int64) (*Draft, error) {
	data, err := s.client.Get(ctx, key(userID, chartID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}

// Delete 删除草稿，返回是否存在
func (s *Store) Delete(ctx context.Context, userID, chartID int64) (bool, error) {
	n, err := s.client.Del(ctx, key(userID, chartID)).Result()
	return n > 0, err
}

// DeleteAll 删除用户的全部草稿（退出登录时调用）
func (s *Store) DeleteAll(ctx context.Context, userID int64) (int, error) {
	pattern := fmt.Sprintf("draft:%d:*", userID)
	var cursor uint64
	removed := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
