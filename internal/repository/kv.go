// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCorruptData 表示存储中的值不是合法 JSON，调用方通常按“无数据”处理。
var ErrCorruptData = errors.New("stored value is malformed")

// 与浏览器端 localStorage 中使用的键名保持一致。
const (
	keyConversation = "ai-conversation-history"
	keyAnalytics    = "ai-analytics"
	keyBookmarks    = "project-bookmarks"
)

// visitorKey 生成访客命名空间下的 Redis 键，例如 visitor:abc:ai-analytics。
func visitorKey(visitorID, name string) string {
	return fmt.Sprintf("visitor:%s:%s", visitorID, name)
}

// jsonKV 是按访客隔离的 JSON 键值存储。
type jsonKV struct {
	rdb *redis.Client
	ttl time.Duration // 0 表示永不过期
}

// get 读取并反序列化一个键。键不存在时返回 found=false。
func (s jsonKV) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptData, key, err)
	}
	return true, nil
}

func (s jsonKV) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
