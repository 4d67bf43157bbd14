package repository

import (
	"context"
	"fmt"
	"portfolio-assistant/internal/model"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// ConversationRepository 定义了对话历史记录的操作接口。
type ConversationRepository interface {
	// GetConversationHistory 读取访客的完整对话；不存在时返回空切片，数据损坏时返回 ErrCorruptData。
	GetConversationHistory(ctx context.Context, visitorID string) ([]model.ChatMessage, error)
	// UpdateConversationHistory 整体覆盖访客的对话记录。
	UpdateConversationHistory(ctx context.Context, visitorID string, messages []model.ChatMessage) error
	// ListVisitorIDs 返回存有对话记录的访客 ID。
	ListVisitorIDs(ctx context.Context) ([]string, error)
}

type redisConversationRepository struct {
	kv jsonKV
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client, ttl time.Duration) ConversationRepository {
	return &redisConversationRepository{kv: jsonKV{rdb: redisClient, ttl: ttl}}
}

// GetConversationHistory 从 Redis 获取对话历史记录。
func (r *redisConversationRepository) GetConversationHistory(ctx context.Context, visitorID string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	found, err := r.kv.get(ctx, visitorKey(visitorID, keyConversation), &messages)
	if err != nil {
		return nil, err
	}
	if !found || messages == nil {
		return []model.ChatMessage{}, nil
	}
	return messages, nil
}

// UpdateConversationHistory 在 Redis 中更新对话历史记录。
func (r *redisConversationRepository) UpdateConversationHistory(ctx context.Context, visitorID string, messages []model.ChatMessage) error {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return r.kv.set(ctx, visitorKey(visitorID, keyConversation), messages)
}

// ListVisitorIDs 通过 SCAN visitor:*:ai-conversation-history 收集访客 ID。
func (r *redisConversationRepository) ListVisitorIDs(ctx context.Context) ([]string, error) {
	pattern := visitorKey("*", keyConversation)
	ids := []string{}
	iter := r.kv.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if id, ok := visitorIDFromKey(iter.Val(), keyConversation); ok {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan conversation keys: %w", err)
	}
	return ids, nil
}

// visitorIDFromKey 从 visitor:{id}:{name} 中取出 id。
func visitorIDFromKey(key, name string) (string, bool) {
	const prefix = "visitor:"
	suffix := ":" + name
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
	return id, id != ""
}
