package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// BookmarkRepository 保存访客收藏的项目 ID 列表。
type BookmarkRepository interface {
	Get(ctx context.Context, visitorID string) ([]string, error)
	Save(ctx context.Context, visitorID string, projectIDs []string) error
}

type redisBookmarkRepository struct {
	kv jsonKV
}

// NewBookmarkRepository 创建一个新的 BookmarkRepository 实例。
func NewBookmarkRepository(redisClient *redis.Client, ttl time.Duration) BookmarkRepository {
	return &redisBookmarkRepository{kv: jsonKV{rdb: redisClient, ttl: ttl}}
}

func (r *redisBookmarkRepository) Get(ctx context.Context, visitorID string) ([]string, error) {
	var ids []string
	if _, err := r.kv.get(ctx, visitorKey(visitorID, keyBookmarks), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *redisBookmarkRepository) Save(ctx context.Context, visitorID string, projectIDs []string) error {
	if projectIDs == nil {
		projectIDs = []string{}
	}
	return r.kv.set(ctx, visitorKey(visitorID, keyBookmarks), projectIDs)
}
