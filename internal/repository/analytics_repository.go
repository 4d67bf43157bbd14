package repository

import (
	"context"
	"portfolio-assistant/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

// AnalyticsRepository 保存访客的聊天统计。
type AnalyticsRepository interface {
	Get(ctx context.Context, visitorID string) (*model.Analytics, error)
	Save(ctx context.Context, visitorID string, analytics *model.Analytics) error
}

type redisAnalyticsRepository struct {
	kv jsonKV
}

// NewAnalyticsRepository 创建一个新的 AnalyticsRepository 实例。
func NewAnalyticsRepository(redisClient *redis.Client, ttl time.Duration) AnalyticsRepository {
	return &redisAnalyticsRepository{kv: jsonKV{rdb: redisClient, ttl: ttl}}
}

// Get 读取统计数据。已保存的字段覆盖默认值，未出现的字段保持为零。
func (r *redisAnalyticsRepository) Get(ctx context.Context, visitorID string) (*model.Analytics, error) {
	analytics := model.NewAnalytics()
	if _, err := r.kv.get(ctx, visitorKey(visitorID, keyAnalytics), analytics); err != nil {
		return nil, err
	}
	if analytics.PopularQueries == nil {
		analytics.PopularQueries = map[string]int{}
	}
	return analytics, nil
}

func (r *redisAnalyticsRepository) Save(ctx context.Context, visitorID string, analytics *model.Analytics) error {
	return r.kv.set(ctx, visitorKey(visitorID, keyAnalytics), analytics)
}
