package service

import (
	"context"
	"fmt"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/pkg/log"
	"portfolio-assistant/pkg/tasks"
	"time"
)

// EventPublisher 把分析事件交给异步管道（Kafka）。
type EventPublisher interface {
	Publish(ctx context.Context, event tasks.AnalyticsEvent) error
}

// AnalyticsService 定义了聊天统计的业务接口。
type AnalyticsService interface {
	// Track 记录一个事件，失败只记日志。
	Track(ctx context.Context, visitorID, eventType, query string)
	// Apply 把事件合并进访客的统计数据，Kafka 消费者也调用它。
	Apply(ctx context.Context, event tasks.AnalyticsEvent) error
	Get(ctx context.Context, visitorID string) (*model.Analytics, error)
}

type analyticsService struct {
	repo      repository.AnalyticsRepository
	publisher EventPublisher
	locks     keyedMutex
	now       func() time.Time
}

// NewAnalyticsService 创建 AnalyticsService。publisher 为 nil 时事件在进程内直接处理。
func NewAnalyticsService(repo repository.AnalyticsRepository, publisher EventPublisher) AnalyticsService {
	return &analyticsService{repo: repo, publisher: publisher, now: time.Now}
}

func (s *analyticsService) Track(ctx context.Context, visitorID, eventType, query string) {
	event := tasks.AnalyticsEvent{
		VisitorID:  visitorID,
		Type:       eventType,
		Query:      query,
		OccurredAt: s.now().UnixMilli(),
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, event)
		if err == nil {
			return
		}
		log.Warnw("发布分析事件失败，改为直接处理", "visitorId", visitorID, "type", eventType, "error", err)
	}
	if err := s.Apply(ctx, event); err != nil {
		log.Errorw("记录分析事件失败", "visitorId", visitorID, "type", eventType, "error", err)
	}
}

func (s *analyticsService) Apply(ctx context.Context, event tasks.AnalyticsEvent) error {
	unlock := s.locks.lock(event.VisitorID)
	defer unlock()

	analytics := s.load(ctx, event.VisitorID)
	switch event.Type {
	case tasks.EventSessionStart:
		analytics.SessionsStarted++
		analytics.LastSessionStart = event.OccurredAt
	case tasks.EventMessageSent:
		analytics.MessagesExchanged++
		if event.Query != "" {
			analytics.PopularQueries[event.Query]++
		}
	case tasks.EventSessionEnd:
		if analytics.LastSessionStart > 0 {
			length := float64(event.OccurredAt - analytics.LastSessionStart)
			// 与前端统计口径一致：新旧值取平均
			analytics.AverageSessionLength = (analytics.AverageSessionLength + length) / 2
			analytics.LastSessionStart = 0
		}
	default:
		return fmt.Errorf("unknown analytics event type %q", event.Type)
	}
	return s.repo.Save(ctx, event.VisitorID, analytics)
}

func (s *analyticsService) Get(ctx context.Context, visitorID string) (*model.Analytics, error) {
	return s.load(ctx, visitorID), nil
}

// load 读取统计数据；不存在或损坏时返回默认值。
func (s *analyticsService) load(ctx context.Context, visitorID string) *model.Analytics {
	analytics, err := s.repo.Get(ctx, visitorID)
	if err != nil {
		log.Warnw("读取统计数据失败，使用默认值", "visitorId", visitorID, "error", err)
		return model.NewAnalytics()
	}
	return analytics
}
