package service

import (
	"context"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/pkg/log"
)

// 管理端列表的默认与最大条数。
const (
	defaultExchangeLimit = 50
	maxExchangeLimit     = 500
)

// exchangeArchive 把问答写入 MySQL 归档，写入失败只记日志。
type exchangeArchive struct {
	repo repository.ExchangeRepository
}

// NewExchangeRecorder 创建基于 ExchangeRepository 的 ExchangeRecorder。
func NewExchangeRecorder(repo repository.ExchangeRepository) ExchangeRecorder {
	return &exchangeArchive{repo: repo}
}

func (a *exchangeArchive) Record(_ context.Context, exchange *model.Exchange) {
	if err := a.repo.Create(exchange); err != nil {
		log.Errorw("归档问答失败", "visitorId", exchange.VisitorID, "error", err)
	}
}

// AdminService 定义了管理端的查询接口。
type AdminService interface {
	ListExchanges(visitorID string, limit int) ([]model.ExchangeDTO, error)
	ListVisitors(ctx context.Context) ([]string, error)
	GetAnalytics(ctx context.Context, visitorID string) (*model.Analytics, error)
}

type adminService struct {
	exchangeRepo repository.ExchangeRepository
	convRepo     repository.ConversationRepository
	analytics    AnalyticsService
}

// NewAdminService 创建 AdminService。exchangeRepo 为 nil 时归档查询返回空列表。
func NewAdminService(exchangeRepo repository.ExchangeRepository, convRepo repository.ConversationRepository, analytics AnalyticsService) AdminService {
	return &adminService{exchangeRepo: exchangeRepo, convRepo: convRepo, analytics: analytics}
}

func (s *adminService) ListExchanges(visitorID string, limit int) ([]model.ExchangeDTO, error) {
	if s.exchangeRepo == nil {
		return []model.ExchangeDTO{}, nil
	}
	if limit <= 0 {
		limit = defaultExchangeLimit
	}
	if limit > maxExchangeLimit {
		limit = maxExchangeLimit
	}

	exchanges, err := s.exchangeRepo.List(visitorID, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]model.ExchangeDTO, 0, len(exchanges))
	for _, e := range exchanges {
		dtos = append(dtos, e.ToDTO())
	}
	return dtos, nil
}

func (s *adminService) ListVisitors(ctx context.Context) ([]string, error) {
	return s.convRepo.ListVisitorIDs(ctx)
}

func (s *adminService) GetAnalytics(ctx context.Context, visitorID string) (*model.Analytics, error) {
	return s.analytics.Get(ctx, visitorID)
}
