package repository

import (
	"portfolio-assistant/internal/model"

	"gorm.io/gorm"
)

// ExchangeRepository 定义了问答归档的操作接口。
type ExchangeRepository interface {
	Create(exchange *model.Exchange) error
	// List 按时间倒序返回归档记录；visitorID 为空时不过滤。
	List(visitorID string, limit int) ([]model.Exchange, error)
}

type exchangeRepository struct {
	db *gorm.DB
}

// NewExchangeRepository 创建一个新的 ExchangeRepository 实例。
func NewExchangeRepository(db *gorm.DB) ExchangeRepository {
	return &exchangeRepository{db: db}
}

func (r *exchangeRepository) Create(exchange *model.Exchange) error {
	return r.db.Create(exchange).Error
}

func (r *exchangeRepository) List(visitorID string, limit int) ([]model.Exchange, error) {
	var exchanges []model.Exchange
	query := r.db.Model(&model.Exchange{}).Order("created_at DESC, id DESC")
	if visitorID != "" {
		query = query.Where("visitor_id = ?", visitorID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&exchanges).Error
	return exchanges, err
}
