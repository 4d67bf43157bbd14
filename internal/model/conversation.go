// Package model 包含了应用的数据模型定义。
package model

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 代表对话中的一条消息（一轮），创建后不再修改。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Exchange 是一次完整问答的归档记录，写入 MySQL 供管理端查看。
type Exchange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VisitorID string    `gorm:"type:varchar(64);index;not null" json:"visitorId"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Intent    string    `gorm:"type:varchar(32);not null" json:"intent"`
	Remote    bool      `gorm:"not null;default:false" json:"remote"`
	Failed    bool      `gorm:"not null;default:false" json:"failed"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Exchange) TableName() string {
	return "exchanges"
}
