package model

import (
	"fmt"
	"time"
)

// LocalTime is a custom time type to format time as "YYYY-MM-DD HH:MM:SS".
type LocalTime time.Time

const timeFormat = "2006-01-02 15:04:05"

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).Format(timeFormat))
	return []byte(formatted), nil
}

// ExchangeDTO 是管理端展示归档问答时使用的结构，时间以本地格式输出。
type ExchangeDTO struct {
	ID        uint      `json:"id"`
	VisitorID string    `json:"visitorId"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Intent    string    `json:"intent"`
	Remote    bool      `json:"remote"`
	Failed    bool      `json:"failed"`
	CreatedAt LocalTime `json:"createdAt"`
}

// ToDTO 将归档记录转换为展示结构。
func (e Exchange) ToDTO() ExchangeDTO {
	return ExchangeDTO{
		ID:        e.ID,
		VisitorID: e.VisitorID,
		Question:  e.Question,
		Answer:    e.Answer,
		Intent:    e.Intent,
		Remote:    e.Remote,
		Failed:    e.Failed,
		CreatedAt: LocalTime(e.CreatedAt),
	}
}
