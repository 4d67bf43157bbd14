// Package tasks defines the payloads that are sent to Kafka.
package tasks

// 分析事件类型，与聊天面板的埋点一致。
const (
	EventSessionStart = "session_start"
	EventMessageSent  = "message_sent"
	EventSessionEnd   = "session_end"
)

// AnalyticsEvent represents one chat usage event for a visitor.
type AnalyticsEvent struct {
	VisitorID string `json:"visitor_id"`
	Type      string `json:"type"`
	Query     string `json:"query,omitempty"`
	// OccurredAt 为 Unix 毫秒时间戳
	OccurredAt int64 `json:"occurred_at"`
}
