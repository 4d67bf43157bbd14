package model

// Analytics 是单个访客的聊天使用统计，以 JSON 形式保存在 Redis 中。
type Analytics struct {
	SessionsStarted   int            `json:"sessionsStarted"`
	MessagesExchanged int            `json:"messagesExchanged"`
	PopularQueries    map[string]int `json:"popularQueries"`
	// AverageSessionLength 单位为毫秒
	AverageSessionLength float64 `json:"averageSessionLength"`
	// LastSessionStart 为 Unix 毫秒时间戳，用于在 session_end 时计算时长
	LastSessionStart int64 `json:"lastSessionStart,omitempty"`
}

// NewAnalytics 返回一份空统计。
func NewAnalytics() *Analytics {
	return &Analytics{PopularQueries: map[string]int{}}
}
