package service

import (
	"context"
	"errors"
	"fmt"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/pkg/log"
	"sync"
	"time"
)

// DefaultContextWindow 是发送给模型的最近消息条数。
const DefaultContextWindow = 10

// ConversationStore 保存一个访客的对话：完整日志持久化到存储，另外在内存中维护一个有界的上下文窗口。
type ConversationStore struct {
	repo         repository.ConversationRepository
	visitorID    string
	windowSize   int
	maxPersisted int // 0 表示不限制持久化条数

	mu     sync.Mutex
	turns  []model.ChatMessage
	window []model.ChatMessage
}

// NewConversationStore 创建 ConversationStore。windowSize <= 0 时使用 DefaultContextWindow。
func NewConversationStore(repo repository.ConversationRepository, visitorID string, windowSize, maxPersisted int) *ConversationStore {
	if windowSize <= 0 {
		windowSize = DefaultContextWindow
	}
	return &ConversationStore{
		repo:         repo,
		visitorID:    visitorID,
		windowSize:   windowSize,
		maxPersisted: maxPersisted,
	}
}

// Load 从存储中恢复对话。数据不存在或已损坏时按空对话处理，不返回错误。
func (s *ConversationStore) Load(ctx context.Context) {
	history, err := s.repo.GetConversationHistory(ctx, s.visitorID)
	if err != nil {
		if errors.Is(err, repository.ErrCorruptData) {
			log.Warnw("对话记录已损坏，按空对话处理", "visitorId", s.visitorID, "error", err)
		} else {
			log.Errorw("读取对话记录失败，按空对话处理", "visitorId", s.visitorID, "error", err)
		}
		history = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append([]model.ChatMessage(nil), history...)
	s.window = lastN(s.turns, s.windowSize)
}

// Append 追加消息：写入完整日志和上下文窗口（超出窗口的最旧消息被丢弃），然后持久化完整日志。
// 内存状态总会更新；持久化失败时返回错误。
func (s *ConversationStore) Append(ctx context.Context, turns ...model.ChatMessage) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	s.turns = append(s.turns, turns...)
	s.window = lastN(append(s.window, turns...), s.windowSize)
	snapshot := s.persistable()
	s.mu.Unlock()

	if err := s.repo.UpdateConversationHistory(ctx, s.visitorID, snapshot); err != nil {
		return fmt.Errorf("failed to persist conversation: %w", err)
	}
	return nil
}

// persistable 返回需要写入存储的日志副本，调用方需持有锁。
func (s *ConversationStore) persistable() []model.ChatMessage {
	if s.maxPersisted > 0 {
		return lastN(s.turns, s.maxPersisted)
	}
	return append([]model.ChatMessage(nil), s.turns...)
}

// Window 返回当前上下文窗口的副本。
func (s *ConversationStore) Window() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.window...)
}

// WindowWith 返回追加 next 之后的上下文窗口，不修改存储本身。
func (s *ConversationStore) WindowWith(next model.ChatMessage) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastN(append(append([]model.ChatMessage(nil), s.window...), next), s.windowSize)
}

// Turns 返回完整对话的副本。
func (s *ConversationStore) Turns() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.turns...)
}

// Len 返回完整对话的消息数。
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Export 将完整对话格式化为可下载的纯文本记录。
func (s *ConversationStore) Export() string {
	return FormatTranscript(s.Turns())
}

// lastN 返回 msgs 末尾至多 n 条消息的新切片。
func lastN(msgs []model.ChatMessage, n int) []model.ChatMessage {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]model.ChatMessage(nil), msgs...)
}

// newTurn 创建一条带时间戳的消息。
func newTurn(role, content string, now time.Time) model.ChatMessage {
	return model.ChatMessage{Role: role, Content: content, Timestamp: now}
}
