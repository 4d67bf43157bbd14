package service

import (
	"context"
	"errors"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/pkg/log"
	"portfolio-assistant/pkg/tasks"
	"strings"
	"sync"
	"time"
)

var (
	// ErrSessionClosed 表示会话未打开，或在解析过程中被关闭（结果已丢弃）。
	ErrSessionClosed = errors.New("chat session is closed")
	// ErrEmptyMessage 表示提交了空白消息。
	ErrEmptyMessage = errors.New("message is empty")
	// ErrUnknownSharedFile 表示请求分享的文件类型不存在。
	ErrUnknownSharedFile = errors.New("unknown shared file")
)

// SessionState 是聊天面板的会话状态。
type SessionState int

const (
	StateClosed SessionState = iota
	StateAwaitingInput
	StateResolving
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting-input"
	case StateResolving:
		return "resolving"
	default:
		return "closed"
	}
}

// ExchangeRecorder 归档一次完整问答，失败不影响会话。
type ExchangeRecorder interface {
	Record(ctx context.Context, exchange *model.Exchange)
}

// ChatSession 是一个访客的聊天会话：closed → open(awaiting-input ⇄ resolving) → closed。
// 同一会话内的提交严格串行，关闭会话会取消正在进行的远程调用。
type ChatSession struct {
	visitorID string
	profile   *model.Profile
	store     *ConversationStore
	resolver  ResponseResolver
	analytics AnalyticsService
	recorder  ExchangeRecorder
	now       func() time.Time

	// slot 容量为 1，持有者即当前唯一的解析者
	slot chan struct{}

	mu     sync.Mutex
	state  SessionState
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChatSession 创建一个处于 closed 状态的会话。recorder 可以为 nil。
func NewChatSession(visitorID string, profile *model.Profile, store *ConversationStore, resolver ResponseResolver, analytics AnalyticsService, recorder ExchangeRecorder) *ChatSession {
	return &ChatSession{
		visitorID: visitorID,
		profile:   profile,
		store:     store,
		resolver:  resolver,
		analytics: analytics,
		recorder:  recorder,
		now:       time.Now,
		slot:      make(chan struct{}, 1),
		state:     StateClosed,
	}
}

// VisitorID 返回会话所属的访客。
func (s *ChatSession) VisitorID() string {
	return s.visitorID
}

// State 返回当前状态。
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Store 返回会话使用的对话存储。
func (s *ChatSession) Store() *ConversationStore {
	return s.store
}

// Open 打开会话并从存储恢复对话。已打开时什么也不做。
func (s *ChatSession) Open(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.mu.Unlock()
		return
	}
	s.store.Load(ctx)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.state = StateAwaitingInput
	s.mu.Unlock()

	s.analytics.Track(ctx, s.visitorID, tasks.EventSessionStart, "")
	log.Infow("聊天会话已打开", "visitorId", s.visitorID, "turns", s.store.Len())
}

// Close 关闭会话。正在进行的解析会被取消，其结果不会写入对话。
func (s *ChatSession) Close(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.state = StateClosed
	s.mu.Unlock()

	s.analytics.Track(ctx, s.visitorID, tasks.EventSessionEnd, "")
	log.Infow("聊天会话已关闭", "visitorId", s.visitorID)
}

// SendMessage 处理访客提交的一条消息，返回助手回复。
// 解析失败不会作为错误返回（Reply 中是道歉文案）；只有空消息、会话已关闭或 ctx 取消时返回错误。
// 成功时对话恰好增加两条：用户消息和助手回复。
func (s *ChatSession) SendMessage(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	var reply Reply
	err := s.exclusive(ctx, func(sessCtx context.Context) error {
		s.analytics.Track(ctx, s.visitorID, tasks.EventMessageSent, text)

		userTurn := newTurn(model.RoleUser, text, s.now())
		window := s.store.WindowWith(userTurn)

		// 调用方取消或会话关闭都会中止远程调用
		rctx, cancel := context.WithCancel(ctx)
		stop := context.AfterFunc(sessCtx, cancel)
		reply = s.resolver.Resolve(rctx, text, window)
		stop()
		cancel()

		if sessCtx.Err() != nil {
			log.Infow("会话已关闭，丢弃解析结果", "visitorId", s.visitorID)
			return ErrSessionClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		assistantTurn := newTurn(model.RoleAssistant, reply.Text, s.now())
		// 即使请求随后被取消，也要把已生成的回复写入
		persistCtx := context.WithoutCancel(ctx)
		if err := s.store.Append(persistCtx, userTurn, assistantTurn); err != nil {
			log.Errorw("保存对话失败", "visitorId", s.visitorID, "error", err)
		}
		if s.recorder != nil {
			s.recorder.Record(persistCtx, &model.Exchange{
				VisitorID: s.visitorID,
				Question:  text,
				Answer:    reply.Text,
				Intent:    string(reply.Intent),
				Remote:    reply.Remote,
				Failed:    reply.Failed,
			})
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// ShareFile 以助手身份在对话中发送一条文件说明。
func (s *ChatSession) ShareFile(ctx context.Context, kind string) (model.SharedFile, error) {
	file, ok := s.profile.SharedFileByKind(kind)
	if !ok {
		return model.SharedFile{}, ErrUnknownSharedFile
	}
	err := s.exclusive(ctx, func(context.Context) error {
		turn := newTurn(model.RoleAssistant, file.Message, s.now())
		if err := s.store.Append(context.WithoutCancel(ctx), turn); err != nil {
			log.Errorw("保存对话失败", "visitorId", s.visitorID, "error", err)
		}
		return nil
	})
	if err != nil {
		return model.SharedFile{}, err
	}
	return file, nil
}

// exclusive 等待轮到本次提交，然后在 resolving 状态下执行 fn。
func (s *ChatSession) exclusive(ctx context.Context, fn func(sessCtx context.Context) error) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	sessCtx := s.ctx
	s.mu.Unlock()

	select {
	case s.slot <- struct{}{}:
	case <-sessCtx.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slot }()

	s.mu.Lock()
	if s.state == StateClosed || sessCtx.Err() != nil {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = StateResolving
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.state == StateResolving {
			s.state = StateAwaitingInput
		}
		s.mu.Unlock()
	}()

	return fn(sessCtx)
}
