package service

import (
	"context"
	"errors"
	"fmt"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/pkg/log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

var (
	// ErrUnknownQuickAction 表示快捷按钮下标越界。
	ErrUnknownQuickAction = errors.New("unknown quick action")
	// ErrStorageDisabled 表示未配置对象存储。
	ErrStorageDisabled = errors.New("object storage is not configured")
	// ErrSessionInUse 表示会话仍被 WebSocket 连接持有，不能从外部关闭。
	ErrSessionInUse = errors.New("chat session is held by a live connection")
)

// FileStore 是对象存储的抽象，用于生成下载链接和上传导出的对话记录。
type FileStore interface {
	PresignedURL(ctx context.Context, objectName string) (string, error)
	PutObject(ctx context.Context, objectName string, data []byte, contentType string) error
}

// SharedFileResult 是分享文件的结果。
type SharedFileResult struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// ExportResult 是导出对话记录的结果。
type ExportResult struct {
	FileName string `json:"fileName"`
	Content  string `json:"-"`
	URL      string `json:"url,omitempty"`
}

// ChatOptions 是聊天服务的可调参数。
type ChatOptions struct {
	ContextWindow     int
	MaxPersistedTurns int
}

// ChatService 定义了聊天面板的全部业务操作。每个访客至多有一个打开的会话，
// 同一访客的多个 WebSocket 连接共享它，最后一个连接断开时才关闭。
type ChatService interface {
	// OpenSession 打开（或返回已打开的）访客会话。
	OpenSession(ctx context.Context, visitorID string) *ChatSession
	// AttachSession 打开会话并登记一个持有者，必须与 DetachSession 成对调用。
	AttachSession(ctx context.Context, visitorID string) *ChatSession
	// DetachSession 注销一个持有者，最后一个持有者离开时关闭会话。
	DetachSession(ctx context.Context, visitorID string)
	// CloseSession 关闭访客会话，取消其进行中的远程调用；仍有连接持有时返回 ErrSessionInUse。
	CloseSession(ctx context.Context, visitorID string) error
	SendMessage(ctx context.Context, visitorID, text string) (Reply, error)
	SendQuickAction(ctx context.Context, visitorID string, index int) (Reply, error)
	QuickActions() []model.QuickAction
	Suggestions(query string) []string
	Greeting() string
	ShareFile(ctx context.Context, visitorID, kind string) (*SharedFileResult, error)
	// ShareInSession 在指定会话中分享文件，会话已关闭时不会重新打开。
	ShareInSession(ctx context.Context, sess *ChatSession, kind string) (*SharedFileResult, error)
	History(ctx context.Context, visitorID string) []model.ChatMessage
	Export(ctx context.Context, visitorID string, upload bool) (*ExportResult, error)
}

type chatService struct {
	profile   *model.Profile
	resolver  ResponseResolver
	convRepo  repository.ConversationRepository
	analytics AnalyticsService
	recorder  ExchangeRecorder
	files     FileStore
	opts      ChatOptions
	now       func() time.Time

	// mu 同时保护会话的打开与关闭，登记表与会话状态始终一致
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	sess    *ChatSession
	holders int
}

// NewChatService 创建 ChatService。recorder 和 files 可以为 nil。
func NewChatService(profile *model.Profile, resolver ResponseResolver, convRepo repository.ConversationRepository, analytics AnalyticsService, recorder ExchangeRecorder, files FileStore, opts ChatOptions) ChatService {
	return &chatService{
		profile:   profile,
		resolver:  resolver,
		convRepo:  convRepo,
		analytics: analytics,
		recorder:  recorder,
		files:     files,
		opts:      opts,
		now:       time.Now,
		sessions:  make(map[string]*sessionEntry),
	}
}

func (s *chatService) OpenSession(ctx context.Context, visitorID string) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ctx, visitorID).sess
}

func (s *chatService) AttachSession(ctx context.Context, visitorID string) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.openLocked(ctx, visitorID)
	entry.holders++
	return entry.sess
}

func (s *chatService) DetachSession(ctx context.Context, visitorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[visitorID]
	if !ok {
		return
	}
	if entry.holders > 0 {
		entry.holders--
	}
	if entry.holders == 0 {
		s.closeLocked(ctx, visitorID, entry)
	}
}

func (s *chatService) CloseSession(ctx context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[visitorID]
	if !ok {
		return nil
	}
	if entry.holders > 0 {
		return ErrSessionInUse
	}
	s.closeLocked(ctx, visitorID, entry)
	return nil
}

// openLocked 在持有 s.mu 时调用，保证登记表中的会话总是打开的。
func (s *chatService) openLocked(ctx context.Context, visitorID string) *sessionEntry {
	entry, ok := s.sessions[visitorID]
	if !ok {
		store := NewConversationStore(s.convRepo, visitorID, s.opts.ContextWindow, s.opts.MaxPersistedTurns)
		entry = &sessionEntry{sess: NewChatSession(visitorID, s.profile, store, s.resolver, s.analytics, s.recorder)}
		s.sessions[visitorID] = entry
	}
	entry.sess.Open(ctx)
	return entry
}

func (s *chatService) closeLocked(ctx context.Context, visitorID string, entry *sessionEntry) {
	delete(s.sessions, visitorID)
	entry.sess.Close(ctx)
}

func (s *chatService) SendMessage(ctx context.Context, visitorID, text string) (Reply, error) {
	return s.OpenSession(ctx, visitorID).SendMessage(ctx, text)
}

func (s *chatService) SendQuickAction(ctx context.Context, visitorID string, index int) (Reply, error) {
	actions := s.profile.Assistant.QuickActions
	if index < 0 || index >= len(actions) {
		return Reply{}, ErrUnknownQuickAction
	}
	return s.SendMessage(ctx, visitorID, actions[index].Message)
}

func (s *chatService) QuickActions() []model.QuickAction {
	return append([]model.QuickAction(nil), s.profile.Assistant.QuickActions...)
}

// Suggestions 返回包含 query 的候选问题；query 不超过 2 个字符时返回空。
func (s *chatService) Suggestions(query string) []string {
	q := strings.ToLower(query)
	matches := []string{}
	if utf8.RuneCountInString(q) <= 2 {
		return matches
	}
	for _, sug := range s.profile.Assistant.Suggestions {
		if strings.Contains(strings.ToLower(sug), q) {
			matches = append(matches, sug)
		}
	}
	return matches
}

func (s *chatService) Greeting() string {
	return s.profile.Assistant.Greeting
}

func (s *chatService) ShareFile(ctx context.Context, visitorID, kind string) (*SharedFileResult, error) {
	return s.ShareInSession(ctx, s.OpenSession(ctx, visitorID), kind)
}

func (s *chatService) ShareInSession(ctx context.Context, sess *ChatSession, kind string) (*SharedFileResult, error) {
	file, err := sess.ShareFile(ctx, kind)
	if err != nil {
		return nil, err
	}

	result := &SharedFileResult{Kind: file.Kind, Message: file.Message}
	if file.ObjectKey != "" && s.files != nil {
		url, err := s.files.PresignedURL(ctx, file.ObjectKey)
		if err != nil {
			// 文字说明已经发出，下载链接缺失不算失败
			log.Errorw("生成分享链接失败", "kind", kind, "error", err)
		} else {
			result.URL = url
		}
	}
	return result, nil
}

// History 返回访客的完整对话。会话已打开时读内存，否则从存储读取。
func (s *chatService) History(ctx context.Context, visitorID string) []model.ChatMessage {
	return s.storeFor(ctx, visitorID).Turns()
}

func (s *chatService) Export(ctx context.Context, visitorID string, upload bool) (*ExportResult, error) {
	now := s.now()
	result := &ExportResult{
		FileName: TranscriptFileName(now),
		Content:  s.storeFor(ctx, visitorID).Export(),
	}
	if !upload {
		return result, nil
	}
	if s.files == nil {
		return nil, ErrStorageDisabled
	}

	objectName := fmt.Sprintf("exports/%s/%d-%s", visitorID, now.UnixMilli(), result.FileName)
	if err := s.files.PutObject(ctx, objectName, []byte(result.Content), "text/plain; charset=utf-8"); err != nil {
		return nil, err
	}
	url, err := s.files.PresignedURL(ctx, objectName)
	if err != nil {
		return nil, err
	}
	result.URL = url
	return result, nil
}

func (s *chatService) storeFor(ctx context.Context, visitorID string) *ConversationStore {
	s.mu.Lock()
	entry, ok := s.sessions[visitorID]
	s.mu.Unlock()
	if ok && entry.sess.State() != StateClosed {
		return entry.sess.Store()
	}

	store := NewConversationStore(s.convRepo, visitorID, s.opts.ContextWindow, s.opts.MaxPersistedTurns)
	store.Load(ctx)
	return store
}
