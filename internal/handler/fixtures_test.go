package handler

import (
	"context"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/token"
	"sync"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memConversations struct {
	mu   sync.Mutex
	data map[string][]model.ChatMessage
}

func (m *memConversations) GetConversationHistory(_ context.Context, visitorID string) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatMessage{}, m.data[visitorID]...), nil
}

func (m *memConversations) UpdateConversationHistory(_ context.Context, visitorID string, messages []model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[visitorID] = messages
	return nil
}

func (m *memConversations) ListVisitorIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

type memAnalytics struct {
	mu   sync.Mutex
	data map[string]*model.Analytics
}

func (m *memAnalytics) Get(_ context.Context, visitorID string) (*model.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.data[visitorID]; ok {
		return a, nil
	}
	return model.NewAnalytics(), nil
}

func (m *memAnalytics) Save(_ context.Context, visitorID string, a *model.Analytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[visitorID] = a
	return nil
}

type memBookmarks struct {
	mu   sync.Mutex
	data map[string][]string
}

func (m *memBookmarks) Get(_ context.Context, visitorID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.data[visitorID]...), nil
}

func (m *memBookmarks) Save(_ context.Context, visitorID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[visitorID] = ids
	return nil
}

// echoResolver 原样返回消息，便于断言。
type echoResolver struct{}

func (echoResolver) Resolve(_ context.Context, message string, _ []model.ChatMessage) service.Reply {
	return service.Reply{Text: "echo: " + message, Intent: model.IntentUnrecognized, Remote: true}
}

type testServer struct {
	router     *gin.Engine
	jwtManager *token.JWTManager
	chat       service.ChatService
}

func newTestServer() *testServer {
	profile := &model.Profile{
		Projects: []model.Project{{ID: "project1"}},
		Assistant: model.AssistantScript{
			Greeting:     "Hello!",
			Apology:      "Sorry.",
			QuickActions: []model.QuickAction{{Label: "Skills", Message: "What are your skills?"}},
			Suggestions:  []string{"What are your skills?"},
			SharedFiles:  []model.SharedFile{{Kind: "research", Message: "See my paper."}},
		},
	}
	jwtManager := token.NewJWTManager("handler-secret", 1, 1)
	analytics := service.NewAnalyticsService(&memAnalytics{data: map[string]*model.Analytics{}}, nil)
	conversations := &memConversations{data: map[string][]model.ChatMessage{}}
	chat := service.NewChatService(profile, echoResolver{}, conversations, analytics, nil, nil, service.ChatOptions{})
	admin := NewAdminHandler(service.NewAdminService(nil, conversations, analytics))

	r := gin.New()
	visitors := NewVisitorHandler(service.NewVisitorService(jwtManager))
	chatHandler := NewChatHandler(chat, jwtManager)
	conv := NewConversationHandler(chat)
	bookmarks := NewBookmarkHandler(service.NewBookmarkService(&memBookmarks{data: map[string][]string{}}, profile))

	r.POST("/visitors", visitors.Register)
	r.POST("/visitors/refreshToken", visitors.RefreshToken)
	authed := r.Group("/", middleware.AuthMiddleware(jwtManager))
	authed.POST("/chat/session", chatHandler.OpenSession)
	authed.DELETE("/chat/session", chatHandler.CloseSession)
	authed.POST("/chat/messages", chatHandler.SendMessage)
	authed.POST("/chat/quick-actions/:index", chatHandler.SendQuickAction)
	authed.GET("/chat/suggestions", chatHandler.Suggestions)
	authed.POST("/chat/share/:kind", chatHandler.ShareFile)
	authed.GET("/chat/history", conv.GetHistory)
	authed.GET("/chat/export", conv.Export)
	authed.GET("/bookmarks", bookmarks.List)
	authed.POST("/bookmarks/:projectId", bookmarks.Toggle)
	r.GET("/ws/:token", chatHandler.Handle)
	r.GET("/admin/exchanges", admin.ListExchanges)
	r.GET("/admin/visitors", admin.ListVisitors)
	r.GET("/admin/analytics/:visitorId", admin.GetAnalytics)

	return &testServer{router: r, jwtManager: jwtManager, chat: chat}
}
