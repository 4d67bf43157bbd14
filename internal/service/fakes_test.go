package service

import (
	"context"
	"errors"
	"fmt"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/pkg/llm"
	"portfolio-assistant/pkg/tasks"
	"sync"
	"sync/atomic"
)

// testProfile 返回测试用的最小个人资料。
func testProfile() *model.Profile {
	return &model.Profile{
		Name:       "Amit Ranjan Maurya",
		Title:      "Software Engineer",
		RollNumber: "21BCS1272",
		Education:  model.Education{Degree: "B.E. CSE", University: "Chandigarh University", Years: "2021-2025"},
		Experience: []model.Experience{{Title: "Intern", Company: "Acme", Duration: "2024"}},
		Skills: []model.SkillGroup{{Category: "Languages", Items: []model.Skill{
			{Name: "Go", Percent: 80}, {Name: "Java", Percent: 70},
		}}},
		Projects: []model.Project{
			{ID: "project1", Name: "Portfolio"},
			{ID: "project2", Name: "Chat Bot"},
		},
		Assistant: model.AssistantScript{
			Greeting: "Hi! Ask me anything.",
			Apology:  "Sorry, I'm having trouble connecting right now. Please try again later.",
			Templates: map[string][]string{
				"education":  {"Education template."},
				"experience": {"Experience template A.", "Experience template B."},
				"rollnumber": {"Roll number is 21BCS1272."},
				"resume":     {"Resume template."},
			},
			QuickActions: []model.QuickAction{
				{Label: "Skills", Message: "What are your skills?"},
				{Label: "Experience", Message: "Tell me about your experience"},
			},
			Suggestions: []string{
				"What are your technical skills?",
				"Tell me about your projects",
				"What is your experience?",
			},
			SharedFiles: []model.SharedFile{
				{Kind: "resume", Message: "Here is my resume.", ObjectKey: "files/resume.pdf"},
				{Kind: "research", Message: "My research is on SSRN."},
			},
		},
	}
}

type memConversationRepo struct {
	mu      sync.Mutex
	data    map[string][]model.ChatMessage
	corrupt map[string]bool
	saves   int
	saveErr error
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{data: map[string][]model.ChatMessage{}, corrupt: map[string]bool{}}
}

func (r *memConversationRepo) GetConversationHistory(_ context.Context, visitorID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.corrupt[visitorID] {
		return nil, fmt.Errorf("%w: bad json", repository.ErrCorruptData)
	}
	return append([]model.ChatMessage{}, r.data[visitorID]...), nil
}

func (r *memConversationRepo) UpdateConversationHistory(_ context.Context, visitorID string, messages []model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.data[visitorID] = append([]model.ChatMessage(nil), messages...)
	return nil
}

func (r *memConversationRepo) ListVisitorIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memConversationRepo) stored(visitorID string) []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage(nil), r.data[visitorID]...)
}

func (r *memConversationRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type memAnalyticsRepo struct {
	mu   sync.Mutex
	data map[string]*model.Analytics
}

func newMemAnalyticsRepo() *memAnalyticsRepo {
	return &memAnalyticsRepo{data: map[string]*model.Analytics{}}
}

func (r *memAnalyticsRepo) Get(_ context.Context, visitorID string) (*model.Analytics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[visitorID]
	if !ok {
		return model.NewAnalytics(), nil
	}
	cp := *a
	cp.PopularQueries = map[string]int{}
	for k, v := range a.PopularQueries {
		cp.PopularQueries[k] = v
	}
	return &cp, nil
}

func (r *memAnalyticsRepo) Save(_ context.Context, visitorID string, analytics *model.Analytics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[visitorID] = analytics
	return nil
}

type memBookmarkRepo struct {
	mu      sync.Mutex
	data    map[string][]string
	corrupt bool
}

func (r *memBookmarkRepo) Get(_ context.Context, visitorID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.corrupt {
		return nil, repository.ErrCorruptData
	}
	return append([]string{}, r.data[visitorID]...), nil
}

func (r *memBookmarkRepo) Save(_ context.Context, visitorID string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		r.data = map[string][]string{}
	}
	r.corrupt = false
	r.data[visitorID] = ids
	return nil
}

// fakeLLM 记录每次调用，并通过 complete 决定返回值。
type fakeLLM struct {
	complete func(ctx context.Context, messages []llm.Message) (string, error)

	calls    atomic.Int32
	mu       sync.Mutex
	lastSent []llm.Message
	lastGen  llm.GenerationParams
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, gen llm.GenerationParams) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastSent = append([]llm.Message(nil), messages...)
	f.lastGen = gen
	f.mu.Unlock()
	if f.complete == nil {
		return "", errors.New("no reply configured")
	}
	return f.complete(ctx, messages)
}

func (f *fakeLLM) sent() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSent
}

func replyWith(text string) func(context.Context, []llm.Message) (string, error) {
	return func(context.Context, []llm.Message) (string, error) { return text, nil }
}

type fakeRecorder struct {
	mu        sync.Mutex
	exchanges []model.Exchange
}

func (r *fakeRecorder) Record(_ context.Context, exchange *model.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges = append(r.exchanges, *exchange)
}

type fakeFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	signErr error
}

func (f *fakeFiles) PresignedURL(_ context.Context, objectName string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://files.example.com/" + objectName + "?sig=1", nil
}

func (f *fakeFiles) PutObject(_ context.Context, objectName string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[objectName] = data
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []tasks.AnalyticsEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event tasks.AnalyticsEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// firstPick 总是选第一个模板，保证测试结果确定。
func firstPick(int) int { return 0 }
