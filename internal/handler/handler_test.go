package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, bearer, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) register(t *testing.T) (visitorID, access, refresh string) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/visitors", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tokens struct {
		VisitorID    string `json:"visitorId"`
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	return tokens.VisitorID, tokens.Token, tokens.RefreshToken
}

func TestVisitorHandler_RegisterAndRefresh(t *testing.T) {
	s := newTestServer()
	_, _, refresh := s.register(t)

	w, _ := s.do(t, http.MethodPost, "/visitors/refreshToken", "", `{"refreshToken":"`+refresh+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodPost, "/visitors/refreshToken", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, env.Code)

	w, _ = s.do(t, http.MethodPost, "/visitors/refreshToken", "", `{"refreshToken":"garbage"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	s := newTestServer()

	w, env := s.do(t, http.MethodGet, "/chat/history", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "null", string(env.Data))

	w, _ = s.do(t, http.MethodGet, "/chat/history", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatHandler_SendMessageAndHistory(t *testing.T) {
	s := newTestServer()
	_, access, _ := s.register(t)

	w, env := s.do(t, http.MethodPost, "/chat/session", access, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"greeting":"Hello!"`)
	assert.Contains(t, string(env.Data), `"state":"awaiting-input"`)

	w, env = s.do(t, http.MethodPost, "/chat/messages", access, `{"message":"hi there"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"text":"echo: hi there"`)

	w, env = s.do(t, http.MethodPost, "/chat/messages", access, `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/chat/history", access, "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 2)
}

func TestChatHandler_QuickActionsSuggestionsShare(t *testing.T) {
	s := newTestServer()
	_, access, _ := s.register(t)

	w, env := s.do(t, http.MethodPost, "/chat/quick-actions/0", access, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "echo: What are your skills?")

	w, _ = s.do(t, http.MethodPost, "/chat/quick-actions/9", access, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodPost, "/chat/quick-actions/x", access, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, env = s.do(t, http.MethodGet, "/chat/suggestions?q=skill", access, "")
	assert.JSONEq(t, `["What are your skills?"]`, string(env.Data))
	_, env = s.do(t, http.MethodGet, "/chat/suggestions?q=sk", access, "")
	assert.JSONEq(t, `[]`, string(env.Data))

	w, env = s.do(t, http.MethodPost, "/chat/share/research", access, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "See my paper.")
	w, _ = s.do(t, http.MethodPost, "/chat/share/unknown", access, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationHandler_Export(t *testing.T) {
	s := newTestServer()
	_, access, _ := s.register(t)
	s.do(t, http.MethodPost, "/chat/messages", access, `{"message":"hello"}`)

	w, _ := s.do(t, http.MethodGet, "/chat/export", access, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ai-conversation-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "AI Portfolio Assistant Conversation\n"))
	assert.Contains(t, w.Body.String(), "echo: hello")

	// 未配置对象存储
	w, _ = s.do(t, http.MethodGet, "/chat/export?store=true", access, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChatHandler_CloseSession(t *testing.T) {
	s := newTestServer()
	visitorID, access, _ := s.register(t)
	s.do(t, http.MethodPost, "/chat/session", access, "")

	w, _ := s.do(t, http.MethodDelete, "/chat/session", access, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, s.chat.History(context.Background(), visitorID), 0)
}

func TestBookmarkHandler(t *testing.T) {
	s := newTestServer()
	_, access, _ := s.register(t)

	w, env := s.do(t, http.MethodPost, "/bookmarks/project1", access, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projectId":"project1","bookmarked":true}`, string(env.Data))

	_, env = s.do(t, http.MethodGet, "/bookmarks", access, "")
	assert.JSONEq(t, `["project1"]`, string(env.Data))

	w, _ = s.do(t, http.MethodPost, "/bookmarks/nope", access, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandler(t *testing.T) {
	s := newTestServer()
	visitorID, access, _ := s.register(t)
	s.do(t, http.MethodPost, "/chat/messages", access, `{"message":"hello"}`)

	w, env := s.do(t, http.MethodGet, "/admin/visitors", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["`+visitorID+`"]`, string(env.Data))

	_, env = s.do(t, http.MethodGet, "/admin/analytics/"+visitorID, "", "")
	assert.Contains(t, string(env.Data), `"messagesExchanged":1`)
	assert.Contains(t, string(env.Data), `"sessionsStarted":1`)

	_, env = s.do(t, http.MethodGet, "/admin/exchanges", "", "")
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = s.do(t, http.MethodGet, "/admin/exchanges?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
