package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"portfolio-assistant/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/",
		Model:   "openai/gpt-3.5-turbo",
		Referer: "https://example.com",
		Title:   "Portfolio",
	})
}

var testParams = GenerationParams{MaxTokens: 300, Temperature: 0.7, TopP: 1}

func TestComplete_SendsExpectedRequest(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Portfolio", r.Header.Get("X-Title"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"It's sunny."}}]}`))
	})

	reply, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "preamble"},
		{Role: "user", Content: "What's the weather today?"},
	}, testParams)
	require.NoError(t, err)
	assert.Equal(t, "It's sunny.", reply)

	assert.Equal(t, "openai/gpt-3.5-turbo", got["model"])
	assert.EqualValues(t, 300, got["max_tokens"])
	assert.EqualValues(t, 0.7, got["temperature"])
	assert.EqualValues(t, 1, got["top_p"])
	// 惩罚参数为 0 时也必须出现在请求体中
	assert.Contains(t, got, "frequency_penalty")
	assert.Contains(t, got, "presence_penalty")
	msgs, ok := got["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestComplete_Non2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, testParams)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestComplete_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, testParams)
	require.Error(t, err)
}

func TestComplete_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, testParams)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestComplete_MissingContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop"}]}`))
	})

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, testParams)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestComplete_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, []Message{{Role: "user", Content: "hi"}}, testParams)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
