// Package llm provides a client for OpenAI-compatible chat completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"portfolio-assistant/internal/config"
	"strings"
	"time"
)

// ErrNoChoices is returned when a 2xx response carries no usable completion.
var ErrNoChoices = errors.New("chat api returned no choices")

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 发送一组 role-based 消息，返回第一条候选回复的文本。
	Complete(ctx context.Context, messages []Message, gen GenerationParams) (string, error)
}

type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client from config.
// A positive TimeoutSeconds bounds every call in addition to the caller's context.
func NewClient(cfg config.LLMConfig) Client {
	httpClient := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return NewClientWithHTTP(cfg, httpClient)
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(cfg config.LLMConfig, httpClient *http.Client) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: httpClient,
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为，同一部署内所有请求保持一致。
type GenerationParams struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// ParamsFromConfig 从配置构造生成参数。
func ParamsFromConfig(cfg config.LLMGenerationConfig) GenerationParams {
	return GenerationParams{
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
	}
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete calls the chat completions endpoint without streaming.
func (c *openAICompatibleClient) Complete(ctx context.Context, messages []Message, gen GenerationParams) (string, error) {
	reqBody := chatRequest{
		Model:            c.cfg.Model,
		Messages:         messages,
		MaxTokens:        gen.MaxTokens,
		Temperature:      gen.Temperature,
		TopP:             gen.TopP,
		FrequencyPenalty: gen.FrequencyPenalty,
		PresencePenalty:  gen.PresencePenalty,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("chat api returned non-2xx status: %s, body: %s", resp.Status, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil || parsed.Choices[0].Message.Content == nil {
		return "", ErrNoChoices
	}
	return *parsed.Choices[0].Message.Content, nil
}
