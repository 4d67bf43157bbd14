package service

import (
	"portfolio-assistant/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTranscript(t *testing.T) {
	ts := time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)
	got := FormatTranscript([]model.ChatMessage{
		{Role: model.RoleUser, Content: "Hello", Timestamp: ts},
		{Role: model.RoleAssistant, Content: "Hi!\nHow can I help?", Timestamp: ts.Add(1250 * time.Millisecond)},
	})

	want := "AI Portfolio Assistant Conversation\n" +
		"=====================================\n\n" +
		"You (2026-10-16T08:30:00Z):\n  Hello\n\n" +
		"AI Assistant (2026-10-16T08:30:01.25Z):\n  Hi!\n  How can I help?\n\n"
	assert.Equal(t, want, got)
}

func TestParseTranscript_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)
	turns := []model.ChatMessage{
		{Role: model.RoleUser, Content: "Tell me about your experience", Timestamp: ts},
		{Role: model.RoleAssistant, Content: "Line one\n\nLine three", Timestamp: ts.Add(time.Minute)},
		{Role: model.RoleUser, Content: "", Timestamp: ts.Add(2 * time.Minute)},
	}

	parsed, err := ParseTranscript(FormatTranscript(turns))
	require.NoError(t, err)
	assert.Equal(t, turns, parsed)
}

func TestParseTranscript_RoundTripAwkwardContent(t *testing.T) {
	ts := time.Date(2026, 10, 16, 8, 30, 0, 123456789, time.UTC)
	tests := []struct {
		name    string
		content string
	}{
		{name: "carriage return", content: "line one\r\nline two"},
		{name: "header-shaped body line", content: "quoted:\nAI Assistant (2026-10-16T08:30:00Z):\nsee above"},
		{name: "leading indent and trailing blank", content: "  indented\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := []model.ChatMessage{
				{Role: model.RoleUser, Content: tt.content, Timestamp: ts},
				{Role: model.RoleAssistant, Content: "ok", Timestamp: ts.Add(time.Millisecond)},
			}
			parsed, err := ParseTranscript(FormatTranscript(turns))
			require.NoError(t, err)
			assert.Equal(t, turns, parsed)
		})
	}
}

func TestParseTranscript_KeepsSubSecondTimestamps(t *testing.T) {
	now := time.Now()
	turns := []model.ChatMessage{{Role: model.RoleUser, Content: "hi", Timestamp: now}}

	parsed, err := ParseTranscript(FormatTranscript(turns))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.True(t, now.Equal(parsed[0].Timestamp), "want %v, got %v", now, parsed[0].Timestamp)
}

func TestParseTranscript_Empty(t *testing.T) {
	parsed, err := ParseTranscript(FormatTranscript(nil))
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestParseTranscript_Rejects(t *testing.T) {
	_, err := ParseTranscript("not a transcript")
	assert.Error(t, err)

	_, err = ParseTranscript("AI Portfolio Assistant Conversation\n=====================================\n\nstray line\n")
	assert.Error(t, err)

	_, err = ParseTranscript("AI Portfolio Assistant Conversation\n=====================================\n\nYou (yesterday):\n  hi\n\n")
	assert.Error(t, err)

	// 未缩进的正文行
	_, err = ParseTranscript("AI Portfolio Assistant Conversation\n=====================================\n\nYou (2026-10-16T08:30:00Z):\nhi\n\n")
	assert.Error(t, err)
}

func TestTranscriptFileName(t *testing.T) {
	assert.Equal(t, "ai-conversation-2026-10-16.txt", TranscriptFileName(time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)))
}
