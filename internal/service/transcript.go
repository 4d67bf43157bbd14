package service

import (
	"fmt"
	"portfolio-assistant/internal/model"
	"regexp"
	"strings"
	"time"
)

const (
	transcriptTitle     = "AI Portfolio Assistant Conversation"
	transcriptRule      = "====================================="
	transcriptUser      = "You"
	transcriptAssistant = "AI Assistant"
	// 正文每行都带此缩进，消息头永远顶格
	transcriptIndent = "  "
)

var transcriptHeader = regexp.MustCompile(`^(You|AI Assistant) \(([^)]*)\):$`)

// FormatTranscript 将消息序列格式化为纯文本对话记录。
// 每条消息是一行顶格的 "发送者 (RFC3339Nano 时间):"，随后是缩进两格的正文和一个空行。
func FormatTranscript(turns []model.ChatMessage) string {
	var sb strings.Builder
	sb.WriteString(transcriptTitle + "\n")
	sb.WriteString(transcriptRule + "\n\n")
	for _, t := range turns {
		sender := transcriptAssistant
		if t.Role == model.RoleUser {
			sender = transcriptUser
		}
		fmt.Fprintf(&sb, "%s (%s):\n", sender, t.Timestamp.UTC().Format(time.RFC3339Nano))
		for _, line := range strings.Split(t.Content, "\n") {
			sb.WriteString(transcriptIndent + line + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// TranscriptFileName 返回导出文件名，例如 ai-conversation-2026-10-16.txt。
func TranscriptFileName(now time.Time) string {
	return fmt.Sprintf("ai-conversation-%s.txt", now.UTC().Format("2006-01-02"))
}

// ParseTranscript 解析 FormatTranscript 生成的记录。
func ParseTranscript(text string) ([]model.ChatMessage, error) {
	// 自行按 \n 切分，正文中的 \r 原样保留
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	if len(lines) < 1 || lines[0] != transcriptTitle {
		return nil, fmt.Errorf("transcript: missing title line")
	}
	if len(lines) < 2 || lines[1] != transcriptRule {
		return nil, fmt.Errorf("transcript: missing rule line")
	}

	var (
		turns   []model.ChatMessage
		current *model.ChatMessage
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.Join(body, "\n")
		turns = append(turns, *current)
		current, body = nil, nil
	}

	for _, line := range lines[2:] {
		switch {
		case current != nil && strings.HasPrefix(line, transcriptIndent):
			body = append(body, strings.TrimPrefix(line, transcriptIndent))
		case line == "":
			// 空行结束当前消息
			flush()
		default:
			m := transcriptHeader.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("transcript: unexpected line: %q", line)
			}
			flush()
			ts, err := time.Parse(time.RFC3339Nano, m[2])
			if err != nil {
				return nil, fmt.Errorf("transcript: bad timestamp %q: %w", m[2], err)
			}
			role := model.RoleAssistant
			if m[1] == transcriptUser {
				role = model.RoleUser
			}
			current = &model.ChatMessage{Role: role, Timestamp: ts}
		}
	}
	flush()
	return turns, nil
}
