package service

import (
	"context"
	"math/rand/v2"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/pkg/llm"
	"portfolio-assistant/pkg/log"
)

// Reply 是一次消息解析的结果。Text 总是可以直接展示给访客。
type Reply struct {
	Text   string       `json:"text"`
	Intent model.Intent `json:"intent"`
	// Remote 表示回复来自远程模型调用（包括失败后的道歉文案）
	Remote bool `json:"remote"`
	// Failed 表示远程调用失败，Text 为固定道歉文案
	Failed bool `json:"failed"`
}

// ResponseResolver 为访客消息生成助手回复，不向调用方返回错误。
type ResponseResolver interface {
	// Resolve 解析 message。window 是发送给模型的上下文窗口，且以当前这条用户消息结尾。
	Resolve(ctx context.Context, message string, window []model.ChatMessage) Reply
}

// TemplatePicker 从 n 个候选模板中选出一个下标。
type TemplatePicker func(n int) int

type responseResolver struct {
	profile   *model.Profile
	preamble  string
	llmClient llm.Client
	gen       llm.GenerationParams
	pick      TemplatePicker
}

// NewResponseResolver 创建 ResponseResolver。pick 为 nil 时随机选择模板。
func NewResponseResolver(profile *model.Profile, llmClient llm.Client, gen llm.GenerationParams, pick TemplatePicker) (ResponseResolver, error) {
	preamble, err := BuildSystemPreamble(profile)
	if err != nil {
		return nil, err
	}
	if pick == nil {
		pick = rand.IntN
	}
	return &responseResolver{
		profile:   profile,
		preamble:  preamble,
		llmClient: llmClient,
		gen:       gen,
		pick:      pick,
	}, nil
}

func (r *responseResolver) Resolve(ctx context.Context, message string, window []model.ChatMessage) Reply {
	intent := Classify(message)
	if intent.IsLocal() {
		if text, ok := r.localAnswer(intent); ok {
			return Reply{Text: text, Intent: intent}
		}
		// 资料里没有该意图的模板时交给模型回答
		log.Warnf("意图 %s 没有可用模板，转为远程调用", intent)
	}
	return r.remoteAnswer(ctx, intent, window)
}

func (r *responseResolver) localAnswer(intent model.Intent) (string, bool) {
	candidates := r.profile.TemplatesFor(intent)
	if len(candidates) == 0 {
		return "", false
	}
	idx := r.pick(len(candidates))
	if idx < 0 || idx >= len(candidates) {
		idx = 0
	}
	return candidates[idx], true
}

func (r *responseResolver) remoteAnswer(ctx context.Context, intent model.Intent, window []model.ChatMessage) Reply {
	messages := make([]llm.Message, 0, len(window)+1)
	messages = append(messages, llm.Message{Role: model.RoleSystem, Content: r.preamble})
	for _, m := range window {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	text, err := r.llmClient.Complete(ctx, messages, r.gen)
	if err != nil {
		// 所有远程失败统一折叠为道歉文案，不重试
		log.Errorw("AI API Error", "error", err, "contextTurns", len(window))
		return Reply{Text: r.profile.Assistant.Apology, Intent: intent, Remote: true, Failed: true}
	}
	return Reply{Text: text, Intent: intent, Remote: true}
}
