// Package service 包含了应用的业务逻辑层。
package service

import (
	"portfolio-assistant/internal/model"
	"strings"
)

// localKeywords 决定消息是否走本地快速回复。全部为小写，消息会先转成小写再做子串匹配。
var localKeywords = []string{
	"resume", "cv", "curriculum", "background", "education", "experience",
	"qualification", "degree", "college", "university", "roll number", "21bcs1272",
}

// intentRule 是一条有序路由规则：包含任一关键词即命中。
type intentRule struct {
	keywords []string
	intent   model.Intent
}

// intentRules 按声明顺序匹配，先命中者胜出，不是按最具体匹配。
var intentRules = []intentRule{
	{keywords: []string{"education", "degree", "college", "university"}, intent: model.IntentEducation},
	{keywords: []string{"experience", "work", "job"}, intent: model.IntentExperience},
	{keywords: []string{"roll", "21bcs1272"}, intent: model.IntentRollNumber},
}

// Classify 识别访客消息的本地意图。对任意字符串都有定义，未命中时返回 IntentUnrecognized。
func Classify(message string) model.Intent {
	lower := strings.ToLower(message)
	if !containsAny(lower, localKeywords) {
		return model.IntentUnrecognized
	}
	for _, rule := range intentRules {
		if containsAny(lower, rule.keywords) {
			return rule.intent
		}
	}
	return model.IntentResume
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
