package generator

import (
	"context"
	"fmt"
	"strings"
)

// 题目兜底池，按顺序循环取用
var fallbackPrompts = []string{
	"Find someone who has visited more than five countries",
	"Find someone who speaks three languages",
	"Find someone who started a new job this year",
	"Find someone who has run a marathon",
	"Find someone who plays a musical instrument",
	"Find someone who has mentored a colleague",
	"Find someone who works fully remote",
	"Find someone who has given a conference talk",
	"Find someone born in the same month as you",
	"Find someone who has changed careers",
	"Find someone who volunteers regularly",
	"Find someone who has a side project",
	"Find someone who can recommend a great book",
	"Find someone who has lived abroad",
	"Find someone who loves cooking",
	"Find someone who has a pet with a funny name",
	"Find someone who learned to code on their own",
	"Find someone who has met a celebrity",
	"Find someone who commutes by bike",
	"Find someone who has founded a company",
	"Find someone who grew up on a farm",
	"Find someone who has the same favourite film as you",
	"Find someone who has been to this event before",
	"Find someone who works in a different industry",
	"Find someone who has climbed a mountain",
}

// 追问兜底
var fallbackQuestions = []string{
	"What got you interested in that?",
	"What's the best thing that happened because of it?",
	"Would you recommend it to someone new?",
}

// DefaultFallbackIcebreaker 破冰语兜底
const DefaultFallbackIcebreaker = "Ask me about my favourite hobby!"

// Fallback 在生成失败或结果不足时补齐固定内容，并返回非致命的警告
type Fallback struct {
	next       Generator
	icebreaker string
}

// NewFallback 包装生成器；next 为 nil 时全部使用兜底内容
func NewFallback(next Generator, fallbackIcebreaker string) *Fallback {
	if strings.TrimSpace(fallbackIcebreaker) == "" {
		fallbackIcebreaker = DefaultFallbackIcebreaker
	}
	return &Fallback{next: next, icebreaker: fallbackIcebreaker}
}

// FallbackPrompts 取 n 条兜底题目
func FallbackPrompts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fallbackPrompts[i%len(fallbackPrompts)]
	}
	return out
}

// Prompts 返回恰好 n 条题目；不足部分用兜底池补齐
func (f *Fallback) Prompts(ctx context.Context, topic string, n int) ([]string, []string) {
	if n <= 0 {
		return []string{}, nil
	}
	if f.next == nil {
		return FallbackPrompts(n), []string{"内容生成未启用，已使用默认题目"}
	}

	prompts, err := f.next.Prompts(ctx, topic, n)
	if err != nil {
		return FallbackPrompts(n), []string{fmt.Sprintf("题目生成失败，已使用默认题目: %v", err)}
	}

	out := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for _, p := range prompts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) == n {
			break
		}
	}

	var warnings []string
	if missing := n - len(out); missing > 0 {
		warnings = append(warnings, fmt.Sprintf("生成的题目不足，已补充 %d 条默认题目", missing))
		for i := 0; len(out) < n; i++ {
			out = append(out, fallbackPrompts[i%len(fallbackPrompts)])
		}
	}
	return out, warnings
}

// Icebreaker 返回破冰语；失败时使用兜底
func (f *Fallback) Icebreaker(ctx context.Context, fact string) (string, []string) {
	if f.next == nil {
		return f.icebreaker, []string{"内容生成未启用，已使用默认破冰语"}
	}
	text, err := f.next.Icebreaker(ctx, fact)
	if err != nil || strings.TrimSpace(text) == "" {
		return f.icebreaker, []string{fmt.Sprintf("破冰语生成失败，已使用默认内容: %v", err)}
	}
	return strings.TrimSpace(text), nil
}

// FollowUpQuestions 返回 2-3 个追问；失败或少于2个时使用兜底
func (f *Fallback) FollowUpQuestions(ctx context.Context, text string) ([]string, []string) {
	defaults := append([]string(nil), fallbackQuestions...)
	if f.next == nil {
		return defaults, []string{"内容生成未启用，已使用默认问题"}
	}
	questions, err := f.next.FollowUpQuestions(ctx, text)
	if err != nil {
		return defaults, []string{fmt.Sprintf("追问生成失败，已使用默认问题: %v", err)}
	}
	if len(questions) < 2 {
		return defaults, []string{"生成的追问不足，已使用默认问题"}
	}
	if len(questions) > 3 {
		questions = questions[:3]
	}
	return questions, nil
}
