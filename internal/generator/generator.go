// Package generator 外部内容生成：题目、破冰语与追问。
// 调用方把它当作可能失败、可能少返回的黑盒，失败时使用固定的兜底内容，不自动重试。
package generator

import (
	"context"
	"strings"

	"github.com/wfunc/bingo-game/internal/config"
)

// Generator 内容生成接口
type Generator interface {
	// Prompts 按主题生成 n 条题目
	Prompts(ctx context.Context, topic string, n int) ([]string, error)
	// Icebreaker 把一句自我介绍改写成一句破冰语
	Icebreaker(ctx context.Context, fact string) (string, error)
	// FollowUpQuestions 针对破冰语生成 2-3 个追问
	FollowUpQuestions(ctx context.Context, text string) ([]string, error)
}

// New 按配置创建生成器，未配置时返回 nil
func New(cfg *config.GeneratorConfig) Generator {
	if cfg.Provider == "none" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	return NewGeminiClient(cfg)
}

// parseList 解析模型返回的多行列表，去掉序号与项目符号
func parseList(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)")
		line = strings.TrimSpace(line)
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// firstSentence 取第一行非空文本
func firstSentence(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line != "" {
			return line
		}
	}
	return ""
}
