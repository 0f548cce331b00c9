package generator

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
)

// Stub 确定性的生成器，用于测试与离线运行
type Stub struct {
	mu    sync.Mutex
	Err   error // 非空时所有调用返回该错误
	Short int   // 大于0时 Prompts 少返回的条数
	Calls map[string]int
}

// NewStub 创建确定性生成器
func NewStub() *Stub {
	return &Stub{Calls: make(map[string]int)}
}

func (s *Stub) record(shape string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Calls == nil {
		s.Calls = make(map[string]int)
	}
	s.Calls[shape]++
	return s.Err
}

// CallCount 某种调用的次数
func (s *Stub) CallCount(shape string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[shape]
}

// Prompts 返回 "<topic> prompt <i>"
func (s *Stub) Prompts(ctx context.Context, topic string, n int) ([]string, error) {
	if err := s.record("prompts"); err != nil {
		return nil, err
	}
	count := n - s.Short
	if count < 0 {
		count = 0
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("%s prompt %d", topic, i+1)
	}
	return out, nil
}

// Icebreaker 返回 "Ask me about <fact>"
func (s *Stub) Icebreaker(ctx context.Context, fact string) (string, error) {
	if err := s.record("icebreaker"); err != nil {
		return "", err
	}
	if fact == "" {
		return "", apperrors.New(apperrors.ErrGeneratorFailed, "空内容")
	}
	return "Ask me about " + fact, nil
}

// FollowUpQuestions 返回固定的三个问题
func (s *Stub) FollowUpQuestions(ctx context.Context, text string) ([]string, error) {
	if err := s.record("follow_up"); err != nil {
		return nil, err
	}
	return []string{
		"How did that start?",
		"What surprised you most?",
		"What would you do differently?",
	}, nil
}
