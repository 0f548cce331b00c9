package game

import (
	"sync"
	"time"

	"github.com/wfunc/bingo-game/internal/models"
)

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 当前时间（UTC）
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock 可手动推进的时钟，用于测试与模拟
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock 创建模拟时钟
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now 当前模拟时间
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进模拟时间
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set 设置模拟时间
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// PhaseDeadline 当前阶段的截止时间，等待与结束阶段返回 nil
func PhaseDeadline(g *models.Game) *time.Time {
	switch g.Status {
	case models.StatusPlaying:
		if g.StartTime == nil {
			return nil
		}
		deadline := g.StartTime.Add(time.Duration(g.TimerDurationMinutes) * time.Minute)
		return &deadline
	case models.StatusScoring:
		return g.ScoringDeadline
	}
	return nil
}

// TimeRemaining max(0, 截止时间 - now)
func TimeRemaining(g *models.Game, now time.Time) time.Duration {
	deadline := PhaseDeadline(g)
	if deadline == nil {
		return 0
	}
	if remaining := deadline.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// IsDue 当前阶段是否已到期
func IsDue(g *models.Game, now time.Time) bool {
	deadline := PhaseDeadline(g)
	return deadline != nil && !now.Before(*deadline)
}
