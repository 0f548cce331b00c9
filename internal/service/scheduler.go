package service

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/models"
	"github.com/wfunc/bingo-game/internal/repository"
	"go.uber.org/zap"
)

const (
	// 单次推进的超时
	advanceTimeout = 10 * time.Second
	// 推进失败后的重试间隔
	retryDelay = 5 * time.Second
)

// Scheduler 服务端阶段定时器。
// 到期后调用与客户端相同的 AdvanceIfDue，客户端先推进时这里只是空操作。
type Scheduler struct {
	lifecycle LifecycleService
	games     repository.GameRepository
	clock     game.Clock
	log       *zap.Logger

	mu      sync.Mutex
	timers  map[string]*phaseTimer
	nextGen uint64
	stopped bool

	afterFunc func(d time.Duration, f func()) *time.Timer
}

type phaseTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewScheduler 创建定时器
func NewScheduler(lifecycle LifecycleService, games repository.GameRepository, clock game.Clock, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		lifecycle: lifecycle,
		games:     games,
		clock:     clock,
		log:       log,
		timers:    make(map[string]*phaseTimer),
		afterFunc: time.AfterFunc,
	}
}

// Arm 按游戏当前阶段的截止时间布置定时器；没有截止时间的阶段取消定时器
func (s *Scheduler) Arm(g *models.Game) {
	deadline := game.PhaseDeadline(g)
	if deadline == nil {
		s.Cancel(g.ID)
		return
	}
	s.schedule(g.ID, deadline.Sub(s.clock.Now()))
}

// Restore 启动时为所有计时中的游戏重新布置定时器
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	games, err := s.games.ListByStatus(ctx, models.StatusPlaying, models.StatusScoring)
	if err != nil {
		return 0, err
	}
	for _, g := range games {
		s.Arm(g)
	}
	s.log.Info("已恢复阶段定时器", zap.Int("count", len(games)))
	return len(games), nil
}

// Cancel 取消游戏的定时器
func (s *Scheduler) Cancel(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[gameID]; ok {
		t.timer.Stop()
		delete(s.timers, gameID)
	}
}

// Pending 待触发的定时器数量
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop 停止所有定时器，之后的 Arm 不再生效
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) schedule(gameID string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if existing, ok := s.timers[gameID]; ok {
		existing.timer.Stop()
	}

	s.nextGen++
	gen := s.nextGen
	s.timers[gameID] = &phaseTimer{
		timer: s.afterFunc(delay, func() { s.fire(gameID, gen) }),
		gen:   gen,
	}

	s.log.Debug("布置阶段定时器", zap.String("game_id", gameID), zap.Duration("delay", delay))
}

// fire 只处理最新一次布置的定时器，被替换的旧定时器直接返回
func (s *Scheduler) fire(gameID string, gen uint64) {
	s.mu.Lock()
	current, ok := s.timers[gameID]
	if s.stopped || !ok || current.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, gameID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
	defer cancel()

	result, err := s.lifecycle.AdvanceIfDue(ctx, gameID)
	if err != nil {
		s.log.Error("定时推进失败", zap.String("game_id", gameID), zap.Error(err))
		s.schedule(gameID, retryDelay)
		return
	}

	// 推进成功时由生命周期控制器重新布置；未推进但仍在计时阶段则按最新截止时间再等
	if !result.Applied && result.Game != nil {
		s.Arm(result.Game.Game)
	}
}
