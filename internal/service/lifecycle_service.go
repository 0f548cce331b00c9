package service

import (
	"context"
	"sync"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/logger"
	"github.com/wfunc/bingo-game/internal/models"
	"go.uber.org/zap"
)

// LifecycleController 生命周期控制实现。
// 管理员操作、客户端倒计时与服务端定时器都走同一个条件转换。
type LifecycleController struct {
	*deps
	games GameService

	mu    sync.RWMutex
	timer PhaseTimer
}

// NewLifecycleService 创建生命周期控制器
func NewLifecycleService(d *deps, games GameService) *LifecycleController {
	return &LifecycleController{deps: d, games: games}
}

// SetTimer 设置阶段到期提醒，每次转换成功后重新布置
func (c *LifecycleController) SetTimer(t PhaseTimer) {
	c.mu.Lock()
	c.timer = t
	c.mu.Unlock()
}

// StartGame 管理员开始游戏：waiting -> playing
func (c *LifecycleController) StartGame(ctx context.Context, gameID, actingID string) (*TransitionResult, error) {
	g, err := c.loadAsAdmin(ctx, gameID, actingID)
	if err != nil {
		return nil, err
	}

	count, err := c.repo.Player().Count(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, g, game.EventStart, count)
}

// AdvanceIfDue 阶段到期时推进一步。
// 未到期、已被推进或不在计时阶段时 Applied 为 false，不返回错误。
func (c *LifecycleController) AdvanceIfDue(ctx context.Context, gameID string) (*TransitionResult, error) {
	g, err := c.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	if !c.lifecycle.CanTransition(g.Status, game.EventTimeUp) || !game.IsDue(g, now) {
		return &TransitionResult{Applied: false, Game: NewGameView(g, now)}, nil
	}
	return c.apply(ctx, g, game.EventTimeUp, 0)
}

// ForceAdvance 管理员手动推进：playing -> scoring 或 scoring -> finished
func (c *LifecycleController) ForceAdvance(ctx context.Context, gameID, actingID string) (*TransitionResult, error) {
	g, err := c.loadAsAdmin(ctx, gameID, actingID)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, g, game.EventForceAdvance, 0)
}

// ForceEnd 管理员强制结束
func (c *LifecycleController) ForceEnd(ctx context.Context, gameID, actingID string) (*TransitionResult, error) {
	g, err := c.loadAsAdmin(ctx, gameID, actingID)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, g, game.EventForceEnd, 0)
}

func (c *LifecycleController) loadAsAdmin(ctx context.Context, gameID, actingID string) (*models.Game, error) {
	g, err := c.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.AdminID != actingID {
		return nil, apperrors.New(apperrors.ErrNotGameAdmin)
	}
	return g, nil
}

// apply 基于刚读取的记录计算计划并条件写入
func (c *LifecycleController) apply(ctx context.Context, g *models.Game, event game.Event, playerCount int64) (*TransitionResult, error) {
	now := c.clock.Now()
	change, err := c.lifecycle.Plan(g, event, game.TransitionContext{
		Now:         now,
		PlayerCount: playerCount,
		Rules:       c.config.Rules,
	})
	if err != nil {
		return nil, err
	}

	applied, err := c.games.UpdateGameStatus(ctx, change.GameID, change.Expected, change.Next, change.Fields)
	if err != nil {
		c.log.Error("状态转换写入失败",
			zap.String("game_id", g.ID),
			zap.String("event", string(event)),
			zap.Error(err))
		return nil, err
	}

	current, err := c.repo.Game().FindByID(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	if !applied {
		c.log.Debug("状态转换已由其他写入者完成",
			zap.String("game_id", g.ID),
			zap.String("event", string(event)),
			zap.String("status", string(current.Status)))
		return &TransitionResult{Applied: false, Game: NewGameView(current, c.clock.Now())}, nil
	}

	logger.LogGameEvent(string(event), g.ID, map[string]interface{}{
		"from": string(change.Expected),
		"to":   string(change.Next),
	})

	c.mu.RLock()
	timer := c.timer
	c.mu.RUnlock()
	if timer != nil {
		timer.Arm(current)
	}

	return &TransitionResult{Applied: true, Game: NewGameView(current, c.clock.Now())}, nil
}
