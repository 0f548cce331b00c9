package game

import (
	"fmt"
	"time"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
)

// Event 生命周期事件
type Event string

const (
	EventStart        Event = "start"         // 管理员开始游戏
	EventTimeUp       Event = "time_up"       // 倒计时归零（任意客户端或服务端定时器）
	EventForceAdvance Event = "force_advance" // 管理员手动推进
	EventForceEnd     Event = "force_end"     // 管理员强制结束
)

// Transition 状态转换定义
type Transition struct {
	From  models.GameStatus
	Event Event
	To    models.GameStatus
	// Guard 在写入前基于最新读取的记录校验，返回错误即拒绝
	Guard func(g *models.Game, ctx TransitionContext) error
	// Fields 计算随状态一起写入的字段
	Fields func(g *models.Game, ctx TransitionContext) map[string]interface{}
}

// TransitionContext 转换所需的外部输入
type TransitionContext struct {
	Now         time.Time
	PlayerCount int64
	Rules       Rules
}

// Change 条件更新计划：仅当当前状态仍为 Expected 时写入
type Change struct {
	GameID   string
	Expected models.GameStatus
	Next     models.GameStatus
	Fields   map[string]interface{}
}

// Lifecycle 游戏生命周期状态机（无状态，按记录计算下一步）
type Lifecycle struct {
	transitions map[string]Transition
}

// NewLifecycle 创建生命周期状态机
func NewLifecycle() *Lifecycle {
	l := &Lifecycle{transitions: make(map[string]Transition)}
	l.initTransitions()
	return l
}

// initTransitions 初始化状态转换规则
func (l *Lifecycle) initTransitions() {
	// 等待 -> 游戏中（管理员开始）
	l.addTransition(Transition{
		From:  models.StatusWaiting,
		Event: EventStart,
		To:    models.StatusPlaying,
		Guard: func(g *models.Game, ctx TransitionContext) error {
			if ctx.PlayerCount < int64(ctx.Rules.MinPlayers) {
				return apperrors.Newf(apperrors.ErrNotEnoughPlayers, "至少需要 %d 名玩家，当前 %d", ctx.Rules.MinPlayers, ctx.PlayerCount)
			}
			if len(g.Prompts) != g.SquareCount() {
				return apperrors.Newf(apperrors.ErrPromptCount, "需要 %d 条，实际 %d 条", g.SquareCount(), len(g.Prompts))
			}
			return nil
		},
		Fields: func(g *models.Game, ctx TransitionContext) map[string]interface{} {
			return map[string]interface{}{"start_time": ctx.Now}
		},
	})

	// 游戏中 -> 计分（倒计时归零）
	l.addTransition(Transition{
		From:  models.StatusPlaying,
		Event: EventTimeUp,
		To:    models.StatusScoring,
		Guard: requireDue,
		Fields: func(g *models.Game, ctx TransitionContext) map[string]interface{} {
			return map[string]interface{}{"scoring_deadline": ctx.Now.Add(ctx.Rules.ScoringWindow)}
		},
	})

	// 计分 -> 结束（计分窗口归零）
	l.addTransition(Transition{
		From:  models.StatusScoring,
		Event: EventTimeUp,
		To:    models.StatusFinished,
		Guard: requireDue,
	})

	// 管理员手动推进：与自动推进写入相同的条件更新，但不校验倒计时
	l.addTransition(Transition{
		From:  models.StatusPlaying,
		Event: EventForceAdvance,
		To:    models.StatusScoring,
		Fields: func(g *models.Game, ctx TransitionContext) map[string]interface{} {
			return map[string]interface{}{"scoring_deadline": ctx.Now.Add(ctx.Rules.ScoringWindow)}
		},
	})
	l.addTransition(Transition{
		From:  models.StatusScoring,
		Event: EventForceAdvance,
		To:    models.StatusFinished,
	})

	// 强制结束
	for _, from := range []models.GameStatus{models.StatusPlaying, models.StatusScoring} {
		l.addTransition(Transition{
			From:  from,
			Event: EventForceEnd,
			To:    models.StatusFinished,
		})
	}
}

func requireDue(g *models.Game, ctx TransitionContext) error {
	if !IsDue(g, ctx.Now) {
		return apperrors.Newf(apperrors.ErrGameStateError, "阶段尚未到期，剩余 %s", TimeRemaining(g, ctx.Now))
	}
	return nil
}

// addTransition 添加状态转换
func (l *Lifecycle) addTransition(t Transition) {
	l.transitions[transitionKey(t.From, t.Event)] = t
}

// transitionKey 生成转换键
func transitionKey(status models.GameStatus, event Event) string {
	return fmt.Sprintf("%s:%s", status, event)
}

// CanTransition 检查当前状态下事件是否有效
func (l *Lifecycle) CanTransition(status models.GameStatus, event Event) bool {
	_, ok := l.transitions[transitionKey(status, event)]
	return ok
}

// ValidEvents 获取状态下的有效事件
func (l *Lifecycle) ValidEvents(status models.GameStatus) []Event {
	var events []Event
	for _, e := range []Event{EventStart, EventTimeUp, EventForceAdvance, EventForceEnd} {
		if l.CanTransition(status, e) {
			events = append(events, e)
		}
	}
	return events
}

// Plan 基于最新读取的记录计算条件更新计划
func (l *Lifecycle) Plan(g *models.Game, event Event, ctx TransitionContext) (*Change, error) {
	if g == nil {
		return nil, apperrors.New(apperrors.ErrGameNotFound)
	}

	t, ok := l.transitions[transitionKey(g.Status, event)]
	if !ok {
		if event == EventStart {
			return nil, apperrors.New(apperrors.ErrGameAlreadyStarted, string(g.Status))
		}
		return nil, apperrors.Newf(apperrors.ErrGameStateError, "状态 %s 不支持事件 %s", g.Status, event)
	}

	if t.Guard != nil {
		if err := t.Guard(g, ctx); err != nil {
			return nil, err
		}
	}

	fields := map[string]interface{}{}
	if t.Fields != nil {
		fields = t.Fields(g, ctx)
	}

	return &Change{
		GameID:   g.ID,
		Expected: t.From,
		Next:     t.To,
		Fields:   fields,
	}, nil
}
