package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
)

func newTestGame(status models.GameStatus) *models.Game {
	prompts := make([]string, 16)
	for i := range prompts {
		prompts[i] = "prompt"
	}
	return &models.Game{
		ID:                   "ABCDEF",
		AdminID:              "admin",
		GridSize:             4,
		TimerDurationMinutes: 1,
		Prompts:              prompts,
		Status:               status,
	}
}

func TestLifecycleStart(t *testing.T) {
	l := NewLifecycle()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g := newTestGame(models.StatusWaiting)

	change, err := l.Plan(g, EventStart, TransitionContext{Now: now, PlayerCount: 1, Rules: DefaultRules()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, change.Expected)
	assert.Equal(t, models.StatusPlaying, change.Next)
	assert.Equal(t, now, change.Fields["start_time"])

	_, err = l.Plan(g, EventStart, TransitionContext{Now: now, PlayerCount: 0, Rules: DefaultRules()})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotEnoughPlayers))

	g.Prompts = g.Prompts[:15]
	_, err = l.Plan(g, EventStart, TransitionContext{Now: now, PlayerCount: 2, Rules: DefaultRules()})
	assert.True(t, apperrors.Is(err, apperrors.ErrPromptCount))
}

func TestLifecycleStartTwice(t *testing.T) {
	l := NewLifecycle()
	_, err := l.Plan(newTestGame(models.StatusPlaying), EventStart, TransitionContext{Now: time.Now(), PlayerCount: 1, Rules: DefaultRules()})
	assert.True(t, apperrors.Is(err, apperrors.ErrGameAlreadyStarted))
}

func TestLifecycleTimeUp(t *testing.T) {
	l := NewLifecycle()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g := newTestGame(models.StatusPlaying)
	g.StartTime = &start
	rules := DefaultRules()

	// 未到期
	_, err := l.Plan(g, EventTimeUp, TransitionContext{Now: start.Add(59 * time.Second), Rules: rules})
	assert.True(t, apperrors.Is(err, apperrors.ErrGameStateError))

	now := start.Add(61 * time.Second)
	change, err := l.Plan(g, EventTimeUp, TransitionContext{Now: now, Rules: rules})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, change.Expected)
	assert.Equal(t, models.StatusScoring, change.Next)
	assert.Equal(t, now.Add(5*time.Minute), change.Fields["scoring_deadline"])

	deadline := now.Add(5 * time.Minute)
	g.Status = models.StatusScoring
	g.ScoringDeadline = &deadline
	_, err = l.Plan(g, EventTimeUp, TransitionContext{Now: deadline.Add(-time.Second), Rules: rules})
	assert.Error(t, err)

	change, err = l.Plan(g, EventTimeUp, TransitionContext{Now: deadline, Rules: rules})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, change.Next)
	assert.Empty(t, change.Fields)
}

func TestLifecycleForce(t *testing.T) {
	l := NewLifecycle()
	now := time.Now()
	start := now
	g := newTestGame(models.StatusPlaying)
	g.StartTime = &start

	// 手动推进不校验倒计时
	change, err := l.Plan(g, EventForceAdvance, TransitionContext{Now: now, Rules: DefaultRules()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScoring, change.Next)
	assert.Contains(t, change.Fields, "scoring_deadline")

	change, err = l.Plan(g, EventForceEnd, TransitionContext{Now: now, Rules: DefaultRules()})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, change.Next)

	_, err = l.Plan(newTestGame(models.StatusWaiting), EventForceEnd, TransitionContext{Now: now, Rules: DefaultRules()})
	assert.Error(t, err)
	_, err = l.Plan(newTestGame(models.StatusFinished), EventForceAdvance, TransitionContext{Now: now, Rules: DefaultRules()})
	assert.Error(t, err)
}

func TestLifecycleNoBackwardTransitions(t *testing.T) {
	l := NewLifecycle()
	assert.Empty(t, l.ValidEvents(models.StatusFinished))
	assert.Equal(t, []Event{EventStart}, l.ValidEvents(models.StatusWaiting))
	assert.ElementsMatch(t, []Event{EventTimeUp, EventForceAdvance, EventForceEnd}, l.ValidEvents(models.StatusScoring))
	assert.False(t, l.CanTransition(models.StatusScoring, EventStart))
}

func TestLifecycleMissingGame(t *testing.T) {
	_, err := NewLifecycle().Plan(nil, EventTimeUp, TransitionContext{})
	assert.True(t, apperrors.Is(err, apperrors.ErrGameNotFound))
}
