package game

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wfunc/bingo-game/internal/config"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
)

// MaxNameLength 名字最大长度（按字符计）
const MaxNameLength = 40

// Rules 游戏规则参数
type Rules struct {
	GridSizes         []int
	MinTimerMinutes   int
	MaxTimerMinutes   int
	ScoringWindow     time.Duration
	MinPlayers        int
	MaxNamesPerSquare int
}

// DefaultRules 默认规则
func DefaultRules() Rules {
	return Rules{
		GridSizes:         []int{4, 5, 6, 7},
		MinTimerMinutes:   1,
		MaxTimerMinutes:   180,
		ScoringWindow:     5 * time.Minute,
		MinPlayers:        1,
		MaxNamesPerSquare: 3,
	}
}

// RulesFromConfig 从配置构建规则
func RulesFromConfig(cfg *config.GameConfig) Rules {
	return Rules{
		GridSizes:         append([]int(nil), cfg.GridSizes...),
		MinTimerMinutes:   cfg.MinTimerMinutes,
		MaxTimerMinutes:   cfg.MaxTimerMinutes,
		ScoringWindow:     cfg.ScoringWindow,
		MinPlayers:        cfg.MinPlayers,
		MaxNamesPerSquare: cfg.MaxNamesPerSquare,
	}
}

// ValidateGridSize 校验棋盘大小
func (r Rules) ValidateGridSize(size int) error {
	for _, allowed := range r.GridSizes {
		if size == allowed {
			return nil
		}
	}
	return apperrors.Newf(apperrors.ErrInvalidGridSize, "允许的大小: %v，实际: %d", r.GridSizes, size)
}

// ValidateTimer 校验计时分钟数
func (r Rules) ValidateTimer(minutes int) error {
	if minutes <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidTimer, "计时必须大于0，实际: %d", minutes)
	}
	if minutes < r.MinTimerMinutes || (r.MaxTimerMinutes > 0 && minutes > r.MaxTimerMinutes) {
		return apperrors.Newf(apperrors.ErrInvalidTimer, "计时范围 %d-%d 分钟，实际: %d", r.MinTimerMinutes, r.MaxTimerMinutes, minutes)
	}
	return nil
}

// ValidatePrompts 校验题目数量与内容，返回清理后的副本
func (r Rules) ValidatePrompts(gridSize int, prompts []string) ([]string, error) {
	want := gridSize * gridSize
	if len(prompts) != want {
		return nil, apperrors.Newf(apperrors.ErrPromptCount, "需要 %d 条，实际 %d 条", want, len(prompts))
	}
	cleaned := make([]string, len(prompts))
	for i, p := range prompts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, apperrors.Newf(apperrors.ErrPromptCount, "第 %d 条题目为空", i+1)
		}
		cleaned[i] = p
	}
	return cleaned, nil
}

// ValidateNewGame 校验创建游戏的参数
func (r Rules) ValidateNewGame(gridSize, timerMinutes int, prompts []string) ([]string, error) {
	if err := r.ValidateGridSize(gridSize); err != nil {
		return nil, err
	}
	if err := r.ValidateTimer(timerMinutes); err != nil {
		return nil, err
	}
	return r.ValidatePrompts(gridSize, prompts)
}

// NormalizeName 清理并校验显示名或格子中的名字
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.New(apperrors.ErrInvalidName, "名字不能为空")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperrors.Newf(apperrors.ErrInvalidName, "名字最长 %d 个字符", MaxNameLength)
	}
	return name, nil
}
