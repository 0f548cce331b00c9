package service

import (
	"context"
	"strings"
	"unicode/utf8"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/logger"
	"github.com/wfunc/bingo-game/internal/models"
	"github.com/wfunc/bingo-game/internal/repository"
	"go.uber.org/zap"
)

// 行业主题最大长度
const maxIndustryLength = 200

// gameService 游戏注册表实现
type gameService struct {
	*deps
}

// NewGameService 创建游戏服务
func NewGameService(d *deps) GameService {
	return &gameService{deps: d}
}

// CreateGame 创建游戏并自动登记管理员为玩家
func (s *gameService) CreateGame(ctx context.Context, req *CreateGameRequest) (*CreateGameResult, error) {
	if strings.TrimSpace(req.AdminID) == "" {
		return nil, apperrors.New(apperrors.ErrAuthentication, "缺少管理员身份")
	}

	rules := s.config.Rules
	if err := rules.ValidateGridSize(req.GridSize); err != nil {
		return nil, err
	}
	if err := rules.ValidateTimer(req.TimerMinutes); err != nil {
		return nil, err
	}

	industry := strings.TrimSpace(req.Industry)
	if utf8.RuneCountInString(industry) > maxIndustryLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "主题最长 %d 个字符", maxIndustryLength)
	}

	var warnings []string
	prompts := req.Prompts
	if len(prompts) == 0 {
		prompts, warnings = s.GeneratePrompts(ctx, industry, req.GridSize*req.GridSize)
	}
	prompts, err := rules.ValidatePrompts(req.GridSize, prompts)
	if err != nil {
		return nil, err
	}

	g := &models.Game{
		AdminID:              req.AdminID,
		Industry:             industry,
		Prompts:              prompts,
		GridSize:             req.GridSize,
		TimerDurationMinutes: req.TimerMinutes,
		Status:               models.StatusWaiting,
	}

	err = s.repo.WithTransaction(ctx, func(tx *repository.Manager) error {
		if err := tx.Game().Create(ctx, g); err != nil {
			return err
		}
		admin := &models.Player{
			GameID:      g.ID,
			ID:          req.AdminID,
			DisplayName: s.config.AdminDisplayName,
			Icebreaker:  s.config.AdminIcebreaker,
		}
		_, _, err := tx.Player().CreateIfAbsent(ctx, admin)
		return err
	})
	if err != nil {
		s.log.Error("创建游戏失败", zap.String("admin_id", req.AdminID), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction, "创建游戏失败")
	}

	logger.LogGameEvent("created", g.ID, map[string]interface{}{
		"admin_id":  g.AdminID,
		"grid_size": g.GridSize,
		"timer":     g.TimerDurationMinutes,
		"generated": len(req.Prompts) == 0,
	})

	view := s.publishGame(g)
	s.publishPlayers(ctx, g.ID)

	return &CreateGameResult{Game: view, Warnings: warnings}, nil
}

// GetGame 读取游戏
func (s *gameService) GetGame(ctx context.Context, gameID string) (*GameView, error) {
	g, err := s.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return NewGameView(g, s.clock.Now()), nil
}

// ListGamesByAdmin 管理员的游戏，最新的在前
func (s *gameService) ListGamesByAdmin(ctx context.Context, adminID string, page, pageSize int) ([]*GameView, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	games, err := s.repo.Game().ListByAdmin(ctx, adminID, pagination)
	if err != nil {
		return nil, 0, err
	}

	now := s.clock.Now()
	views := make([]*GameView, len(games))
	for i, g := range games {
		views[i] = NewGameView(g, now)
	}
	return views, pagination.Total, nil
}

// UpdatePrompts 等待阶段由管理员修改题目，数量必须保持为 gridSize²
func (s *gameService) UpdatePrompts(ctx context.Context, gameID, actingID string, prompts []string) (*GameView, error) {
	g, err := s.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.AdminID != actingID {
		return nil, apperrors.New(apperrors.ErrNotGameAdmin)
	}
	if g.Status != models.StatusWaiting {
		return nil, apperrors.New(apperrors.ErrGameAlreadyStarted, "开始后题目不可修改")
	}

	cleaned, err := s.config.Rules.ValidatePrompts(g.GridSize, prompts)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.Game().UpdatePromptsIf(ctx, gameID, models.StatusWaiting, cleaned)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.New(apperrors.ErrGameAlreadyStarted, "开始后题目不可修改")
	}

	updated, err := s.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	logger.LogGameEvent("prompts_updated", gameID, map[string]interface{}{"count": len(cleaned)})
	return s.publishGame(updated), nil
}

// GeneratePrompts 生成题目，失败或不足时补齐默认题目，不返回错误
func (s *gameService) GeneratePrompts(ctx context.Context, industry string, n int) ([]string, []string) {
	prompts, warnings := s.gen.Prompts(ctx, industry, n)
	for _, w := range warnings {
		s.log.Warn("题目生成降级", zap.String("industry", industry), zap.String("warning", w))
	}
	return prompts, warnings
}

// UpdateGameStatus 条件更新状态并在写入成功后发布快照
func (s *gameService) UpdateGameStatus(ctx context.Context, gameID string, expected, next models.GameStatus, fields map[string]interface{}) (bool, error) {
	applied, err := s.repo.Game().UpdateStatusIf(ctx, gameID, expected, next, fields)
	if err != nil || !applied {
		return applied, err
	}

	updated, err := s.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		// 写入已生效，读取失败只影响推送
		s.log.Warn("状态更新后读取失败", zap.String("game_id", gameID), zap.Error(err))
		return true, nil
	}
	s.publishGame(updated)
	return true, nil
}

// Leaderboard 基于最新玩家记录计算排行榜
func (s *gameService) Leaderboard(ctx context.Context, gameID string) (*LeaderboardView, error) {
	g, err := s.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.repo.Player().ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return &LeaderboardView{
		GameID:  gameID,
		Status:  g.Status,
		Entries: game.Leaderboard(players, g.Status),
	}, nil
}

// SubscribeGame 订阅游戏快照
func (s *gameService) SubscribeGame(gameID string, handler feed.Handler) (func(), error) {
	return s.broker.SubscribeWith(feed.GameTopic(gameID), func() (interface{}, error) {
		return s.GetGame(context.Background(), gameID)
	}, handler)
}

// publishGame 发布游戏快照
func (d *deps) publishGame(g *models.Game) *GameView {
	view := NewGameView(g, d.clock.Now())
	d.broker.Publish(feed.GameTopic(g.ID), view)
	return view
}

// publishPlayers 重新读取并发布玩家列表快照
func (d *deps) publishPlayers(ctx context.Context, gameID string) {
	players, err := d.repo.Player().ListByGame(ctx, gameID)
	if err != nil {
		d.log.Warn("读取玩家列表失败，跳过推送", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	d.broker.Publish(feed.PlayersTopic(gameID), players)
}
