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

// 破冰语最大长度
const maxIcebreakerLength = 500

// playerService 玩家注册表实现
type playerService struct {
	*deps
}

// NewPlayerService 创建玩家服务
func NewPlayerService(d *deps) PlayerService {
	return &playerService{deps: d}
}

// Join 加入游戏。已有记录时原样返回，不修改。
func (s *playerService) Join(ctx context.Context, req *JoinRequest) (*JoinResult, error) {
	if strings.TrimSpace(req.PlayerID) == "" {
		return nil, apperrors.New(apperrors.ErrAuthentication, "缺少玩家身份")
	}

	g, err := s.repo.Game().FindByID(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Player().Find(ctx, req.GameID, req.PlayerID)
	if err == nil {
		return &JoinResult{Player: existing, Rejoined: true}, nil
	}
	if !apperrors.Is(err, apperrors.ErrPlayerNotFound) {
		return nil, err
	}

	if g.Status != models.StatusWaiting {
		return nil, apperrors.New(apperrors.ErrGameAlreadyStarted, req.GameID)
	}

	name, err := game.NormalizeName(req.DisplayName)
	if err != nil {
		return nil, err
	}

	var warnings []string
	icebreaker := strings.TrimSpace(req.Icebreaker)
	if fact := strings.TrimSpace(req.Fact); icebreaker == "" && fact != "" {
		icebreaker, warnings = s.gen.Icebreaker(ctx, fact)
		for _, w := range warnings {
			s.log.Warn("破冰语生成降级", zap.String("game_id", req.GameID), zap.String("warning", w))
		}
	}
	icebreaker = truncateRunes(icebreaker, maxIcebreakerLength)

	var player *models.Player
	var created bool
	err = s.repo.WithTransaction(ctx, func(tx *repository.Manager) error {
		// 事务内再次确认仍在等待阶段
		current, err := tx.Game().FindByID(ctx, req.GameID)
		if err != nil {
			return err
		}
		if current.Status != models.StatusWaiting {
			return apperrors.New(apperrors.ErrGameAlreadyStarted, req.GameID)
		}
		player, created, err = tx.Player().CreateIfAbsent(ctx, &models.Player{
			GameID:      req.GameID,
			ID:          req.PlayerID,
			DisplayName: name,
			Icebreaker:  icebreaker,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		logger.LogGameEvent("player_joined", req.GameID, map[string]interface{}{
			"player_id":    player.ID,
			"display_name": player.DisplayName,
		})
		s.publishPlayers(ctx, req.GameID)
	}

	return &JoinResult{Player: player, Rejoined: !created, Warnings: warnings}, nil
}

// GetPlayer 读取玩家
func (s *playerService) GetPlayer(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	if _, err := s.repo.Game().FindByID(ctx, gameID); err != nil {
		return nil, err
	}
	return s.repo.Player().Find(ctx, gameID, playerID)
}

// ListPlayers 游戏内所有玩家
func (s *playerService) ListPlayers(ctx context.Context, gameID string) ([]models.Player, error) {
	if _, err := s.repo.Game().FindByID(ctx, gameID); err != nil {
		return nil, err
	}
	return s.repo.Player().ListByGame(ctx, gameID)
}

// SetSquare 写入或清除一个格子，并在同一次写入中重算分数。
// 读取与写入在同一事务中完成，玩家行被锁定，同一玩家的并发写入依次生效。
func (s *playerService) SetSquare(ctx context.Context, req *SetSquareRequest) (*models.Player, error) {
	if req.ActingID != req.PlayerID {
		return nil, apperrors.New(apperrors.ErrNotPlayerOwner)
	}

	var (
		updated *models.Player
		changed bool
	)
	err := s.repo.WithTransaction(ctx, func(tx *repository.Manager) error {
		g, err := tx.Game().FindByID(ctx, req.GameID)
		if err != nil {
			return err
		}
		if err := requirePlaying(g); err != nil {
			return err
		}

		player, err := tx.Player().FindForUpdate(ctx, req.GameID, req.PlayerID)
		if err != nil {
			return err
		}
		if player.IsSubmitted {
			return apperrors.New(apperrors.ErrPlayerSubmitted)
		}

		next, err := game.SetSquare(player.CheckedSquares, req.SquareIndex, req.Names, g.GridSize, s.config.Rules.MaxNamesPerSquare)
		if err != nil {
			return err
		}

		// 内容不变时不写入，部分驱动对未改变的行返回 0 影响行数
		if game.EqualSquares(player.CheckedSquares, next) {
			updated = player
			return nil
		}

		applied, err := tx.Player().UpdateSquaresIf(ctx, req.GameID, req.PlayerID, models.StatusPlaying, next, game.Score(next))
		if err != nil {
			return err
		}
		if !applied {
			return explainRejectedWrite(ctx, tx, req.GameID, req.PlayerID, models.StatusPlaying)
		}

		updated, err = tx.Player().Find(ctx, req.GameID, req.PlayerID)
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publishPlayers(ctx, req.GameID)
	}
	return updated, nil
}

// Submit 提交，之后格子不可再改；游戏中与计分阶段均可提交
func (s *playerService) Submit(ctx context.Context, gameID, actingID, playerID string) (*models.Player, error) {
	if actingID != playerID {
		return nil, apperrors.New(apperrors.ErrNotPlayerOwner)
	}

	g, err := s.repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	allowed := []models.GameStatus{models.StatusPlaying, models.StatusScoring}
	switch g.Status {
	case models.StatusWaiting:
		return nil, apperrors.New(apperrors.ErrGameNotStarted)
	case models.StatusFinished:
		return nil, apperrors.New(apperrors.ErrGameStateError, "游戏已结束")
	}

	player, err := s.repo.Player().Find(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if player.IsSubmitted {
		return nil, apperrors.New(apperrors.ErrPlayerSubmitted)
	}

	applied, err := s.repo.Player().SubmitIf(ctx, gameID, playerID, allowed, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, explainRejectedWrite(ctx, s.repo, gameID, playerID, allowed...)
	}

	updated, err := s.repo.Player().Find(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	logger.LogGameEvent("player_submitted", gameID, map[string]interface{}{
		"player_id": playerID,
		"score":     updated.Score,
	})
	s.publishPlayers(ctx, gameID)
	return updated, nil
}

// FollowUpQuestions 针对玩家的破冰语生成追问
func (s *playerService) FollowUpQuestions(ctx context.Context, gameID, playerID string) ([]string, []string, error) {
	player, err := s.GetPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, nil, err
	}
	text := player.Icebreaker
	if strings.TrimSpace(text) == "" {
		text = player.DisplayName
	}
	questions, warnings := s.gen.FollowUpQuestions(ctx, text)
	return questions, warnings, nil
}

// SubscribePlayers 订阅玩家列表快照
func (s *playerService) SubscribePlayers(gameID string, handler feed.Handler) (func(), error) {
	return s.broker.SubscribeWith(feed.PlayersTopic(gameID), func() (interface{}, error) {
		return s.ListPlayers(context.Background(), gameID)
	}, handler)
}

// explainRejectedWrite 条件写入未生效时，重新读取以给出具体原因
func explainRejectedWrite(ctx context.Context, repo *repository.Manager, gameID, playerID string, allowed ...models.GameStatus) error {
	player, err := repo.Player().Find(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if player.IsSubmitted {
		return apperrors.New(apperrors.ErrPlayerSubmitted)
	}
	g, err := repo.Game().FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	return apperrors.Newf(apperrors.ErrGameStateError, "当前阶段 %s，需要 %v", g.Status, allowed)
}

// requirePlaying 只有游戏中可以勾选
func requirePlaying(g *models.Game) error {
	switch g.Status {
	case models.StatusPlaying:
		return nil
	case models.StatusWaiting:
		return apperrors.New(apperrors.ErrGameNotStarted)
	default:
		return apperrors.Newf(apperrors.ErrGameStateError, "当前阶段 %s 不可勾选", g.Status)
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
