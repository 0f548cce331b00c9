package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerRepository 玩家仓储接口
type PlayerRepository interface {
	BaseRepository
	CreateIfAbsent(ctx context.Context, p *models.Player) (*models.Player, bool, error)
	Find(ctx context.Context, gameID, playerID string) (*models.Player, error)
	FindForUpdate(ctx context.Context, gameID, playerID string) (*models.Player, error)
	ListByGame(ctx context.Context, gameID string) ([]models.Player, error)
	Count(ctx context.Context, gameID string) (int64, error)
	UpdateSquaresIf(ctx context.Context, gameID, playerID string, gameStatus models.GameStatus, squares []models.CheckedSquare, score int) (bool, error)
	SubmitIf(ctx context.Context, gameID, playerID string, gameStatuses []models.GameStatus, at time.Time) (bool, error)
}

// playerRepo 玩家仓储实现
type playerRepo struct {
	*BaseRepo
}

// NewPlayerRepository 创建玩家仓储
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// CreateIfAbsent 插入玩家记录；已存在时不修改并返回已有记录。
// 第二个返回值表示是否新建。
func (r *playerRepo) CreateIfAbsent(ctx context.Context, p *models.Player) (*models.Player, bool, error) {
	if p.CheckedSquares == nil {
		p.CheckedSquares = datatypes.JSONSlice[models.CheckedSquare]{}
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if result.Error != nil {
		return nil, false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseInsert, "创建玩家失败")
	}
	if result.RowsAffected == 1 {
		return p, true, nil
	}

	existing, err := r.Find(ctx, p.GameID, p.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Find 查找玩家
func (r *playerRepo) Find(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	var p models.Player
	err := r.db.WithContext(ctx).Where("game_id = ? AND id = ?", gameID, playerID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrPlayerNotFound, playerID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &p, nil
}

// FindForUpdate 在事务中读取并锁定玩家行，直到事务结束（sqlite 不支持行锁，依赖单连接串行）
func (r *playerRepo) FindForUpdate(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	var p models.Player
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("game_id = ? AND id = ?", gameID, playerID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrPlayerNotFound, playerID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &p, nil
}

// ListByGame 游戏内所有玩家，按加入时间排序
func (r *playerRepo) ListByGame(ctx context.Context, gameID string) ([]models.Player, error) {
	var players []models.Player
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).Order("created_at").Order("id").Find(&players).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return players, nil
}

// Count 游戏内玩家数量
func (r *playerRepo) Count(ctx context.Context, gameID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Player{}).Where("game_id = ?", gameID).Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// gameInStatus 游戏状态条件子查询
func (r *playerRepo) gameInStatus(ctx context.Context, gameID string, statuses []models.GameStatus) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Game{}).Select("id").Where("id = ? AND status IN ?", gameID, statuses)
}

// UpdateSquaresIf 仅当玩家未提交且游戏处于指定状态时写入格子与分数
func (r *playerRepo) UpdateSquaresIf(ctx context.Context, gameID, playerID string, gameStatus models.GameStatus, squares []models.CheckedSquare, score int) (bool, error) {
	if squares == nil {
		squares = []models.CheckedSquare{}
	}

	result := r.db.WithContext(ctx).Model(&models.Player{}).
		Where("game_id = ? AND id = ? AND is_submitted = ?", gameID, playerID, false).
		Where("game_id IN (?)", r.gameInStatus(ctx, gameID, []models.GameStatus{gameStatus})).
		Updates(map[string]interface{}{
			"checked_squares": datatypes.JSONSlice[models.CheckedSquare](squares),
			"score":           score,
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "更新格子")
	}
	return result.RowsAffected == 1, nil
}

// SubmitIf 仅当玩家未提交且游戏处于指定状态之一时提交
func (r *playerRepo) SubmitIf(ctx context.Context, gameID, playerID string, gameStatuses []models.GameStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Player{}).
		Where("game_id = ? AND id = ? AND is_submitted = ?", gameID, playerID, false).
		Where("game_id IN (?)", r.gameInStatus(ctx, gameID, gameStatuses)).
		Updates(map[string]interface{}{
			"is_submitted":    true,
			"submission_time": at,
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "提交")
	}
	return result.RowsAffected == 1, nil
}
