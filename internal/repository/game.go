package repository

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 房间号冲突时的最大重试次数
const maxCodeAttempts = 8

// IDGenerator 房间号生成函数
type IDGenerator func() (string, error)

// GameRepository 游戏仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, g *models.Game) error
	FindByID(ctx context.Context, id string) (*models.Game, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByAdmin(ctx context.Context, adminID string, pagination *Pagination) ([]*models.Game, error)
	ListByStatus(ctx context.Context, statuses ...models.GameStatus) ([]*models.Game, error)
	UpdateStatusIf(ctx context.Context, id string, expected, next models.GameStatus, fields map[string]interface{}) (bool, error)
	UpdatePromptsIf(ctx context.Context, id string, expected models.GameStatus, prompts []string) (bool, error)
}

// gameRepo 游戏仓储实现
type gameRepo struct {
	*BaseRepo
	newID IDGenerator
}

// NewGameRepository 创建游戏仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return NewGameRepositoryWithIDs(db, game.GenerateRoomCode)
}

// NewGameRepositoryWithIDs 使用自定义房间号生成器创建游戏仓储
func NewGameRepositoryWithIDs(db *gorm.DB, gen IDGenerator) GameRepository {
	return &gameRepo{
		BaseRepo: NewBaseRepo(db),
		newID:    gen,
	}
}

// Create 创建游戏并分配房间号，冲突时重新生成
func (r *gameRepo) Create(ctx context.Context, g *models.Game) error {
	if g.ID != "" {
		return r.db.WithContext(ctx).Create(g).Error
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := r.newID()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrUnknown, "生成房间号")
		}

		exists, err := r.Exists(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		g.ID = code
		err = r.db.WithContext(ctx).Create(g).Error
		if err == nil {
			return nil
		}

		// 并发下被抢占则重试，其他错误直接返回
		if taken, _ := r.Exists(ctx, code); taken {
			g.ID = ""
			continue
		}
		g.ID = ""
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "创建游戏失败")
	}

	return apperrors.Newf(apperrors.ErrAlreadyExists, "房间号连续 %d 次冲突", maxCodeAttempts)
}

// FindByID 根据房间号查找游戏
func (r *gameRepo) FindByID(ctx context.Context, id string) (*models.Game, error) {
	var g models.Game
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGameNotFound, id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &g, nil
}

// Exists 房间号是否已存在
func (r *gameRepo) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Game{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count > 0, nil
}

// ListByAdmin 管理员创建的游戏，最新的在前
func (r *gameRepo) ListByAdmin(ctx context.Context, adminID string, pagination *Pagination) ([]*models.Game, error) {
	var games []*models.Game
	query := r.db.WithContext(ctx).Model(&models.Game{}).Where("admin_id = ?", adminID)

	if pagination != nil {
		if err := query.Count(&pagination.Total).Error; err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
	}

	err := query.Scopes(Paginate(pagination)).Order("created_at DESC").Order("id").Find(&games).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return games, nil
}

// ListByStatus 按状态列出游戏
func (r *gameRepo) ListByStatus(ctx context.Context, statuses ...models.GameStatus) ([]*models.Game, error) {
	var games []*models.Game
	err := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at").Find(&games).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return games, nil
}

// UpdateStatusIf 条件更新：仅当当前状态等于 expected 时写入。
// 返回 false 表示状态已被其他写入者改变，不是错误。
func (r *gameRepo) UpdateStatusIf(ctx context.Context, id string, expected, next models.GameStatus, fields map[string]interface{}) (bool, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = next

	result := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, fmt.Sprintf("更新游戏状态 %s -> %s", expected, next))
	}
	return result.RowsAffected == 1, nil
}

// UpdatePromptsIf 条件更新题目
func (r *gameRepo) UpdatePromptsIf(ctx context.Context, id string, expected models.GameStatus, prompts []string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, expected).
		Update("prompts", datatypes.JSONSlice[string](prompts))
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate, "更新题目")
	}
	return result.RowsAffected == 1, nil
}
