package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	gameOnce sync.Once
	game     GameRepository

	playerOnce sync.Once
	player     PlayerRepository

	newID IDGenerator
}

// ManagerOption 管理器选项
type ManagerOption func(*Manager)

// WithIDGenerator 指定房间号生成器
func WithIDGenerator(gen IDGenerator) ManagerOption {
	return func(m *Manager) {
		m.newID = gen
	}
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB, opts ...ManagerOption) *Manager {
	m := &Manager{db: db}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Game 获取游戏仓储
func (m *Manager) Game() GameRepository {
	m.gameOnce.Do(func() {
		if m.newID != nil {
			m.game = NewGameRepositoryWithIDs(m.db, m.newID)
		} else {
			m.game = NewGameRepository(m.db)
		}
	})
	return m.game
}

// Player 获取玩家仓储
func (m *Manager) Player() PlayerRepository {
	m.playerOnce.Do(func() {
		m.player = NewPlayerRepository(m.db)
	})
	return m.player
}

// WithTransaction 在事务中执行，回调中的仓储共享同一事务
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Manager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Manager{db: tx, newID: m.newID})
	})
}
