package database

import (
	"fmt"

	"github.com/wfunc/bingo-game/internal/logger"
	"github.com/wfunc/bingo-game/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 文件型 SQLite 需要迁移锁，避免多个进程同时迁移
	if dbPath := sqliteFilePath(db); dbPath != "" {
		CleanupStaleLocks(dbPath)
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	logger.Info("开始数据库迁移...")

	migrationModels := []interface{}{
		&models.Game{},
		&models.Player{},
	}

	for _, model := range migrationModels {
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db)

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建查询用的组合索引
func createIndexes(db *gorm.DB) {
	indexes := map[string]string{
		"idx_games_admin_created":  "CREATE INDEX IF NOT EXISTS idx_games_admin_created ON games(admin_id, created_at)",
		"idx_players_game_created": "CREATE INDEX IF NOT EXISTS idx_players_game_created ON players(game_id, created_at)",
		"idx_games_status_updated": "CREATE INDEX IF NOT EXISTS idx_games_status_updated ON games(status, updated_at)",
	}

	// MySQL 不支持 IF NOT EXISTS，交给 Migrator 判断
	if db.Dialector.Name() == "mysql" {
		return
	}

	for name, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}
}

// DropAllTables 删除所有表（仅用于测试）
func DropAllTables(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Player{}, &models.Game{})
}
