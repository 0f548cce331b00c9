package repository

import (
	"github.com/wfunc/bingo-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试创建内存数据库并迁移表结构
func SetupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 内存库只能使用单连接，否则每个连接看到的是不同的库
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Game{}, &models.Player{}); err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// NewTestGame 创建测试用的游戏记录（未入库）
func NewTestGame(adminID string, gridSize int) *models.Game {
	prompts := make([]string, gridSize*gridSize)
	for i := range prompts {
		prompts[i] = "Find someone who likes topic " + string(rune('A'+i%26))
	}
	return &models.Game{
		AdminID:              adminID,
		Industry:             "testing",
		Prompts:              prompts,
		GridSize:             gridSize,
		TimerDurationMinutes: 1,
		Status:               models.StatusWaiting,
	}
}

// NewTestPlayer 创建测试用的玩家记录（未入库）
func NewTestPlayer(gameID, playerID, name string) *models.Player {
	return &models.Player{
		GameID:      gameID,
		ID:          playerID,
		DisplayName: name,
	}
}
