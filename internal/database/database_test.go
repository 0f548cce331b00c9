package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/models"
)

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenMemoryAndMigrate(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxIdleConns: 2, MaxOpenConns: 10, LogLevel: "silent"})
	require.NoError(t, err)
	defer Close(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	require.NoError(t, AutoMigrate(db))
	assert.True(t, db.Migrator().HasTable(&models.Game{}))
	assert.True(t, db.Migrator().HasTable(&models.Player{}))
	assert.True(t, IsConnected(db))

	require.NoError(t, DropAllTables(db))
	assert.False(t, db.Migrator().HasTable(&models.Game{}))
}

func TestMigrateFileWithLock(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "bingo.db")
	db, err := Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn, MaxIdleConns: 1, MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, AutoMigrate(db))
	// 锁文件在迁移结束后释放
	matches, _ := filepath.Glob(dsn + "*.lock")
	assert.Empty(t, matches)
	// 重复迁移也能成功
	require.NoError(t, AutoMigrate(db))
}

func TestIsConnectedNil(t *testing.T) {
	assert.False(t, IsConnected(nil))
	assert.NoError(t, Close(nil))
}
