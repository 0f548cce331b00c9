package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []int{4, 5, 6, 7}, cfg.Game.GridSizes)
	assert.Equal(t, 5*time.Minute, cfg.Game.ScoringWindow)
	assert.Equal(t, 3, cfg.Game.MaxNamesPerSquare)
	assert.Equal(t, "Admin", cfg.Game.AdminDisplayName)
	assert.True(t, cfg.Game.ServerTimers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BINGO_SERVER_PORT", "7070")
	t.Setenv("BINGO_GENERATOR_API_KEY", "from-env")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Generator.APIKey)
	assert.True(t, cfg.GeneratorEnabled())
}

func TestLoadFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.String("db-driver", "sqlite", "")
	fs.Bool("no-timers", false, "")
	require.NoError(t, fs.Parse([]string{"--port=6060", "--no-timers"}))

	cfg, err := Load(writeConfig(t, "database:\n  driver: mysql\n"), fs)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
	// 未显式传入的参数不覆盖配置文件
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.False(t, cfg.Game.ServerTimers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BINGO_TEST_DOTENV=hello\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("BINGO_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "hello", os.Getenv("BINGO_TEST_DOTENV"))

	// 文件不存在时忽略
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "none.env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"), nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"无效端口", func(c *Config) { c.Server.Port = 0 }},
		{"空密钥", func(c *Config) { c.Security.JWT.Secret = " " }},
		{"release模式占位密钥", func(c *Config) { c.Server.Mode = "release" }},
		{"过期时间", func(c *Config) { c.Security.JWT.ExpireHours = 0 }},
		{"空棋盘列表", func(c *Config) { c.Game.GridSizes = nil }},
		{"棋盘过大", func(c *Config) { c.Game.GridSizes = []int{11} }},
		{"计时范围", func(c *Config) { c.Game.MaxTimerMinutes = 0 }},
		{"计分窗口", func(c *Config) { c.Game.ScoringWindow = 0 }},
		{"最少玩家", func(c *Config) { c.Game.MinPlayers = 0 }},
		{"名字上限", func(c *Config) { c.Game.MaxNamesPerSquare = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := base()
	cfg.Server.Mode = "release"
	cfg.Security.JWT.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}
