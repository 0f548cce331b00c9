package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// 占位密钥，release 模式下禁止使用
const placeholderSecret = "change-me-in-production"

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Game      GameConfig      `mapstructure:"game"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	System    SystemConfig    `mapstructure:"system"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	PublicURL       string        `mapstructure:"public_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// GameConfig 宾果游戏规则配置
type GameConfig struct {
	GridSizes         []int         `mapstructure:"grid_sizes"`
	MinTimerMinutes   int           `mapstructure:"min_timer_minutes"`
	MaxTimerMinutes   int           `mapstructure:"max_timer_minutes"`
	ScoringWindow     time.Duration `mapstructure:"scoring_window"`
	MinPlayers        int           `mapstructure:"min_players"`
	MaxNamesPerSquare int           `mapstructure:"max_names_per_square"`
	AdminDisplayName  string        `mapstructure:"admin_display_name"`
	AdminIcebreaker   string        `mapstructure:"admin_icebreaker"`
	ServerTimers      bool          `mapstructure:"server_timers"`
}

// GeneratorConfig 外部内容生成配置
type GeneratorConfig struct {
	Provider           string        `mapstructure:"provider"` // gemini, none
	Endpoint           string        `mapstructure:"endpoint"`
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	FallbackIcebreaker string        `mapstructure:"fallback_icebreaker"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	Timezone string `mapstructure:"timezone"`
	MaxProcs int    `mapstructure:"max_procs"`
	EnvFile  string `mapstructure:"env_file"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// LoadDotEnv 读取 .env 文件（若存在），不覆盖已有的环境变量
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Init 初始化全局配置
func Init(configPath string, flags *pflag.FlagSet) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath, flags)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})
	return err
}

// Load 读取配置但不写入全局实例（测试与工具使用）
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	_, loaded, err := load(configPath, flags)
	return loaded, err
}

func load(configPath string, flags *pflag.FlagSet) (*viper.Viper, *Config, error) {
	nv := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath("./config")
		nv.AddConfigPath(".")
	}

	// 设置环境变量前缀，如 BINGO_SERVER_PORT
	nv.SetEnvPrefix("BINGO")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	setDefaults(nv)

	if flags != nil {
		if err := bindFlags(nv, flags); err != nil {
			return nil, nil, fmt.Errorf("绑定命令行参数失败: %w", err)
		}
	}

	// 读取配置文件，不存在时使用默认配置
	if err := nv.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	loaded := &Config{}
	if err := nv.Unmarshal(loaded); err != nil {
		return nil, nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return nv, loaded, nil
}

// flagKeys 命令行参数到配置键的映射
var flagKeys = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"mode":        "server.mode",
	"public-url":  "server.public_url",
	"db-driver":   "database.driver",
	"db-dsn":      "database.dsn",
	"log-level":   "log.level",
	"log-output":  "log.output",
	"no-timers":   "",
	"jwt-secret":  "security.jwt.secret",
	"gemini-key":  "generator.api_key",
	"gemini-host": "generator.endpoint",
}

// bindFlags 仅绑定显式传入的参数，未设置的参数不覆盖配置文件
func bindFlags(nv *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "no-timers" {
			nv.Set("game.server_timers", f.Value.String() != "true")
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok || key == "" {
			return
		}
		if err := nv.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	return bindErr
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/bingo.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// WebSocket默认配置
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")

	// 游戏规则默认配置
	v.SetDefault("game.grid_sizes", []int{4, 5, 6, 7})
	v.SetDefault("game.min_timer_minutes", 1)
	v.SetDefault("game.max_timer_minutes", 180)
	v.SetDefault("game.scoring_window", "5m")
	v.SetDefault("game.min_players", 1)
	v.SetDefault("game.max_names_per_square", 3)
	v.SetDefault("game.admin_display_name", "Admin")
	v.SetDefault("game.admin_icebreaker", "I'm the host of this game! Come say hi.")
	v.SetDefault("game.server_timers", true)

	// 内容生成默认配置
	v.SetDefault("generator.provider", "gemini")
	v.SetDefault("generator.endpoint", "https://generativelanguage.googleapis.com")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.model", "gemini-1.5-flash")
	v.SetDefault("generator.timeout", "15s")
	v.SetDefault("generator.fallback_icebreaker", "Ask me about my favourite hobby!")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "bingo.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 安全默认配置
	v.SetDefault("security.jwt.secret", placeholderSecret)
	v.SetDefault("security.jwt.issuer", "bingo-game")
	v.SetDefault("security.jwt.expire_hours", 72)

	v.SetDefault("system.env_file", ".env")
}

// Validate 启动时校验配置
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("无效的端口 (1-65535): %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Security.JWT.Secret) == "" {
		return fmt.Errorf("security.jwt.secret 不能为空")
	}
	if c.Server.Mode == "release" && c.Security.JWT.Secret == placeholderSecret {
		return fmt.Errorf("release 模式下必须配置 security.jwt.secret")
	}
	if c.Security.JWT.ExpireHours <= 0 {
		return fmt.Errorf("security.jwt.expire_hours 必须大于0")
	}
	if len(c.Game.GridSizes) == 0 {
		return fmt.Errorf("game.grid_sizes 不能为空")
	}
	for _, size := range c.Game.GridSizes {
		if size < 2 || size > 10 {
			return fmt.Errorf("无效的棋盘大小: %d", size)
		}
	}
	if c.Game.MinTimerMinutes <= 0 || c.Game.MaxTimerMinutes < c.Game.MinTimerMinutes {
		return fmt.Errorf("无效的计时范围: %d-%d", c.Game.MinTimerMinutes, c.Game.MaxTimerMinutes)
	}
	if c.Game.ScoringWindow <= 0 {
		return fmt.Errorf("game.scoring_window 必须大于0")
	}
	if c.Game.MinPlayers < 1 {
		return fmt.Errorf("game.min_players 至少为1")
	}
	if c.Game.MaxNamesPerSquare < 1 {
		return fmt.Errorf("game.max_names_per_square 至少为1")
	}
	return nil
}

// GeneratorEnabled 是否配置了外部内容生成
func (c *Config) GeneratorEnabled() bool {
	return c.Generator.Provider != "none" && strings.TrimSpace(c.Generator.APIKey) != ""
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
	v.WatchConfig()
}

// ConfigFile 返回当前使用的配置文件路径
func ConfigFile() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
