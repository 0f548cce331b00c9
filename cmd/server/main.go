package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/bingo-game/internal/api"
	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/database"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/generator"
	"github.com/wfunc/bingo-game/internal/logger"
	"github.com/wfunc/bingo-game/internal/service"
	ws "github.com/wfunc/bingo-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *gorm.DB
	services *service.Services
	hub      *ws.Hub
	http     *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:           "bingo-server",
		Short:         "Networking bingo game server",
		Args:          cobra.NoArgs,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("加载 .env 失败: %w", err)
			}
			if err := config.Init(configPath, cmd.Flags()); err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			return run(cmd.Context(), config.Get())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml 与 ./config.yaml）")
	fs.StringVar(&envFile, "env-file", ".env", ".env 文件路径，不存在时忽略")
	fs.String("host", "0.0.0.0", "监听地址 (env: BINGO_SERVER_HOST)")
	fs.IntP("port", "p", 8080, "监听端口 (env: BINGO_SERVER_PORT)")
	fs.String("mode", "debug", "运行模式 debug/release/test (env: BINGO_SERVER_MODE)")
	fs.String("public-url", "", "加入链接使用的公开地址 (env: BINGO_SERVER_PUBLIC_URL)")
	fs.String("db-driver", "sqlite", "数据库驱动 sqlite/mysql/postgres (env: BINGO_DATABASE_DRIVER)")
	fs.String("db-dsn", "", "数据库连接串 (env: BINGO_DATABASE_DSN)")
	fs.String("log-level", "info", "日志级别 (env: BINGO_LOG_LEVEL)")
	fs.String("log-output", "stdout", "日志输出 stdout/file/both (env: BINGO_LOG_OUTPUT)")
	fs.Bool("no-timers", false, "关闭服务器端阶段计时，只依赖客户端推进")
	fs.String("jwt-secret", "", "令牌签名密钥 (env: BINGO_SECURITY_JWT_SECRET)")
	fs.String("gemini-key", "", "内容生成 API Key (env: BINGO_GENERATOR_API_KEY)")
	fs.String("gemini-host", "", "内容生成服务地址 (env: BINGO_GENERATOR_ENDPOINT)")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate(versionString())

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Cleanup()

	setupSystem(&cfg.System)

	if ctx == nil {
		ctx = context.Background()
	}
	server := NewServer(ctx, cfg)

	if err := server.Start(); err != nil {
		server.logger.Error("服务器启动失败", zap.Error(err))
		server.closeComponents()
		return err
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		server.logger.Error("服务器关闭失败", zap.Error(err))
		return err
	}

	server.logger.Info("服务器已安全关闭")
	return nil
}

// NewServer 创建服务器实例
func NewServer(parent context.Context, cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(parent)

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动宾果游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
		zap.String("config_file", config.ConfigFile()),
	)

	if err := s.initComponents(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "初始化组件失败")
	}

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()

	s.logger.Info("服务器启动成功", zap.String("http", s.http.Addr))
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	if err := s.initDatabase(); err != nil {
		return err
	}

	gen := generator.New(&s.cfg.Generator)
	if gen == nil {
		s.logger.Warn("未配置内容生成 API Key，题目与破冰语使用内置内容")
	}

	s.services = service.NewServices(s.db, service.ConfigFrom(s.cfg), gen, logger.GetModuleLogger("game"))

	// 重启后恢复进行中游戏的阶段计时
	if s.services.Scheduler != nil {
		restored, err := s.services.Scheduler.Restore(s.ctx)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "恢复阶段计时失败")
		}
		s.logger.Info("阶段计时已恢复", zap.Int("games", restored))
	}

	s.hub = ws.NewHub(ws.ConfigFrom(&s.cfg.WebSocket),
		s.services.Game.SubscribeGame,
		s.services.Player.SubscribePlayers,
		s.services.Lifecycle,
		logger.GetModuleLogger("websocket"))
	go s.hub.Run(s.ctx)

	router := api.NewRouter(s.db, s.services, s.hub, api.RouterConfig{
		Mode:      s.cfg.Server.Mode,
		PublicURL: s.cfg.Server.PublicURL,
	}, s.logger.Named("http"))

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...", zap.String("driver", s.cfg.Database.Driver))

	if err := database.Init(&s.cfg.Database); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	s.db = database.DB

	// 自动迁移数据库
	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(s.db); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "数据库迁移失败")
		}
	}

	if !database.IsConnected(s.db) {
		return apperrors.New(apperrors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// WaitForShutdown 等待退出信号或服务异常
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
		s.logger.Warn("服务上下文已结束")
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	var shutdownErr error
	if s.http != nil {
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
			shutdownErr = apperrors.Wrap(err, apperrors.ErrTimeout, "关闭超时")
		}
	}

	// 断开WebSocket并停止计时
	s.cancel()

	s.closeComponents()
	return shutdownErr
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	s.logger.Info("关闭组件...")

	if s.services != nil {
		if s.services.Scheduler != nil {
			s.services.Scheduler.Stop()
		}
		s.services.Broker.Close()
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	s.logger.Info("所有组件已关闭")
}

// reloadConfig 热更新：只应用日志级别，其余配置重启后生效
func (s *Server) reloadConfig(newCfg *config.Config) {
	if newCfg.Log.Level != s.cfg.Log.Level {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("日志级别已更新", zap.String("level", logger.Level()))
	}
	s.cfg.Log = newCfg.Log
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	// 设置时区
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	// 设置最大处理器数
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
}

func versionString() string {
	return fmt.Sprintf("宾果游戏服务器\n版本: %s\n构建时间: %s\nGit提交: %s\nGo版本: %s\n操作系统: %s/%s\n",
		Version, BuildTime, GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
