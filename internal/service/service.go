package service

import (
	"time"

	"github.com/wfunc/bingo-game/internal/config"
	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/generator"
	"github.com/wfunc/bingo-game/internal/repository"
	"github.com/wfunc/bingo-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret   string
	JWTIssuer   string
	TokenExpiry time.Duration

	Rules              game.Rules
	AdminDisplayName   string
	AdminIcebreaker    string
	FallbackIcebreaker string
	ServerTimers       bool
}

// DefaultConfig 默认配置（仅用于测试，密钥需由配置注入）
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "test-secret",
		JWTIssuer:          "bingo-game",
		TokenExpiry:        72 * time.Hour,
		Rules:              game.DefaultRules(),
		AdminDisplayName:   "Admin",
		AdminIcebreaker:    "I'm the host of this game! Come say hi.",
		FallbackIcebreaker: generator.DefaultFallbackIcebreaker,
		ServerTimers:       false,
	}
}

// ConfigFrom 从应用配置构建服务配置
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		JWTSecret:          cfg.Security.JWT.Secret,
		JWTIssuer:          cfg.Security.JWT.Issuer,
		TokenExpiry:        time.Duration(cfg.Security.JWT.ExpireHours) * time.Hour,
		Rules:              game.RulesFromConfig(&cfg.Game),
		AdminDisplayName:   cfg.Game.AdminDisplayName,
		AdminIcebreaker:    cfg.Game.AdminIcebreaker,
		FallbackIcebreaker: cfg.Generator.FallbackIcebreaker,
		ServerTimers:       cfg.Game.ServerTimers,
	}
}

// Option 服务构建选项
type Option func(*options)

type options struct {
	clock     game.Clock
	broker    *feed.Broker
	roomCodes repository.IDGenerator
}

// WithClock 注入时钟
func WithClock(clock game.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithBroker 注入快照分发中心
func WithBroker(b *feed.Broker) Option {
	return func(o *options) { o.broker = b }
}

// WithRoomCodes 注入房间号生成器
func WithRoomCodes(gen repository.IDGenerator) Option {
	return func(o *options) { o.roomCodes = gen }
}

// Services 服务集合
type Services struct {
	Auth      AuthService
	Game      GameService
	Player    PlayerService
	Lifecycle LifecycleService
	Scheduler *Scheduler // 未启用服务端定时器时为 nil
	Broker    *feed.Broker
	Clock     game.Clock
}

// deps 各服务共享的依赖
type deps struct {
	repo      *repository.Manager
	broker    *feed.Broker
	gen       *generator.Fallback
	lifecycle *game.Lifecycle
	clock     game.Clock
	config    *Config
	log       *zap.Logger
}

// NewServices 创建服务集合；gen 为 nil 时只使用兜底内容
func NewServices(db *gorm.DB, cfg *Config, gen generator.Generator, log *zap.Logger, opts ...Option) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	o := &options{clock: game.SystemClock{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.broker == nil {
		o.broker = feed.NewBroker(log.Named("feed"))
	}

	var repoOpts []repository.ManagerOption
	if o.roomCodes != nil {
		repoOpts = append(repoOpts, repository.WithIDGenerator(o.roomCodes))
	}

	d := &deps{
		repo:      repository.NewManager(db, repoOpts...),
		broker:    o.broker,
		gen:       generator.NewFallback(gen, cfg.FallbackIcebreaker),
		lifecycle: game.NewLifecycle(),
		clock:     o.clock,
		config:    cfg,
		log:       log,
	}

	jwtManager := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenExpiry)

	gameSvc := NewGameService(d)
	lifecycleSvc := NewLifecycleService(d, gameSvc)

	services := &Services{
		Auth:      NewAuthService(jwtManager, log),
		Game:      gameSvc,
		Player:    NewPlayerService(d),
		Lifecycle: lifecycleSvc,
		Broker:    d.broker,
		Clock:     d.clock,
	}

	if cfg.ServerTimers {
		scheduler := NewScheduler(lifecycleSvc, d.repo.Game(), d.clock, log.Named("scheduler"))
		lifecycleSvc.SetTimer(scheduler)
		services.Scheduler = scheduler
	}

	return services
}
