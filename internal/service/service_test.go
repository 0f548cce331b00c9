package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/generator"
	"github.com/wfunc/bingo-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 测试统一使用的模拟起始时间
var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// serviceSuite 服务测试的公共环境：内存数据库、模拟时钟与确定性生成器
type serviceSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	clock    *game.FakeClock
	stub     *generator.Stub
	cfg      *Config
	services *Services
}

func (s *serviceSuite) SetupTest() {
	s.setup(DefaultConfig())
}

func (s *serviceSuite) TearDownTest() {
	s.teardown()
}

func (s *serviceSuite) setup(cfg *Config) {
	s.ctx = context.Background()
	s.db = repository.SetupTestDB()
	s.clock = game.NewFakeClock(testStart)
	s.stub = generator.NewStub()
	s.cfg = cfg
	s.services = NewServices(s.db, cfg, s.stub, zap.NewNop(), WithClock(s.clock))
}

func (s *serviceSuite) teardown() {
	if s.services == nil {
		return
	}
	if s.services.Scheduler != nil {
		s.services.Scheduler.Stop()
	}
	s.services.Broker.Close()
	repository.CleanupTestDB(s.db)
	s.services = nil
}

// reset 使用新的配置重建环境
func (s *serviceSuite) reset(cfg *Config) {
	s.teardown()
	s.setup(cfg)
}

func testPrompts(n int) []string {
	prompts := make([]string, n)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("Find someone who knows fact #%d", i+1)
	}
	return prompts
}

// createGame 4x4、1分钟的游戏
func (s *serviceSuite) createGame(adminID string) *GameView {
	result, err := s.services.Game.CreateGame(s.ctx, &CreateGameRequest{
		AdminID:      adminID,
		Industry:     "tech",
		GridSize:     4,
		TimerMinutes: 1,
		Prompts:      testPrompts(16),
	})
	s.Require().NoError(err)
	return result.Game
}

func (s *serviceSuite) join(gameID, playerID, name string) *JoinResult {
	result, err := s.services.Player.Join(s.ctx, &JoinRequest{
		GameID:      gameID,
		PlayerID:    playerID,
		DisplayName: name,
	})
	s.Require().NoError(err)
	return result
}

// startedGame 创建游戏、两名玩家加入并开始
func (s *serviceSuite) startedGame() string {
	g := s.createGame("admin")
	s.join(g.ID, "p1", "Alice")
	s.join(g.ID, "p2", "Bob")
	result, err := s.services.Lifecycle.StartGame(s.ctx, g.ID, "admin")
	s.Require().NoError(err)
	s.Require().True(result.Applied)
	return g.ID
}

func (s *serviceSuite) setSquare(gameID, playerID string, index int, names ...string) error {
	_, err := s.services.Player.SetSquare(s.ctx, &SetSquareRequest{
		GameID:      gameID,
		ActingID:    playerID,
		PlayerID:    playerID,
		SquareIndex: index,
		Names:       names,
	})
	return err
}

func (s *serviceSuite) receive(ch <-chan feed.Snapshot) feed.Snapshot {
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		s.FailNow("等待快照超时")
		return feed.Snapshot{}
	}
}
