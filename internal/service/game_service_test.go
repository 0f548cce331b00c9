package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/models"
)

// GameServiceTestSuite 游戏服务测试套件
type GameServiceTestSuite struct {
	serviceSuite
}

// TestCreateGame 创建游戏并登记管理员
func (suite *GameServiceTestSuite) TestCreateGame() {
	g := suite.createGame("admin")

	suite.Len(g.ID, 6)
	suite.Equal(models.StatusWaiting, g.Status)
	suite.Len(g.Prompts, 16)
	suite.Equal("tech", g.Industry)
	suite.Nil(g.PhaseDeadline)
	suite.Equal(int64(0), g.TimeRemainingSeconds)
	suite.Equal(testStart, g.ServerTime)

	players, err := suite.services.Player.ListPlayers(suite.ctx, g.ID)
	suite.Require().NoError(err)
	suite.Require().Len(players, 1)
	suite.Equal("admin", players[0].ID)
	suite.Equal("Admin", players[0].DisplayName)
	suite.Equal(suite.cfg.AdminIcebreaker, players[0].Icebreaker)
	suite.Equal(0, players[0].Score)
	suite.False(players[0].IsSubmitted)
	suite.Empty(players[0].CheckedSquares)
}

// TestCreateGameGeneratesPrompts 未提供题目时调用生成器
func (suite *GameServiceTestSuite) TestCreateGameGeneratesPrompts() {
	result, err := suite.services.Game.CreateGame(suite.ctx, &CreateGameRequest{
		AdminID:      "admin",
		Industry:     "fintech",
		GridSize:     5,
		TimerMinutes: 10,
	})
	suite.Require().NoError(err)
	suite.Empty(result.Warnings)
	suite.Len(result.Game.Prompts, 25)
	suite.Equal("fintech prompt 1", result.Game.Prompts[0])
	suite.Equal(1, suite.stub.CallCount("prompts"))
}

// TestCreateGameGeneratorFailure 生成失败时使用默认题目并给出警告
func (suite *GameServiceTestSuite) TestCreateGameGeneratorFailure() {
	suite.stub.Err = apperrors.New(apperrors.ErrGeneratorFailed, "timeout")

	result, err := suite.services.Game.CreateGame(suite.ctx, &CreateGameRequest{
		AdminID:      "admin",
		GridSize:     4,
		TimerMinutes: 5,
	})
	suite.Require().NoError(err)
	suite.NotEmpty(result.Warnings)
	suite.Len(result.Game.Prompts, 16)
}

// TestCreateGameShortGenerator 生成数量不足时补齐
func (suite *GameServiceTestSuite) TestCreateGameShortGenerator() {
	suite.stub.Short = 3

	result, err := suite.services.Game.CreateGame(suite.ctx, &CreateGameRequest{
		AdminID:      "admin",
		Industry:     "retail",
		GridSize:     4,
		TimerMinutes: 5,
	})
	suite.Require().NoError(err)
	suite.Len(result.Warnings, 1)
	suite.Len(result.Game.Prompts, 16)
	suite.Equal("retail prompt 13", result.Game.Prompts[12])
}

// TestCreateGameValidation 参数校验失败时不写入
func (suite *GameServiceTestSuite) TestCreateGameValidation() {
	tests := []struct {
		name string
		req  *CreateGameRequest
		code apperrors.ErrorCode
	}{
		{"题目数量不符", &CreateGameRequest{AdminID: "admin", GridSize: 4, TimerMinutes: 1, Prompts: testPrompts(15)}, apperrors.ErrPromptCount},
		{"计时为0", &CreateGameRequest{AdminID: "admin", GridSize: 4, TimerMinutes: 0, Prompts: testPrompts(16)}, apperrors.ErrInvalidTimer},
		{"计时为负", &CreateGameRequest{AdminID: "admin", GridSize: 4, TimerMinutes: -5, Prompts: testPrompts(16)}, apperrors.ErrInvalidTimer},
		{"棋盘大小", &CreateGameRequest{AdminID: "admin", GridSize: 3, TimerMinutes: 1, Prompts: testPrompts(9)}, apperrors.ErrInvalidGridSize},
		{"缺少身份", &CreateGameRequest{GridSize: 4, TimerMinutes: 1, Prompts: testPrompts(16)}, apperrors.ErrAuthentication},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.services.Game.CreateGame(suite.ctx, tt.req)
			suite.True(apperrors.Is(err, tt.code), "期望错误码 %d，实际 %v", tt.code, err)
		})
	}

	games, total, err := suite.services.Game.ListGamesByAdmin(suite.ctx, "admin", 1, 20)
	suite.Require().NoError(err)
	suite.Empty(games)
	suite.Equal(int64(0), total)
}

// TestGetGameNotFound 房间不存在
func (suite *GameServiceTestSuite) TestGetGameNotFound() {
	_, err := suite.services.Game.GetGame(suite.ctx, "ZZZZZZ")
	suite.True(apperrors.Is(err, apperrors.ErrGameNotFound))
}

// TestGameViewCountdown 视图中的剩余时间随时钟变化
func (suite *GameServiceTestSuite) TestGameViewCountdown() {
	gameID := suite.startedGame()

	suite.clock.Advance(15 * time.Second)
	view, err := suite.services.Game.GetGame(suite.ctx, gameID)
	suite.Require().NoError(err)
	suite.Require().NotNil(view.PhaseDeadline)
	suite.WithinDuration(testStart.Add(time.Minute), *view.PhaseDeadline, time.Millisecond)
	suite.Equal(int64(45), view.TimeRemainingSeconds)

	suite.clock.Advance(2 * time.Minute)
	view, err = suite.services.Game.GetGame(suite.ctx, gameID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), view.TimeRemainingSeconds)
}

// TestListGamesByAdmin 只返回该管理员的游戏
func (suite *GameServiceTestSuite) TestListGamesByAdmin() {
	suite.createGame("admin-a")
	suite.createGame("admin-a")
	suite.createGame("admin-b")

	games, total, err := suite.services.Game.ListGamesByAdmin(suite.ctx, "admin-a", 1, 20)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(games, 2)
	for _, g := range games {
		suite.Equal("admin-a", g.AdminID)
	}

	games, total, err = suite.services.Game.ListGamesByAdmin(suite.ctx, "admin-a", 2, 1)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(games, 1)
}

// TestUpdatePrompts 仅管理员在等待阶段可以修改题目
func (suite *GameServiceTestSuite) TestUpdatePrompts() {
	g := suite.createGame("admin")
	updated := testPrompts(16)
	updated[0] = "  Find someone who owns a boat  "

	_, err := suite.services.Game.UpdatePrompts(suite.ctx, g.ID, "intruder", updated)
	suite.True(apperrors.Is(err, apperrors.ErrNotGameAdmin))

	_, err = suite.services.Game.UpdatePrompts(suite.ctx, g.ID, "admin", updated[:10])
	suite.True(apperrors.Is(err, apperrors.ErrPromptCount))

	view, err := suite.services.Game.UpdatePrompts(suite.ctx, g.ID, "admin", updated)
	suite.Require().NoError(err)
	suite.Equal("Find someone who owns a boat", view.Prompts[0])

	_, err = suite.services.Lifecycle.StartGame(suite.ctx, g.ID, "admin")
	suite.Require().NoError(err)

	_, err = suite.services.Game.UpdatePrompts(suite.ctx, g.ID, "admin", testPrompts(16))
	suite.True(apperrors.Is(err, apperrors.ErrGameAlreadyStarted))

	view, err = suite.services.Game.GetGame(suite.ctx, g.ID)
	suite.Require().NoError(err)
	suite.Equal("Find someone who owns a boat", view.Prompts[0])
}

// TestGeneratePrompts 生成接口不返回错误
func (suite *GameServiceTestSuite) TestGeneratePrompts() {
	prompts, warnings := suite.services.Game.GeneratePrompts(suite.ctx, "health", 36)
	suite.Len(prompts, 36)
	suite.Empty(warnings)

	suite.stub.Err = apperrors.New(apperrors.ErrGeneratorFailed)
	prompts, warnings = suite.services.Game.GeneratePrompts(suite.ctx, "health", 49)
	suite.Len(prompts, 49)
	suite.NotEmpty(warnings)
}

// TestUpdateGameStatusIdempotent 重复的条件转换只生效一次
func (suite *GameServiceTestSuite) TestUpdateGameStatusIdempotent() {
	gameID := suite.startedGame()
	first := testStart.Add(time.Minute + 5*time.Minute)
	second := first.Add(time.Hour)

	applied, err := suite.services.Game.UpdateGameStatus(suite.ctx, gameID, models.StatusPlaying, models.StatusScoring,
		map[string]interface{}{"scoring_deadline": first})
	suite.Require().NoError(err)
	suite.True(applied)

	applied, err = suite.services.Game.UpdateGameStatus(suite.ctx, gameID, models.StatusPlaying, models.StatusScoring,
		map[string]interface{}{"scoring_deadline": second})
	suite.Require().NoError(err)
	suite.False(applied)

	view, err := suite.services.Game.GetGame(suite.ctx, gameID)
	suite.Require().NoError(err)
	suite.Equal(models.StatusScoring, view.Status)
	suite.Require().NotNil(view.ScoringDeadline)
	suite.WithinDuration(first, *view.ScoringDeadline, time.Millisecond)
}

// TestSubscribeGame 订阅先收到当前快照，再收到变更
func (suite *GameServiceTestSuite) TestSubscribeGame() {
	g := suite.createGame("admin")

	snapshots := make(chan feed.Snapshot, 4)
	unsubscribe, err := suite.services.Game.SubscribeGame(g.ID, func(snap feed.Snapshot) {
		snapshots <- snap
	})
	suite.Require().NoError(err)
	defer unsubscribe()

	first := suite.receive(snapshots)
	suite.Equal(models.StatusWaiting, first.Payload.(*GameView).Status)

	_, err = suite.services.Lifecycle.StartGame(suite.ctx, g.ID, "admin")
	suite.Require().NoError(err)

	second := suite.receive(snapshots)
	suite.Equal(models.StatusPlaying, second.Payload.(*GameView).Status)
	suite.Greater(second.Seq, first.Seq)

	unsubscribe()
	unsubscribe()
	suite.Equal(0, suite.services.Broker.SubscriberCount(feed.GameTopic(g.ID)))
}

// TestSubscribeGameNotFound 房间不存在时订阅失败且不留下订阅
func (suite *GameServiceTestSuite) TestSubscribeGameNotFound() {
	_, err := suite.services.Game.SubscribeGame("ZZZZZZ", func(feed.Snapshot) {})
	suite.True(apperrors.Is(err, apperrors.ErrGameNotFound))
	suite.Equal(0, suite.services.Broker.SubscriberCount(feed.GameTopic("ZZZZZZ")))
}

// TestLeaderboard 计分阶段已提交优先，结束后只看分数
func (suite *GameServiceTestSuite) TestLeaderboard() {
	gameID := suite.startedGame()

	suite.Require().NoError(suite.setSquare(gameID, "p1", 0, "Carol"))
	suite.Require().NoError(suite.setSquare(gameID, "p2", 0, "Dave"))
	suite.Require().NoError(suite.setSquare(gameID, "p2", 1, "Erin"))

	suite.clock.Advance(10 * time.Second)
	_, err := suite.services.Player.Submit(suite.ctx, gameID, "p1", "p1")
	suite.Require().NoError(err)

	board, err := suite.services.Game.Leaderboard(suite.ctx, gameID)
	suite.Require().NoError(err)
	suite.Equal(models.StatusPlaying, board.Status)
	suite.Require().Len(board.Entries, 3)
	suite.Equal("p1", board.Entries[0].PlayerID)
	suite.Equal("p2", board.Entries[1].PlayerID)
	suite.Equal("admin", board.Entries[2].PlayerID)
	suite.Equal(1, board.Entries[0].Rank)

	_, err = suite.services.Lifecycle.ForceEnd(suite.ctx, gameID, "admin")
	suite.Require().NoError(err)

	board, err = suite.services.Game.Leaderboard(suite.ctx, gameID)
	suite.Require().NoError(err)
	suite.Equal(models.StatusFinished, board.Status)
	suite.Equal("p2", board.Entries[0].PlayerID)
	suite.Equal(2, board.Entries[0].Score)
	suite.Equal("p1", board.Entries[1].PlayerID)
}

func TestGameServiceSuite(t *testing.T) {
	suite.Run(t, new(GameServiceTestSuite))
}
