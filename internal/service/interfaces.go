package service

import (
	"context"
	"time"

	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/game"
	"github.com/wfunc/bingo-game/internal/models"
	"github.com/wfunc/bingo-game/internal/utils"
)

// AuthService 身份服务接口
type AuthService interface {
	// IssueAnonymous 为新身份签发令牌
	IssueAnonymous(ctx context.Context) (*TokenResponse, error)
	// ValidateToken 校验令牌并返回声明
	ValidateToken(ctx context.Context, token string) (*utils.IdentityClaims, error)
}

// GameService 游戏注册表接口
type GameService interface {
	CreateGame(ctx context.Context, req *CreateGameRequest) (*CreateGameResult, error)
	GetGame(ctx context.Context, gameID string) (*GameView, error)
	ListGamesByAdmin(ctx context.Context, adminID string, page, pageSize int) ([]*GameView, int64, error)
	UpdatePrompts(ctx context.Context, gameID, actingID string, prompts []string) (*GameView, error)
	GeneratePrompts(ctx context.Context, industry string, n int) ([]string, []string)

	// UpdateGameStatus 条件更新状态；返回 false 表示当前状态已不是 expected
	UpdateGameStatus(ctx context.Context, gameID string, expected, next models.GameStatus, fields map[string]interface{}) (bool, error)

	// Leaderboard 当前排行榜
	Leaderboard(ctx context.Context, gameID string) (*LeaderboardView, error)

	// SubscribeGame 立即投递当前快照，之后每次变更投递一次
	SubscribeGame(gameID string, handler feed.Handler) (func(), error)
}

// PlayerService 玩家注册表接口
type PlayerService interface {
	Join(ctx context.Context, req *JoinRequest) (*JoinResult, error)
	GetPlayer(ctx context.Context, gameID, playerID string) (*models.Player, error)
	ListPlayers(ctx context.Context, gameID string) ([]models.Player, error)
	SetSquare(ctx context.Context, req *SetSquareRequest) (*models.Player, error)
	Submit(ctx context.Context, gameID, actingID, playerID string) (*models.Player, error)
	FollowUpQuestions(ctx context.Context, gameID, playerID string) ([]string, []string, error)

	// SubscribePlayers 立即投递当前玩家列表，之后每次变更投递一次
	SubscribePlayers(gameID string, handler feed.Handler) (func(), error)
}

// LifecycleService 生命周期控制接口。
// 所有转换都先重新读取记录再做条件写入，输掉竞争时 Applied 为 false 且不返回错误。
type LifecycleService interface {
	StartGame(ctx context.Context, gameID, actingID string) (*TransitionResult, error)
	AdvanceIfDue(ctx context.Context, gameID string) (*TransitionResult, error)
	ForceAdvance(ctx context.Context, gameID, actingID string) (*TransitionResult, error)
	ForceEnd(ctx context.Context, gameID, actingID string) (*TransitionResult, error)
}

// PhaseTimer 阶段到期提醒
type PhaseTimer interface {
	Arm(g *models.Game)
}

// TokenResponse 令牌响应
type TokenResponse struct {
	Identity    string    `json:"identity"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"`
}

// CreateGameRequest 创建游戏请求
type CreateGameRequest struct {
	AdminID      string   `json:"-"`
	Industry     string   `json:"industry"`
	GridSize     int      `json:"grid_size" binding:"required"`
	TimerMinutes int      `json:"timer_minutes" binding:"required"`
	Prompts      []string `json:"prompts"` // 为空时自动生成
}

// CreateGameResult 创建结果
type CreateGameResult struct {
	Game     *GameView `json:"game"`
	Warnings []string  `json:"warnings,omitempty"`
}

// GameView 游戏记录加上读取时计算的倒计时
type GameView struct {
	*models.Game
	PhaseDeadline        *time.Time `json:"phase_deadline,omitempty"`
	TimeRemainingSeconds int64      `json:"time_remaining_seconds"`
	ServerTime           time.Time  `json:"server_time"`
}

// NewGameView 基于 now 计算视图
func NewGameView(g *models.Game, now time.Time) *GameView {
	remaining := game.TimeRemaining(g, now)
	return &GameView{
		Game:                 g,
		PhaseDeadline:        game.PhaseDeadline(g),
		TimeRemainingSeconds: int64((remaining + time.Second - 1) / time.Second),
		ServerTime:           now,
	}
}

// JoinRequest 加入请求
type JoinRequest struct {
	GameID      string `json:"-"`
	PlayerID    string `json:"-"`
	DisplayName string `json:"display_name" binding:"required"`
	Icebreaker  string `json:"icebreaker"`
	Fact        string `json:"fact"` // 破冰语为空时用它生成
}

// JoinResult 加入结果
type JoinResult struct {
	Player   *models.Player `json:"player"`
	Rejoined bool           `json:"rejoined"`
	Warnings []string       `json:"warnings,omitempty"`
}

// SetSquareRequest 写格子请求，Names 为空表示取消勾选
type SetSquareRequest struct {
	GameID      string   `json:"-"`
	ActingID    string   `json:"-"`
	PlayerID    string   `json:"-"`
	SquareIndex int      `json:"-"`
	Names       []string `json:"names"`
}

// TransitionResult 状态转换结果
type TransitionResult struct {
	Applied bool      `json:"applied"`
	Game    *GameView `json:"game"`
}

// LeaderboardView 排行榜
type LeaderboardView struct {
	GameID  string                  `json:"game_id"`
	Status  models.GameStatus       `json:"status"`
	Entries []game.LeaderboardEntry `json:"entries"`
}
