package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/middleware"
	"github.com/wfunc/bingo-game/internal/service"
	ws "github.com/wfunc/bingo-game/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub    *ws.Hub
	games  service.GameService
	logger *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, games service.GameService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		games:  games,
		logger: logger,
	}
}

// GameWebSocket 订阅游戏快照
// @Summary 订阅游戏快照
// @Description 推送 game_snapshot 与 players_snapshot；接受 advance 与 ping
// @Tags Realtime
// @Param id path string true "房间号"
// @Router /ws/games/{id} [get]
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	gameID := c.Param("id")

	// 升级前确认房间存在，便于返回普通HTTP错误
	if _, err := h.games.GetGame(c.Request.Context(), gameID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	// 观察者可以不带身份
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		h.logger.Debug("匿名观察者连接", zap.String("game_id", gameID))
	}

	upgrader := h.hub.Upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("game_id", gameID),
			zap.Error(err))
		return
	}

	if _, err := h.hub.Serve(conn, identity, gameID); err != nil {
		h.logger.Warn("WebSocket订阅失败",
			zap.String("game_id", gameID),
			zap.Error(err))
	}
}
