package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/bingo-game/internal/config"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/service"
	"go.uber.org/zap"
)

// SubscribeFunc 订阅某个游戏的快照
type SubscribeFunc func(gameID string, handler feed.Handler) (func(), error)

// Advancer 客户端倒计时归零时调用的条件推进
type Advancer interface {
	AdvanceIfDue(ctx context.Context, gameID string) (*service.TransitionResult, error)
}

// Config 连接参数
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
}

// DefaultConfig 默认连接参数
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  64 * 1024,
		PingInterval:    54 * time.Second,
		PongTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// ConfigFrom 从应用配置构建，未设置的项使用默认值
func ConfigFrom(cfg *config.WebSocketConfig) Config {
	c := DefaultConfig()
	if cfg.ReadBufferSize > 0 {
		c.ReadBufferSize = cfg.ReadBufferSize
	}
	if cfg.WriteBufferSize > 0 {
		c.WriteBufferSize = cfg.WriteBufferSize
	}
	if cfg.MaxMessageSize > 0 {
		c.MaxMessageSize = cfg.MaxMessageSize
	}
	if cfg.PongTimeout > 0 {
		c.PongTimeout = cfg.PongTimeout
	}
	if cfg.PingInterval > 0 && cfg.PingInterval < c.PongTimeout {
		c.PingInterval = cfg.PingInterval
	} else {
		c.PingInterval = c.PongTimeout * 9 / 10
	}
	if cfg.WriteTimeout > 0 {
		c.WriteTimeout = cfg.WriteTimeout
	}
	return c
}

// Hub WebSocket连接管理中心
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 房间号到客户端的映射
	gameClients map[string]map[string]*Client

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once

	subscribeGame    SubscribeFunc
	subscribePlayers SubscribeFunc
	advancer         Advancer

	config Config
	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	GameID    string          `json:"game_id,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 快照推送
	MessageTypeGameSnapshot    = "game_snapshot"
	MessageTypePlayersSnapshot = "players_snapshot"

	// 客户端倒计时归零
	MessageTypeAdvance       = "advance"
	MessageTypeAdvanceResult = "advance_result"
)

// NewHub 创建Hub
func NewHub(cfg Config, games, players SubscribeFunc, advancer Advancer, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:          make(map[string]*Client),
		gameClients:      make(map[string]map[string]*Client),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		done:             make(chan struct{}),
		subscribeGame:    games,
		subscribePlayers: players,
		advancer:         advancer,
		config:           cfg,
		logger:           logger,
	}
}

// Run 运行Hub，直到 ctx 结束
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Upgrader 按配置创建升级器
func (h *Hub) Upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  h.config.ReadBufferSize,
		WriteBufferSize: h.config.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// 房间号本身就是加入凭证，不限制来源
			return true
		},
	}
}

// Serve 接管已升级的连接：注册、订阅快照并启动读写协程
func (h *Hub) Serve(conn *websocket.Conn, identity, gameID string) (*Client, error) {
	client := NewClient(h, conn, identity, gameID)
	if !h.Register(client) {
		conn.Close()
		return nil, ErrHubClosed
	}

	// 欢迎消息必须先于订阅入队，保证它是客户端收到的第一帧
	client.SendMessage(MessageTypeConnected, map[string]string{
		"client_id": client.ID,
		"game_id":   client.GameID,
	})

	go client.WritePump()

	if err := client.subscribe(); err != nil {
		client.sendError(apperrors.Wrap(err, apperrors.ErrGameNotFound))
		client.Close()
		return nil, err
	}

	go client.ReadPump()
	return client, nil
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	room, ok := h.gameClients[client.GameID]
	if !ok {
		room = make(map[string]*Client)
		h.gameClients[client.GameID] = room
	}
	room[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("identity", client.Identity),
		zap.String("game_id", client.GameID))
}

// unregisterClient 注销客户端并取消其订阅
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		if room, exists := h.gameClients[client.GameID]; exists {
			delete(room, client.ID)
			if len(room) == 0 {
				delete(h.gameClients, client.GameID)
			}
		}
	}
	h.clientsMu.Unlock()

	client.teardown()

	if ok {
		h.logger.Info("WebSocket客户端断开",
			zap.String("client_id", client.ID),
			zap.String("game_id", client.GameID))
	}
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.clientsMu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.gameClients = make(map[string]map[string]*Client)
	h.clientsMu.Unlock()

	for _, c := range clients {
		c.teardown()
	}
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// GameClientCount 获取某个游戏的连接数
func (h *Hub) GameClientCount(gameID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.gameClients[gameID])
}

// Register 注册客户端（公开方法），Hub 已停止时返回 false
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.teardown()
	}
}
