package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/feed"
	"github.com/wfunc/bingo-game/internal/logger"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrHubClosed      = errors.New("连接中心已关闭")
	ErrClientClosed   = errors.New("客户端已断开")
	ErrSendBufferFull = errors.New("发送缓冲区已满")
	ErrInvalidMessage = errors.New("无效的消息格式")
)

const (
	sendBufferSize = 256
	advanceTimeout = 10 * time.Second
)

// Client 一个观察某局游戏的连接
type Client struct {
	ID       string
	Identity string
	GameID   string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	unsubscribes []func()
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn, identity, gameID string) *Client {
	return &Client{
		ID:       uuid.New().String(),
		Identity: identity,
		GameID:   gameID,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		closed:   make(chan struct{}),
	}
}

// subscribe 订阅游戏记录和玩家列表，订阅时立即推送当前快照
func (c *Client) subscribe() error {
	feeds := []struct {
		subscribe SubscribeFunc
		msgType   string
	}{
		{c.hub.subscribeGame, MessageTypeGameSnapshot},
		{c.hub.subscribePlayers, MessageTypePlayersSnapshot},
	}

	for _, f := range feeds {
		if f.subscribe == nil {
			continue
		}
		msgType := f.msgType
		unsubscribe, err := f.subscribe(c.GameID, func(snap feed.Snapshot) {
			c.sendSnapshot(msgType, snap)
		})
		if err != nil {
			return err
		}

		c.mu.Lock()
		select {
		case <-c.closed:
			// 订阅期间连接已经断开
			c.mu.Unlock()
			unsubscribe()
			return ErrClientClosed
		default:
		}
		c.unsubscribes = append(c.unsubscribes, unsubscribe)
		c.mu.Unlock()
	}
	return nil
}

// teardown 取消订阅并通知写协程退出，可重复调用
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.closed)
		unsubscribes := c.unsubscribes
		c.unsubscribes = nil
		c.mu.Unlock()

		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	})
}

// Done 连接断开后关闭
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// ReadPump 读取消息；退出后由 WritePump 发完剩余消息并关闭连接
func (c *Client) ReadPump() {
	defer c.Close()

	cfg := c.hub.config
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		if !c.handleMessage(message) {
			break
		}
	}
}

// WritePump 写入消息，每条消息一个帧
func (c *Client) WritePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			// 先发完已排队的消息（例如错误说明），再关闭
			for {
				select {
				case message := <-c.send:
					if err := c.write(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// handleMessage 处理接收到的消息，返回 false 表示应断开连接
func (c *Client) handleMessage(data []byte) bool {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Error("解析WebSocket消息失败",
			zap.String("client_id", c.ID),
			zap.Error(err))
		c.sendError(apperrors.New(apperrors.ErrMessageFormat, "消息格式错误"))
		// 断开发送无效JSON的连接
		return false
	}

	logger.LogWebSocketMessage(c.hub.logger, "receive", msg.Type, c.ID, len(data))

	switch msg.Type {
	case "":
		c.hub.logger.Warn("收到空消息类型", zap.String("client_id", c.ID))
		c.sendError(apperrors.New(apperrors.ErrMessageFormat, "消息类型不能为空"))
		return false

	case MessageTypePing:
		c.SendMessage(MessageTypePong, nil)

	case MessageTypePong:
		c.hub.logger.Debug("收到pong", zap.String("client_id", c.ID))

	case MessageTypeAdvance:
		c.handleAdvance()

	default:
		c.hub.logger.Warn("收到不支持的消息类型",
			zap.String("client_id", c.ID),
			zap.String("type", msg.Type))
		c.sendError(apperrors.New(apperrors.ErrMessageFormat, "不支持的消息类型: "+msg.Type))
		return false
	}
	return true
}

// handleAdvance 客户端倒计时归零，请求推进阶段；未到期时不做任何改变
func (c *Client) handleAdvance() {
	if c.hub.advancer == nil {
		c.sendError(apperrors.New(apperrors.ErrPermissionDenied, "服务器未开放推进"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
	defer cancel()

	result, err := c.hub.advancer.AdvanceIfDue(ctx, c.GameID)
	if err != nil {
		c.hub.logger.Warn("客户端推进失败",
			zap.String("client_id", c.ID),
			zap.String("game_id", c.GameID),
			zap.Error(err))
		c.sendError(apperrors.Wrap(err, apperrors.ErrGameStateError))
		return
	}

	c.SendMessage(MessageTypeAdvanceResult, result)
}

func (c *Client) sendSnapshot(msgType string, snap feed.Snapshot) {
	data, err := json.Marshal(snap.Payload)
	if err != nil {
		c.hub.logger.Error("快照序列化失败",
			zap.String("client_id", c.ID),
			zap.String("topic", snap.Topic),
			zap.Error(err))
		return
	}

	c.enqueue(&Message{
		Type:      msgType,
		GameID:    c.GameID,
		Seq:       snap.Seq,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// sendError 发送错误消息
func (c *Client) sendError(appErr *apperrors.AppError) {
	c.SendMessage(MessageTypeError, appErr.Public())
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msgType string, data interface{}) error {
	msg := &Message{
		Type:      msgType,
		GameID:    c.GameID,
		Timestamp: time.Now().Unix(),
	}
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = jsonData
	}
	return c.enqueue(msg)
}

// enqueue 写入发送队列；队列长时间不可写时视为慢连接并断开
func (c *Client) enqueue(msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		logger.LogWebSocketMessage(c.hub.logger, "send", msg.Type, c.ID, len(payload))
		return nil
	case <-c.closed:
		return ErrClientClosed
	case <-time.After(c.hub.config.WriteTimeout):
		c.hub.logger.Warn("发送缓冲区已满，断开慢连接",
			zap.String("client_id", c.ID),
			zap.String("game_id", c.GameID))
		go c.Close()
		return ErrSendBufferFull
	}
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.hub.Unregister(c)
}
