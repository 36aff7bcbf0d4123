package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	// 发送缓冲区
	sendBufferSize = 256
)

// Client 代表一个 WebSocket 连接，连接 ID 即对局中的玩家 ID
type Client struct {
	ID string
	IP string

	server *Server
	conn   *websocket.Conn
	codec  codec.Codec
	send   chan []byte

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New().String(),
		server: s,
		conn:   conn,
		codec:  s.codec,
		send:   make(chan []byte, sendBufferSize),
	}
}

// GetID 连接 ID
func (c *Client) GetID() string { return c.ID }

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	maxWarnings := c.server.config.Security.MessageLimit.MaxWarnings
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.LogWarn("读取错误 (%s): %v", c.ID, err)
			}
			return
		}

		allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			logger.LogWarn("⚠️ 客户端 %s (IP: %s) 消息过于频繁", c.ID, c.IP)
			c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "消息发送过于频繁"))
			if c.server.messageLimiter.GetWarningCount(c.ID) > maxWarnings {
				logger.LogWarn("🚫 客户端 %s 因多次超速被断开连接", c.ID)
				return
			}
			continue
		}
		if warning {
			c.SendMessage(protocol.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "请求过于频繁，请放慢速度"))
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			logger.LogDebug("消息解析错误 (%s): %v", c.ID, err)
			c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
		}
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(frameType, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，失败仅记录日志
func (c *Client) SendMessage(msg *protocol.Message) {
	if err := c.trySend(msg); err != nil {
		logger.LogDebug("📭 发送 %s 给 %s 失败: %v", msg.Type, c.ID, err)
	}
}

// trySend 编码并放入发送缓冲区，不阻塞
func (c *Client) trySend(msg *protocol.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		logger.LogError("消息编码错误: %v", err)
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return apperrors.ErrNotReachable
	}

	select {
	case c.send <- data:
		return nil
	default:
		// 发送缓冲区已满，异步关闭连接
		logger.LogWarn("客户端 %s 发送缓冲区已满", c.ID)
		go c.Close()
		return apperrors.ErrNotReachable
	}
}

// IsClosed 连接是否已关闭
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// handleDisconnect 连接断开：离开匹配队列，通知所在房间，注销连接
func (c *Client) handleDisconnect() {
	// 先标记关闭，匹配器的存活检查随即失败
	c.Close()
	c.server.matcher.Dequeue(c.ID)
	c.server.messageLimiter.RemoveClient(c.ID)
	c.server.unregisterClient(c)
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
