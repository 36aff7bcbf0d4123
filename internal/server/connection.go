package server

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(c *gin.Context) {
	clientIP := GetClientIP(c.Request)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		logger.LogInfo("🔧 维护模式，拒绝新连接: %s", clientIP)
		c.String(http.StatusServiceUnavailable, "Server is under maintenance, please try again later")
		return
	}

	// 连接数限制检查，信号量在连接断开时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		logger.LogWarn("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		c.String(http.StatusServiceUnavailable, "Server Full")
		return
	}
	release := func() { <-s.semaphore }

	if !s.originChecker.Check(c.Request) {
		release()
		logger.LogWarn("🚫 来源验证失败: %s (IP: %s)", c.GetHeader("Origin"), clientIP)
		c.String(http.StatusForbidden, "Origin not allowed")
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		release()
		logger.LogWarn("🚫 IP %s 请求过于频繁", clientIP)
		c.String(http.StatusTooManyRequests, "Too Many Requests")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		release()
		logger.LogWarn("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn)
	client.IP = clientIP
	s.registerClient(client)

	client.SendMessage(protocol.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID: client.ID,
	}))
	logger.LogInfo("✅ 玩家 %s 已连接 (IP: %s)", client.ID, clientIP)

	go client.WritePump()
	go func() {
		defer release()
		client.ReadPump()
	}()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStats 在线统计接口
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online":      s.GetOnlineCount(),
		"queue":       s.matcher.QueueLength(),
		"rooms":       s.registry.Count(),
		"goroutines":  runtime.NumGoroutine(),
		"maintenance": s.IsMaintenanceMode(),
	})
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		logger.LogInfo("❌ 玩家 %s 已断开", client.ID)
	}
}

func (s *Server) getClient(id string) *Client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.clients[id]
}
