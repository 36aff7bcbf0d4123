package server

import (
	"context"
	"runtime"
	"time"

	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
)

// monitorInterval 监控日志间隔
const monitorInterval = 30 * time.Second

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logStats()
		case <-s.stopMonitor:
			return
		}
	}
}

func (s *Server) logStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	online := s.GetOnlineCount()
	logger.LogInfo("📊 [监控] 在线: %d | 房间: %d | 广播组: %d | 匹配队列: %d | Goroutines: %d | 活跃连接: %d/%d | 内存: %.2f MB",
		online,
		s.registry.Count(),
		s.groupCount(),
		s.matcher.QueueLength(),
		runtime.NumGoroutine(),
		len(s.semaphore),
		s.maxConnections,
		float64(m.Alloc)/1024/1024)

	if s.redisStore.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.redisStore.SetOnlineCount(ctx, online); err != nil {
			logger.LogWarn("⚠️ 更新在线人数失败: %v", err)
		}
		// 镜像写入失败只记日志，这里核对一次偏差
		if mirrored, err := s.redisStore.GetMatchQueueLength(ctx); err != nil {
			logger.LogWarn("⚠️ 读取匹配队列镜像失败: %v", err)
		} else if queued := s.matcher.QueueLength(); mirrored != int64(queued) {
			logger.LogWarn("⚠️ 匹配队列镜像不一致: 内存 %d, Redis %d", queued, mirrored)
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和新的匹配
func (s *Server) EnterMaintenanceMode() {
	if s.maintenance.Swap(true) {
		return
	}

	s.BroadcastToLobby(protocol.NewErrorMessageWithText(protocol.ErrCodeMaintenance, "👷🏻‍♂️ 维护模式：停止新的匹配"))
	logger.LogInfo("🔧 进入维护模式：停止新连接和匹配")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	return s.maintenance.Load()
}

// GracefulShutdown 优雅关闭：先进入维护模式，等待进行中的对局结束，超时后强制关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		rooms := s.registry.Count()
		if rooms == 0 {
			logger.LogInfo("✅ 所有房间已结束")
			break
		}
		logger.LogInfo("⏳ 等待 %d 个房间结束...", rooms)
		<-ticker.C
	}

	if rooms := s.registry.Count(); rooms > 0 {
		logger.LogWarn("⚠️ 超时，仍有 %d 个房间进行中，强制关闭", rooms)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.LogError("关闭服务器出错: %v", err)
	}
}

// Shutdown 关闭服务器：停止监听，结束所有房间，断开所有连接，释放外部资源
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.maintenance.Store(true)
		close(s.stopMonitor)

		err = s.httpServer.Shutdown(ctx)

		if closeErr := s.registry.CloseAll(ctx); closeErr != nil {
			logger.LogWarn("⚠️ 等待房间退出超时: %v", closeErr)
		}

		// WebSocket 连接已被劫持，需要逐个关闭
		s.clientsMu.RLock()
		clients := make([]*Client, 0, len(s.clients))
		for _, client := range s.clients {
			clients = append(clients, client)
		}
		s.clientsMu.RUnlock()
		for _, client := range clients {
			client.Close()
		}

		s.rateLimiter.Close()
		s.publisher.Close()
		if err := s.redisStore.Close(); err != nil {
			logger.LogWarn("⚠️ 关闭 Redis 连接失败: %v", err)
		}

		logger.LogInfo("服务器已关闭")
	})
	return err
}
