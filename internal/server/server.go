package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/word-duel/internal/config"
	"github.com/palemoky/word-duel/internal/events"
	"github.com/palemoky/word-duel/internal/game/match"
	"github.com/palemoky/word-duel/internal/game/room"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol/codec"
	"github.com/palemoky/word-duel/internal/server/handler"
	"github.com/palemoky/word-duel/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 来源已在升级前由 OriginChecker 校验
	CheckOrigin: func(r *http.Request) bool { return true },
	// 消息都很小，压缩收益不抵 CPU 开销
	EnableCompression: false,
}

// Server WebSocket 服务器，同时作为房间和匹配器的消息传输层
type Server struct {
	config     *config.Config
	codec      codec.Codec
	redisStore *storage.RedisStore
	publisher  events.Publisher
	registry   *room.Registry
	matcher    *match.Matcher
	handler    *handler.Handler
	engine     *gin.Engine
	httpServer *http.Server

	clients   map[string]*Client
	clientsMu sync.RWMutex
	groups    map[string]map[string]struct{}
	groupsMu  sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	maintenance  atomic.Bool
	stopMonitor  chan struct{}
	shutdownOnce sync.Once
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		config:         cfg,
		codec:          codec.ForFormat(cfg.Server.WireFormat),
		clients:        make(map[string]*Client),
		groups:         make(map[string]map[string]struct{}),
		rateLimiter:    NewRateLimiter(cfg.Security.RateLimit.PerSecond, cfg.Security.RateLimit.Burst),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.PerSecond, cfg.Security.MessageLimit.Burst),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		stopMonitor:    make(chan struct{}),
	}

	roomOpts := room.Options{
		Settings:  room.SettingsFromConfig(&cfg.Game),
		Transport: s,
	}
	matcherDeps := match.MatcherDeps{Transport: s, Liveness: s}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store := storage.NewRedisStore(rdb)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			s.rateLimiter.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}
		s.redisStore = store
		// 内存中的队列和房间从空开始，清掉上次运行残留的镜像
		if err := store.ClearMatchQueue(ctx); err != nil {
			logger.LogWarn("⚠️ 清理 Redis 匹配队列失败: %v", err)
		}
		if n, err := store.PurgeStaleRooms(ctx); err != nil {
			logger.LogWarn("⚠️ 清理 Redis 遗留房间失败: %v", err)
		} else if n > 0 {
			logger.LogInfo("🧹 已清理 %d 个遗留房间镜像", n)
		}
		roomOpts.Store = s.redisStore
		matcherDeps.Store = s.redisStore
		logger.LogInfo("🗄️ Redis 已连接: %s", cfg.Redis.Addr)
	} else {
		s.redisStore = storage.NewRedisStore(nil)
	}

	if cfg.NATS.Enabled {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			s.rateLimiter.Close()
			_ = s.redisStore.Close()
			return nil, fmt.Errorf("nats 连接失败: %w", err)
		}
		s.publisher = pub
		logger.LogInfo("📡 NATS 已连接: %s", cfg.NATS.URL)
	} else {
		s.publisher = events.Noop{}
	}
	roomOpts.Publisher = s.publisher

	s.registry = room.NewRegistry(roomOpts)
	matcherDeps.Rooms = s.registry
	s.matcher = match.NewMatcher(matcherDeps)

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:  s,
		Rooms:   s.registry,
		Matcher: s.matcher,
	})

	s.engine = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.LogInfo("🔒 安全配置: 建连限制=%.1f/s(突发 %d), 消息限制=%.1f/s(突发 %d), 最大连接数=%d",
		cfg.Security.RateLimit.PerSecond, cfg.Security.RateLimit.Burst,
		cfg.Security.MessageLimit.PerSecond, cfg.Security.MessageLimit.Burst,
		cfg.Server.MaxConnections)

	return s, nil
}

// routes 注册 HTTP 路由
func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if s.originChecker.AllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.config.Security.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/ws", s.handleWebSocket)
	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)
	return r
}

// requestLogger HTTP 访问日志（调试级别）
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Logger().Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http")
	}
}

// Handler 返回 HTTP 处理器（测试用 httptest 挂载）
func (s *Server) Handler() http.Handler { return s.engine }

// Start 启动服务器，阻塞直到关闭
func (s *Server) Start() error {
	go s.monitorStats()

	logger.LogInfo("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d, 编码: %s)", s.httpServer.Addr, runtime.NumCPU(), s.codec.Name())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
