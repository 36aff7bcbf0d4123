package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/palemoky/word-duel/internal/config"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}

	if err := logger.Init(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()

	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建服务器
	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("创建服务器失败")
	}

	// 优雅关闭：等待进行中的对局结束
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.LogInfo("正在关闭服务器...")
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
		os.Exit(0)
	}()

	// 启动服务器
	logger.LogInfo("⌨️ 单词对战服务器启动中...")
	if err := srv.Start(); err != nil {
		logger.Logger().Fatal().Err(err).Msg("服务器启动失败")
	}
}
