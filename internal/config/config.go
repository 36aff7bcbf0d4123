package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 4000
	defaultMaxConnections = 10000
	defaultWireFormat     = "json"
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"

	defaultRedisAddr = "localhost:6379"

	defaultNATSURL           = "nats://localhost:4222"
	defaultNATSSubjectPrefix = "wordduel"

	defaultTickMS           = 60
	defaultReconnectGrace   = 20
	defaultHitCooldownMS    = 200
	defaultSnapshotInterval = 3
	defaultStartHeart       = 3
	defaultShutdownTimeout  = 30

	defaultConnPerSecond  = 5
	defaultConnBurst      = 20
	defaultMsgPerSecond   = 30
	defaultMsgBurst       = 60
	defaultMsgMaxWarnings = 5
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	WireFormat     string `yaml:"wire_format"` // json / protobuf
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"` // console / json
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig 对局事件总线配置
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// GameConfig 游戏配置
type GameConfig struct {
	TickMS           int `yaml:"tick_ms"`           // 帧间隔（毫秒）
	ReconnectGrace   int `yaml:"reconnect_grace"`   // 断线重连宽限（秒）
	HitCooldownMS    int `yaml:"hit_cooldown_ms"`   // 两次有效击杀最小间隔（毫秒）
	SnapshotInterval int `yaml:"snapshot_interval"` // 全量同步间隔（秒）
	StartHeart       int `yaml:"start_heart"`       // 初始生命
	ShutdownTimeout  int `yaml:"shutdown_timeout"`  // 优雅关闭等待（秒）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 单 IP 建连限速
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// MessageLimitConfig 单连接消息限速
type MessageLimitConfig struct {
	PerSecond   float64 `yaml:"per_second"`
	Burst       int     `yaml:"burst"`
	MaxWarnings int     `yaml:"max_warnings"`
}

// TickInterval 返回帧间隔
func (c *GameConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// ReconnectGraceDuration 返回断线宽限时长
func (c *GameConfig) ReconnectGraceDuration() time.Duration {
	return time.Duration(c.ReconnectGrace) * time.Second
}

// HitCooldown 返回击杀限速间隔
func (c *GameConfig) HitCooldown() time.Duration {
	return time.Duration(c.HitCooldownMS) * time.Millisecond
}

// SnapshotIntervalDuration 返回全量同步间隔
func (c *GameConfig) SnapshotIntervalDuration() time.Duration {
	return time.Duration(c.SnapshotInterval) * time.Second
}

// ShutdownTimeoutDuration 返回优雅关闭等待时长
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// Load 加载配置文件，环境变量优先
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = defaultMaxConnections
	}
	if cfg.Server.WireFormat == "" {
		cfg.Server.WireFormat = defaultWireFormat
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = defaultLogLevel
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = defaultLogFormat
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaultRedisAddr
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = defaultNATSURL
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = defaultNATSSubjectPrefix
	}
	if cfg.Game.TickMS == 0 {
		cfg.Game.TickMS = defaultTickMS
	}
	if cfg.Game.ReconnectGrace == 0 {
		cfg.Game.ReconnectGrace = defaultReconnectGrace
	}
	if cfg.Game.HitCooldownMS == 0 {
		cfg.Game.HitCooldownMS = defaultHitCooldownMS
	}
	if cfg.Game.SnapshotInterval == 0 {
		cfg.Game.SnapshotInterval = defaultSnapshotInterval
	}
	if cfg.Game.StartHeart == 0 {
		cfg.Game.StartHeart = defaultStartHeart
	}
	if cfg.Game.ShutdownTimeout == 0 {
		cfg.Game.ShutdownTimeout = defaultShutdownTimeout
	}
	if len(cfg.Security.AllowedOrigins) == 0 {
		cfg.Security.AllowedOrigins = []string{"*"}
	}
	if cfg.Security.RateLimit.PerSecond == 0 {
		cfg.Security.RateLimit.PerSecond = defaultConnPerSecond
	}
	if cfg.Security.RateLimit.Burst == 0 {
		cfg.Security.RateLimit.Burst = defaultConnBurst
	}
	if cfg.Security.MessageLimit.PerSecond == 0 {
		cfg.Security.MessageLimit.PerSecond = defaultMsgPerSecond
	}
	if cfg.Security.MessageLimit.Burst == 0 {
		cfg.Security.MessageLimit.Burst = defaultMsgBurst
	}
	if cfg.Security.MessageLimit.MaxWarnings == 0 {
		cfg.Security.MessageLimit.MaxWarnings = defaultMsgMaxWarnings
	}
}

// applyEnv 用环境变量覆盖配置（容器部署时使用）
func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WIRE_FORMAT"); v != "" {
		cfg.Server.WireFormat = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
		cfg.NATS.Enabled = true
	}
	if v := os.Getenv("GAME_TICK_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Game.TickMS = ms
		}
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.Security.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SECURITY_ALLOWED_ORIGINS"); v != "" {
		cfg.Security.AllowedOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
