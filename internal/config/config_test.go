package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	content := `
server:
  host: "127.0.0.1"
  port: 8080
  max_connections: 5000
  wire_format: protobuf
  log_level: debug
  log_format: json

redis:
  enabled: true
  addr: "redis:6379"
  password: "secret"
  db: 1

nats:
  enabled: true
  url: "nats://nats:4222"
  subject_prefix: "duel"

game:
  tick_ms: 50
  reconnect_grace: 15
  hit_cooldown_ms: 250
  snapshot_interval: 5
  start_heart: 5

security:
  allowed_origins:
    - "http://localhost:3000"
    - "https://example.com"
  rate_limit:
    per_second: 2
    burst: 4
  message_limit:
    per_second: 10
    burst: 20
    max_warnings: 3
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5000, cfg.Server.MaxConnections)
	assert.Equal(t, "protobuf", cfg.Server.WireFormat)
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "duel", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, 15*time.Second, cfg.Game.ReconnectGraceDuration())
	assert.Equal(t, 250*time.Millisecond, cfg.Game.HitCooldown())
	assert.Equal(t, 5*time.Second, cfg.Game.SnapshotIntervalDuration())
	assert.Equal(t, 5, cfg.Game.StartHeart)
	assert.Len(t, cfg.Security.AllowedOrigins, 2)
	assert.Equal(t, 3, cfg.Security.MessageLimit.MaxWarnings)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	err := os.WriteFile(configPath, []byte("invalid: yaml: :::"), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "empty.yaml")
	err := os.WriteFile(configPath, []byte(`{}`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultWireFormat, cfg.Server.WireFormat)
	assert.Equal(t, defaultRedisAddr, cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 60*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, 20*time.Second, cfg.Game.ReconnectGraceDuration())
	assert.Equal(t, 200*time.Millisecond, cfg.Game.HitCooldown())
	assert.Equal(t, 3*time.Second, cfg.Game.SnapshotIntervalDuration())
	assert.Equal(t, 3, cfg.Game.StartHeart)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	// 修改环境变量，不能并行
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_ADDR", "env-redis:6380")
	t.Setenv("CORS_ORIGIN", "http://a.com, http://b.com")
	t.Setenv("GAME_TICK_MS", "40")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "env.yaml")
	err := os.WriteFile(configPath, []byte(`{}`), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 40*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Security.AllowedOrigins)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultMaxConnections, cfg.Server.MaxConnections)
	assert.Equal(t, defaultNATSSubjectPrefix, cfg.NATS.SubjectPrefix)
}
