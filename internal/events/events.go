// Package events 发布对局生命周期事件，供外部积分/统计服务消费
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/protocol"
)

// 事件类型，subject = <prefix>.<kind>
const (
	KindMatchStarted = "match.started"
	KindMatchEnded   = "match.ended"
)

// MatchStarted 对局开始事件
type MatchStarted struct {
	RoomID    string    `json:"roomId"`
	PlayerIDs []string  `json:"playerIds"`
	StartedAt time.Time `json:"startedAt"`
}

// MatchEnded 对局结束事件
type MatchEnded struct {
	RoomID   string                `json:"roomId"`
	Reason   string                `json:"reason"`
	WinnerID string                `json:"winnerId"`
	LoserID  string                `json:"loserId"`
	Players  []protocol.PlayerInfo `json:"players"`
	Duration time.Duration         `json:"durationMs"`
	EndedAt  time.Time             `json:"endedAt"`
}

// MarshalJSON 时长以毫秒输出
func (e MatchEnded) MarshalJSON() ([]byte, error) {
	type alias MatchEnded
	return json.Marshal(struct {
		alias
		Duration int64 `json:"durationMs"`
	}{alias: alias(e), Duration: e.Duration.Milliseconds()})
}

// Publisher 对局事件发布者
type Publisher interface {
	PublishMatchStarted(ctx context.Context, e MatchStarted) error
	PublishMatchEnded(ctx context.Context, e MatchEnded) error
	Close()
}

// conn 是 *nats.Conn 中用到的部分，便于测试替换
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher 基于 Core NATS 的发布者（fire-and-forget）
type NATSPublisher struct {
	nc     conn
	prefix string
}

// NewNATSPublisher 连接 NATS 并创建发布者
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("word-duel"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.LogWarn("⚠️ NATS 连接断开: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.LogInfo("🔌 NATS 已重连: %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	return newPublisher(nc, prefix), nil
}

func newPublisher(nc conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Subject 返回事件的完整 subject
func (p *NATSPublisher) Subject(kind string) string {
	if p.prefix == "" {
		return kind
	}
	return p.prefix + "." + kind
}

// PublishMatchStarted 发布对局开始事件
func (p *NATSPublisher) PublishMatchStarted(ctx context.Context, e MatchStarted) error {
	return p.publish(ctx, KindMatchStarted, e)
}

// PublishMatchEnded 发布对局结束事件
func (p *NATSPublisher) PublishMatchEnded(ctx context.Context, e MatchEnded) error {
	return p.publish(ctx, KindMatchEnded, e)
}

func (p *NATSPublisher) publish(ctx context.Context, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := p.nc.Publish(p.Subject(kind), data); err != nil {
		return fmt.Errorf("发布事件 %s 失败: %w", kind, err)
	}
	if _, ok := ctx.Deadline(); ok {
		return p.nc.FlushWithContext(ctx)
	}
	return nil
}

// Close 排空并关闭连接
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		logger.LogWarn("⚠️ NATS 关闭失败: %v", err)
	}
}

// Noop 未启用 NATS 时使用的空发布者
type Noop struct{}

func (Noop) PublishMatchStarted(context.Context, MatchStarted) error { return nil }
func (Noop) PublishMatchEnded(context.Context, MatchEnded) error     { return nil }
func (Noop) Close()                                                  {}
