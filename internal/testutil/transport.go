//go:build !production

package testutil

import (
	"sync"
	"time"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/protocol"
)

// Delivery 一次投递记录
type Delivery struct {
	ConnID string
	Group  string // 组播时为组名，单播为空
	Msg    *protocol.Message
}

// Transport 记录所有出站消息的内存传输层，同时实现 types.Transport 和 types.Liveness
type Transport struct {
	mu         sync.Mutex
	groups     map[string]map[string]struct{}
	dead       map[string]bool
	deliveries []Delivery
}

// NewTransport 创建记录型传输层
func NewTransport() *Transport {
	return &Transport{
		groups: make(map[string]map[string]struct{}),
		dead:   make(map[string]bool),
	}
}

// SendTo 单播，已标记为断开的连接返回 ErrNotReachable
func (t *Transport) SendTo(connID string, msg *protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dead[connID] {
		return apperrors.ErrNotReachable
	}
	t.deliveries = append(t.deliveries, Delivery{ConnID: connID, Msg: msg})
	return nil
}

// SendToGroup 按当前组成员展开为逐个投递
func (t *Transport) SendToGroup(group string, msg *protocol.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for connID := range t.groups[group] {
		if t.dead[connID] {
			continue
		}
		t.deliveries = append(t.deliveries, Delivery{ConnID: connID, Group: group, Msg: msg})
	}
}

func (t *Transport) JoinGroup(group, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.groups[group]
	if !ok {
		members = make(map[string]struct{})
		t.groups[group] = members
	}
	members[connID] = struct{}{}
}

func (t *Transport) LeaveGroup(group, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.groups[group], connID)
	if len(t.groups[group]) == 0 {
		delete(t.groups, group)
	}
}

// IsAlive 未被 Kill 的连接视为存活
func (t *Transport) IsAlive(connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.dead[connID]
}

// Kill 标记连接断开
func (t *Transport) Kill(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dead[connID] = true
}

// Members 返回组成员
func (t *Transport) Members(group string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.groups[group]))
	for id := range t.groups[group] {
		out = append(out, id)
	}
	return out
}

// Deliveries 返回全部投递记录副本
func (t *Transport) Deliveries() []Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Delivery(nil), t.deliveries...)
}

// Messages 返回某连接收到的全部消息
func (t *Transport) Messages(connID string) []*protocol.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*protocol.Message
	for _, d := range t.deliveries {
		if d.ConnID == connID {
			out = append(out, d.Msg)
		}
	}
	return out
}

// OfType 返回某连接收到的指定类型消息
func (t *Transport) OfType(connID string, msgType protocol.MessageType) []*protocol.Message {
	var out []*protocol.Message
	for _, m := range t.Messages(connID) {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

// Count 某连接收到的指定类型消息数量
func (t *Transport) Count(connID string, msgType protocol.MessageType) int {
	return len(t.OfType(connID, msgType))
}

// Last 返回某连接最后一条指定类型的消息
func (t *Transport) Last(connID string, msgType protocol.MessageType) *protocol.Message {
	msgs := t.OfType(connID, msgType)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// WaitFor 等待某连接收到至少 n 条指定类型消息
func (t *Transport) WaitFor(connID string, msgType protocol.MessageType, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if t.Count(connID, msgType) >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Reset 清空投递记录
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliveries = nil
}
