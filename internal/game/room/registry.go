package room

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/storage"
)

// Registry 房间注册表：房间 ID → 房间，连接 ID → 房间 ID
//
// 锁顺序：Matcher → Registry；持有 Registry 锁时不调用房间方法。
type Registry struct {
	opts Options

	mu    sync.RWMutex
	rooms map[string]*Room
	conns map[string]string

	wg sync.WaitGroup
}

// NewRegistry 创建房间注册表
func NewRegistry(opts Options) *Registry {
	opts.applyDefaults()
	return &Registry{
		opts:  opts,
		rooms: make(map[string]*Room),
		conns: make(map[string]string),
	}
}

// Create 为两个连接创建房间并启动房间 goroutine
func (reg *Registry) Create(a, b string) (*Room, error) {
	reg.mu.Lock()
	if _, ok := reg.conns[a]; ok {
		reg.mu.Unlock()
		return nil, apperrors.ErrAlreadyInRoom
	}
	if _, ok := reg.conns[b]; ok {
		reg.mu.Unlock()
		return nil, apperrors.ErrAlreadyInRoom
	}

	id := uuid.NewString()
	tokens := [2]string{uuid.NewString(), uuid.NewString()}
	r := newRoom(id, a, b, tokens, reg.opts, reg.remove)
	reg.rooms[id] = r
	reg.conns[a] = id
	reg.conns[b] = id
	reg.mu.Unlock()

	reg.opts.Transport.JoinGroup(id, a)
	reg.opts.Transport.JoinGroup(id, b)

	// 启动前持久化，之后状态只能由房间 goroutine 访问
	if reg.opts.Store != nil {
		data := r.snapshotData()
		sessions := []*storage.PlayerSessionData{
			{PlayerID: a, RoomID: id, ReconnectToken: tokens[0]},
			{PlayerID: b, RoomID: id, ReconnectToken: tokens[1]},
		}
		store := reg.opts.Store
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
			defer cancel()
			if err := store.SaveRoom(ctx, data); err != nil {
				logger.LogWarn("⚠️ 保存房间 %s 失败: %v", id, err)
			}
			for _, s := range sessions {
				if err := store.SaveSession(ctx, s); err != nil {
					logger.LogWarn("⚠️ 保存会话 %s 失败: %v", s.PlayerID, err)
				}
			}
		}()
	}

	reg.wg.Add(1)
	go func() {
		defer reg.wg.Done()
		r.run()
	}()

	logger.LogInfo("🏠 房间 %s 已创建: %s vs %s", id, a, b)
	return r, nil
}

// Get 按 ID 获取房间
func (reg *Registry) Get(id string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[id]
}

// RoomOf 获取连接所在房间
func (reg *Registry) RoomOf(connID string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if id, ok := reg.conns[connID]; ok {
		return reg.rooms[id]
	}
	return nil
}

// InRoom 连接是否在某个未结束的房间中
func (reg *Registry) InRoom(connID string) bool {
	return reg.RoomOf(connID) != nil
}

// Count 当前房间数
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Disconnect 连接断开时通知其所在房间，返回是否在房间中
func (reg *Registry) Disconnect(connID string) bool {
	r := reg.RoomOf(connID)
	if r == nil {
		return false
	}
	if err := r.Disconnect(connID); err != nil {
		logger.LogDebug("房间 %s 处理断线 %s: %v", r.ID(), connID, err)
	}
	return true
}

// Reconnect 将断线玩家重新绑定到新连接
func (reg *Registry) Reconnect(roomID, oldID, newID, token string) (*Room, error) {
	reg.mu.RLock()
	r := reg.rooms[roomID]
	boundRoom, bound := reg.conns[oldID]
	_, newBusy := reg.conns[newID]
	reg.mu.RUnlock()

	if r == nil {
		return nil, apperrors.ErrRoomNotFound
	}
	if !bound || boundRoom != roomID {
		return nil, apperrors.ErrPlayerNotFound
	}
	if newBusy {
		return nil, apperrors.ErrAlreadyInRoom
	}

	if err := r.Reconnect(oldID, newID, token); err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	// 房间可能在重连后立即结束
	if reg.rooms[roomID] == r {
		if reg.conns[oldID] == roomID {
			delete(reg.conns, oldID)
		}
		reg.conns[newID] = roomID
	}
	return r, nil
}

// remove 房间结束时由房间 goroutine 调用
func (reg *Registry) remove(r *Room, connIDs []string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.rooms[r.id] == r {
		delete(reg.rooms, r.id)
	}
	for _, id := range connIDs {
		if reg.conns[id] == r.id {
			delete(reg.conns, id)
		}
	}
}

// CloseAll 结束所有房间并等待房间 goroutine 退出
func (reg *Registry) CloseAll(ctx context.Context) error {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	for _, r := range rooms {
		r.Close()
	}

	done := make(chan struct{})
	go func() {
		reg.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
