package server

import (
	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/protocol"
)

// SendTo 单播给指定连接
func (s *Server) SendTo(connID string, msg *protocol.Message) error {
	client := s.getClient(connID)
	if client == nil {
		return apperrors.ErrNotReachable
	}
	return client.trySend(msg)
}

// SendToGroup 广播给组内所有连接，单个失败不影响其他成员
func (s *Server) SendToGroup(group string, msg *protocol.Message) {
	s.groupsMu.RLock()
	members := make([]string, 0, len(s.groups[group]))
	for id := range s.groups[group] {
		members = append(members, id)
	}
	s.groupsMu.RUnlock()

	for _, id := range members {
		_ = s.SendTo(id, msg)
	}
}

// JoinGroup 加入广播组
func (s *Server) JoinGroup(group, connID string) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	members, ok := s.groups[group]
	if !ok {
		members = make(map[string]struct{})
		s.groups[group] = members
	}
	members[connID] = struct{}{}
}

// LeaveGroup 离开广播组，空组随即删除
func (s *Server) LeaveGroup(group, connID string) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	delete(s.groups[group], connID)
	if len(s.groups[group]) == 0 {
		delete(s.groups, group)
	}
}

// IsAlive 连接是否仍然在线
func (s *Server) IsAlive(connID string) bool {
	client := s.getClient(connID)
	return client != nil && !client.IsClosed()
}

// GetOnlineCount 获取在线人数（按需调用）
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// BroadcastToLobby 广播消息给大厅玩家（未在房间内的玩家）
func (s *Server) BroadcastToLobby(msg *protocol.Message) {
	s.clientsMu.RLock()
	lobby := make([]*Client, 0, len(s.clients))
	for id, client := range s.clients {
		if !s.registry.InRoom(id) {
			lobby = append(lobby, client)
		}
	}
	s.clientsMu.RUnlock()

	for _, client := range lobby {
		client.SendMessage(msg)
	}
}

// groupCount 当前广播组数量
func (s *Server) groupCount() int {
	s.groupsMu.RLock()
	defer s.groupsMu.RUnlock()
	return len(s.groups)
}
