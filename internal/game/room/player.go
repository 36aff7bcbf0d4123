package room

import (
	"time"

	"github.com/palemoky/word-duel/internal/protocol"
)

// PlayerState 对局中的玩家
//
// 玩家身份即其在 Room.players 中的槽位；connID 为当前连接 ID，重连时仅重新绑定。
type PlayerState struct {
	connID string
	token  string

	heart        int
	kills        int
	ready        bool
	disconnected bool

	pool          Pool
	spawnCooldown time.Duration
	lastHitAt     time.Time
}

func newPlayerState(connID, token string, heart int) *PlayerState {
	return &PlayerState{
		connID: connID,
		token:  token,
		heart:  heart,
	}
}

// loseHearts 扣除生命，最低为 0
func (p *PlayerState) loseHearts(n int) {
	p.heart -= n
	if p.heart < 0 {
		p.heart = 0
	}
}

// View 对外视图
func (p *PlayerState) View() protocol.PlayerInfo {
	return protocol.PlayerInfo{
		ID:           p.connID,
		Heart:        p.heart,
		Kills:        p.kills,
		Ready:        p.ready,
		Disconnected: p.disconnected,
	}
}

func (p *PlayerState) statsPayload() protocol.PlayerStatsPayload {
	return protocol.PlayerStatsPayload{PlayerID: p.connID, Heart: p.heart, Kills: p.kills}
}
