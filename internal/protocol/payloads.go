package protocol

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// RoomPayload 仅携带房间 ID 的请求（ready / request-room-state）
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// HitPayload 击杀请求
type HitPayload struct {
	RoomID   string `json:"roomId"`
	TargetID int    `json:"targetId"`
	Word     string `json:"word"`
}

// RejoinRoomPayload 重新加入房间请求
type RejoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"` // 断线前的连接 ID
	Token    string `json:"token"`    // match-found 下发的重连令牌
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// MatchFoundPayload 匹配成功
type MatchFoundPayload struct {
	RoomID         string `json:"roomId"`
	PlayerID       string `json:"playerId"`
	OpponentID     string `json:"opponentId"`
	ReconnectToken string `json:"reconnectToken"`
}

// MatchStartPayload 对局开始
type MatchStartPayload struct {
	RoomID  string       `json:"roomId"`
	Targets []TargetInfo `json:"targets"`
	Players []PlayerInfo `json:"players"`
}

// PlayerIDPayload 仅携带玩家 ID（player-ready / player-rejoined）
type PlayerIDPayload struct {
	PlayerID string `json:"playerId"`
}

// SpawnTargetPayload 生成目标，字段与 TargetInfo 平铺
type SpawnTargetPayload struct {
	TargetInfo
}

// TargetUpdatePayload 目标增量同步
type TargetUpdatePayload struct {
	Updates []TargetUpdate `json:"updates"`
	T       int64          `json:"t"` // 服务端时间戳（毫秒）
}

// TargetReachedPayload 目标抵达中心
type TargetReachedPayload struct {
	TargetIDs []int `json:"targetIds"`
}

// PlayerStatsPayload 玩家状态
type PlayerStatsPayload struct {
	PlayerID string `json:"playerId"`
	Heart    int    `json:"heart"`
	Kills    int    `json:"kills"`
}

// TargetKilledPayload 目标被击杀
type TargetKilledPayload struct {
	TargetID int    `json:"targetId"`
	By       string `json:"by"`
}

// MatchEndPayload 对局结束
type MatchEndPayload struct {
	Reason   string       `json:"reason"`
	WinnerID string       `json:"winnerId"`
	LoserID  string       `json:"loserId"`
	Players  []PlayerInfo `json:"players"`
}

// OpponentLeftPayload 对手离开
type OpponentLeftPayload struct {
	RoomID string `json:"roomId"`
	By     string `json:"by"`
}

// RoomStatePayload 全量房间状态
type RoomStatePayload struct {
	Targets []TargetInfo `json:"targets"`
	Players []PlayerInfo `json:"players"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- 公共视图 ---

// TargetInfo 目标的对外视图
type TargetInfo struct {
	ID      int     `json:"id"`
	Word    string  `json:"word"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	UX      float64 `json:"ux"`
	UY      float64 `json:"uy"`
	Speed   float64 `json:"speed"`
	Alive   bool    `json:"alive"`
	OwnerID string  `json:"ownerId"`
}

// TargetUpdate 单个目标的增量，x/y 仅在位置变化时携带
type TargetUpdate struct {
	ID    int      `json:"id"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Alive bool     `json:"alive"`
}

// PlayerInfo 玩家的对外视图
type PlayerInfo struct {
	ID           string `json:"id"`
	Heart        int    `json:"heart"`
	Kills        int    `json:"kills"`
	Ready        bool   `json:"ready"`
	Disconnected bool   `json:"disconnected"`
}

// 对局结束原因
const (
	ReasonPlayerDied = "player_died"
	ReasonDraw       = "draw"
)
