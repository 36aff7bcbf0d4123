package room

import (
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/palemoky/word-duel/internal/apperrors"
	"github.com/palemoky/word-duel/internal/config"
	"github.com/palemoky/word-duel/internal/events"
	"github.com/palemoky/word-duel/internal/game/words"
	"github.com/palemoky/word-duel/internal/logger"
	"github.com/palemoky/word-duel/internal/types"
)

// State 房间状态
type State int32

const (
	StateWaitingReady State = iota
	StateRunning
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateWaitingReady:
		return "waiting_ready"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// maxTickDelta 单帧最大推进时长，避免卡顿后目标瞬移
const maxTickDelta = 120 * time.Millisecond

// inboxSize 房间事件队列容量
const inboxSize = 64

// Settings 对局参数
type Settings struct {
	TickInterval     time.Duration
	ReconnectGrace   time.Duration
	HitCooldown      time.Duration
	SnapshotInterval time.Duration
	StartHeart       int
}

// DefaultSettings 默认对局参数
func DefaultSettings() Settings {
	return Settings{
		TickInterval:     60 * time.Millisecond,
		ReconnectGrace:   20 * time.Second,
		HitCooldown:      200 * time.Millisecond,
		SnapshotInterval: 3 * time.Second,
		StartHeart:       3,
	}
}

// SettingsFromConfig 从配置构建对局参数
func SettingsFromConfig(cfg *config.GameConfig) Settings {
	return Settings{
		TickInterval:     cfg.TickInterval(),
		ReconnectGrace:   cfg.ReconnectGraceDuration(),
		HitCooldown:      cfg.HitCooldown(),
		SnapshotInterval: cfg.SnapshotIntervalDuration(),
		StartHeart:       cfg.StartHeart,
	}
}

// Clock 时钟抽象，测试时可手动驱动帧和宽限计时器
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) (<-chan time.Time, func())
	NewTimer(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (realClock) NewTimer(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}

// Options 房间依赖
type Options struct {
	Settings  Settings
	Transport types.Transport
	Words     words.Source
	Store     types.RoomStore  // 可为 nil
	Publisher events.Publisher // 可为 nil
	Clock     Clock            // 为 nil 时使用系统时钟
	NewRand   func() *rand.Rand
}

func (o *Options) applyDefaults() {
	if o.Settings == (Settings{}) {
		o.Settings = DefaultSettings()
	}
	if o.Words == nil {
		o.Words = words.Default()
	}
	if o.Publisher == nil {
		o.Publisher = events.Noop{}
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.NewRand == nil {
		o.NewRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
}

// Room 一场双人对局
//
// 所有对局状态只由 run 所在的 goroutine 读写；外部通过 inbox 投递事件。
type Room struct {
	id        string
	settings  Settings
	transport types.Transport
	words     words.Source
	store     types.RoomStore
	publisher events.Publisher
	clock     Clock
	rng       *rand.Rand

	players  [2]*PlayerState
	tokens   map[string]string // 创建时的连接 ID → 重连令牌，只读
	boundIDs []string          // 曾绑定过的所有连接 ID

	state          State
	publicState    atomic.Int32
	createdAt      time.Time
	startedAt      time.Time
	lastTickAt     time.Time
	lastSnapshotAt time.Time
	phaseIndex     int

	tickC     <-chan time.Time
	stopTick  func()
	graceC    <-chan time.Time
	stopGrace func()

	inbox   chan func()
	done    chan struct{}
	onClose func(r *Room, connIDs []string)
}

func newRoom(id, a, b string, tokens [2]string, opts Options, onClose func(*Room, []string)) *Room {
	opts.applyDefaults()
	now := opts.Clock.Now()
	r := &Room{
		id:        id,
		settings:  opts.Settings,
		transport: opts.Transport,
		words:     opts.Words,
		store:     opts.Store,
		publisher: opts.Publisher,
		clock:     opts.Clock,
		rng:       opts.NewRand(),
		players: [2]*PlayerState{
			newPlayerState(a, tokens[0], opts.Settings.StartHeart),
			newPlayerState(b, tokens[1], opts.Settings.StartHeart),
		},
		tokens:    map[string]string{a: tokens[0], b: tokens[1]},
		boundIDs:  []string{a, b},
		state:     StateWaitingReady,
		createdAt: now,
		inbox:     make(chan func(), inboxSize),
		done:      make(chan struct{}),
		onClose:   onClose,
	}
	r.publicState.Store(int32(StateWaitingReady))
	return r
}

// ID 房间 ID
func (r *Room) ID() string { return r.id }

// State 当前状态（可在任意 goroutine 读取）
func (r *Room) State() State { return State(r.publicState.Load()) }

// Done 房间结束后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// InitialToken 返回创建时分配给该连接的重连令牌
func (r *Room) InitialToken(connID string) string { return r.tokens[connID] }

// run 房间主循环，是房间状态唯一的持有者
func (r *Room) run() {
	defer close(r.done)
	defer func() {
		if rec := recover(); rec != nil {
			logger.LogPanic(rec)
		}
		r.finish()
	}()

	for r.state != StateEnded {
		select {
		case fn := <-r.inbox:
			fn()
		case now := <-r.tickC:
			r.step(now)
		case <-r.graceC:
			r.expireGrace()
		}
	}
}

// call 在房间 goroutine 中执行 fn 并等待结果
func (r *Room) call(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- func() { reply <- fn() }:
	case <-r.done:
		return apperrors.ErrRoomNotFound
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return apperrors.ErrRoomNotFound
		}
	}
}

// Ready 玩家准备
func (r *Room) Ready(connID string) error {
	return r.call(func() error { return r.handleReady(connID) })
}

// Hit 玩家输入单词击杀目标
func (r *Room) Hit(connID string, targetID int, word string) error {
	return r.call(func() error { return r.handleHit(connID, targetID, word) })
}

// Disconnect 玩家连接断开
func (r *Room) Disconnect(connID string) error {
	return r.call(func() error { return r.handleDisconnect(connID) })
}

// Reconnect 断线玩家以新连接重新加入
func (r *Room) Reconnect(oldID, newID, token string) error {
	return r.call(func() error { return r.handleReconnect(oldID, newID, token) })
}

// RequestState 向请求者发送全量状态
func (r *Room) RequestState(connID string) error {
	return r.call(func() error { return r.handleRequestState(connID) })
}

// Close 立即结束房间（服务器关闭时使用）
func (r *Room) Close() {
	_ = r.call(func() error {
		logger.LogInfo("🛑 房间 %s 随服务器关闭", r.id)
		r.finish()
		return nil
	})
}

// Info 房间摘要
type Info struct {
	ID        string
	State     State
	PlayerIDs []string
	CreatedAt time.Time
}

// Info 返回房间摘要
func (r *Room) Info() (Info, error) {
	var info Info
	err := r.call(func() error {
		info = Info{
			ID:        r.id,
			State:     r.state,
			PlayerIDs: []string{r.players[0].connID, r.players[1].connID},
			CreatedAt: r.createdAt,
		}
		return nil
	})
	return info, err
}

func (r *Room) setState(s State) {
	r.state = s
	r.publicState.Store(int32(s))
}

func (r *Room) playerByConn(connID string) *PlayerState {
	for _, p := range r.players {
		if p.connID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) opponentOf(p *PlayerState) *PlayerState {
	if r.players[0] == p {
		return r.players[1]
	}
	return r.players[0]
}
