package room

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/palemoky/word-duel/internal/game/words"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/testutil"
)

// manualClock 手动驱动帧和宽限计时器的测试时钟
type manualClock struct {
	mu          sync.Mutex
	now         time.Time
	ticker      chan time.Time
	tickerCount int
	tickerStops int
	timers      []*manualTimer
}

type manualTimer struct {
	c       chan time.Time
	d       time.Duration
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) (<-chan time.Time, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time)
	c.ticker = ch
	c.tickerCount++
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.tickerStops++
	}
}

func (c *manualClock) NewTimer(d time.Duration) (<-chan time.Time, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tm := &manualTimer{c: make(chan time.Time), d: d}
	c.timers = append(c.timers, tm)
	return tm.c, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		tm.stopped = true
	}
}

func (c *manualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *manualClock) stats() (tickers, stops, timers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickerCount, c.tickerStops, len(c.timers)
}

func (c *manualClock) activeTimer() *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.timers) - 1; i >= 0; i-- {
		if !c.timers[i].stopped {
			return c.timers[i]
		}
	}
	return nil
}

// fixture 由注册表创建的房间及其依赖
type fixture struct {
	t     *testing.T
	reg   *Registry
	room  *Room
	tr    *testutil.Transport
	clock *manualClock
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()

	tr := testutil.NewTransport()
	clk := newManualClock()
	o := Options{
		Transport: tr,
		Words:     words.NewSequence("apple", "banana", "cherry"),
		Clock:     clk,
		NewRand:   func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) },
	}
	for _, fn := range opts {
		fn(&o)
	}

	reg := NewRegistry(o)
	r, err := reg.Create("A", "B")
	require.NoError(t, err)

	f := &fixture{t: t, reg: reg, room: r, tr: tr, clock: clk}
	t.Cleanup(func() {
		r.Close()
		<-r.Done()
	})
	return f
}

// inspect 在房间 goroutine 中执行 fn
func (f *fixture) inspect(fn func(r *Room)) {
	f.t.Helper()
	err := f.room.call(func() error {
		fn(f.room)
		return nil
	})
	require.NoError(f.t, err)
}

// sync 等待此前投递的事件全部处理完
func (f *fixture) sync() {
	_ = f.room.call(func() error { return nil })
}

// start 双方准备并暂停自动生成目标
func (f *fixture) start() {
	f.t.Helper()
	require.NoError(f.t, f.room.Ready("A"))
	require.NoError(f.t, f.room.Ready("B"))
	require.Equal(f.t, StateRunning, f.room.State())
	f.holdSpawns()
}

func (f *fixture) holdSpawns() {
	f.inspect(func(r *Room) {
		for _, p := range r.players {
			p.spawnCooldown = time.Hour
		}
	})
}

// tick 时钟前进 d 并投递一帧
func (f *fixture) tick(d time.Duration) {
	f.t.Helper()
	now := f.clock.Advance(d)

	f.clock.mu.Lock()
	ch := f.clock.ticker
	f.clock.mu.Unlock()
	require.NotNil(f.t, ch, "帧计时器未启动")

	select {
	case ch <- now:
	case <-f.room.Done():
		return
	case <-time.After(time.Second):
		f.t.Fatal("帧未被处理")
	}
	f.sync()
}

// fireGrace 触发当前宽限计时器，返回房间是否接收
func (f *fixture) fireGrace() bool {
	f.t.Helper()
	tm := f.clock.activeTimer()
	if tm == nil {
		return false
	}
	select {
	case tm.c <- f.clock.Now():
		f.clock.mu.Lock()
		tm.stopped = true
		f.clock.mu.Unlock()
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

func (f *fixture) waitDone() {
	f.t.Helper()
	select {
	case <-f.room.Done():
	case <-time.After(time.Second):
		f.t.Fatal("房间未结束")
	}
}

// addTarget 在中心正东 d 处放置一个向西移动的目标
func (f *fixture) addTarget(player int, word string, d, speed float64) int {
	var id int
	f.inspect(func(r *Room) {
		p := r.players[player]
		id = p.pool.Insert(word, ArenaCenterX+d, ArenaCenterY, speed, p.connID).ID
	})
	return id
}

func payload[T any](t *testing.T, msg *protocol.Message) *T {
	t.Helper()
	require.NotNil(t, msg)
	p, err := protocol.ParsePayload[T](msg)
	require.NoError(t, err)
	return p
}
