package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/word-duel/internal/game/match"
	"github.com/palemoky/word-duel/internal/game/room"
	"github.com/palemoky/word-duel/internal/protocol"
	"github.com/palemoky/word-duel/internal/testutil"
)

type fakeServer struct{ maintenance bool }

func (f fakeServer) IsMaintenanceMode() bool { return f.maintenance }

type env struct {
	h   *Handler
	reg *room.Registry
	m   *match.Matcher
	tr  *testutil.Transport
}

func newEnv(t *testing.T, srv fakeServer, opts ...func(*room.Options)) *env {
	t.Helper()
	tr := testutil.NewTransport()
	o := room.Options{Transport: tr}
	for _, fn := range opts {
		fn(&o)
	}
	reg := room.NewRegistry(o)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.CloseAll(ctx)
	})
	m := match.NewMatcher(match.MatcherDeps{Rooms: reg, Transport: tr, Liveness: tr})
	h := NewHandler(HandlerDeps{Server: srv, Rooms: reg, Matcher: m})
	return &env{h: h, reg: reg, m: m, tr: tr}
}

func msg(t *testing.T, typ protocol.MessageType, payload any) *protocol.Message {
	t.Helper()
	m, err := protocol.NewMessage(typ, payload)
	require.NoError(t, err)
	return m
}

func lastError(t *testing.T, c *testutil.SimpleClient) *protocol.ErrorPayload {
	t.Helper()
	msgs := c.Messages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	require.Equal(t, protocol.MsgError, last.Type)
	p, err := protocol.ParsePayload[protocol.ErrorPayload](last)
	require.NoError(t, err)
	return p
}

// pair 通过匹配队列让 A、B 进入同一房间
func (e *env) pair(t *testing.T, a, b *testutil.SimpleClient) *room.Room {
	t.Helper()
	e.h.Handle(a, msg(t, protocol.MsgJoinQueue, nil))
	e.h.Handle(b, msg(t, protocol.MsgJoinQueue, nil))
	r := e.reg.RoomOf(a.ID)
	require.NotNil(t, r)
	return r
}

func TestHandler_UnknownMessageType(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{})
	c := &testutil.SimpleClient{ID: "A"}

	e.h.Handle(c, &protocol.Message{Type: "bogus"})
	assert.Equal(t, protocol.ErrCodeInvalidMsg, lastError(t, c).Code)
}

func TestHandler_Ping(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{})
	c := &testutil.SimpleClient{ID: "A"}

	e.h.Handle(c, msg(t, protocol.MsgPing, protocol.PingPayload{Timestamp: 12345}))

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.MsgPong, msgs[0].Type)
	pong, err := protocol.ParsePayload[protocol.PongPayload](msgs[0])
	require.NoError(t, err)
	assert.Equal(t, int64(12345), pong.ClientTimestamp)
	assert.Positive(t, pong.ServerTimestamp)
}

func TestHandler_MalformedPayload(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{})
	c := &testutil.SimpleClient{ID: "A"}

	e.h.Handle(c, &protocol.Message{Type: protocol.MsgHit, Payload: json.RawMessage(`"nope"`)})
	assert.Equal(t, protocol.ErrCodeInvalidMsg, lastError(t, c).Code)
}

func TestHandler_QueueAndMatchFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{})
	a := &testutil.SimpleClient{ID: "A"}
	b := &testutil.SimpleClient{ID: "B"}

	e.h.Handle(a, msg(t, protocol.MsgJoinQueue, nil))
	assert.Equal(t, 1, e.m.QueueLength())
	e.h.Handle(a, msg(t, protocol.MsgLeaveQueue, nil))
	assert.Zero(t, e.m.QueueLength())

	r := e.pair(t, a, b)
	assert.Equal(t, 1, e.tr.Count("A", protocol.MsgMatchFound))
	assert.Equal(t, 1, e.tr.Count("B", protocol.MsgMatchFound))

	e.h.Handle(a, msg(t, protocol.MsgReady, protocol.RoomPayload{RoomID: r.ID()}))
	e.h.Handle(b, msg(t, protocol.MsgReady, protocol.RoomPayload{RoomID: r.ID()}))
	assert.Equal(t, room.StateRunning, r.State())
	assert.Equal(t, 1, e.tr.Count("A", protocol.MsgMatchStart))

	// 被拒绝的击杀不回复错误
	e.h.Handle(a, msg(t, protocol.MsgHit, protocol.HitPayload{RoomID: r.ID(), TargetID: 99, Word: "x"}))
	e.h.Handle(a, msg(t, protocol.MsgHit, protocol.HitPayload{RoomID: "missing", TargetID: 1, Word: "x"}))
	assert.Empty(t, a.Messages())

	e.h.Handle(a, msg(t, protocol.MsgRequestRoomState, protocol.RoomPayload{RoomID: r.ID()}))
	assert.Equal(t, 1, e.tr.Count("A", protocol.MsgRoomState))
}

func TestHandler_LeaveQueueDuringMatchLeavesRoom(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{}, func(o *room.Options) {
		o.Settings = room.DefaultSettings()
		o.Settings.ReconnectGrace = 50 * time.Millisecond
	})
	a := &testutil.SimpleClient{ID: "A"}
	b := &testutil.SimpleClient{ID: "B"}
	r := e.pair(t, a, b)

	e.h.Handle(a, msg(t, protocol.MsgReady, protocol.RoomPayload{RoomID: r.ID()}))
	e.h.Handle(b, msg(t, protocol.MsgReady, protocol.RoomPayload{RoomID: r.ID()}))
	require.Equal(t, room.StateRunning, r.State())

	e.h.Handle(a, msg(t, protocol.MsgLeaveQueue, nil))
	assert.NotContains(t, e.tr.Members(r.ID()), "A")
	assert.Contains(t, e.tr.Members(r.ID()), "B")

	// 宽限期结束后对手收到 opponent-left，房间解散
	require.True(t, e.tr.WaitFor("B", protocol.MsgOpponentLeft, 1, 2*time.Second))
	left, err := protocol.ParsePayload[protocol.OpponentLeftPayload](e.tr.Last("B", protocol.MsgOpponentLeft))
	require.NoError(t, err)
	assert.Equal(t, "A", left.By)

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("房间未解散")
	}
	assert.Nil(t, e.reg.RoomOf("B"))
}

func TestHandler_JoinQueueRejectedInMaintenance(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{maintenance: true})
	c := &testutil.SimpleClient{ID: "A"}

	e.h.Handle(c, msg(t, protocol.MsgJoinQueue, nil))
	assert.Zero(t, e.m.QueueLength())
	assert.Equal(t, protocol.ErrCodeMaintenance, lastError(t, c).Code)
}

func TestHandler_RejoinRoom(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{})
	a := &testutil.SimpleClient{ID: "A"}
	b := &testutil.SimpleClient{ID: "B"}
	r := e.pair(t, a, b)
	token := r.InitialToken("A")

	// 旧连接断开
	e.tr.Kill("A")
	e.m.Dequeue("A")

	a2 := &testutil.SimpleClient{ID: "A2"}
	e.h.Handle(a2, msg(t, protocol.MsgRejoinRoom, protocol.RejoinRoomPayload{RoomID: r.ID(), PlayerID: "A", Token: "bad"}))
	assert.Equal(t, protocol.ErrCodeBadToken, lastError(t, a2).Code)

	e.h.Handle(a2, msg(t, protocol.MsgRejoinRoom, protocol.RejoinRoomPayload{RoomID: "nope", PlayerID: "A", Token: token}))
	assert.Equal(t, protocol.ErrCodeRoomNotFound, lastError(t, a2).Code)

	before := len(a2.Messages())
	e.h.Handle(a2, msg(t, protocol.MsgRejoinRoom, protocol.RejoinRoomPayload{RoomID: r.ID(), PlayerID: "A", Token: token}))
	assert.Len(t, a2.Messages(), before, "成功时不回复错误")

	assert.Same(t, r, e.reg.RoomOf("A2"))
	assert.Equal(t, 1, e.tr.Count("B", protocol.MsgPlayerRejoined))
	assert.Equal(t, 1, e.tr.Count("A2", protocol.MsgRoomState))
}

func TestHandler_PingRepliesThroughClient(t *testing.T) {
	t.Parallel()
	e := newEnv(t, fakeServer{})

	c := &testutil.MockClient{}
	c.On("GetID").Return("A").Maybe()
	c.On("SendMessage", mock.MatchedBy(func(m *protocol.Message) bool {
		return m.Type == protocol.MsgPong
	})).Once()

	e.h.Handle(c, msg(t, protocol.MsgPing, protocol.PingPayload{Timestamp: 1}))
	c.AssertExpectations(t)
}
