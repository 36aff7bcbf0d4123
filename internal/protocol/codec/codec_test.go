package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/word-duel/internal/protocol"
)

func TestForFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatJSON, ForFormat("json").Name())
	assert.Equal(t, FormatProtobuf, ForFormat("protobuf").Name())
	assert.Equal(t, FormatJSON, ForFormat("yaml").Name())
	assert.False(t, ForFormat("json").Binary())
	assert.True(t, ForFormat("protobuf").Binary())
}

func TestJSONCodec_Encode(t *testing.T) {
	t.Parallel()

	msg := protocol.MustNewMessage(protocol.MsgPlayerStats, protocol.PlayerStatsPayload{PlayerID: "a", Heart: 2, Kills: 5})
	data, err := JSONCodec{}.Encode(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"player-stats","payload":{"playerId":"a","heart":2,"kills":5}}`, string(data))
}

func TestJSONCodec_Decode(t *testing.T) {
	t.Parallel()

	msg, err := JSONCodec{}.Decode([]byte(`{"type":"hit","payload":{"roomId":"r1","targetId":7,"word":"cat"}}`))
	require.NoError(t, err)
	defer PutMessage(msg)

	assert.Equal(t, protocol.MsgHit, msg.Type)
	p, err := protocol.ParsePayload[protocol.HitPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, 7, p.TargetID)
}

func TestJSONCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := JSONCodec{}.Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = JSONCodec{}.Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestProtoCodec_RoundTripPreservesPayload(t *testing.T) {
	t.Parallel()

	x := 120.5
	in := protocol.MustNewMessage(protocol.MsgTargetUpdate, protocol.TargetUpdatePayload{
		Updates: []protocol.TargetUpdate{{ID: 1, X: &x, Y: &x, Alive: true}, {ID: 2, Alive: false}},
		T:       1700000000123,
	})

	data, err := ProtoCodec{}.Encode(in)
	require.NoError(t, err)

	out, err := ProtoCodec{}.Decode(data)
	require.NoError(t, err)
	defer PutMessage(out)

	assert.Equal(t, protocol.MsgTargetUpdate, out.Type)
	p, err := protocol.ParsePayload[protocol.TargetUpdatePayload](out)
	require.NoError(t, err)
	require.Len(t, p.Updates, 2)
	assert.Equal(t, int64(1700000000123), p.T)
	require.NotNil(t, p.Updates[0].X)
	assert.InDelta(t, 120.5, *p.Updates[0].X, 1e-9)
	assert.Nil(t, p.Updates[1].X)
	assert.False(t, p.Updates[1].Alive)
}

func TestProtoCodec_NoPayload(t *testing.T) {
	t.Parallel()

	data, err := ProtoCodec{}.Encode(&protocol.Message{Type: protocol.MsgJoinQueue})
	require.NoError(t, err)

	out, err := ProtoCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgJoinQueue, out.Type)
	assert.Empty(t, out.Payload)
}

func TestProtoCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := ProtoCodec{}.Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)

	empty, err := ProtoCodec{}.Encode(&protocol.Message{})
	require.NoError(t, err)
	_, err = ProtoCodec{}.Decode(empty)
	assert.ErrorIs(t, err, ErrMissingType)
}
