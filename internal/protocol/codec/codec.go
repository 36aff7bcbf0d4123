package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/word-duel/internal/protocol"
)

// 线上格式
const (
	FormatJSON     = "json"
	FormatProtobuf = "protobuf"
)

// ErrMissingType 消息缺少 type 字段
var ErrMissingType = errors.New("codec: message type is empty")

// Codec 消息编解码器
type Codec interface {
	Encode(msg *protocol.Message) ([]byte, error)
	// Decode 返回的 Message 来自对象池，处理完后可调用 PutMessage 归还
	Decode(data []byte) (*protocol.Message, error)
	// Binary 是否使用二进制帧发送
	Binary() bool
	Name() string
}

// ForFormat 根据配置选择编解码器，未知格式回退 JSON
func ForFormat(format string) Codec {
	if format == FormatProtobuf {
		return ProtoCodec{}
	}
	return JSONCodec{}
}

// JSONCodec 文本帧 JSON 编解码
type JSONCodec struct{}

func (JSONCodec) Name() string { return FormatJSON }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msg *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return nil, err
	}
	// Encoder 会追加换行
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return append([]byte(nil), out...), nil
}

func (JSONCodec) Decode(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, ErrMissingType
	}
	return msg, nil
}

// ProtoCodec 二进制帧编解码，信封为 structpb.Struct{"type", "payload"}
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return FormatProtobuf }
func (ProtoCodec) Binary() bool { return true }

func (ProtoCodec) Encode(msg *protocol.Message) ([]byte, error) {
	env := getEnvelope()
	defer putEnvelope(env)

	env.Fields = map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(msg.Type)),
	}
	if len(msg.Payload) > 0 {
		payload := &structpb.Value{}
		if err := protojson.Unmarshal(msg.Payload, payload); err != nil {
			return nil, fmt.Errorf("codec: payload to structpb: %w", err)
		}
		env.Fields["payload"] = payload
	}
	return proto.Marshal(env)
}

func (ProtoCodec) Decode(data []byte) (*protocol.Message, error) {
	env := getEnvelope()
	defer putEnvelope(env)

	if err := proto.Unmarshal(data, env); err != nil {
		return nil, err
	}
	msgType := env.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, ErrMissingType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(msgType)
	if payload, ok := env.GetFields()["payload"]; ok && payload != nil {
		raw, err := protojson.Marshal(payload)
		if err != nil {
			PutMessage(msg)
			return nil, fmt.Errorf("codec: structpb to payload: %w", err)
		}
		msg.Payload = raw
	}
	return msg, nil
}
