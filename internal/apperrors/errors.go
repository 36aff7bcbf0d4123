package apperrors

import (
	"errors"

	"github.com/palemoky/word-duel/internal/protocol"
)

// Kind 错误分类，决定调用方如何处理
type Kind int

const (
	// KindValidation 请求不合法，丢弃并记录日志
	KindValidation Kind = iota + 1
	// KindRateLimit 请求过快，丢弃
	KindRateLimit
	// KindDelivery 消息投递失败，记录后忽略
	KindDelivery
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimit:
		return "rate_limit"
	case KindDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// GameError 游戏错误（房间、匹配和传输层共享）
type GameError struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomNotFound    = &GameError{Kind: KindValidation, Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrPlayerNotFound  = &GameError{Kind: KindValidation, Code: protocol.ErrCodePlayerNotFound, Message: "玩家不在房间中"}
	ErrTargetNotFound  = &GameError{Kind: KindValidation, Code: protocol.ErrCodeTargetNotFound, Message: "目标不存在或已被消灭"}
	ErrWordMismatch    = &GameError{Kind: KindValidation, Code: protocol.ErrCodeWordMismatch, Message: "单词不匹配"}
	ErrHitTooFast      = &GameError{Kind: KindRateLimit, Code: protocol.ErrCodeHitTooFast, Message: "输入过快"}
	ErrRoomNotRunning  = &GameError{Kind: KindValidation, Code: protocol.ErrCodeRoomNotRunning, Message: "对局未在进行"}
	ErrNotDisconnected = &GameError{Kind: KindValidation, Code: protocol.ErrCodeNotDisconnected, Message: "玩家未断线"}
	ErrBadToken        = &GameError{Kind: KindValidation, Code: protocol.ErrCodeBadToken, Message: "重连令牌无效"}
	ErrAlreadyInRoom   = &GameError{Kind: KindValidation, Code: protocol.ErrCodeAlreadyInRoom, Message: "您已在对局中"}
	ErrNotReachable    = &GameError{Kind: KindDelivery, Code: protocol.ErrCodeNotReachable, Message: "连接不可达"}
)

// IsKind 判断 err 链中是否存在指定分类的 GameError
func IsKind(err error, kind Kind) bool {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// CodeOf 返回错误码，非 GameError 返回 ErrCodeUnknown
func CodeOf(err error) int {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return protocol.ErrCodeUnknown
}
