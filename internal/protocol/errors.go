package protocol

// 错误码
const (
	ErrCodeUnknown         = 1000
	ErrCodeInvalidMsg      = 1001
	ErrCodeRateLimit       = 1002 // 速率限制
	ErrCodeMaintenance     = 1003 // 服务器维护
	ErrCodeRoomNotFound    = 2001
	ErrCodePlayerNotFound  = 2002
	ErrCodeAlreadyInRoom   = 2003
	ErrCodeRoomNotRunning  = 2004
	ErrCodeNotDisconnected = 2005
	ErrCodeBadToken        = 2006
	ErrCodeTargetNotFound  = 3001
	ErrCodeWordMismatch    = 3002
	ErrCodeHitTooFast      = 3003
	ErrCodeNotReachable    = 4001
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:         "未知错误",
	ErrCodeInvalidMsg:      "无效的消息格式",
	ErrCodeRateLimit:       "请求过于频繁",
	ErrCodeMaintenance:     "服务器维护中",
	ErrCodeRoomNotFound:    "房间不存在",
	ErrCodePlayerNotFound:  "玩家不在房间中",
	ErrCodeAlreadyInRoom:   "您已在对局中",
	ErrCodeRoomNotRunning:  "对局未在进行",
	ErrCodeNotDisconnected: "玩家未断线",
	ErrCodeBadToken:        "重连令牌无效",
	ErrCodeTargetNotFound:  "目标不存在",
	ErrCodeWordMismatch:    "单词不匹配",
	ErrCodeHitTooFast:      "输入过快",
	ErrCodeNotReachable:    "连接不可达",
}
