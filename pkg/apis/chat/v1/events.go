package v1

// 出站事件
const (
	// EventJoinRoom 加入房间，数据为房间名字符串
	EventJoinRoom = "join_room"
	// EventSendMessage 发送消息，数据为 ChatMessage
	EventSendMessage = "send_message"
)

// 入站事件
const (
	// EventReceiveMessage 收到消息，数据为 ChatMessage
	EventReceiveMessage = "receive_message"
	// EventStatus 会话状态，数据为 StatusEvent
	EventStatus = "status"
	// EventUserStatus 用户状态系统通知，数据为 UserStatusEvent
	EventUserStatus = "user_status"
)

// SessionStatusUnauthorized 会话未授权或已过期
const SessionStatusUnauthorized = "unauthorized"

// StatusEvent 会话状态事件数据
type StatusEvent struct {
	Status string `json:"status"`
}

// UserStatusEvent 用户状态事件数据
type UserStatusEvent struct {
	Message string `json:"message"`
}
