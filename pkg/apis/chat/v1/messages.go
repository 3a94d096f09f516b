package v1

import "time"

// TimeLayout 消息展示时间格式（时:分）
const TimeLayout = "15:04"

// ChatMessage 聊天消息
type ChatMessage struct {
	// 消息 ID （发送时的 Unix 毫秒时间戳）
	ID int64 `json:"id"`
	// 所属房间名
	Room string `json:"room"`
	// 发送人名
	Author string `json:"author"`
	// 消息内容
	Message string `json:"message"`
	// 发送时间（ HH:MM ）
	Time string `json:"time"`
}

// NewChatMessage 创建聊天消息
func NewChatMessage(now time.Time, room, author, message string) *ChatMessage {
	return &ChatMessage{
		ID:      now.UnixMilli(),
		Room:    room,
		Author:  author,
		Message: message,
		Time:    now.Local().Format(TimeLayout),
	}
}

// DeepCopy 深拷贝
func (msg *ChatMessage) DeepCopy() *ChatMessage {
	if msg == nil {
		return nil
	}
	ret := *msg
	return &ret
}

// SystemMessage 系统消息
type SystemMessage struct {
	// 消息 ID （收到时的 Unix 毫秒时间戳）
	ID int64 `json:"id"`
	// 消息内容
	Message string `json:"message"`
}

// EntryType 消息列表条目类型
type EntryType string

const (
	// EntryTypeChat 聊天消息
	EntryTypeChat EntryType = "chat"
	// EntryTypeSystem 系统消息
	EntryTypeSystem EntryType = "system"
)

// MessageEntry 消息列表条目
//
// NOTE: 根据 Type 不同，仅 Chat 或 System 之一有值
type MessageEntry struct {
	Type EntryType `json:"type"`

	// 聊天消息
	Chat *ChatMessage `json:"chat,omitempty"`
	// 系统消息
	System *SystemMessage `json:"system,omitempty"`
}

// NewChatEntry 创建聊天消息条目
func NewChatEntry(msg *ChatMessage) *MessageEntry {
	return &MessageEntry{Type: EntryTypeChat, Chat: msg}
}

// NewSystemEntry 创建系统消息条目
func NewSystemEntry(msg *SystemMessage) *MessageEntry {
	return &MessageEntry{Type: EntryTypeSystem, System: msg}
}

// ID 返回条目 ID
func (e *MessageEntry) ID() int64 {
	switch {
	case e.Chat != nil:
		return e.Chat.ID
	case e.System != nil:
		return e.System.ID
	}
	return 0
}
