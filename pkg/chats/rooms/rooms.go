package rooms

import (
	"context"
	"errors"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
	"github.com/yhlooo/roomchat/pkg/chats/channels"
	"github.com/yhlooo/roomchat/pkg/socket"
)

// Room 聊天房间会话
type Room interface {
	// Info 获取房间信息
	Info(ctx context.Context) (*RoomInfo, error)
	// Join 加入房间
	Join(ctx context.Context, name string) error

	// CreateMessage 创建（发送）消息
	CreateMessage(ctx context.Context, text string) (*chatv1.ChatMessage, error)
	// Entries 获取当前消息列表，按到达顺序排列
	Entries() []*chatv1.MessageEntry
	// Listen 获取当前消息列表和监听之后新条目的通道
	Listen(ctx context.Context) ([]*chatv1.MessageEntry, channels.Channel, error)

	// Err 返回会话结束的原因，会话未结束时返回 nil
	Err() error
	// Close 关闭
	Close(ctx context.Context) error
}

// RoomInfo 房间信息
type RoomInfo struct {
	// 房间名
	Name string
	// 是否已加入
	Joined bool
	// 当前用户
	Self chatv1.User
	// 连接 ID
	SocketID string
}

var (
	// ErrEmptyRoomName 房间名为空
	ErrEmptyRoomName = errors.New("EmptyRoomName")
	// ErrEmptyMessage 消息内容为空
	ErrEmptyMessage = errors.New("EmptyMessage")
	// ErrNotJoined 尚未加入房间
	ErrNotJoined = errors.New("NotJoined")
	// ErrConnectionClosed 连接已断开
	ErrConnectionClosed = errors.New("ConnectionClosed")
	// ErrRoomClosed 房间会话已关闭
	ErrRoomClosed = errors.New("RoomClosed")
	// ErrUnauthorized 会话未授权或已过期
	ErrUnauthorized = socket.ErrUnauthorized
)
