package managers

import (
	"context"

	"github.com/yhlooo/roomchat/pkg/chats/rooms"
)

// Manager 聊天管理器
type Manager interface {
	// Connect 建立连接并返回绑定到该连接的房间会话
	Connect(ctx context.Context) (rooms.Room, error)
}
