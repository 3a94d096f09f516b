package managers

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-logr/logr"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
	"github.com/yhlooo/roomchat/pkg/chats/rooms"
	"github.com/yhlooo/roomchat/pkg/socket"
)

// Options 运行选项
type Options struct {
	// 事件服务地址
	ServerURL string
	// Bearer 凭证
	Token string
	// 当前用户
	User chatv1.User
	// 房间会话选项
	RoomOptions rooms.Options
}

// Validate 校验选项
func (o *Options) Validate() error {
	if o.ServerURL == "" {
		return errors.New(".ServerURL is required")
	}
	u, err := url.Parse(o.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid .ServerURL %q: %w", o.ServerURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("invalid .ServerURL %q: scheme must be ws or wss", o.ServerURL)
	}
	if o.Token == "" {
		return errors.New(".Token is required")
	}
	if o.User.Name == "" {
		return errors.New(".User.Name is required")
	}
	return nil
}

// NewManager 创建聊天管理器
func NewManager(opts Options) (Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &defaultManager{opts: opts}, nil
}

// defaultManager 是 Manager 的默认实现
type defaultManager struct {
	opts Options
}

var _ Manager = (*defaultManager)(nil)

// Connect 建立连接并返回绑定到该连接的房间会话
func (mgr *defaultManager) Connect(ctx context.Context) (rooms.Room, error) {
	logger := logr.FromContextOrDiscard(ctx)
	logger.V(1).Info(fmt.Sprintf("connecting as %q", mgr.opts.User.Name))

	sock := socket.New(socket.Options{
		URL:   mgr.opts.ServerURL,
		Token: mgr.opts.Token,
	})
	// 先订阅事件再连接
	room := rooms.NewSocketRoom(ctx, sock, &mgr.opts.User, mgr.opts.RoomOptions)
	if err := sock.Connect(ctx); err != nil {
		_ = room.Close(ctx)
		return nil, fmt.Errorf("connect to %q error: %w", mgr.opts.ServerURL, err)
	}

	return room, nil
}
