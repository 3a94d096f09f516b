package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
	"github.com/yhlooo/roomchat/pkg/chats/channels"
	"github.com/yhlooo/roomchat/pkg/deduplicators"
	"github.com/yhlooo/roomchat/pkg/socket"
)

// Options 房间会话选项
type Options struct {
	// 时钟
	Now func() time.Time
	// 每个监听通道的缓冲大小
	ListenBufferSize int
	// 去重器每代容纳的消息数
	DedupSize uint
}

// Complete 补全选项
func (o *Options) Complete() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ListenBufferSize <= 0 {
		o.ListenBufferSize = 256
	}
	if o.DedupSize == 0 {
		o.DedupSize = 4096
	}
}

// NewSocketRoom 创建基于 Socket 的房间会话
//
// 创建时即订阅入站事件，应在 sock.Connect 之前调用
func NewSocketRoom(ctx context.Context, sock socket.Socket, self *chatv1.User, opts Options) Room {
	opts.Complete()
	r := &socketRoom{
		logger:    logr.FromContextOrDiscard(ctx).WithName("room"),
		sock:      sock,
		self:      *self.DeepCopy(),
		opts:      opts,
		dedup:     deduplicators.NewBloomFilter(opts.DedupSize, 0.0001),
		listeners: map[channels.ChannelWithSender]struct{}{},
	}

	sock.On(chatv1.EventReceiveMessage, r.handleReceiveMessage)
	sock.On(chatv1.EventStatus, r.handleStatus)
	sock.On(chatv1.EventUserStatus, r.handleUserStatus)
	sock.On(socket.EventDisconnect, r.handleDisconnect)

	return r
}

// socketRoom 是基于 socket.Socket 的 Room 实现
type socketRoom struct {
	logger logr.Logger
	sock   socket.Socket
	self   chatv1.User
	opts   Options
	dedup  deduplicators.Deduplicator

	lock      sync.RWMutex
	name      string
	joined    bool
	closed    bool
	err       error
	entries   []*chatv1.MessageEntry
	listeners map[channels.ChannelWithSender]struct{}
}

var _ Room = (*socketRoom)(nil)

// Info 获取房间信息
func (r *socketRoom) Info(_ context.Context) (*RoomInfo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return &RoomInfo{
		Name:     r.name,
		Joined:   r.joined,
		Self:     *r.self.DeepCopy(),
		SocketID: r.sock.ID(),
	}, nil
}

// Join 加入房间
//
// 已加入房间后切换到另一个房间时清空消息列表
func (r *socketRoom) Join(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyRoomName
	}
	if err := r.checkAlive(); err != nil {
		return err
	}

	// 须在发出加入事件前切换本地状态
	r.lock.Lock()
	prevName, prevJoined, prevEntries := r.name, r.joined, r.entries
	cleared := r.joined && r.name != name
	if cleared {
		r.entries = nil
	}
	r.name = name
	r.joined = true
	r.lock.Unlock()

	if err := r.sock.Emit(ctx, chatv1.EventJoinRoom, name); err != nil {
		r.lock.Lock()
		r.name, r.joined = prevName, prevJoined
		if cleared {
			r.entries = append(prevEntries, r.entries...)
		}
		r.lock.Unlock()
		return fmt.Errorf("emit %s error: %w", chatv1.EventJoinRoom, err)
	}
	r.logger.Info(fmt.Sprintf("joined room %q", name))

	return nil
}

// CreateMessage 创建（发送）消息
//
// 消息发出后即追加到本地消息列表，服务端回显的同一消息会被丢弃
func (r *socketRoom) CreateMessage(ctx context.Context, text string) (*chatv1.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if err := r.checkAlive(); err != nil {
		return nil, err
	}

	r.lock.RLock()
	name, joined := r.name, r.joined
	r.lock.RUnlock()
	if !joined {
		return nil, ErrNotJoined
	}

	msg := chatv1.NewChatMessage(r.opts.Now(), name, r.self.Name, text)
	// 回显可能在 Emit 返回前到达，须先记录
	r.dedup.Duplicate(messageKey(msg))
	if err := r.sock.Emit(ctx, chatv1.EventSendMessage, msg); err != nil {
		return nil, fmt.Errorf("emit %s error: %w", chatv1.EventSendMessage, err)
	}
	r.appendEntry(chatv1.NewChatEntry(msg.DeepCopy()))

	return msg, nil
}

// Entries 获取当前消息列表
func (r *socketRoom) Entries() []*chatv1.MessageEntry {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ret := make([]*chatv1.MessageEntry, len(r.entries))
	copy(ret, r.entries)
	return ret
}

// Listen 获取当前消息列表，并监听之后的新条目
//
// 返回的列表与通道之间不会遗漏或重复条目。会话已结束时仍返回消息列表，通道为 nil
func (r *socketRoom) Listen(_ context.Context) ([]*chatv1.MessageEntry, channels.Channel, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries := make([]*chatv1.MessageEntry, len(r.entries))
	copy(entries, r.entries)

	if r.err != nil {
		return entries, nil, r.err
	}

	ch := channels.NewLocalChannel(r.opts.ListenBufferSize)
	r.listeners[ch] = struct{}{}
	return entries, ch, nil
}

// Err 返回会话结束的原因
func (r *socketRoom) Err() error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.err
}

// Close 关闭
func (r *socketRoom) Close(_ context.Context) error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil
	}
	r.closed = true
	r.lock.Unlock()

	r.sock.Off(chatv1.EventReceiveMessage)
	r.sock.Off(chatv1.EventStatus)
	r.sock.Off(chatv1.EventUserStatus)
	r.sock.Off(socket.EventDisconnect)

	r.terminate(ErrRoomClosed)

	return r.sock.Disconnect()
}

// handleReceiveMessage 处理收到的聊天消息
func (r *socketRoom) handleReceiveMessage(data json.RawMessage) {
	msg := &chatv1.ChatMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		r.logger.Error(err, fmt.Sprintf("decode %s data error: %s", chatv1.EventReceiveMessage, string(data)))
		return
	}
	if r.dedup.Duplicate(messageKey(msg)) {
		r.logger.V(1).Info(fmt.Sprintf("skip duplicate message %d from %q", msg.ID, msg.Author))
		return
	}
	r.logger.V(1).Info(fmt.Sprintf("message received: %d from %q", msg.ID, msg.Author))
	r.appendEntry(chatv1.NewChatEntry(msg))
}

// handleUserStatus 处理用户状态系统通知
func (r *socketRoom) handleUserStatus(data json.RawMessage) {
	e := &chatv1.UserStatusEvent{}
	if err := json.Unmarshal(data, e); err != nil {
		r.logger.Error(err, fmt.Sprintf("decode %s data error: %s", chatv1.EventUserStatus, string(data)))
		return
	}
	r.logger.V(1).Info(fmt.Sprintf("system message received: %s", e.Message))
	r.appendEntry(chatv1.NewSystemEntry(&chatv1.SystemMessage{
		ID:      r.opts.Now().UnixMilli(),
		Message: e.Message,
	}))
}

// handleStatus 处理会话状态
func (r *socketRoom) handleStatus(data json.RawMessage) {
	e := &chatv1.StatusEvent{}
	if err := json.Unmarshal(data, e); err != nil {
		r.logger.Error(err, fmt.Sprintf("decode %s data error: %s", chatv1.EventStatus, string(data)))
		return
	}
	r.logger.V(1).Info(fmt.Sprintf("status received: %s", e.Status))

	if e.Status != chatv1.SessionStatusUnauthorized {
		return
	}
	r.logger.Info("session unauthorized or expired")
	r.terminate(ErrUnauthorized)
	if err := r.sock.Disconnect(); err != nil {
		r.logger.Error(err, "disconnect error")
	}
}

// handleDisconnect 处理连接断开
func (r *socketRoom) handleDisconnect(data json.RawMessage) {
	var reason string
	_ = json.Unmarshal(data, &reason)
	r.terminate(fmt.Errorf("%w: %s", ErrConnectionClosed, reason))
}

// appendEntry 追加条目到消息列表并通知监听者
func (r *socketRoom) appendEntry(entry *chatv1.MessageEntry) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return
	}

	r.entries = append(r.entries, entry)
	for ch := range r.listeners {
		err := ch.Send(entry)
		switch {
		case err == nil:
		case errors.Is(err, channels.ErrChannelClosed):
			delete(r.listeners, ch)
		default:
			r.logger.Error(err, fmt.Sprintf("notify entry %d error", entry.ID()))
		}
	}
}

// terminate 结束会话并关闭所有监听通道
//
// 仅第一次调用的原因会被记录
func (r *socketRoom) terminate(reason error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return
	}
	r.err = reason

	for ch := range r.listeners {
		_ = ch.Close()
		delete(r.listeners, ch)
	}
}

// checkAlive 检查会话是否仍可用
func (r *socketRoom) checkAlive() error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.err != nil {
		return r.err
	}
	return nil
}

// messageKey 返回消息用于去重的键
func messageKey(msg *chatv1.ChatMessage) []byte {
	return []byte(msg.Author + "/" + strconv.FormatInt(msg.ID, 10))
}
