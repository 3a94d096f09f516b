package channels

import (
	"errors"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
)

// Channel 接收消息列表条目的通道
type Channel interface {
	// Entries 获取接收条目的通道
	Entries() <-chan *chatv1.MessageEntry
	// Done 获取关闭或完成通知通道
	Done() <-chan struct{}
	// Close 关闭通道
	Close() error
}

// ChannelWithSender 带发送端的条目通道
type ChannelWithSender interface {
	Channel

	// Send 发送条目到通道
	Send(entry *chatv1.MessageEntry) error
}

var (
	// ErrChannelClosed 通道已关闭
	ErrChannelClosed = errors.New("ChannelClosed")
	// ErrChannelBusy 通道忙
	ErrChannelBusy = errors.New("ChannelBusy")
)
