package channels

import (
	"sync"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
)

// NewLocalChannel 创建基于内存的 Channel
func NewLocalChannel(bufSize int) ChannelWithSender {
	return &localChannel{
		ch:   make(chan *chatv1.MessageEntry, bufSize),
		done: make(chan struct{}),
	}
}

// localChannel 基于内存的 Channel 实现
type localChannel struct {
	lock   sync.RWMutex
	closed bool
	ch     chan *chatv1.MessageEntry
	done   chan struct{}
}

var _ ChannelWithSender = (*localChannel)(nil)

// Send 发送条目到通道
//
// 缓冲区已满时不阻塞，返回 ErrChannelBusy
func (ch *localChannel) Send(entry *chatv1.MessageEntry) error {
	ch.lock.RLock()
	defer ch.lock.RUnlock()
	if ch.closed {
		return ErrChannelClosed
	}
	select {
	case ch.ch <- entry:
	default:
		return ErrChannelBusy
	}
	return nil
}

// Entries 获取接收条目的通道
func (ch *localChannel) Entries() <-chan *chatv1.MessageEntry {
	return ch.ch
}

// Done 获取关闭或完成通知通道
func (ch *localChannel) Done() <-chan struct{} {
	return ch.done
}

// Close 关闭通道
func (ch *localChannel) Close() error {
	ch.lock.Lock()
	defer ch.lock.Unlock()
	if ch.closed {
		return ErrChannelClosed
	}
	close(ch.ch)
	close(ch.done)
	ch.closed = true
	return nil
}
