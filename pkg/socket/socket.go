package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// 本地触发的生命周期事件
const (
	// EventConnect 连接建立
	EventConnect = "connect"
	// EventDisconnect 连接断开，数据为断开原因字符串
	EventDisconnect = "disconnect"
)

// 断开原因
const (
	// ReasonClientDisconnect 客户端主动断开
	ReasonClientDisconnect = "client disconnect"
	// ReasonTransportClose 连接被对端或网络关闭
	ReasonTransportClose = "transport close"
)

var (
	// ErrUnauthorized 连接凭证未授权或已过期
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrNotConnected 未连接
	ErrNotConnected = errors.New("NotConnected")
	// ErrAlreadyConnected 已连接
	ErrAlreadyConnected = errors.New("AlreadyConnected")
)

// Handler 事件处理函数
type Handler func(data json.RawMessage)

// Socket 基于命名事件的双向连接
type Socket interface {
	// ID 返回连接 ID
	ID() string
	// Connect 建立连接
	Connect(ctx context.Context) error
	// Connected 判断是否已连接
	Connected() bool
	// On 注册事件处理函数
	On(event string, handler Handler)
	// Off 移除事件的全部处理函数
	Off(event string)
	// Emit 发送事件
	Emit(ctx context.Context, event string, data interface{}) error
	// Disconnect 断开连接
	Disconnect() error
}

// Packet 线上传输的事件帧
type Packet struct {
	// 事件名
	Event string `json:"event"`
	// 事件数据
	Data json.RawMessage `json:"data,omitempty"`
}

// NewPacket 创建事件帧
func NewPacket(event string, data interface{}) (*Packet, error) {
	p := &Packet{Event: event}
	if data == nil {
		return p, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	p.Data = raw
	return p, nil
}

// Options 连接选项
type Options struct {
	// 服务端地址，如 ws://localhost:3001/socket
	URL string
	// Bearer 凭证
	Token string
	// 握手超时时间
	HandshakeTimeout time.Duration
	// 额外的握手请求头
	Header http.Header
}

// Complete 补全选项
func (o *Options) Complete() {
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
}
