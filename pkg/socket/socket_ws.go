package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	metav1 "github.com/yhlooo/roomchat/pkg/apis/meta/v1"
)

// IDHeader 握手时携带连接 ID 的请求头
const IDHeader = "X-Socket-Id"

// New 创建基于 WebSocket 的 Socket
//
// 创建后不会立即连接，可以先通过 On 注册处理函数再调用 Connect ，避免错过连接后立即到达的事件
func New(opts Options) Socket {
	opts.Complete()
	return &wsSocket{
		opts:     opts,
		id:       uuid.New().String(),
		handlers: map[string][]Handler{},
	}
}

// wsSocket 是基于 gorilla/websocket 的 Socket 实现
type wsSocket struct {
	opts Options
	id   string

	handlersLock sync.RWMutex
	handlers     map[string][]Handler

	lock sync.Mutex
	cur  *wsSession

	writeLock sync.Mutex
}

// wsSession 一次连接
type wsSession struct {
	conn    *websocket.Conn
	logger  logr.Logger
	closing bool
}

var _ Socket = (*wsSocket)(nil)

// ID 返回连接 ID
func (s *wsSocket) ID() string {
	return s.id
}

// Connect 建立连接
func (s *wsSocket) Connect(ctx context.Context) error {
	logger := logr.FromContextOrDiscard(ctx).WithName("socket")

	if s.Connected() {
		return ErrAlreadyConnected
	}

	header := http.Header{}
	for k, vs := range s.opts.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if s.opts.Token != "" {
		header.Set("Authorization", "Bearer "+s.opts.Token)
	}
	header.Set(IDHeader, s.id)

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: s.opts.HandshakeTimeout,
	}
	logger.V(1).Info(fmt.Sprintf("connecting to %s ...", s.opts.URL))
	conn, resp, err := dialer.DialContext(ctx, s.opts.URL, header)
	if err != nil {
		return handshakeError(resp, err)
	}

	sess := &wsSession{
		conn:   conn,
		logger: logger,
	}
	s.lock.Lock()
	if s.cur != nil {
		s.lock.Unlock()
		_ = conn.Close()
		return ErrAlreadyConnected
	}
	s.cur = sess
	s.lock.Unlock()

	logger.Info(fmt.Sprintf("socket connected with id: %s", s.id))
	s.dispatch(EventConnect, nil)

	go s.readLoop(sess)

	return nil
}

// Connected 判断是否已连接
func (s *wsSocket) Connected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cur != nil
}

// On 注册事件处理函数
func (s *wsSocket) On(event string, handler Handler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.handlers[event] = append(s.handlers[event], handler)
}

// Off 移除事件的全部处理函数
func (s *wsSocket) Off(event string) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	delete(s.handlers, event)
}

// Emit 发送事件
func (s *wsSocket) Emit(ctx context.Context, event string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.lock.Lock()
	sess := s.cur
	s.lock.Unlock()
	if sess == nil {
		return ErrNotConnected
	}

	p, err := NewPacket(event, data)
	if err != nil {
		return fmt.Errorf("encode event %q data error: %w", event, err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode event %q error: %w", event, err)
	}

	// gorilla/websocket 同一时刻只允许一个写者
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	deadline, _ := ctx.Deadline()
	_ = sess.conn.SetWriteDeadline(deadline)
	if err := sess.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write event %q error: %w", event, err)
	}
	sess.logger.V(2).Info(fmt.Sprintf("emitted event %q", event))

	return nil
}

// Disconnect 断开连接
//
// 重复调用不会报错。 EventDisconnect 事件在读循环退出后异步触发
func (s *wsSocket) Disconnect() error {
	s.lock.Lock()
	sess := s.cur
	if sess == nil {
		s.lock.Unlock()
		return nil
	}
	sess.closing = true
	s.cur = nil
	s.lock.Unlock()

	sess.logger.V(1).Info("disconnecting ...")
	_ = sess.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if err := sess.conn.Close(); err != nil {
		return fmt.Errorf("close connection error: %w", err)
	}
	return nil
}

// readLoop 读取并分发事件，直到连接关闭
func (s *wsSocket) readLoop(sess *wsSession) {
	logger := sess.logger

	var readErr error
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}

		p := Packet{}
		if err := json.Unmarshal(raw, &p); err != nil {
			logger.Error(err, fmt.Sprintf("decode packet error: %s", string(raw)))
			continue
		}
		if p.Event == "" {
			logger.V(1).Info(fmt.Sprintf("skip packet without event name: %s", string(raw)))
			continue
		}

		logger.V(2).Info(fmt.Sprintf("received event %q", p.Event))
		s.dispatch(p.Event, p.Data)
	}

	s.lock.Lock()
	reason := ReasonTransportClose
	if sess.closing {
		reason = ReasonClientDisconnect
	}
	if s.cur == sess {
		s.cur = nil
	}
	s.lock.Unlock()
	_ = sess.conn.Close()

	if reason == ReasonTransportClose {
		logger.Info(fmt.Sprintf("socket disconnected: %v", readErr))
	} else {
		logger.V(1).Info("socket disconnected")
	}

	reasonRaw, _ := json.Marshal(reason)
	s.dispatch(EventDisconnect, reasonRaw)
}

// dispatch 按注册顺序调用事件处理函数
func (s *wsSocket) dispatch(event string, data json.RawMessage) {
	s.handlersLock.RLock()
	handlers := slices.Clone(s.handlers[event])
	s.handlersLock.RUnlock()

	for _, h := range handlers {
		h(data)
	}
}

// handshakeError 将握手失败转为错误
func handshakeError(resp *http.Response, err error) error {
	if resp == nil {
		return fmt.Errorf("dial error: %w", err)
	}

	status := &metav1.Status{}
	if resp.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if len(body) > 0 {
			_ = json.Unmarshal(body, status)
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg := status.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}

	if status.Reason != "" {
		return fmt.Errorf("handshake error: %w", status)
	}
	return fmt.Errorf("handshake error: unexpected status code: %d: %w", resp.StatusCode, err)
}
