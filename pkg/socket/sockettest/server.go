// Package sockettest 提供测试用的进程内事件服务
package sockettest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	metav1 "github.com/yhlooo/roomchat/pkg/apis/meta/v1"
	"github.com/yhlooo/roomchat/pkg/socket"
)

// Path 事件服务路径
const Path = "/socket"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ReceivedPacket 服务端收到的事件
type ReceivedPacket struct {
	socket.Packet
	// 发送方连接 ID
	SocketID string
}

// Server 测试用事件服务
type Server struct {
	token string
	srv   *httptest.Server

	lock  sync.Mutex
	conns map[*serverConn]struct{}

	received  chan ReceivedPacket
	connected chan string
}

// serverConn 服务端的一个连接
type serverConn struct {
	id        string
	conn      *websocket.Conn
	writeLock sync.Mutex
}

// NewServer 创建并启动测试用事件服务
//
// token 非空时要求握手请求携带 Authorization: Bearer <token>
func NewServer(token string) *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		token:     token,
		conns:     map[*serverConn]struct{}{},
		received:  make(chan ReceivedPacket, 128),
		connected: make(chan string, 16),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(Path, s.handleSocket)
	s.srv = httptest.NewServer(r)

	return s
}

// URL 返回 WebSocket 地址
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + Path
}

// Received 返回收到的事件
func (s *Server) Received() <-chan ReceivedPacket {
	return s.received
}

// Connected 返回新建立连接的 ID
func (s *Server) Connected() <-chan string {
	return s.connected
}

// WaitPacket 等待下一个收到的事件
func (s *Server) WaitPacket(timeout time.Duration) (ReceivedPacket, error) {
	select {
	case p := <-s.received:
		return p, nil
	case <-time.After(timeout):
		return ReceivedPacket{}, fmt.Errorf("no packet received in %s", timeout)
	}
}

// WaitConnected 等待下一个连接建立
func (s *Server) WaitConnected(timeout time.Duration) (string, error) {
	select {
	case id := <-s.connected:
		return id, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no connection in %s", timeout)
	}
}

// Emit 向所有连接发送事件
func (s *Server) Emit(event string, data interface{}) error {
	p, err := socket.NewPacket(event, data)
	if err != nil {
		return fmt.Errorf("encode event %q data error: %w", event, err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode event %q error: %w", event, err)
	}
	return s.EmitRaw(raw)
}

// EmitRaw 向所有连接发送原始文本帧
func (s *Server) EmitRaw(raw []byte) error {
	s.lock.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.lock.Unlock()

	for _, c := range conns {
		c.writeLock.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, raw)
		c.writeLock.Unlock()
		if err != nil {
			return fmt.Errorf("write to %q error: %w", c.id, err)
		}
	}
	return nil
}

// DropConnections 由服务端关闭所有连接
func (s *Server) DropConnections() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.conns {
		_ = c.conn.Close()
		delete(s.conns, c)
	}
}

// Close 关闭服务
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

// handleSocket 处理 WebSocket 连接
func (s *Server) handleSocket(ctx *gin.Context) {
	if s.token != "" && ctx.GetHeader("Authorization") != "Bearer "+s.token {
		ctx.JSON(http.StatusUnauthorized, &metav1.Status{
			Code:    http.StatusUnauthorized,
			Reason:  metav1.StatusReasonUnauthorized,
			Message: "invalid or expired token",
		})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}

	c := &serverConn{
		id:   ctx.GetHeader(socket.IDHeader),
		conn: conn,
	}
	s.lock.Lock()
	s.conns[c] = struct{}{}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.conns, c)
		s.lock.Unlock()
		_ = conn.Close()
	}()

	select {
	case s.connected <- c.id:
	default:
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		p := socket.Packet{}
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		s.received <- ReceivedPacket{Packet: p, SocketID: c.id}
	}
}
