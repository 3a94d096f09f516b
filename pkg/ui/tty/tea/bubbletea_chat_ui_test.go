package tea

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
	metav1 "github.com/yhlooo/roomchat/pkg/apis/meta/v1"
	"github.com/yhlooo/roomchat/pkg/chats/channels"
	"github.com/yhlooo/roomchat/pkg/chats/rooms"
)

// fakeRoom 用于测试的 Room
type fakeRoom struct {
	joined  []string
	sent    []string
	joinErr error
	closed  bool

	entries   []*chatv1.MessageEntry
	listenErr error
}

var _ rooms.Room = (*fakeRoom)(nil)

func (r *fakeRoom) Info(_ context.Context) (*rooms.RoomInfo, error) {
	return &rooms.RoomInfo{}, nil
}

func (r *fakeRoom) Join(_ context.Context, name string) error {
	if r.joinErr != nil {
		return r.joinErr
	}
	r.joined = append(r.joined, name)
	return nil
}

func (r *fakeRoom) CreateMessage(_ context.Context, text string) (*chatv1.ChatMessage, error) {
	r.sent = append(r.sent, text)
	return &chatv1.ChatMessage{Message: text}, nil
}

func (r *fakeRoom) Entries() []*chatv1.MessageEntry { return r.entries }

func (r *fakeRoom) Listen(_ context.Context) ([]*chatv1.MessageEntry, channels.Channel, error) {
	if r.listenErr != nil {
		return r.entries, nil, r.listenErr
	}
	return r.entries, channels.NewLocalChannel(1), nil
}

func (r *fakeRoom) Err() error { return r.listenErr }

func (r *fakeRoom) Close(_ context.Context) error {
	r.closed = true
	return nil
}

func newTestUI(room rooms.Room) *ChatUI {
	ui := NewChatUI(room, &chatv1.User{Name: "ana"}, "sala1")
	ui.setup(context.Background())
	ui.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return ui
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

// TestChatUI_Join 测试加入房间
func TestChatUI_Join(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{}
	ui := newTestUI(room)
	a.Contains(ui.View(), "Welcome to the chat, ana")
	a.Equal("sala1", ui.roomInput.Value())

	ui.roomInput.SetValue("  ")
	ui.Update(enter)
	a.Empty(room.joined)
	a.Equal(screenJoin, ui.screen)

	ui.roomInput.SetValue("sala2")
	ui.Update(enter)
	a.Equal([]string{"sala2"}, room.joined)
	a.Equal(screenChat, ui.screen)
	a.Contains(ui.View(), "Room: sala2")
}

// TestChatUI_JoinError 测试加入房间失败
func TestChatUI_JoinError(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{joinErr: fmt.Errorf("boom")}
	ui := newTestUI(room)
	ui.Update(enter)
	a.Equal(screenJoin, ui.screen)
	a.Contains(ui.View(), "boom")
}

// TestChatUI_SendMessage 测试发送消息
func TestChatUI_SendMessage(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{}
	ui := newTestUI(room)
	ui.Update(enter)

	ui.Update(enter)
	a.Empty(room.sent)

	ui.input.SetValue("hola")
	ui.Update(enter)
	a.Equal([]string{"hola"}, room.sent)
	a.Equal("", ui.input.Value())
}

// TestChatUI_Entries 测试消息按到达顺序展示并滚动到底部
func TestChatUI_Entries(t *testing.T) {
	a := assert.New(t)

	ui := newTestUI(&fakeRoom{})
	ui.Update(enter)

	ui.Update(entryMsg{entry: chatv1.NewSystemEntry(&chatv1.SystemMessage{ID: 1, Message: "luis joined"})})
	for i := 0; i < 30; i++ {
		author := "luis"
		if i%2 == 0 {
			author = "ana"
		}
		ui.Update(entryMsg{entry: chatv1.NewChatEntry(&chatv1.ChatMessage{
			ID:      int64(i + 2),
			Author:  author,
			Message: fmt.Sprintf("message-%02d", i),
			Time:    "09:07",
		})})
	}

	a.Len(ui.entries, 31)
	content := ui.messagesContent()
	a.Contains(content, "luis joined")
	a.Less(strings.Index(content, "luis joined"), strings.Index(content, "message-00"))
	a.Less(strings.Index(content, "message-00"), strings.Index(content, "message-29"))
	a.True(ui.vp.AtBottom())
	a.Contains(ui.View(), "message-29")
}

// TestChatUI_Unauthorized 测试会话未授权时提示并退出
func TestChatUI_Unauthorized(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{}
	ui := newTestUI(room)
	ui.Update(enter)

	ui.Update(roomClosedMsg{err: rooms.ErrUnauthorized})
	a.Equal(screenAlert, ui.screen)
	a.Contains(ui.View(), "Session not authorized or expired")

	_, cmd := ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	a.True(isQuit(cmd))
	a.ErrorIs(ui.exitErr, rooms.ErrUnauthorized)
	a.True(room.closed)
}

// TestChatUI_Disconnected 测试连接断开
func TestChatUI_Disconnected(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{}
	ui := newTestUI(room)
	ui.Update(enter)

	ui.Update(roomClosedMsg{err: rooms.ErrConnectionClosed})
	a.Equal(screenChat, ui.screen)
	a.True(ui.disconnected)
	a.Contains(ui.messagesContent(), disconnectedNote)

	ui.input.SetValue("hola")
	ui.Update(enter)
	a.Empty(room.sent)
}

// TestChatUI_Quit 测试退出
func TestChatUI_Quit(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{}
	ui := newTestUI(room)

	_, cmd := ui.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	a.True(isQuit(cmd))
	a.True(room.closed)
	a.NoError(ui.exitErr)
}

// TestChatUI_ShowSessionID 测试展示会话 ID
func TestChatUI_ShowSessionID(t *testing.T) {
	a := assert.New(t)

	self := &chatv1.User{UID: metav1.NewUID(), Name: "ana"}
	ui := NewChatUI(&fakeRoom{}, self, "sala1")
	ui.setup(context.Background())
	a.Contains(ui.View(), "session "+self.UID.Short())

	a.NotContains(newTestUI(&fakeRoom{}).View(), "session ")
}

// TestChatUI_ListenExistingEntries 测试载入启动前已到达的条目
func TestChatUI_ListenExistingEntries(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{entries: []*chatv1.MessageEntry{
		chatv1.NewSystemEntry(&chatv1.SystemMessage{ID: 1, Message: "welcome ana"}),
	}}
	ui := newTestUI(room)
	ch, err := ui.listen()
	a.NoError(err)
	if a.NotNil(ch) {
		_ = ch.Close()
	}
	a.Len(ui.entries, 1)

	ui.Update(enter)
	a.Contains(ui.messagesContent(), "welcome ana")
}

// TestChatUI_UnauthorizedBeforeStart 测试启动前会话已未授权时直接提示
func TestChatUI_UnauthorizedBeforeStart(t *testing.T) {
	a := assert.New(t)

	room := &fakeRoom{listenErr: rooms.ErrUnauthorized}
	ui := newTestUI(room)
	ch, err := ui.listen()
	a.NoError(err)
	a.Nil(ch)
	a.Equal(screenAlert, ui.screen)
	a.Contains(ui.View(), "Session not authorized or expired")

	_, cmd := ui.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	a.True(isQuit(cmd))
	a.ErrorIs(ui.exitErr, rooms.ErrUnauthorized)
}

// TestChatUI_ListenClosedRoom 测试房间已关闭时返回错误
func TestChatUI_ListenClosedRoom(t *testing.T) {
	a := assert.New(t)

	ui := newTestUI(&fakeRoom{listenErr: rooms.ErrRoomClosed})
	_, err := ui.listen()
	a.ErrorIs(err, rooms.ErrRoomClosed)
}
