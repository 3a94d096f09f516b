package tea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
	"github.com/yhlooo/roomchat/pkg/chats/channels"
	"github.com/yhlooo/roomchat/pkg/chats/rooms"
)

// screen 当前界面
type screen int

const (
	// screenJoin 选择房间
	screenJoin screen = iota
	// screenChat 聊天
	screenChat
	// screenAlert 会话失效提示
	screenAlert
)

const (
	unauthorizedAlert = "Session not authorized or expired. You will be redirected to login."
	disconnectedNote  = "Disconnected from server."
)

// entryMsg 收到新的消息列表条目
type entryMsg struct {
	entry *chatv1.MessageEntry
}

// roomClosedMsg 房间会话结束
type roomClosedMsg struct {
	err error
}

// NewChatUI 创建聊天 UI
func NewChatUI(room rooms.Room, self *chatv1.User, defaultRoom string) *ChatUI {
	return &ChatUI{
		self:        self.DeepCopy(),
		room:        room,
		defaultRoom: defaultRoom,
	}
}

// ChatUI 聊天 UI
type ChatUI struct {
	ctx context.Context

	self        *chatv1.User
	room        rooms.Room
	defaultRoom string

	screen       screen
	roomName     string
	entries      []*chatv1.MessageEntry
	notice       string
	disconnected bool
	closedErr    error
	exitErr      error
	width        int

	roomInput textinput.Model
	vp        viewport.Model
	input     textarea.Model
}

var _ tea.Model = (*ChatUI)(nil)

// Init 初始操作
func (ui *ChatUI) Init() tea.Cmd {
	return textinput.Blink
}

// Run 开始运行
//
// 因会话未授权退出时返回 rooms.ErrUnauthorized
func (ui *ChatUI) Run(ctx context.Context) error {
	ui.setup(ctx)

	ch, err := ui.listen()
	if err != nil {
		return err
	}

	p := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(ctx))

	if ch != nil {
		defer func() { _ = ch.Close() }()
		go func() {
			for entry := range ch.Entries() {
				p.Send(entryMsg{entry: entry})
			}
			p.Send(roomClosedMsg{err: ui.room.Err()})
		}()
	}

	if _, err := p.Run(); err != nil {
		return err
	}
	return ui.exitErr
}

// listen 载入已有条目并监听新条目
//
// 会话在 UI 启动前已结束时不返回通道，界面直接进入对应状态
func (ui *ChatUI) listen() (channels.Channel, error) {
	entries, ch, err := ui.room.Listen(ui.ctx)
	ui.entries = append(ui.entries, entries...)
	ui.refreshMessages()
	if err != nil {
		if errors.Is(err, rooms.ErrRoomClosed) {
			return nil, fmt.Errorf("listen entries in room error: %w", err)
		}
		ui.onRoomClosed(err)
		return nil, nil
	}
	return ch, nil
}

// Update 更新状态
func (ui *ChatUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	logger := logr.FromContextOrDiscard(ui.ctx)

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		ui.resize(typed.Width, typed.Height)
		return ui, nil

	case tea.KeyMsg:
		logger.V(2).Info(fmt.Sprintf("key message: %s", typed.String()))
		switch typed.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return ui, ui.quit()
		default:
		}

		switch ui.screen {
		case screenAlert:
			// 任意键退出
			return ui, ui.quit()
		case screenJoin:
			if typed.Type == tea.KeyEnter {
				return ui, ui.joinRoom()
			}
		case screenChat:
			if typed.Type == tea.KeyEnter {
				ui.sendMessage()
				return ui, nil
			}
		}

	case entryMsg:
		ui.entries = append(ui.entries, typed.entry)
		ui.refreshMessages()
		return ui, nil

	case roomClosedMsg:
		ui.onRoomClosed(typed.err)
		return ui, nil

	case error:
		logger.Error(typed, "error")
		return ui, nil
	}

	var cmd tea.Cmd
	switch ui.screen {
	case screenJoin:
		ui.roomInput, cmd = ui.roomInput.Update(msg)
	case screenChat:
		var inputCmd, vpCmd tea.Cmd
		if !ui.disconnected {
			ui.input, inputCmd = ui.input.Update(msg)
		}
		ui.vp, vpCmd = ui.vp.Update(msg)
		cmd = tea.Batch(inputCmd, vpCmd)
	default:
	}
	return ui, cmd
}

// View 生成显示内容
func (ui *ChatUI) View() string {
	switch ui.screen {
	case screenAlert:
		return ui.alertView()
	case screenChat:
		return ui.chatView()
	default:
		return ui.joinView()
	}
}

// setup 初始化各组件
func (ui *ChatUI) setup(ctx context.Context) {
	ui.ctx = ctx
	ui.width = 30

	ui.roomInput = textinput.New()
	ui.roomInput.Placeholder = "Room name..."
	ui.roomInput.CharLimit = 128
	ui.roomInput.SetValue(ui.defaultRoom)
	ui.roomInput.Focus()

	ui.input = textarea.New()
	ui.input.Placeholder = "Message..."
	ui.input.Prompt = "┃ "
	ui.input.CharLimit = 1024
	ui.input.SetWidth(30)
	ui.input.SetHeight(3)
	ui.input.FocusedStyle.CursorLine = lipgloss.NewStyle() // Remove cursor line styling
	ui.input.ShowLineNumbers = false
	ui.input.KeyMap.InsertNewline.SetEnabled(false)

	ui.vp = viewport.New(30, 5)
	// 仅保留不会和输入冲突的滚动按键
	ui.vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}
}

// resize 根据窗口大小调整布局
func (ui *ChatUI) resize(width, height int) {
	ui.width = width
	ui.roomInput.Width = width - 4
	ui.input.SetWidth(width)
	ui.vp.Width = width
	ui.vp.Height = height - ui.input.Height() - 2
	if ui.vp.Height < 1 {
		ui.vp.Height = 1
	}
	ui.refreshMessages()
}

// joinRoom 加入输入的房间
func (ui *ChatUI) joinRoom() tea.Cmd {
	logger := logr.FromContextOrDiscard(ui.ctx)

	name := strings.TrimSpace(ui.roomInput.Value())
	if name == "" {
		return nil
	}
	if err := ui.room.Join(ui.ctx, name); err != nil {
		logger.Error(err, fmt.Sprintf("join room %q error", name))
		ui.notice = fmt.Sprintf("Join room error: %v", err)
		return nil
	}

	ui.notice = ""
	ui.roomName = name
	ui.screen = screenChat
	ui.roomInput.Blur()
	ui.refreshMessages()
	return ui.input.Focus()
}

// sendMessage 发送输入框中的消息
func (ui *ChatUI) sendMessage() {
	logger := logr.FromContextOrDiscard(ui.ctx)

	if ui.disconnected {
		return
	}
	text := ui.input.Value()
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, err := ui.room.CreateMessage(ui.ctx, text); err != nil {
		logger.Error(err, "send message to room error")
		ui.notice = fmt.Sprintf("Send message error: %v", err)
		return
	}
	ui.notice = ""
	ui.input.Reset()
	ui.vp.GotoBottom()
}

// onRoomClosed 处理会话结束
func (ui *ChatUI) onRoomClosed(err error) {
	ui.closedErr = err
	switch {
	case err == nil, errors.Is(err, rooms.ErrRoomClosed):
	case errors.Is(err, rooms.ErrUnauthorized):
		ui.screen = screenAlert
	default:
		ui.disconnected = true
		ui.input.Blur()
		ui.entries = append(ui.entries, chatv1.NewSystemEntry(&chatv1.SystemMessage{Message: disconnectedNote}))
		ui.refreshMessages()
	}
}

// quit 关闭会话并退出
func (ui *ChatUI) quit() tea.Cmd {
	logger := logr.FromContextOrDiscard(ui.ctx)

	if ui.screen == screenAlert {
		ui.exitErr = ui.closedErr
	}
	if err := ui.room.Close(ui.ctx); err != nil {
		logger.Error(err, "close room error")
	}
	return tea.Quit
}

// refreshMessages 重新渲染消息并滚动到底部
func (ui *ChatUI) refreshMessages() {
	ui.vp.SetContent(ui.messagesContent())
	ui.vp.GotoBottom()
}

// messagesContent 获取消息文本形式展示的内容
func (ui *ChatUI) messagesContent() string {
	width := ui.width
	bubbleWidth := width * 2 / 3
	if bubbleWidth < 10 {
		bubbleWidth = width
	}

	lines := make([]string, 0, len(ui.entries))
	for _, entry := range ui.entries {
		switch entry.Type {
		case chatv1.EntryTypeSystem:
			if entry.System == nil {
				continue
			}
			lines = append(lines, systemStyle.Width(width).Render(entry.System.Message))
		case chatv1.EntryTypeChat:
			if entry.Chat == nil {
				continue
			}
			own := ui.self.IsAuthorOf(entry.Chat)
			bubble := renderBubble(entry.Chat, own, bubbleWidth)
			pos := lipgloss.Left
			if own {
				pos = lipgloss.Right
			}
			lines = append(lines, lipgloss.PlaceHorizontal(width, pos, bubble))
		}
	}
	return strings.Join(lines, "\n")
}

// joinView 选择房间界面
func (ui *ChatUI) joinView() string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Welcome to the chat, %s", ui.self.Name)),
	}
	if id := ui.self.UID.Short(); id != "" {
		lines = append(lines, hintStyle.Render("session "+id))
	}
	lines = append(lines,
		"",
		ui.roomInput.View(),
		"",
		hintStyle.Render("enter: join room • ctrl+c: quit"),
	)
	if ui.notice != "" {
		lines = append(lines, errorStyle.Render(ui.notice))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// chatView 聊天界面
func (ui *ChatUI) chatView() string {
	header := headerStyle.Width(ui.width).Render("Room: " + ui.roomName)
	footer := ui.input.View()
	switch {
	case ui.disconnected:
		footer = errorStyle.Render(disconnectedNote + " ctrl+c: quit")
	case ui.notice != "":
		footer = errorStyle.Render(ui.notice) + "\n" + footer
	}
	return header + "\n" + ui.vp.View() + "\n" + footer
}

// alertView 会话失效提示界面
func (ui *ChatUI) alertView() string {
	return alertStyle.Render(unauthorizedAlert + "\n\n" + hintStyle.Render("press any key to continue"))
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	systemStyle = lipgloss.NewStyle().Faint(true).Italic(true).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			Padding(0, 1)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2)
	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Padding(1, 2)
	ownBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 1)
	otherBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#7C3AED")).
				Padding(0, 1)
	metaStyle = lipgloss.NewStyle().Faint(true)
)

// renderBubble 渲染一条聊天消息
func renderBubble(msg *chatv1.ChatMessage, own bool, maxWidth int) string {
	style := otherBubbleStyle
	if own {
		style = ownBubbleStyle
	}
	// 减去边框和内边距
	textWidth := maxWidth - 4
	if textWidth < 1 {
		textWidth = 1
	}
	text := lipgloss.NewStyle().Width(min(lipgloss.Width(msg.Message), textWidth)).Render(msg.Message)
	meta := metaStyle.Render(msg.Author + "  " + msg.Time)
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, text, meta))
}
