package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	chatv1 "github.com/yhlooo/roomchat/pkg/apis/chat/v1"
	metav1 "github.com/yhlooo/roomchat/pkg/apis/meta/v1"
	"github.com/yhlooo/roomchat/pkg/chats/rooms"
	"github.com/yhlooo/roomchat/pkg/credentials"
	"github.com/yhlooo/roomchat/pkg/log"
	"github.com/yhlooo/roomchat/pkg/managers"
	uitea "github.com/yhlooo/roomchat/pkg/ui/tty/tea"
)

// NewChatOptions 创建默认 ChatOptions
func NewChatOptions() ChatOptions {
	return ChatOptions{
		Server: "ws://localhost:3001/socket",
		Room:   "sala1",
	}
}

// ChatOptions 选项
type ChatOptions struct {
	// 事件服务地址
	Server string
	// 用户名
	Name string
	// 默认房间名
	Room string
	// Bearer 凭证，为空时使用 login 保存的凭证
	Token string
}

// AddPFlags 将选项绑定到命令行参数
func (o *ChatOptions) AddPFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Server, configKeyServer, "s", o.Server, "Chat server WebSocket URL")
	fs.StringVarP(&o.Name, configKeyName, "n", o.Name, "Your name")
	fs.StringVarP(&o.Room, configKeyRoom, "r", o.Room, "Room name to join by default")
	fs.StringVar(&o.Token, configKeyToken, o.Token, "Access token (default is the token saved by login)")
}

// Complete 从合并后的配置补全选项
func (o *ChatOptions) Complete(cfg interface{ GetString(key string) string }) {
	o.Server = cfg.GetString(configKeyServer)
	o.Name = cfg.GetString(configKeyName)
	o.Room = cfg.GetString(configKeyRoom)
	o.Token = cfg.GetString(configKeyToken)
}

// Validate 校验选项
func (o *ChatOptions) Validate() error {
	if o.Server == "" {
		return errors.New("server is required")
	}
	if o.Name == "" {
		return errors.New("name is required (set --name, ROOMCHAT_NAME or name in config file)")
	}
	return nil
}

var chatExampleTpl = template.Must(template.New("ChatCommand").
	Parse(`# Save the access token, then chat as "ana"
{{ .ParentName }} login eyJhbGciOi...
{{ .CommandName }} --name ana

# Join another server with a default room
{{ .CommandName }} -n ana -s wss://chat.example.com/socket -r general
`))

// newChatCommand 创建 chat 子命令
func newChatCommand(parentName string, globalOpts *GlobalOptions) *cobra.Command {
	exampleBuff := &bytes.Buffer{}
	if err := chatExampleTpl.Execute(exampleBuff, map[string]interface{}{
		"ParentName":  parentName,
		"CommandName": parentName + " chat",
	}); err != nil {
		panic(err)
	}

	opts := NewChatOptions()

	cmd := &cobra.Command{
		Use:     "chat",
		Short:   "Join a room and start chatting",
		Example: exampleBuff.String(),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() {
				if err := log.CloseWriter(cmd.Context()); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "close log file error: %v\n", err)
				}
			}()

			path, explicit := globalOpts.configFile()
			cfg, err := loadConfig(cmd.Flags(), path, explicit)
			if err != nil {
				return err
			}
			opts.Complete(cfg)
			if err := opts.Validate(); err != nil {
				return err
			}
			if opts.Token == "" {
				opts.Token, err = globalOpts.tokenStore().Load()
				if err != nil {
					if errors.Is(err, credentials.ErrNoToken) {
						return fmt.Errorf("no access token, run %q first", parentName+" login TOKEN")
					}
					return err
				}
			}
			return runChat(cmd.Context(), parentName, opts)
		},
	}

	opts.AddPFlags(cmd.Flags())

	return cmd
}

// runChat 运行
func runChat(ctx context.Context, parentName string, opts ChatOptions) error {
	logger := logr.FromContextOrDiscard(ctx)

	self := chatv1.User{
		UID:  metav1.NewUID(),
		Name: opts.Name,
	}

	mgr, err := managers.NewManager(managers.Options{
		ServerURL: opts.Server,
		Token:     opts.Token,
		User:      self,
	})
	if err != nil {
		return fmt.Errorf("init manager error: %w", err)
	}

	room, err := mgr.Connect(ctx)
	if err != nil {
		if errors.Is(err, rooms.ErrUnauthorized) {
			return unauthorizedError(parentName, err)
		}
		return err
	}
	defer func() {
		if err := room.Close(ctx); err != nil {
			logger.Error(err, "close room error")
		}
	}()

	// 运行 UI
	ui := uitea.NewChatUI(room, &self, opts.Room)
	if err := ui.Run(ctx); err != nil {
		if errors.Is(err, rooms.ErrUnauthorized) {
			return unauthorizedError(parentName, err)
		}
		return err
	}
	return nil
}

// unauthorizedError 返回引导重新登录的错误
func unauthorizedError(parentName string, err error) error {
	return fmt.Errorf("session not authorized or expired, run %q to log in again: %w", parentName+" login TOKEN", err)
}
