package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yhlooo/roomchat/pkg/credentials"
	"github.com/yhlooo/roomchat/pkg/log"
	"github.com/yhlooo/roomchat/pkg/version"
)

// NewGlobalOptions 创建一个默认 GlobalOptions
func NewGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Verbosity: 0,
		HomeDir:   filepath.Join(os.ExpandEnv("$HOME"), ".roomchat"),
	}
}

// GlobalOptions 全局选项
type GlobalOptions struct {
	// 日志数量级别（ 0 / 1 / 2 ）
	Verbosity uint32
	// 是否开启调试模式
	Debug bool
	// 数据目录，存放配置、凭证和日志
	HomeDir string
	// 配置文件路径，默认为数据目录下的 config.yaml
	ConfigFile string
}

// Validate 校验选项是否合法
func (o *GlobalOptions) Validate() error {
	if o.Verbosity > 2 {
		return fmt.Errorf("invalid log verbosity: %d (expected: 0, 1 or 2)", o.Verbosity)
	}
	if o.HomeDir == "" {
		return fmt.Errorf("home directory is required")
	}
	return nil
}

// AddPFlags 将选项绑定到命令行参数
func (o *GlobalOptions) AddPFlags(fs *pflag.FlagSet) {
	fs.Uint32VarP(&o.Verbosity, "verbose", "v", o.Verbosity, "Number for the log level verbosity (0, 1, or 2)")
	fs.BoolVar(&o.Debug, "debug", false, "Run in debug mode")
	fs.StringVar(&o.HomeDir, "home", o.HomeDir, "Directory for config, credentials and logs")
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "Config file (default is <home>/config.yaml)")
}

// configFile 返回配置文件路径，以及是否为显式指定
func (o *GlobalOptions) configFile() (string, bool) {
	if o.ConfigFile != "" {
		return o.ConfigFile, true
	}
	return filepath.Join(o.HomeDir, "config.yaml"), false
}

// tokenStore 返回凭证存储
func (o *GlobalOptions) tokenStore() *credentials.FileStore {
	return credentials.NewFileStore(filepath.Join(o.HomeDir, "token"))
}

// logFile 返回日志文件路径
func (o *GlobalOptions) logFile() string {
	return filepath.Join(o.HomeDir, "roomchat.log")
}

// NewCommand 创建根命令
func NewCommand(name string) *cobra.Command {
	globalOpts := NewGlobalOptions()

	cmd := &cobra.Command{
		Use:           name,
		Short:         "Terminal client for real-time chat rooms.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := globalOpts.Validate(); err != nil {
				return err
			}

			logWriter := io.Writer(os.Stderr)
			switch cmd.Name() {
			case "chat":
				// 聊天界面占用终端，日志只写到文件
				logWriter = io.Discard
				if globalOpts.Debug || globalOpts.Verbosity >= 1 {
					logPath := globalOpts.logFile()
					if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
						return fmt.Errorf("create log directory %q error: %w", filepath.Dir(logPath), err)
					}
					f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
					if err != nil {
						return fmt.Errorf("create log file %q error: %w", logPath, err)
					}
					logWriter = f
				}
			default:
			}
			ctx = log.ContextWithWriter(ctx, logWriter)

			// 初始化 logger
			logger := log.NewLogger(logWriter, globalOpts.Verbosity)
			cmd.SetContext(logr.NewContext(ctx, logger))

			return nil
		},
	}

	globalOpts.AddPFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newChatCommand(name, &globalOpts),
		newLoginCommand(&globalOpts),
		newLogoutCommand(&globalOpts),
		newVersionCommand(),
	)

	return cmd
}
