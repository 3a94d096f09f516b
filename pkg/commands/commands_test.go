package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yhlooo/roomchat/pkg/chats/rooms"
	"github.com/yhlooo/roomchat/pkg/credentials"
	"github.com/yhlooo/roomchat/pkg/socket/sockettest"
	"github.com/yhlooo/roomchat/pkg/version"
)

// execute 执行命令并返回标准输出
func execute(stdin string, args ...string) (string, error) {
	cmd := NewCommand("roomchat")
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// clearEnv 清除会影响配置的环境变量
func clearEnv(t *testing.T) {
	for _, k := range []string{"SERVER", "NAME", "ROOM", "TOKEN"} {
		t.Setenv(envPrefix+"_"+k, "")
	}
}

// TestLoginLogout 测试登录与登出
func TestLoginLogout(t *testing.T) {
	a := assert.New(t)
	home := t.TempDir()
	store := credentials.NewFileStore(filepath.Join(home, "token"))

	out, err := execute("", "--home", home, "login", "abc.def")
	a.NoError(err)
	a.Contains(out, "Logged in.")
	token, err := store.Load()
	a.NoError(err)
	a.Equal("abc.def", token)

	_, err = execute(" from-stdin \n", "--home", home, "login", "-")
	a.NoError(err)
	token, err = store.Load()
	a.NoError(err)
	a.Equal("from-stdin", token)

	out, err = execute("", "--home", home, "logout")
	a.NoError(err)
	a.Contains(out, "Logged out.")
	_, err = store.Load()
	a.ErrorIs(err, credentials.ErrNoToken)

	// 重复登出
	_, err = execute("", "--home", home, "logout")
	a.NoError(err)

	_, err = execute("", "--home", home, "login", "  ")
	a.ErrorIs(err, credentials.ErrNoToken)
}

// TestVersion 测试 version 子命令
func TestVersion(t *testing.T) {
	a := assert.New(t)

	out, err := execute("", "version", "-f", "json")
	a.NoError(err)
	info := version.Info{}
	a.NoError(json.Unmarshal([]byte(out), &info))
	a.Equal(version.Version, info.Version)

	out, err = execute("", "version")
	a.NoError(err)
	a.Contains(out, "Version:")

	_, err = execute("", "version", "-f", "yaml")
	a.Error(err)
}

// TestGlobalOptions_Validate 测试全局选项校验
func TestGlobalOptions_Validate(t *testing.T) {
	a := assert.New(t)

	_, err := execute("", "-v", "3", "version")
	a.Error(err)
	_, err = execute("", "--home", "", "version")
	a.Error(err)
}

// TestLoadConfig 测试配置合并优先级
func TestLoadConfig(t *testing.T) {
	a := assert.New(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	a.NoError(os.WriteFile(path, []byte("server: ws://file/socket\nname: file\nroom: file-room\n"), 0o600))
	t.Setenv("ROOMCHAT_NAME", "env")

	cmd := newChatCommand("roomchat", &GlobalOptions{})
	a.NoError(cmd.Flags().Parse([]string{"--room", "flag-room"}))

	cfg, err := loadConfig(cmd.Flags(), path, true)
	if !a.NoError(err) {
		return
	}
	opts := NewChatOptions()
	opts.Complete(cfg)
	a.Equal("ws://file/socket", opts.Server)
	a.Equal("env", opts.Name)
	a.Equal("flag-room", opts.Room)
	a.Equal("", opts.Token)

	// 默认配置文件不存在时忽略，显式指定时报错
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err = loadConfig(cmd.Flags(), missing, false)
	a.NoError(err)
	a.Equal("ws://localhost:3001/socket", cfg.GetString(configKeyServer))
	_, err = loadConfig(cmd.Flags(), missing, true)
	a.Error(err)
}

// TestChat_MissingOptions 测试 chat 缺少名字或凭证
func TestChat_MissingOptions(t *testing.T) {
	a := assert.New(t)
	clearEnv(t)
	home := t.TempDir()

	_, err := execute("", "--home", home, "chat")
	if a.Error(err) {
		a.Contains(err.Error(), "name is required")
	}

	_, err = execute("", "--home", home, "chat", "--name", "ana")
	if a.Error(err) {
		a.Contains(err.Error(), "roomchat login TOKEN")
	}
}

// TestChat_Unauthorized 测试凭证被拒绝
func TestChat_Unauthorized(t *testing.T) {
	a := assert.New(t)
	clearEnv(t)
	home := t.TempDir()

	srv := sockettest.NewServer("secret")
	defer srv.Close()

	a.NoError(credentials.NewFileStore(filepath.Join(home, "token")).Save("expired"))

	_, err := execute("", "--home", home, "chat", "--name", "ana", "--server", srv.URL())
	if a.Error(err) {
		a.ErrorIs(err, rooms.ErrUnauthorized)
		a.Contains(err.Error(), "roomchat login TOKEN")
	}
}

// TestChat_LogFile 测试开启详细日志时写入日志文件
func TestChat_LogFile(t *testing.T) {
	a := assert.New(t)
	clearEnv(t)
	home := t.TempDir()

	srv := sockettest.NewServer("secret")
	defer srv.Close()

	_, err := execute("", "--home", home, "-v", "1", "chat", "--name", "ana", "--server", srv.URL(), "--token", "expired")
	a.ErrorIs(err, rooms.ErrUnauthorized)

	raw, err := os.ReadFile(filepath.Join(home, "roomchat.log"))
	a.NoError(err)
	a.Contains(string(raw), "connecting as")
}
