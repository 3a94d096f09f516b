package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// 配置项
const (
	configKeyServer = "server"
	configKeyName   = "name"
	configKeyRoom   = "room"
	configKeyToken  = "token"
)

// envPrefix 环境变量前缀
const envPrefix = "ROOMCHAT"

// loadConfig 按 命令行参数 > 环境变量 > 配置文件 > 参数默认值 的优先级合并配置
//
// 未显式指定的配置文件不存在时忽略
func loadConfig(fs *pflag.FlagSet, path string, explicit bool) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags error: %w", err)
	}

	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return v, nil
		}
		return nil, fmt.Errorf("stat config file %q error: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %q error: %w", path, err)
	}

	return v, nil
}
