package version

import (
	"runtime"
)

// 通过 -ldflags "-X" 注入
var (
	// Version 版本号
	Version = "0.0.0-dev"
	// GitCommit Git 提交
	GitCommit = ""
)

// Info 版本信息
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
	Arch      string `json:"arch"`
	OS        string `json:"os"`
}

// GetVersionInfo 获取版本信息
func GetVersionInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Arch:      runtime.GOARCH,
		OS:        runtime.GOOS,
	}
}
