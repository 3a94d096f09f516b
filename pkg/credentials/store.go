package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken 没有保存的凭证
var ErrNoToken = errors.New("NoToken")

// NewFileStore 创建基于文件的凭证存储
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// FileStore 基于文件的凭证存储
type FileStore struct {
	path string
}

// Path 返回凭证文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Load 读取凭证
func (s *FileStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file %q error: %w", s.path, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save 保存凭证
func (s *FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create directory %q error: %w", filepath.Dir(s.path), err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file %q error: %w", s.path, err)
	}
	return nil
}

// Delete 删除凭证，凭证不存在时不报错
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file %q error: %w", s.path, err)
	}
	return nil
}
