package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFileStore 测试 FileStore
func TestFileStore(t *testing.T) {
	a := assert.New(t)

	s := NewFileStore(filepath.Join(t.TempDir(), "sub", "token"))

	_, err := s.Load()
	a.ErrorIs(err, ErrNoToken)

	a.ErrorIs(s.Save("  "), ErrNoToken)
	a.NoError(s.Save(" abc.def "))

	info, err := os.Stat(s.Path())
	a.NoError(err)
	a.Equal(os.FileMode(0o600), info.Mode().Perm())

	token, err := s.Load()
	a.NoError(err)
	a.Equal("abc.def", token)

	a.NoError(s.Delete())
	a.NoError(s.Delete())
	_, err = s.Load()
	a.ErrorIs(err, ErrNoToken)
}
