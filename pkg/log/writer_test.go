package log

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextWithWriter 测试 ContextWithWriter 和 WriterFromContext
func TestContextWithWriter(t *testing.T) {
	a := assert.New(t)

	a.Equal(io.Discard, WriterFromContext(context.Background()))

	buf := &bytes.Buffer{}
	ctx := ContextWithWriter(context.Background(), buf)
	a.Equal(buf, WriterFromContext(ctx))
}

// TestNewLogger 测试 NewLogger 的日志级别
func TestNewLogger(t *testing.T) {
	a := assert.New(t)

	buf := &bytes.Buffer{}
	logger := NewLogger(buf, 0)
	logger.V(1).Info("debug message")
	a.Empty(buf.String())
	logger.Info("info message")
	a.Contains(buf.String(), "info message")

	buf.Reset()
	logger = NewLogger(buf, 1)
	logger.V(1).Info("debug message")
	a.Contains(buf.String(), "debug message")
}

// TestCloseWriter 测试 CloseWriter
func TestCloseWriter(t *testing.T) {
	a := assert.New(t)

	a.NoError(CloseWriter(context.Background()))
	a.NoError(CloseWriter(ContextWithWriter(context.Background(), os.Stderr)))
	_, err := os.Stderr.Stat()
	a.NoError(err)

	f, err := os.Create(filepath.Join(t.TempDir(), "test.log"))
	if !a.NoError(err) {
		return
	}
	a.NoError(CloseWriter(ContextWithWriter(context.Background(), f)))
	_, err = f.WriteString("x")
	a.ErrorIs(err, os.ErrClosed)
}
