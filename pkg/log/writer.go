package log

import (
	"context"
	"io"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

type logWriterContextKey struct{}

// WriterFromContext 从上下文获取输出日志的 io.Writer
func WriterFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(logWriterContextKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

// ContextWithWriter 返回包含指定 io.Writer 的 context.Context
func ContextWithWriter(parent context.Context, w io.Writer) context.Context {
	return context.WithValue(parent, logWriterContextKey{}, w)
}

// CloseWriter 关闭上下文中的日志 io.Writer
//
// 标准输出、标准错误和不可关闭的 io.Writer 不做处理
func CloseWriter(ctx context.Context) error {
	w := WriterFromContext(ctx)
	if w == os.Stdout || w == os.Stderr {
		return nil
	}
	c, ok := w.(io.Closer)
	if !ok {
		return nil
	}
	return c.Close()
}

// NewLogger 创建输出到 w 的 logger
//
// verbosity 为 0 、 1 、 2 时分别对应 info 、 debug 、 trace 级别
func NewLogger(w io.Writer, verbosity uint32) logr.Logger {
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(w)
	switch verbosity {
	case 0:
		logrusLogger.Level = logrus.InfoLevel
	case 1:
		logrusLogger.Level = logrus.DebugLevel
	default:
		logrusLogger.Level = logrus.TraceLevel
	}
	return logrusr.New(logrusLogger)
}
