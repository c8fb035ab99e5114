package log

import (
	"context"
	"io"
	"os"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	tlog "github.com/tendermint/tendermint/libs/log"
)

// Reexported types
type Logger = tlog.Logger

var (
	NewSyncWriter = kitlog.NewSyncWriter
	Root          = tlog.NewTMLogger(NewSyncWriter(os.Stdout))
	Default       = Root
)

// NewLogger creates a logger that writes entries at or above the given level to the given
// destination. The destination is either "file://-" for stdout, or "file://<path>" to append
// to a file. An empty destination is treated as stdout.
func NewLogger(level, dest string) Logger {
	w := writerFor(dest)
	logger := tlog.NewTMLogger(NewSyncWriter(w))
	opt, err := tlog.AllowLevel(level)
	if err != nil {
		opt = tlog.AllowInfo()
	}
	return tlog.NewFilter(logger, opt)
}

func writerFor(dest string) io.Writer {
	if dest == "" || dest == "file://-" {
		return os.Stdout
	}
	path := strings.TrimPrefix(dest, "file://")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}
	return f
}

// Setup replaces the default logger used by the package level log functions.
func Setup(level, dest string) {
	Default = NewLogger(level, dest)
	Root = Default
}

func Debug(msg string, keyvals ...interface{}) {
	Default.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	Default.Info(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	Default.Error(msg, keyvals...)
}

type contextKey string

func (c contextKey) String() string {
	return "log " + string(c)
}

var (
	contextKeyLog = contextKey("log")
)

func SetContext(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, contextKeyLog, log)
}

func Log(ctx context.Context) Logger {
	logger, _ := ctx.Value(contextKeyLog).(Logger)
	if logger == nil {
		return Default
	}

	return logger
}
