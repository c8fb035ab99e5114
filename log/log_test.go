package log

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "memberapproval-log")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "node.log")
	logger := NewLogger("info", "file://"+path)
	logger.Debug("hidden message")
	logger.Info("visible message", "group_id", 7)
	logger.Error("error message")

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.False(t, strings.Contains(out, "hidden message"))
	require.Contains(t, out, "visible message")
	require.Contains(t, out, "group_id=7")
	require.Contains(t, out, "error message")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	dir, err := ioutil.TempDir("", "memberapproval-log")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "node.log")
	logger := NewLogger("chatty", "file://"+path)
	logger.Debug("hidden message")
	logger.Info("visible message")

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "hidden message"))
	require.Contains(t, string(data), "visible message")
}

func TestLogContext(t *testing.T) {
	require.Equal(t, Default, Log(context.Background()))

	logger := NewLogger("debug", "")
	ctx := SetContext(context.Background(), logger)
	require.Equal(t, logger, Log(ctx))
}
