package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"RouteSim/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFileAdapter(t *testing.T) (log.Logger, *zap.Logger, string) {
	t.Helper()
	logFile := filepath.Join(t.TempDir(), "adapter_test.log")

	zapLog, err := NewZapLogger(&conf.Log{
		Level:      "debug",
		Format:     "json",
		OutputFile: logFile,
		Env:        "production",
	})
	require.NoError(t, err)

	return NewKratosAdapter(zapLog), zapLog, logFile
}

func TestKratosAdapter_Log_EmptyKeyvals(t *testing.T) {
	adapter, _, _ := newFileAdapter(t)
	assert.NoError(t, adapter.Log(log.LevelInfo))
}

func TestKratosAdapter_OddKeyvals(t *testing.T) {
	adapter, _, _ := newFileAdapter(t)

	// Missing value for the last key must not panic
	err := adapter.Log(log.LevelInfo, "msg", "test message", "key1", "value1", "key2")
	assert.NoError(t, err)
}

func TestKratosAdapter_MessageAndSanitization(t *testing.T) {
	adapter, zapLog, logFile := newFileAdapter(t)

	err := adapter.Log(log.LevelWarn,
		"msg", "payment submission failed",
		"api_key", "snd_1234567890abcdef",
		"card_number", "4000000000000002",
		"connector", "stripe",
		"attempt", 7,
	)
	require.NoError(t, err)
	zapLog.Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	out := string(content)

	assert.Contains(t, out, "\"msg\":\"payment submission failed\"")
	assert.Contains(t, out, "\"level\":\"warn\"")
	assert.Contains(t, out, "snd_************cdef")
	assert.NotContains(t, out, "4000000000000002")
	assert.Contains(t, out, "\"connector\":\"stripe\"")
	assert.Contains(t, out, "\"attempt\":7")
}

func TestKratosAdapter_LevelMapping(t *testing.T) {
	for _, level := range []log.Level{log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError} {
		t.Run(level.String(), func(t *testing.T) {
			adapter, zapLog, logFile := newFileAdapter(t)

			require.NoError(t, adapter.Log(level, "msg", "mapped"))
			zapLog.Sync()

			content, err := os.ReadFile(logFile)
			require.NoError(t, err)
			assert.Contains(t, string(content), "\"level\":\""+strings.ToLower(level.String())+"\"")
		})
	}
}

func TestKratosAdapter_WithHelper(t *testing.T) {
	adapter, zapLog, logFile := newFileAdapter(t)

	logger := log.With(adapter, "service.name", "RouteSim")
	helper := log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelInfo)))
	helper.Infow("msg", "helper message", "key", "value")
	helper.Debug("filtered out")
	zapLog.Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "helper message")
	assert.Contains(t, string(content), "\"service.name\":\"RouteSim\"")
	assert.NotContains(t, string(content), "filtered out")
}
