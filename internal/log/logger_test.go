package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/config"
)

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marbled.log")
	logger, closeFn, err := NewLogger(config.LogConfig{Level: "info", File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("sale settled", zap.Uint64("token_id", 7))
	assert.Same(t, logger, zap.L())
	closeFn()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "sale settled", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, float64(7), lines[0]["token_id"])
	assert.Contains(t, lines[0], "time")
}

func TestNewLoggerErrors(t *testing.T) {
	_, _, err := NewLogger(config.LogConfig{Level: "loud", Console: true})
	assert.Error(t, err)

	_, _, err = NewLogger(config.LogConfig{Level: "info", File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.LogConfig{Level: "info", Console: true}

	got := ApplyFlags(cfg, true, true)
	assert.Equal(t, "debug", got.Level)
	assert.True(t, got.Console, "console stays on without a log file")

	cfg.File = "marbled.log"
	got = ApplyFlags(cfg, false, true)
	assert.Equal(t, "info", got.Level)
	assert.False(t, got.Console)
	assert.True(t, cfg.Console)
}
