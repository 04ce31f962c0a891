package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"storyboard-server/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := logger.New(logger.Config{Level: "debug", OutputPath: path})
	require.NoError(t, err)

	l.Debug("shot composed", zap.String("shot_id", "shot-1"))
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"level":"DEBUG"`)
	assert.Contains(t, string(raw), `"timestamp":`)
	assert.Contains(t, string(raw), `"shot_id":"shot-1"`)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "loud", Encoding: "xml", OutputPath: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}
