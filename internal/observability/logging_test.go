package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/backbone-auth/internal/config"
)

func TestLoggerConfig_DevelopmentFollowsEnv(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"local", true},
		{" Dev ", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := loggerConfig(config.LoggerConfig{Level: "info"}, config.AppConfig{Env: tt.env})
			assert.Equal(t, tt.want, cfg.Development)
		})
	}
}

func TestLoggerConfig_Level(t *testing.T) {
	cfg := loggerConfig(config.LoggerConfig{Level: "DEBUG"}, config.AppConfig{})
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())

	cfg = loggerConfig(config.LoggerConfig{Level: "loud"}, config.AppConfig{})
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestNewLogger_TagsEntriesWithService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(
		config.LoggerConfig{Level: "info", Output: path},
		config.AppConfig{Name: "backbone-auth", Env: "production"},
	)
	require.NoError(t, err)

	logger.Info("listening", zap.String("addr", ":8080"))
	logger.Debug("dropped")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "listening", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "backbone-auth", entry["service"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, ":8080", entry["addr"])
}
