package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "whiteboard:events", cfg.RedisChannel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 25*time.Second, cfg.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.PongTimeout)
	assert.Equal(t, int64(65536), cfg.MaxMessageSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogDev)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://board.example.com")
	t.Setenv("WS_SEND_BUFFER", "16")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"http://localhost:5173", "https://board.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.True(t, cfg.LogDev)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whiteboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\nredis_channel: boards\nws_send_buffer: 8\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "boards", cfg.RedisChannel)
	assert.Equal(t, 8, cfg.SendBuffer)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("WS_SEND_BUFFER", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "ws_send_buffer")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:           "8080",
		AllowedOrigins: []string{"*"},
		SendBuffer:     1,
		WriteTimeout:   time.Second,
		PingInterval:   time.Second,
		PongTimeout:    2 * time.Second,
		MaxMessageSize: 1,
	}
	assert.NoError(t, valid.Validate())

	pingTooSlow := valid
	pingTooSlow.PingInterval = 3 * time.Second
	assert.ErrorContains(t, pingTooSlow.Validate(), "ws_ping_interval")

	noPort := valid
	noPort.Port = " "
	assert.ErrorContains(t, noPort.Validate(), "port is required")

	noOrigins := valid
	noOrigins.AllowedOrigins = nil
	assert.ErrorContains(t, noOrigins.Validate(), "allowed_origins")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
