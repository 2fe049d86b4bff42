package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCfg(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeCfg(t, `
engine:
  base_url: http://127.0.0.1:8000
`)
	cfg, got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	assert.Equal(t, 5310, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 16, cfg.Session.Shards)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, "interview_relay", cfg.Metrics.Namespace)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_ENGINE", "http://engine:9000")

	path := writeCfg(t, `
port: 8081
engine:
  base_url: ${RELAY_TEST_ENGINE}
  ws_base_url: ${RELAY_TEST_ENGINE_WS:ws://engine:9000}
jwt:
  secret_key: ${RELAY_TEST_SECRET:0123456789abcdef0123456789abcdef}
`)
	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "http://engine:9000", cfg.Engine.BaseURL)
	// unset variable falls back to its default
	assert.Equal(t, "ws://engine:9000", cfg.Engine.WSBaseURL)
	assert.Len(t, cfg.JWT.SecretKey, 32)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeCfg(t, "port: [not an int")
	_, _, err := LoadConfig(path)
	assert.Error(t, err)
}
