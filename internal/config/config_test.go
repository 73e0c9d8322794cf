package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func required() []string {
	return []string{
		"--api_id=12345",
		"--api_hash=abcdef",
		"--chat_id=-100123",
		"--audio_url=https://example.org/a.ogg",
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(required())
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Retries)
	assert.Equal(t, 15*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.HoldDuration)
	assert.Equal(t, "default_session", cfg.SessionName)
	assert.Equal(t, int64(-100123), cfg.ChatID)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers)
	assert.Equal(t, "ws://127.0.0.1:8765/rpc", cfg.GatewayURL)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TG_API_ID", "777")
	t.Setenv("TG_API_HASH", "hash")
	t.Setenv("TG_CHAT_ID", "-1001")
	t.Setenv("TG_AUDIO_URL", "/tmp/a.ogg")
	t.Setenv("TG_SESSION_NAME", "radio")
	t.Setenv("TG_RETRIES", "3")
	t.Setenv("TG_RETRY_DELAY", "0s")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.APIID)
	assert.Equal(t, "radio", cfg.SessionName)
	assert.Equal(t, 3, cfg.Retries)
	assert.Zero(t, cfg.RetryDelay)
}

func TestLoad_FileThenFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "groupcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retries: 4\nhold_duration: 1m\n"), 0o600))

	cfg, err := Load(append(required(), "--config="+path, "--retries=6"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Retries)
	assert.Equal(t, time.Minute, cfg.HoldDuration)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load([]string{"--api_id=1"})
	require.Error(t, err)

	_, err = Load(append(required(), "--retries=0"))
	require.Error(t, err)

	_, err = Load(append(required(), "--retry_delay=-1s"))
	require.Error(t, err)
}
