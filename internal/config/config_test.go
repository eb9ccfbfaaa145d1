package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(32768), cfg.MaxFrameBytes)
	assert.Equal(t, 256, cfg.SendQueueDepth)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_FRAME_BYTES", "1024")
	t.Setenv("IDLE_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, int64(1024), cfg.MaxFrameBytes)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("APP_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
