package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.RunAddr, ":8080")
	assert.Equal(t, c.DatabaseDSN, "")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.LobbyIdleWindow, 30*time.Minute)
	assert.Equal(t, c.ActiveStaleWindow, 2*time.Hour)
	assert.Equal(t, c.RetentionWindow, 72*time.Hour)
	assert.Equal(t, c.SweepInterval, time.Minute)
	assert.False(t, c.ArchiveEnabled)
	assert.Equal(t, c.S3RootUser, "admin")
	assert.Equal(t, c.S3Bucket, "session-archive")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3BaseEndpoint, "http://127.0.0.1:9000/")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.RunAddr, ":8080")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.LobbyIdleWindow, 30*time.Minute)
	assert.Equal(t, c.SweepInterval, time.Minute)
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":9090")
	t.Setenv("LOBBY_IDLE_WINDOW", "45m")
	t.Setenv("ARCHIVE_ENABLED", "true")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, ":9090", c.RunAddr)
	assert.Equal(t, 45*time.Minute, c.LobbyIdleWindow)
	assert.True(t, c.ArchiveEnabled)
	// untouched values keep defaults
	assert.Equal(t, "secretKey", c.SecretKey)
}
