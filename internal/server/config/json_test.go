package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_LoadsFileFromFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"run_address":         ":7070",
		"database_dsn":        "postgres://localhost/tourmate",
		"secret_key":          "json_secret",
		"lobby_idle_window":   "20m",
		"active_stale_window": "1h",
		"retention_window":    "48h",
		"sweep_interval":      "30s",
		"archive_enabled":     true,
		"s3_bucket":           "archive-json",
	})
	os.Args = []string{"testbin", "-c", path}

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, ":7070", c.RunAddr)
	assert.Equal(t, "postgres://localhost/tourmate", c.DatabaseDSN)
	assert.Equal(t, "json_secret", c.SecretKey)
	assert.Equal(t, 20*time.Minute, c.LobbyIdleWindow)
	assert.Equal(t, time.Hour, c.ActiveStaleWindow)
	assert.Equal(t, 48*time.Hour, c.RetentionWindow)
	assert.Equal(t, 30*time.Second, c.SweepInterval)
	assert.True(t, c.ArchiveEnabled)
	assert.Equal(t, "archive-json", c.S3Bucket)
}

func Test_parseJson_NoFlagIsNoop(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, ":8080", c.RunAddr)
}

func Test_parseJson_MissingFilePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-c", "/nonexistent/cfg.json"}

	var c Config
	c.LoadDefaults()
	assert.Panics(t, func() { parseJson(&c) })
}
