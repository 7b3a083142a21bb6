// Package config handles configuration for the session coordinator server,
// including defaults, JSON overlay, environment variables, and command-line
// flags, applied in that order.
package config

import "time"

// Config holds runtime settings for the TourMate session server.
//
// Fields:
//   - RunAddr: bind address for the public HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). An empty DSN selects the in-memory store.
//   - SecretKey: HMAC secret for verifying bearer JWTs (HS256). Do not use test defaults in prod.
//   - LobbyIdleWindow: a Forming session with no membership activity for this long is auto-abandoned.
//   - ActiveStaleWindow: an Active session with no progress reports for this long is flagged stale.
//   - RetentionWindow: how long Completed/Abandoned sessions are kept before archival.
//   - SweepInterval: cadence of the background maintenance sweep.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible archive backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: archive object storage settings.
//   - ArchiveEnabled: when false, expired sessions are deleted without an S3 export.
type Config struct {
	RunAddr           string        `env:"RUN_ADDRESS"`
	DatabaseDSN       string        `env:"DATABASE_DSN"`
	SecretKey         string        `env:"SECRET_KEY"`
	LobbyIdleWindow   time.Duration `env:"LOBBY_IDLE_WINDOW"`
	ActiveStaleWindow time.Duration `env:"ACTIVE_STALE_WINDOW"`
	RetentionWindow   time.Duration `env:"RETENTION_WINDOW"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL"`
	ArchiveEnabled    bool          `env:"ARCHIVE_ENABLED"`
	S3RootUser        string        `env:"S3_ROOT_USER"`
	S3RootPassword    string        `env:"S3_ROOT_PASSWORD"`
	S3Bucket          string        `env:"S3_BUCKET"`
	S3Region          string        `env:"S3_REGION"`
	S3BaseEndpoint    string        `env:"S3_BASE_ENDPOINT"`
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.RunAddr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.LobbyIdleWindow = 30 * time.Minute
	c.ActiveStaleWindow = 2 * time.Hour
	c.RetentionWindow = 72 * time.Hour
	c.SweepInterval = time.Minute
	c.ArchiveEnabled = false
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "session-archive"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables, and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
