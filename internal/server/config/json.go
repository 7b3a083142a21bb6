package config

import (
	"encoding/json"
	"os"

	"github.com/tourmate-app/backend/internal/flagx"
	"github.com/tourmate-app/backend/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config which uses time.Duration.
type JsonConfig struct {
	RunAddr           string         `json:"run_address"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	LobbyIdleWindow   timex.Duration `json:"lobby_idle_window"`
	ActiveStaleWindow timex.Duration `json:"active_stale_window"`
	RetentionWindow   timex.Duration `json:"retention_window"`
	SweepInterval     timex.Duration `json:"sweep_interval"`
	ArchiveEnabled    bool           `json:"archive_enabled"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config command-line flags. When neither flag is set, no file is loaded.
// An unreadable or malformed file panics: a config file that was explicitly
// requested must not be silently skipped.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.RunAddr = c.RunAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.LobbyIdleWindow = c.LobbyIdleWindow.Duration
	config.ActiveStaleWindow = c.ActiveStaleWindow.Duration
	config.RetentionWindow = c.RetentionWindow.Duration
	config.SweepInterval = c.SweepInterval.Duration
	config.ArchiveEnabled = c.ArchiveEnabled
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
