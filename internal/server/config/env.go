package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables onto the config.
// Only variables that are actually set are applied, so defaults and JSON
// values survive when the environment says nothing.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
