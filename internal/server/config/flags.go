package config

import (
	"flag"
	"os"
	"time"

	"github.com/tourmate-app/backend/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN (empty selects the in-memory store)
//	-s string   JWT HMAC secret key
//	-l int      lobby idle window, minutes
//	-t int      active stale window, minutes
//	-w int      retention window, hours
//	-i int      sweep interval, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Interval
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-l", "-t", "-w", "-i", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.RunAddr, "a", config.RunAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	lobbyIdleWindow := fs.Int("l", int(config.LobbyIdleWindow.Minutes()), "lobby_idle_window (in minutes)")
	activeStaleWindow := fs.Int("t", int(config.ActiveStaleWindow.Minutes()), "active_stale_window (in minutes)")
	retentionWindow := fs.Int("w", int(config.RetentionWindow.Hours()), "retention_window (in hours)")
	sweepInterval := fs.Int("i", int(config.SweepInterval.Seconds()), "sweep_interval (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Interval flags are whole units, so writing them back unconditionally
	// would truncate a finer-grained value set via JSON or env. Only flags
	// actually passed override.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["l"] {
		config.LobbyIdleWindow = time.Duration(*lobbyIdleWindow) * time.Minute
	}
	if set["t"] {
		config.ActiveStaleWindow = time.Duration(*activeStaleWindow) * time.Minute
	}
	if set["w"] {
		config.RetentionWindow = time.Duration(*retentionWindow) * time.Hour
	}
	if set["i"] {
		config.SweepInterval = time.Duration(*sweepInterval) * time.Second
	}
}
