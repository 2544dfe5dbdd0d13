package config

import (
	"flag"
	"os"
	"time"

	"github.com/sciqlabs/tutorlink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the tutor backend (default from Config)
//	-d string   path to the secure store database file
//	-k string   path to the secure store key file
//	-m string   metrics listen address (empty = disabled)
//	-i int      online check interval in seconds (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-m", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointURL, "a", cfg.ServerEndpointURL, "base URL of the tutor backend")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the secure store database file")
	fs.StringVar(&cfg.KeyPath, "k", cfg.KeyPath, "path to the secure store key file")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address (empty = disabled)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
