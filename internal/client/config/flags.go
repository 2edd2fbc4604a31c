package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the quote server (default from Config)
//	-d string   SQLite file path of the local store
//	-s string   listen address for the status API
//	-i int      sync interval in seconds
//	-p int      reachability probe interval in seconds
//	-f int      drain fanout
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other
// components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-p", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the quote server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path to the local quote database")
	fs.StringVar(&cfg.StatusAddr, "s", cfg.StatusAddr, "listen address for the status API")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	probeInterval := fs.Int("p", int(cfg.ProbeInterval.Seconds()), "reachability probe interval (in seconds)")
	fs.IntVar(&cfg.Fanout, "f", cfg.Fanout, "drain fanout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.ProbeInterval = time.Duration(*probeInterval) * time.Second
}
