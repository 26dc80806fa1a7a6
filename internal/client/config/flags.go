package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// See the package documentation for the list. Only recognized flags are
// handed to the flag set (flagx.FilterArgs), so the JSON selector and
// foreign flags do not cause parse errors.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("n", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database file")
	fs.Int64Var(&cfg.CheckpostID, "k", cfg.CheckpostID, "checkpost id")
	fs.StringVar(&cfg.CheckpostCode, "m", cfg.CheckpostCode, "checkpost code")
	fs.Int64Var(&cfg.SegmentID, "g", cfg.SegmentID, "segment id")
	fs.StringVar(&cfg.GatewayNumber, "x", cfg.GatewayNumber, "SMS gateway number")
	fs.StringVar(&cfg.RangerPhone, "p", cfg.RangerPhone, "ranger phone number")
	fs.StringVar(&cfg.AWSRegion, "r", cfg.AWSRegion, "AWS region")

	args := flagx.FilterArgs(os.Args[1:], flagx.Names(fs))
	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
