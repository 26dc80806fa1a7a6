package config

import (
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/threshold"
)

// Config holds runtime settings for the device agent.
//
// Fields:
//   - ServerEndpointAddr: host:port of the server gRPC endpoint.
//   - OnlineCheckInterval: how often the device probes server reachability.
//   - SyncInterval: period of the background sync cycle.
//   - DatabasePath: local SQLite file.
//   - CheckpostID / CheckpostCode / SegmentID: where this device is installed.
//   - DefaultBounds: segment bounds used until the server has sent real ones.
//   - GatewayNumber / RangerPhone: SMS fallback endpoints.
//   - AWSRegion / SMSPerMinute: SNS settings and send pacing.
//   - SMSFallbackDelay: how long a passage may wait before going out by SMS.
//   - MaxAttempts: failed pushes before a queue item is parked as failed.
//   - PullLookback / PullLimit: window and cap of the opposite-checkpost pull.
//   - CacheRetention: age after which cached remote entries are purged.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	DatabasePath        string
	CheckpostID         int64
	CheckpostCode       string
	SegmentID           int64
	DefaultBounds       threshold.Bounds
	GatewayNumber       string
	RangerPhone         string
	AWSRegion           string
	SMSPerMinute        int
	SMSFallbackDelay    time.Duration
	MaxAttempts         int
	PullLookback        time.Duration
	PullLimit           int
	CacheRetention      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.DatabasePath = "checkpost.db"
	c.DefaultBounds = threshold.Bounds{DistanceKm: 50, MaxSpeedKmh: 40, MinSpeedKmh: 10}
	c.AWSRegion = "us-east-1"
	c.SMSPerMinute = 6
	c.SMSFallbackDelay = 5 * time.Minute
	c.MaxAttempts = common.MaxSyncAttempts
	c.PullLookback = 24 * time.Hour
	c.PullLimit = 500
	c.CacheRetention = 48 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
