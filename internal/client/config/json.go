package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/flagx"
	"github.com/dmitrijs2005/checkpost/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// use timex.Duration; values are copied into the runtime Config afterwards.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	DatabasePath        string         `json:"database_path"`
	CheckpostID         int64          `json:"checkpost_id"`
	CheckpostCode       string         `json:"checkpost_code"`
	SegmentID           int64          `json:"segment_id"`
	DefaultDistanceKm   float64        `json:"default_distance_km"`
	DefaultMaxSpeedKmh  float64        `json:"default_max_speed_kmh"`
	DefaultMinSpeedKmh  float64        `json:"default_min_speed_kmh"`
	GatewayNumber       string         `json:"gateway_number"`
	RangerPhone         string         `json:"ranger_phone"`
	AWSRegion           string         `json:"aws_region"`
	SMSPerMinute        int            `json:"sms_per_minute"`
	SMSFallbackDelay    timex.Duration `json:"sms_fallback_delay"`
	MaxAttempts         int            `json:"max_attempts"`
	PullLookback        timex.Duration `json:"pull_lookback"`
	PullLimit           int            `json:"pull_limit"`
	CacheRetention      timex.Duration `json:"cache_retention"`
}

// parseJson overlays cfg with values loaded from the file named by -c or
// -config. Keys absent from the file keep their current value. Read or
// unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.CheckpostCode, jc.CheckpostCode)
	setString(&cfg.GatewayNumber, jc.GatewayNumber)
	setString(&cfg.RangerPhone, jc.RangerPhone)
	setString(&cfg.AWSRegion, jc.AWSRegion)

	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.SMSFallbackDelay, jc.SMSFallbackDelay)
	setDuration(&cfg.PullLookback, jc.PullLookback)
	setDuration(&cfg.CacheRetention, jc.CacheRetention)

	if jc.CheckpostID > 0 {
		cfg.CheckpostID = jc.CheckpostID
	}
	if jc.SegmentID > 0 {
		cfg.SegmentID = jc.SegmentID
	}
	if jc.DefaultDistanceKm > 0 {
		cfg.DefaultBounds.DistanceKm = jc.DefaultDistanceKm
	}
	if jc.DefaultMaxSpeedKmh > 0 {
		cfg.DefaultBounds.MaxSpeedKmh = jc.DefaultMaxSpeedKmh
	}
	if jc.DefaultMinSpeedKmh > 0 {
		cfg.DefaultBounds.MinSpeedKmh = jc.DefaultMinSpeedKmh
	}
	if jc.SMSPerMinute > 0 {
		cfg.SMSPerMinute = jc.SMSPerMinute
	}
	if jc.MaxAttempts > 0 {
		cfg.MaxAttempts = jc.MaxAttempts
	}
	if jc.PullLimit > 0 {
		cfg.PullLimit = jc.PullLimit
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
