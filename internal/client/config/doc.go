// Package config loads runtime configuration for the checkpost device agent.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the server gRPC endpoint
//	-i int      online status check interval (seconds)
//	-n int      sync cycle interval (seconds)
//	-f string   path of the local SQLite database
//	-k int      id of the checkpost this device is installed at
//	-m string   short code of that checkpost, as carried in SMS payloads
//	-g int      id of the segment the checkpost guards
//	-x string   phone number of the SMS gateway
//	-p string   phone number of the ranger's SIM
//	-r string   AWS region used for SMS sending
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "sync_interval": "30s",
//	  "checkpost_id": 1,
//	  "checkpost_code": "NTH",
//	  "segment_id": 1,
//	  "default_distance_km": 50,
//	  "sms_fallback_delay": "5m"
//	}
//
// Note: This package does not read environment variables directly; the AWS
// SDK does that on its own for credentials.
package config
