// Package config loads runtime configuration for the quote sync engine.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the quote server
//	-d string   SQLite file path of the local store
//	-s string   listen address for the status API
//	-i int      sync interval (seconds)
//	-p int      reachability probe interval (seconds)
//	-f int      drain fanout
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "database_dsn": "quotes.db",
//	  "sync_interval": "30s",
//	  "retry_base": "2s",
//	  "max_retries": 8
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
