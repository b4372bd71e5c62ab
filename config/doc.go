// Package config loads runtime configuration from TOML.
//
// The runtime reads a single file (conventionally runtime.toml) covering
// pool sizing, log level, and telemetry export:
//
//	[pool]
//	workers = 8
//	queue_depth = 64
//	drain_timeout = "30s"
//
//	[log]
//	level = "debug"
//
//	[telemetry]
//	enabled = true
//	protocol = "grpc"
//	endpoint = "localhost:4317"
//
// A missing file yields defaults; a malformed or invalid file is an error
// carrying every validation problem at once.
package config
