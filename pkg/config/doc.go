// Package config provides configuration management for the Veripass server.
//
// This package handles loading and validating server configuration from
// environment variables and configuration files, tracking the source of
// every attribute.
//
// # Configuration Sources
//
// Configuration is loaded, in increasing precedence:
//
//   - Built-in defaults
//   - YAML configuration file (VERIPASS_CONFIG_PATH/veripass.yml)
//   - VERIPASS_* environment variables
//
// # Key Configuration Options
//
//   - VERIPASS_FACE_MATCH_THRESHOLD: face comparison accept boundary
//   - VERIPASS_ENROLLMENT_VALIDITY_DAYS: enrollment lifetime
//   - VERIPASS_PROVIDER_TIMEOUT: verification provider call bound
//   - VERIPASS_DATA_KEY: vault master key (read by the server, not here)
//   - DATABASE_URL: database connection (read by pkg/db)
//   - PORT: server listen port
package config
