// Package config loads runtime configuration for the taskkeeper terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or TASKKEEPER_CLIENT_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-u string     base URL of the taskkeeper API
//	-t duration   per-request timeout
//	-f string     file the session token is kept in (empty: memory only)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "10s",
//	  "token_file": "/home/ann/.taskkeeper-token"
//	}
package config
