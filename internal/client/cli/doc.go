// Package cli provides the interactive taskkeeper terminal client.
//
// It wires configuration, the HTTP API client and a read-eval-print loop.
// The session token lives in memory and, when a token file is configured,
// is persisted there with owner-only permissions so a later run starts
// logged in.
package cli
