// Package client talks to the taskkeeper HTTP API.
//
// HTTPClient keeps the bearer token obtained by Login and attaches it to
// every task request. Non-2xx responses are mapped to sentinel errors that
// callers match with errors.Is: ErrBadRequest, ErrUnauthorized, ErrNotFound,
// ErrConflict and ErrUnavailable. The server's message, when present, is
// kept in the wrapped error text.
package client
