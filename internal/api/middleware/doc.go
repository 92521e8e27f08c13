// Package middleware provides gin middleware for the UI gateway: CORS for a
// locally served front-end and per-client rate limiting.
package middleware
