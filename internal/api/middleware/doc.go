// Package middleware holds the gin middleware shared by every route:
// per-client rate limiting, CORS for the browser frontend, and the
// X-User-ID identity stub.
package middleware
