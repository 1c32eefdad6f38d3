// Package auth provides authentication middleware for spikewatchd.
//
// APIKeyMiddleware(mode, header, key) returns HTTP middleware that validates
// the API key from the named request header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware responds 401 with a JSON error body immediately.
//
// The middleware wraps the REST API only. The WebSocket stream and /metrics
// are mounted outside it.
package auth
