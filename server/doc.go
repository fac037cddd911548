// Package server runs the HTTP API on Gin behind a ServeMux, with h2c so
// HTTP/2 works without TLS and optional TLS or mTLS termination.
//
// Middleware (server/middleware) comes in two layers. Header-level
// middleware wraps the whole handler: security headers, CORS and the body
// size limit. Gin middleware runs per route: recovery, request IDs,
// request logging, telemetry, rate limiting, Authenticate and RequireRole.
//
// Endpoints (server/endpoint):
//
//   - /health: component health aggregation (503 when any is unhealthy)
//   - /info: version and build information
package server
