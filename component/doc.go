// Package component defines the lifecycle interface for infrastructure
// (database, Redis, audit sink, HTTP server) and an ordered registry that
// starts components in registration order and stops them in reverse.
package component
