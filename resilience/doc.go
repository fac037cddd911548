// Package resilience retries startup operations, such as opening the
// database, with capped exponential backoff.
package resilience
