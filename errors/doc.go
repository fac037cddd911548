// Package errors provides the service's error taxonomy.
// Every failure that reaches a client is an *AppError carrying a stable
// machine-readable code, a human message and the HTTP status it maps to.
package errors
