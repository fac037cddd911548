// Package audit records security-relevant events: logins, token use,
// authorization failures and profile changes.
//
// Events identify the principal only by id. They never carry an email
// address, a password or raw token text.
package audit

import (
	"context"
	"time"
)

// EventType names an audit event.
type EventType string

const (
	UserCreated         EventType = "USER_CREATED"
	UserRegistered      EventType = "USER_REGISTERED"
	LoginSuccess        EventType = "LOGIN_SUCCESS"
	LoginFailed         EventType = "LOGIN_FAILED"
	AuthSuccess         EventType = "AUTH_SUCCESS"
	AuthFailed          EventType = "AUTH_FAILED"
	AuthorizationFailed EventType = "AUTHORIZATION_FAILED"
	RateLimitExceeded   EventType = "RATE_LIMIT_EXCEEDED"
	TokenRefreshed      EventType = "TOKEN_REFRESHED"
	Logout              EventType = "LOGOUT"
	ProfileUpdated      EventType = "PROFILE_UPDATED"
	OnboardingCompleted EventType = "ONBOARDING_COMPLETED"
)

// Failure reasons attached to LOGIN_FAILED and AUTH_FAILED.
const (
	ReasonUserNotFound    = "USER_NOT_FOUND"
	ReasonInvalidPassword = "INVALID_PASSWORD"
	ReasonNoToken         = "NO_TOKEN"
	ReasonTokenInvalid    = "TOKEN_INVALID"
	ReasonTokenExpired    = "TOKEN_EXPIRED"
)

// Event is one audit record.
type Event struct {
	Type      EventType         `json:"event"`
	UserID    string            `json:"userId,omitempty"`
	ClientIP  string            `json:"ip,omitempty"`
	Method    string            `json:"method,omitempty"`
	Endpoint  string            `json:"endpoint,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink accepts audit events. Record must not block the caller for long and
// never fails: sinks report their own errors.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event)

// Record implements Sink.
func (f SinkFunc) Record(ctx context.Context, e Event) { f(ctx, e) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, Event) {})

// Multi fans an event out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, e Event) {
		for _, s := range sinks {
			s.Record(ctx, e)
		}
	})
}

// Request describes the HTTP request an event is recorded for.
type Request struct {
	ClientIP string
	Method   string
	Endpoint string
}

// Event builds an event of type t for this request.
func (r Request) Event(t EventType, userID string, now time.Time) Event {
	return Event{
		Type:      t,
		UserID:    userID,
		ClientIP:  r.ClientIP,
		Method:    r.Method,
		Endpoint:  r.Endpoint,
		Timestamp: now,
	}
}
