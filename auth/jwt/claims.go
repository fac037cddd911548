package jwt

import (
	"errors"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/asthma-api/auth"
)

var (
	// ErrTokenInvalid covers a bad signature, a malformed token, a wrong
	// issuer or audience, and a token of the wrong kind.
	ErrTokenInvalid = errors.New("jwt: token invalid")

	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("jwt: token expired")

	// ErrConfig is returned by NewService when the configuration cannot
	// produce a working signer. It is fatal at startup.
	ErrConfig = errors.New("jwt: invalid configuration")
)

// Kind distinguishes access tokens from refresh tokens. Both share the
// same claim shape and signing key.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the payload of every token the service issues.
type Claims struct {
	gojwt.RegisteredClaims
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   auth.Role `json:"role"`
	Kind   Kind      `json:"kind"`
}

// Principal returns the identity the claims describe.
func (c *Claims) Principal() auth.Principal {
	return auth.Principal{ID: c.UserID, Email: c.Email, Role: c.Role}
}
