// Package jwt issues and verifies the service's access and refresh tokens.
//
// Both kinds of token are HMAC-signed with one secret and carry the same
// Claims. Access tokens live 15 minutes and refresh tokens 7 days unless
// configured otherwise. Verification maps every failure onto
// ErrTokenExpired or ErrTokenInvalid.
//
//	svc, err := jwt.NewService(cfg)
//	pair, err := svc.IssueTokenPair(principal)
//	claims, err := svc.VerifyAccess(pair.AccessToken)
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/asthma-api/auth"
)

// TokenPair is the result of a successful login, registration or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// AccessTokenTTL is the access token lifetime reported to clients.
	AccessTokenTTL time.Duration
}

// Service issues and verifies tokens.
type Service struct {
	cfg Config
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Expiry checks and issued-at stamps both use it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a token service. An empty secret fails with ErrConfig.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// IssueTokenPair signs an access token and a refresh token for p.
func (s *Service) IssueTokenPair(p auth.Principal) (TokenPair, error) {
	now := s.now()
	access, err := s.sign(p, KindAccess, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(p, KindRefresh, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:    access,
		RefreshToken:   refresh,
		AccessTokenTTL: s.cfg.AccessTokenTTL,
	}, nil
}

// Verify checks signature, expiry, issuer and audience of a token of
// either kind.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyAccess verifies token and requires it to be an access token.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	return s.verifyKind(token, KindAccess)
}

// VerifyRefresh verifies token and requires it to be a refresh token.
func (s *Service) VerifyRefresh(token string) (*Claims, error) {
	return s.verifyKind(token, KindRefresh)
}

func (s *Service) verifyKind(token string, kind Kind) (*Claims, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, kind, claims.Kind)
	}
	return claims, nil
}

func (s *Service) sign(p auth.Principal, kind Kind, now time.Time, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.ID,
			Issuer:    s.cfg.Issuer,
			Audience:  gojwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
		Kind:   kind,
	}
	signed, err := gojwt.NewWithClaims(s.cfg.signingMethod(), claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign %s token: %w", kind, err)
	}
	return signed, nil
}

// keyFunc is the jwt.Keyfunc used during token parsing.
func (s *Service) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(s.cfg.Secret), nil
}

// parserOptions returns jwt.ParserOption based on config.
func (s *Service) parserOptions() []gojwt.ParserOption {
	return []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithIssuer(s.cfg.Issuer),
		gojwt.WithAudience(s.cfg.Audience),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	}
}
