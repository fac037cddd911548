package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/asthma-api/auth"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(Config{Secret: testSecret}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, clock
}

var patient = auth.Principal{ID: "7d0f7a5e-1111-4c1e-9c55-2b9f0e6c0a01", Email: "jane@example.com", Role: auth.RolePatient}

func TestNewService_EmptySecretIsConfigError(t *testing.T) {
	_, err := NewService(Config{})
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	cfg := svc.Config()
	if cfg.Issuer != "asthma-api" || cfg.Audience != "asthma-app" {
		t.Errorf("unexpected issuer/audience %q/%q", cfg.Issuer, cfg.Audience)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("expected 15m access TTL, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("expected 7d refresh TTL, got %v", cfg.RefreshTokenTTL)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad method", Config{Secret: "s", Method: "RS256"}},
		{"refresh shorter than access", Config{Secret: "s", AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Minute}},
		{"negative ttl", Config{Secret: "s", AccessTokenTTL: -time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			if err := tt.cfg.Validate(); !errors.Is(err, ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestIssueTokenPair_RoundTrip(t *testing.T) {
	svc, clock := newTestService(t)
	pair, err := svc.IssueTokenPair(patient)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if pair.AccessTokenTTL != 15*time.Minute {
		t.Errorf("expected 15m reported TTL, got %v", pair.AccessTokenTTL)
	}

	claims, err := svc.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify access: %v", err)
	}
	if claims.UserID != patient.ID || claims.Subject != patient.ID {
		t.Errorf("unexpected subject %q/%q", claims.UserID, claims.Subject)
	}
	if claims.Email != patient.Email || claims.Role != auth.RolePatient {
		t.Errorf("unexpected email/role %q/%q", claims.Email, claims.Role)
	}
	if claims.Issuer != "asthma-api" {
		t.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if !claims.IssuedAt.Time.Equal(clock.Now()) {
		t.Errorf("iat = %v, want %v", claims.IssuedAt.Time, clock.Now())
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Errorf("access lifetime = %v", got)
	}
	if claims.Principal() != patient {
		t.Errorf("Principal() = %+v", claims.Principal())
	}

	refresh, err := svc.Verify(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Verify refresh: %v", err)
	}
	if got := refresh.ExpiresAt.Time.Sub(refresh.IssuedAt.Time); got != 7*24*time.Hour {
		t.Errorf("refresh lifetime = %v", got)
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	svc, clock := newTestService(t)
	pair, _ := svc.IssueTokenPair(patient)

	clock.Advance(15*time.Minute - time.Second)
	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Fatalf("expected access token valid just before expiry, got %v", err)
	}

	clock.Advance(2 * time.Second)
	_, err := svc.VerifyAccess(pair.AccessToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	if _, err := svc.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh token should still be valid, got %v", err)
	}

	clock.Advance(7 * 24 * time.Hour)
	if _, err := svc.VerifyRefresh(pair.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected refresh token expired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	svc, clock := newTestService(t)
	other, _ := NewService(Config{Secret: "a-completely-different-secret-value"}, WithClock(clock.Now))
	pair, _ := other.IssueTokenPair(patient)
	if _, err := svc.Verify(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_TamperedExpiredTokenIsInvalid(t *testing.T) {
	svc, clock := newTestService(t)
	pair, _ := svc.IssueTokenPair(patient)
	clock.Advance(time.Hour)

	parts := strings.Split(pair.AccessToken, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err := svc.Verify(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected signature failure to win over expiry, got %v", err)
	}
}

func TestVerify_WrongIssuerOrAudience(t *testing.T) {
	svc, clock := newTestService(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"issuer", Config{Secret: testSecret, Issuer: "someone-else"}},
		{"audience", Config{Secret: testSecret, Audience: "other-app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			foreign, err := NewService(tt.cfg, WithClock(clock.Now))
			if err != nil {
				t.Fatalf("NewService: %v", err)
			}
			pair, _ := foreign.IssueTokenPair(patient)
			if _, err := svc.Verify(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestVerify_Garbage(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.Verify(tok); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q): expected ErrTokenInvalid, got %v", tok, err)
		}
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	svc, clock := newTestService(t)
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   patient.ID,
			Issuer:    "asthma-api",
			Audience:  gojwt.ClaimStrings{"asthma-app"},
			ExpiresAt: gojwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
		UserID: patient.ID,
		Kind:   KindAccess,
	}
	unsigned, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Verify(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg=none, got %v", err)
	}
}

func TestVerifyKind(t *testing.T) {
	svc, _ := newTestService(t)
	pair, _ := svc.IssueTokenPair(patient)

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh token must not pass as an access token, got %v", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token must not pass as a refresh token, got %v", err)
	}
}

func TestAppErrorAndReason(t *testing.T) {
	svc, clock := newTestService(t)
	pair, err := svc.IssueTokenPair(patient)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	clock.Advance(16 * time.Minute)
	_, expErr := svc.VerifyAccess(pair.AccessToken)
	if got := AppError(expErr); got.Code != "TOKEN_EXPIRED" || got.HTTPStatus != 401 {
		t.Errorf("expired: %s %d", got.Code, got.HTTPStatus)
	}
	if Reason(expErr) != "TOKEN_EXPIRED" {
		t.Errorf("expired reason = %s", Reason(expErr))
	}

	_, badErr := svc.VerifyAccess("not.a.token")
	if got := AppError(badErr); got.Code != "TOKEN_INVALID" {
		t.Errorf("invalid: %s", got.Code)
	}
	if Reason(badErr) != "TOKEN_INVALID" {
		t.Errorf("invalid reason = %s", Reason(badErr))
	}
}
