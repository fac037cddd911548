package account

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/auth/jwt"
	"github.com/kbukum/asthma-api/auth/password"
	"github.com/kbukum/asthma-api/database/testutil"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/user"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc    *Service
	store  *user.GormStore
	sink   *audit.MemorySink
	clock  *fakeClock
	tokens *jwt.Service
}

var meta = audit.Request{ClientIP: "10.0.0.1", Method: "POST", Endpoint: "/api/auth/login"}

func newFixture(t *testing.T, hasher password.Hasher) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := jwt.NewService(jwt.Config{Secret: "account-test-secret-0123456789abcdef"}, jwt.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("jwt.NewService: %v", err)
	}
	store := user.NewGormStore(testutil.NewDB(t, user.Models()...))
	sink := audit.NewMemorySink()
	if hasher == nil {
		hasher = password.NewBcryptHasher(password.WithCost(bcrypt.MinCost))
	}
	svc := NewService(store, hasher, tokens, sink, logger.Nop(), WithClock(clock.Now))
	return &fixture{svc: svc, store: store, sink: sink, clock: clock, tokens: tokens}
}

func (f *fixture) register(t *testing.T, email string) *Session {
	t.Helper()
	sess, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: "Secret123"}, meta)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return sess
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode, status int) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != code || appErr.HTTPStatus != status {
		t.Fatalf("got %s/%d, want %s/%d", appErr.Code, appErr.HTTPStatus, code, status)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t, nil)
	sess := f.register(t, "  Jane@Example.com ")

	if sess.User.Email != "jane@example.com" {
		t.Errorf("email = %q, want normalized", sess.User.Email)
	}
	if sess.User.Role != auth.RolePatient {
		t.Errorf("role = %q, want PATIENT default", sess.User.Role)
	}
	if sess.Tokens.AccessToken == "" || sess.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	claims, err := f.tokens.VerifyAccess(sess.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != sess.User.ID {
		t.Errorf("token subject = %q, want %q", claims.UserID, sess.User.ID)
	}

	stored, _ := f.store.FindByID(context.Background(), sess.User.ID)
	if stored.PasswordHash == "Secret123" || stored.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	if len(f.sink.ByType(audit.UserCreated)) != 1 || len(f.sink.ByType(audit.UserRegistered)) != 1 {
		t.Errorf("audit events = %+v", f.sink.Events())
	}
}

func TestRegisterAdminRoleAndInvalidRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.Register(ctx, RegisterInput{Email: "admin@example.com", Password: "Secret123", Role: auth.RoleAdmin}, meta)
	if err != nil {
		t.Fatalf("Register admin: %v", err)
	}
	if sess.User.Role != auth.RoleAdmin {
		t.Errorf("role = %q", sess.User.Role)
	}

	_, err = f.svc.Register(ctx, RegisterInput{Email: "x@example.com", Password: "Secret123", Role: "DOCTOR"}, meta)
	assertCode(t, err, apperrors.ErrCodeValidation, 400)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "jane@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "JANE@example.com", Password: "Secret123"}, meta)
	assertCode(t, err, apperrors.ErrCodeEmailExists, 409)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.register(t, "jane@example.com")
	f.sink.Reset()

	sess, err := f.svc.Login(context.Background(), "JANE@example.com", "Secret123", meta)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.ID != reg.User.ID {
		t.Errorf("logged in as %q, want %q", sess.User.ID, reg.User.ID)
	}
	if e, ok := f.sink.Last(); !ok || e.Type != audit.LoginSuccess || e.UserID != reg.User.ID || e.ClientIP != "10.0.0.1" {
		t.Errorf("last audit = %+v", e)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.register(t, "jane@example.com")
	f.sink.Reset()
	ctx := context.Background()

	_, unknownErr := f.svc.Login(ctx, "nobody@example.com", "Secret123", meta)
	_, wrongErr := f.svc.Login(ctx, "jane@example.com", "Wrong1234", meta)

	assertCode(t, unknownErr, apperrors.ErrCodeInvalidCredentials, 401)
	assertCode(t, wrongErr, apperrors.ErrCodeInvalidCredentials, 401)
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("messages differ: %q vs %q", unknownErr, wrongErr)
	}

	failed := f.sink.ByType(audit.LoginFailed)
	if len(failed) != 2 {
		t.Fatalf("LOGIN_FAILED events = %d, want 2", len(failed))
	}
	if failed[0].Reason != audit.ReasonUserNotFound || failed[0].UserID != "" {
		t.Errorf("unknown-user event = %+v", failed[0])
	}
	if failed[1].Reason != audit.ReasonInvalidPassword || failed[1].UserID != reg.User.ID {
		t.Errorf("wrong-password event = %+v", failed[1])
	}
}

type countingHasher struct {
	password.Hasher
	verifies int
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.verifies++
	return h.Hasher.Verify(plaintext, hash)
}

func TestLoginUnknownEmailStillVerifies(t *testing.T) {
	h := &countingHasher{Hasher: password.NewBcryptHasher(password.WithCost(bcrypt.MinCost))}
	f := newFixture(t, h)

	if _, err := f.svc.Login(context.Background(), "nobody@example.com", "Secret123", meta); err == nil {
		t.Fatal("expected error")
	}
	if h.verifies != 1 {
		t.Errorf("verifies = %d, want 1", h.verifies)
	}
}

func TestLoginUpgradesHashCost(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	old := password.NewBcryptHasher(password.WithCost(bcrypt.MinCost + 1))
	hash, _ := old.Hash("Secret123")
	u := &user.User{Email: "old@example.com", PasswordHash: hash, Role: auth.RolePatient}
	if err := f.store.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.Login(ctx, "old@example.com", "Secret123", meta); err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := f.store.FindByID(ctx, u.ID)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	if err != nil || cost != bcrypt.MinCost {
		t.Errorf("cost after login = %d (%v), want %d", cost, err, bcrypt.MinCost)
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.register(t, "jane@example.com")
	ctx := context.Background()

	f.clock.Advance(time.Hour)
	sess, err := f.svc.Refresh(ctx, reg.Tokens.RefreshToken, meta)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := f.tokens.VerifyAccess(sess.Tokens.AccessToken); err != nil {
		t.Errorf("new access token invalid: %v", err)
	}
	if len(f.sink.ByType(audit.TokenRefreshed)) != 1 {
		t.Error("expected TOKEN_REFRESHED")
	}
}

func TestRefreshErrors(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.register(t, "jane@example.com")
	ctx := context.Background()

	_, err := f.svc.Refresh(ctx, "", meta)
	assertCode(t, err, apperrors.ErrCodeNoRefreshToken, 401)

	_, err = f.svc.Refresh(ctx, reg.Tokens.AccessToken, meta)
	assertCode(t, err, apperrors.ErrCodeTokenInvalid, 401)

	_, err = f.svc.Refresh(ctx, "garbage", meta)
	assertCode(t, err, apperrors.ErrCodeTokenInvalid, 401)

	if err := f.store.Delete(ctx, reg.User.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken, meta)
	assertCode(t, err, apperrors.ErrCodeUserNotFound, 401)

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken, meta)
	assertCode(t, err, apperrors.ErrCodeTokenExpired, 401)
}

func TestMeAndLookup(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.register(t, "jane@example.com")
	ctx := context.Background()

	me, err := f.svc.Me(ctx, auth.Principal{ID: reg.User.ID})
	if err != nil || me.Email != "jane@example.com" {
		t.Fatalf("Me = %+v, %v", me, err)
	}

	_, err = f.svc.Lookup(ctx, "missing")
	assertCode(t, err, apperrors.ErrCodeUserNotFound, 404)
}

func TestLogoutAudits(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.Logout(context.Background(), auth.Principal{ID: "u-1"}, meta)
	if e, ok := f.sink.Last(); !ok || e.Type != audit.Logout || e.UserID != "u-1" {
		t.Errorf("last audit = %+v", e)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, created, err := f.svc.EnsureUser(ctx, "test@example.com", "password123", auth.RolePatient)
	if err != nil || !created {
		t.Fatalf("first EnsureUser = %v, %v", created, err)
	}
	second, created, err := f.svc.EnsureUser(ctx, "test@example.com", "other", auth.RoleAdmin)
	if err != nil || created {
		t.Fatalf("second EnsureUser = %v, %v", created, err)
	}
	if first.ID != second.ID || second.Role != auth.RolePatient {
		t.Errorf("existing user changed: %+v", second)
	}
	if _, err := f.svc.Login(ctx, "test@example.com", "password123", meta); err != nil {
		t.Errorf("seeded user cannot log in: %v", err)
	}
}

func TestAuditEventsNeverCarryEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "jane@example.com")
	_, _ = f.svc.Login(context.Background(), "jane@example.com", "nope", meta)

	for _, e := range f.sink.Events() {
		for k, v := range e.Metadata {
			if v == "jane@example.com" {
				t.Errorf("event %s metadata %s carries email", e.Type, k)
			}
		}
	}
}
