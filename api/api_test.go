package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/kbukum/asthma-api/account"
	"github.com/kbukum/asthma-api/api"
	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth/jwt"
	"github.com/kbukum/asthma-api/auth/password"
	"github.com/kbukum/asthma-api/database/testutil"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/profile"
	"github.com/kbukum/asthma-api/ratelimit"
	"github.com/kbukum/asthma-api/server/middleware"
	"github.com/kbukum/asthma-api/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	clock   *fakeClock
	sink    *audit.MemorySink
	users   *user.GormStore
}

func newTestAPI(t *testing.T, limit int) *testAPI {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	sink := audit.NewMemorySink()
	users := user.NewGormStore(testutil.NewDB(t, user.Models()...))

	tokens, err := jwt.NewService(jwt.Config{Secret: "api-test-secret"}, jwt.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("jwt.NewService: %v", err)
	}
	limiter, err := ratelimit.New(ratelimit.Config{MaxAttempts: limit}, ratelimit.NewMemoryStore(), ratelimit.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	hasher := password.NewBcryptHasher(password.WithCost(bcrypt.MinCost))

	engine := gin.New()
	api.Register(engine, api.Deps{
		Accounts: account.NewService(users, hasher, tokens, sink, logger.Nop(), account.WithClock(clock.Now)),
		Profiles: profile.NewService(users, sink, logger.Nop()),
		Tokens:   tokens,
		Users:    users,
		Limiter:  limiter,
		Audit:    sink,
		Log:      logger.Nop(),
		Now:      clock.Now,
	})

	return &testAPI{
		t:       t,
		handler: middleware.BodySizeLimit("16KB")(engine),
		clock:   clock,
		sink:    sink,
		users:   users,
	}
}

type response struct {
	Code int
	Body map[string]any
	Raw  string
}

func (a *testAPI) do(method, path, token string, body any) response {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:41000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	res := response{Code: rr.Code, Raw: rr.Body.String()}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &res.Body); err != nil {
			a.t.Fatalf("%s %s: response is not JSON: %v (%s)", method, path, err, res.Raw)
		}
	}
	return res
}

func (r response) errorCode() string {
	e, _ := r.Body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (r response) fieldErrors() map[string]string {
	out := map[string]string{}
	e, _ := r.Body["error"].(map[string]any)
	details, _ := e["details"].(map[string]any)
	fields, _ := details["fields"].([]any)
	for _, f := range fields {
		m, _ := f.(map[string]any)
		out[m["field"].(string)] = m["message"].(string)
	}
	return out
}

func (r response) tokens() (access, refresh string) {
	tok, _ := r.Body["tokens"].(map[string]any)
	access, _ = tok["accessToken"].(string)
	refresh, _ = tok["refreshToken"].(string)
	return access, refresh
}

func (r response) user() map[string]any {
	u, _ := r.Body["user"].(map[string]any)
	return u
}

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":                   email,
		"password":                "Secret123",
		"confirmPassword":         "Secret123",
		"termsAccepted":           true,
		"hipaaNoticeAcknowledged": true,
	}
}

func (a *testAPI) register(email, role string) (id, access, refresh string) {
	a.t.Helper()
	body := registerBody(email)
	if role != "" {
		body["role"] = role
	}
	res := a.do(http.MethodPost, "/api/auth/register", "", body)
	if res.Code != http.StatusCreated {
		a.t.Fatalf("register %s: expected 201, got %d: %s", email, res.Code, res.Raw)
	}
	access, refresh = res.tokens()
	return res.user()["id"].(string), access, refresh
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

func TestSessionLifecycle(t *testing.T) {
	a := newTestAPI(t, 50)

	res := a.do(http.MethodPost, "/api/auth/register", "", registerBody("  Parent@Example.com "))
	if res.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", res.Code, res.Raw)
	}
	if res.Body["success"] != true || res.Body["message"] != "Registration successful" {
		t.Errorf("unexpected envelope %v", res.Body)
	}
	u := res.user()
	if u["email"] != "parent@example.com" || u["role"] != "PATIENT" || u["onboardingCompleted"] != false {
		t.Errorf("unexpected user %v", u)
	}
	tok := res.Body["tokens"].(map[string]any)
	if tok["expiresIn"] != "15m" {
		t.Errorf("expected expiresIn 15m, got %v", tok["expiresIn"])
	}
	if strings.Contains(res.Raw, "password") || strings.Contains(res.Raw, "$2a$") {
		t.Errorf("password material leaked: %s", res.Raw)
	}
	access, refresh := res.tokens()

	res = a.do(http.MethodGet, "/api/auth/me", access, nil)
	if res.Code != http.StatusOK || res.user()["email"] != "parent@example.com" {
		t.Fatalf("me: expected 200 with user, got %d: %s", res.Code, res.Raw)
	}

	a.clock.Advance(15*time.Minute + time.Second)
	res = a.do(http.MethodGet, "/api/auth/me", access, nil)
	if res.Code != http.StatusUnauthorized || res.errorCode() != "TOKEN_EXPIRED" {
		t.Fatalf("me after expiry: expected 401 TOKEN_EXPIRED, got %d %s", res.Code, res.errorCode())
	}

	res = a.do(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": refresh})
	if res.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", res.Code, res.Raw)
	}
	if _, ok := res.Body["user"]; ok {
		t.Error("refresh response should carry tokens only")
	}
	newAccess, newRefresh := res.tokens()
	if newAccess == "" || newRefresh == "" {
		t.Fatal("refresh returned empty tokens")
	}

	res = a.do(http.MethodGet, "/api/auth/me", newAccess, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("me with refreshed token: expected 200, got %d", res.Code)
	}

	res = a.do(http.MethodPost, "/api/auth/logout", newAccess, nil)
	if res.Code != http.StatusOK || res.Body["message"] != "Logged out successfully" {
		t.Fatalf("logout: expected 200, got %d: %s", res.Code, res.Raw)
	}

	want := []audit.EventType{audit.UserCreated, audit.UserRegistered, audit.TokenRefreshed, audit.Logout}
	for _, typ := range want {
		if len(a.sink.ByType(typ)) != 1 {
			t.Errorf("expected one %s event, got %d", typ, len(a.sink.ByType(typ)))
		}
	}
	for _, e := range a.sink.Events() {
		raw, _ := json.Marshal(e)
		if strings.Contains(string(raw), "parent@example.com") || strings.Contains(string(raw), "Secret123") {
			t.Errorf("audit event carries credentials: %s", raw)
		}
	}
}

func TestLogoutRequiresToken(t *testing.T) {
	a := newTestAPI(t, 50)
	res := a.do(http.MethodPost, "/api/auth/logout", "", nil)
	if res.Code != http.StatusUnauthorized || res.errorCode() != "NO_TOKEN" {
		t.Fatalf("expected 401 NO_TOKEN, got %d %s", res.Code, res.errorCode())
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing email", func(b map[string]any) { delete(b, "email") }, "email"},
		{"invalid email", func(b map[string]any) { b["email"] = "not-an-email" }, "email"},
		{"short password", func(b map[string]any) { b["password"], b["confirmPassword"] = "Ab1", "Ab1" }, "password"},
		{"weak password", func(b map[string]any) { b["password"], b["confirmPassword"] = "password123", "password123" }, "password"},
		{"password mismatch", func(b map[string]any) { b["confirmPassword"] = "Secret124" }, "confirmPassword"},
		{"unknown role", func(b map[string]any) { b["role"] = "DOCTOR" }, "role"},
		{"terms not accepted", func(b map[string]any) { b["termsAccepted"] = false }, "termsAccepted"},
		{"hipaa missing", func(b map[string]any) { delete(b, "hipaaNoticeAcknowledged") }, "hipaaNoticeAcknowledged"},
		{"hipaa false", func(b map[string]any) { b["hipaaNoticeAcknowledged"] = false }, "hipaaNoticeAcknowledged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t, 50)
			body := registerBody("jane@example.com")
			tt.mutate(body)

			res := a.do(http.MethodPost, "/api/auth/register", "", body)
			if res.Code != http.StatusBadRequest || res.errorCode() != "VALIDATION_ERROR" {
				t.Fatalf("expected 400 VALIDATION_ERROR, got %d %s", res.Code, res.errorCode())
			}
			if _, ok := res.fieldErrors()[tt.field]; !ok {
				t.Errorf("expected an error on %q, got %v", tt.field, res.fieldErrors())
			}
			if len(a.sink.ByType(audit.UserCreated)) != 0 {
				t.Error("no account may be created on validation failure")
			}
		})
	}
}

func TestRegister_PasswordMismatchMessage(t *testing.T) {
	a := newTestAPI(t, 50)
	body := registerBody("jane@example.com")
	body["confirmPassword"] = "Different1"
	res := a.do(http.MethodPost, "/api/auth/register", "", body)
	if got := res.fieldErrors()["confirmPassword"]; got != "Passwords don't match" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRegister_HipaaAckAlias(t *testing.T) {
	a := newTestAPI(t, 50)
	body := registerBody("alias@example.com")
	delete(body, "hipaaNoticeAcknowledged")
	body["hipaaAck"] = true

	res := a.do(http.MethodPost, "/api/auth/register", "", body)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Raw)
	}
}

func TestRegister_AdminRole(t *testing.T) {
	a := newTestAPI(t, 50)
	body := registerBody("admin@example.com")
	body["role"] = "ADMIN"
	res := a.do(http.MethodPost, "/api/auth/register", "", body)
	if res.Code != http.StatusCreated || res.user()["role"] != "ADMIN" {
		t.Fatalf("expected ADMIN account, got %d: %s", res.Code, res.Raw)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a := newTestAPI(t, 50)
	a.register("dup@example.com", "")

	res := a.do(http.MethodPost, "/api/auth/register", "", registerBody("DUP@example.com"))
	if res.Code != http.StatusConflict || res.errorCode() != "EMAIL_EXISTS" {
		t.Fatalf("expected 409 EMAIL_EXISTS, got %d %s", res.Code, res.errorCode())
	}
	if n := len(a.sink.ByType(audit.UserCreated)); n != 1 {
		t.Errorf("expected exactly one USER_CREATED, got %d", n)
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	a := newTestAPI(t, 50)
	res := a.do(http.MethodPost, "/api/auth/register", "", `{"email": `)
	if res.Code != http.StatusBadRequest || res.errorCode() != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d %s", res.Code, res.errorCode())
	}
}

func TestRegister_BodyTooLarge(t *testing.T) {
	a := newTestAPI(t, 50)
	body := registerBody("big@example.com")
	body["padding"] = strings.Repeat("x", 32*1024)
	res := a.do(http.MethodPost, "/api/auth/register", "", body)
	if res.Code != http.StatusRequestEntityTooLarge || res.errorCode() != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("expected 413 PAYLOAD_TOO_LARGE, got %d %s", res.Code, res.errorCode())
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	a := newTestAPI(t, 50)
	id, _, _ := a.register("login@example.com", "")

	res := a.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "LOGIN@example.com", "password": "Secret123"})
	if res.Code != http.StatusOK || res.Body["message"] != "Login successful" {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Raw)
	}
	if access, refresh := res.tokens(); access == "" || refresh == "" {
		t.Error("expected a token pair")
	}
	if e, _ := a.sink.Last(); e.Type != audit.LoginSuccess || e.UserID != id {
		t.Errorf("expected LOGIN_SUCCESS for %s, got %+v", id, e)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	a := newTestAPI(t, 50)
	a.register("login@example.com", "")

	wrong := a.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "login@example.com", "password": "Wrong1234"})
	wrongEvent, _ := a.sink.Last()
	unknown := a.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "nobody@example.com", "password": "Wrong1234"})
	unknownEvent, _ := a.sink.Last()

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Raw != unknown.Raw {
		t.Errorf("responses differ:\n%s\n%s", wrong.Raw, unknown.Raw)
	}
	if wrong.errorCode() != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %s", wrong.errorCode())
	}
	if wrongEvent.Reason != audit.ReasonInvalidPassword || unknownEvent.Reason != audit.ReasonUserNotFound {
		t.Errorf("unexpected audit reasons %q / %q", wrongEvent.Reason, unknownEvent.Reason)
	}
}

func TestLogin_Validation(t *testing.T) {
	a := newTestAPI(t, 50)
	res := a.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "login@example.com"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if _, ok := res.fieldErrors()["password"]; !ok {
		t.Errorf("expected password error, got %v", res.fieldErrors())
	}
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestRefresh_Failures(t *testing.T) {
	a := newTestAPI(t, 50)
	id, access, refresh := a.register("refresh@example.com", "")

	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing token", map[string]any{}, "NO_REFRESH_TOKEN"},
		{"empty body", nil, "NO_REFRESH_TOKEN"},
		{"garbage", map[string]any{"refreshToken": "garbage"}, "TOKEN_INVALID"},
		{"access token", map[string]any{"refreshToken": access}, "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.do(http.MethodPost, "/api/auth/refresh", "", tt.body)
			if res.Code != http.StatusUnauthorized || res.errorCode() != tt.code {
				t.Fatalf("expected 401 %s, got %d %s", tt.code, res.Code, res.errorCode())
			}
		})
	}

	t.Run("deleted user", func(t *testing.T) {
		if err := a.users.Delete(context.Background(), id); err != nil {
			t.Fatalf("delete: %v", err)
		}
		res := a.do(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": refresh})
		if res.Code != http.StatusUnauthorized || res.errorCode() != "USER_NOT_FOUND" {
			t.Fatalf("expected 401 USER_NOT_FOUND, got %d %s", res.Code, res.errorCode())
		}
	})
}

func TestRefresh_ExpiredToken(t *testing.T) {
	a := newTestAPI(t, 50)
	_, _, refresh := a.register("old@example.com", "")
	a.clock.Advance(7*24*time.Hour + time.Second)

	res := a.do(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": refresh})
	if res.Code != http.StatusUnauthorized || res.errorCode() != "TOKEN_EXPIRED" {
		t.Fatalf("expected 401 TOKEN_EXPIRED, got %d %s", res.Code, res.errorCode())
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestAuthRoutesAreRateLimited(t *testing.T) {
	a := newTestAPI(t, 3)
	creds := map[string]any{"email": "nobody@example.com", "password": "Wrong1234"}

	for i := 0; i < 3; i++ {
		if res := a.do(http.MethodPost, "/api/auth/login", "", creds); res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, res.Code)
		}
	}

	res := a.do(http.MethodPost, "/api/auth/login", "", creds)
	if res.Code != http.StatusTooManyRequests || res.errorCode() != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("expected 429, got %d %s", res.Code, res.errorCode())
	}
	details := res.Body["error"].(map[string]any)["details"].(map[string]any)
	if details["retryAfter"] != float64(300) {
		t.Errorf("expected retryAfter 300, got %v", details["retryAfter"])
	}
	if len(a.sink.ByType(audit.RateLimitExceeded)) != 1 {
		t.Error("expected a RATE_LIMIT_EXCEEDED event")
	}

	// The limit covers the whole /api/auth group, not just login.
	if res := a.do(http.MethodPost, "/api/auth/register", "", registerBody("late@example.com")); res.Code != http.StatusTooManyRequests {
		t.Errorf("register: expected 429, got %d", res.Code)
	}

	// Profile routes are outside the group.
	if res := a.do(http.MethodGet, "/api/profile", "", nil); res.Code != http.StatusUnauthorized {
		t.Errorf("profile: expected 401, got %d", res.Code)
	}

	a.clock.Advance(5*time.Minute + time.Second)
	if res := a.do(http.MethodPost, "/api/auth/login", "", creds); res.Code != http.StatusUnauthorized {
		t.Errorf("after window: expected 401, got %d", res.Code)
	}
}

// ---------------------------------------------------------------------------
// Profile and onboarding
// ---------------------------------------------------------------------------

func onboardingBody() map[string]any {
	return map[string]any{
		"childFirstName":             "Sam",
		"childLastName":              "Doe",
		"childDateOfBirth":           "2018-04-12",
		"childSex":                   "FEMALE",
		"zipCode":                    "02139",
		"medicationRemindersEnabled": true,
		"dailyMedicationDoses":       2,
		"preferredMedicationTime":    "8:00 AM",
		"dailyLogRemindersEnabled":   false,
	}
}

func TestProfile(t *testing.T) {
	a := newTestAPI(t, 50)
	_, access, _ := a.register("profile@example.com", "")

	res := a.do(http.MethodGet, "/api/profile", access, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("get profile: expected 200, got %d: %s", res.Code, res.Raw)
	}
	if res.user()["email"] != "profile@example.com" || res.user()["firstName"] != nil {
		t.Errorf("unexpected profile %v", res.user())
	}
	if strings.Contains(res.Raw, "$2a$") || strings.Contains(res.Raw, "passwordHash") {
		t.Error("profile leaked the password hash")
	}

	res = a.do(http.MethodPatch, "/api/profile", access, map[string]any{
		"firstName":             " Jane ",
		"zipCode":               "94103-1234",
		"currentOnboardingStep": "child-info",
	})
	if res.Code != http.StatusOK || res.Body["message"] != "Profile updated successfully" {
		t.Fatalf("patch profile: expected 200, got %d: %s", res.Code, res.Raw)
	}
	if res.user()["firstName"] != "Jane" || res.user()["zipCode"] != "94103-1234" || res.user()["lastName"] != nil {
		t.Errorf("unexpected updated profile %v", res.user())
	}

	e, _ := a.sink.Last()
	if e.Type != audit.ProfileUpdated || e.Metadata["fields"] != "first_name,zip_code,current_onboarding_step" {
		t.Errorf("unexpected audit event %+v", e)
	}
	if strings.Contains(e.Metadata["fields"], "Jane") {
		t.Error("audit event carries profile values")
	}
}

func TestProfile_UpdateValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"bad zip", map[string]any{"zipCode": "1234"}, "zipCode"},
		{"empty name", map[string]any{"firstName": ""}, "firstName"},
		{"long name", map[string]any{"lastName": strings.Repeat("a", 51)}, "lastName"},
		{"bad sex", map[string]any{"childSex": "UNKNOWN"}, "childSex"},
		{"too many doses", map[string]any{"dailyMedicationDoses": 11}, "dailyMedicationDoses"},
		{"24h clock", map[string]any{"preferredDailyLogTime": "20:00"}, "preferredDailyLogTime"},
		{"bad date", map[string]any{"childDateOfBirth": "12/04/2018"}, "childDateOfBirth"},
	}
	a := newTestAPI(t, 50)
	_, access, _ := a.register("validate@example.com", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.do(http.MethodPatch, "/api/profile", access, tt.body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Raw)
			}
			if _, ok := res.fieldErrors()[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, res.fieldErrors())
			}
		})
	}
}

func TestOnboarding(t *testing.T) {
	a := newTestAPI(t, 50)
	_, access, _ := a.register("onboard@example.com", "")

	res := a.do(http.MethodGet, "/api/profile/onboarding/status", access, nil)
	if res.Code != http.StatusOK || res.Body["onboardingCompleted"] != false {
		t.Fatalf("status before: unexpected %d %v", res.Code, res.Body)
	}

	res = a.do(http.MethodPost, "/api/profile/onboarding/complete", access, onboardingBody())
	if res.Code != http.StatusOK || res.Body["onboardingCompleted"] != true {
		t.Fatalf("complete: expected 200, got %d: %s", res.Code, res.Raw)
	}
	if len(a.sink.ByType(audit.OnboardingCompleted)) != 1 {
		t.Error("expected an ONBOARDING_COMPLETED event")
	}

	res = a.do(http.MethodGet, "/api/profile/onboarding/status", access, nil)
	if res.Body["onboardingCompleted"] != true {
		t.Errorf("status after: expected true, got %v", res.Body)
	}

	res = a.do(http.MethodGet, "/api/profile", access, nil)
	p := res.user()
	if p["childFirstName"] != "Sam" || p["childSex"] != "FEMALE" || p["dailyMedicationDoses"] != float64(2) {
		t.Errorf("onboarding answers not stored: %v", p)
	}
	if !strings.HasPrefix(p["childDateOfBirth"].(string), "2018-04-12") {
		t.Errorf("unexpected date of birth %v", p["childDateOfBirth"])
	}

	res = a.do(http.MethodGet, "/api/auth/me", access, nil)
	if res.user()["onboardingCompleted"] != true {
		t.Errorf("me should report onboarding completed, got %v", res.user())
	}
}

func TestOnboarding_Validation(t *testing.T) {
	a := newTestAPI(t, 50)
	_, access, _ := a.register("onboard@example.com", "")

	for _, field := range []string{"childFirstName", "childDateOfBirth", "childSex", "zipCode", "medicationRemindersEnabled", "dailyLogRemindersEnabled"} {
		t.Run("missing "+field, func(t *testing.T) {
			body := onboardingBody()
			delete(body, field)
			res := a.do(http.MethodPost, "/api/profile/onboarding/complete", access, body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
			if _, ok := res.fieldErrors()[field]; !ok {
				t.Errorf("expected error on %q, got %v", field, res.fieldErrors())
			}
		})
	}
}

func TestProfile_DeletedUser(t *testing.T) {
	a := newTestAPI(t, 50)
	id, access, _ := a.register("gone@example.com", "")
	if err := a.users.Delete(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	res := a.do(http.MethodGet, "/api/profile", access, nil)
	if res.Code != http.StatusUnauthorized || res.errorCode() != "USER_NOT_FOUND" {
		t.Fatalf("expected 401 USER_NOT_FOUND, got %d %s", res.Code, res.errorCode())
	}
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func TestAdminUserLookup(t *testing.T) {
	a := newTestAPI(t, 50)
	patientID, patientAccess, _ := a.register("patient@example.com", "")
	_, adminAccess, _ := a.register("admin@example.com", "ADMIN")

	res := a.do(http.MethodGet, "/api/admin/users/"+patientID, patientAccess, nil)
	if res.Code != http.StatusForbidden || res.errorCode() != "INSUFFICIENT_PERMISSIONS" {
		t.Fatalf("patient: expected 403, got %d %s", res.Code, res.errorCode())
	}
	if len(a.sink.ByType(audit.AuthorizationFailed)) != 1 {
		t.Error("expected an AUTHORIZATION_FAILED event")
	}

	res = a.do(http.MethodGet, "/api/admin/users/"+patientID, adminAccess, nil)
	if res.Code != http.StatusOK || res.user()["id"] != patientID {
		t.Fatalf("admin: expected 200 with patient, got %d: %s", res.Code, res.Raw)
	}

	res = a.do(http.MethodGet, "/api/admin/users/not-a-uuid", adminAccess, nil)
	if res.Code != http.StatusBadRequest {
		t.Errorf("invalid id: expected 400, got %d", res.Code)
	}

	res = a.do(http.MethodGet, "/api/admin/users/6f1c2b3a-4d5e-4f60-8a9b-0c1d2e3f4a5b", adminAccess, nil)
	if res.Code != http.StatusNotFound || res.errorCode() != "USER_NOT_FOUND" {
		t.Errorf("unknown id: expected 404 USER_NOT_FOUND, got %d %s", res.Code, res.errorCode())
	}

	res = a.do(http.MethodGet, "/api/admin/users/"+patientID, "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", res.Code)
	}
}
