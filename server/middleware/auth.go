package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/auth/authctx"
	"github.com/kbukum/asthma-api/auth/jwt"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/user"
)

// TokenVerifier validates an access token. *jwt.Service implements it.
type TokenVerifier interface {
	VerifyAccess(token string) (*jwt.Claims, error)
}

// UserFinder loads the account a token refers to. user.Store implements it.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	Tokens TokenVerifier
	Users  UserFinder
	Audit  audit.Sink
	// Now stamps audit events. Defaults to time.Now.
	Now func() time.Time
}

// Authenticate returns a Gin middleware that requires a valid bearer
// access token for an existing account. On success the principal is
// attached to the request context (see authctx) and an AUTH_SUCCESS event
// is recorded for every request.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Audit == nil {
		cfg.Audit = audit.Nop
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		req := AuditRequest(c)
		fail := func(userID, reason string, err error) {
			e := req.Event(audit.AuthFailed, userID, cfg.Now())
			e.Reason = reason
			cfg.Audit.Record(ctx, e)
			AbortWithError(c, err)
		}

		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			fail("", audit.ReasonNoToken, apperrors.NoToken())
			return
		}

		claims, err := cfg.Tokens.VerifyAccess(token)
		if err != nil {
			fail("", jwt.Reason(err), jwt.AppError(err))
			return
		}

		u, err := cfg.Users.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				fail(claims.UserID, audit.ReasonUserNotFound, apperrors.UnknownPrincipal())
				return
			}
			AbortWithError(c, apperrors.DatabaseError(err))
			return
		}

		p := u.Principal()
		ctx = authctx.WithPrincipal(ctx, p)
		ctx = logger.ContextWithUserID(ctx, p.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", p.ID)

		cfg.Audit.Record(ctx, req.Event(audit.AuthSuccess, p.ID, cfg.Now()))
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively; anything else yields "".
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireRole returns a Gin middleware, applied after Authenticate, that
// only lets principals holding one of roles through.
func RequireRole(sink audit.Sink, roles ...auth.Role) gin.HandlerFunc {
	if sink == nil {
		sink = audit.Nop
	}
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = r.String()
	}
	required := strings.Join(allowed, ",")

	return func(c *gin.Context) {
		p, ok := authctx.Principal(c.Request.Context())
		if !ok {
			AbortWithError(c, apperrors.AuthRequired())
			return
		}
		if !p.HasRole(roles...) {
			e := AuditRequest(c).Event(audit.AuthorizationFailed, p.ID, time.Now())
			e.Metadata = map[string]string{
				"role":          p.Role.String(),
				"requiredRoles": required,
			}
			sink.Record(c.Request.Context(), e)
			AbortWithError(c, apperrors.InsufficientPermissions())
			return
		}
		c.Next()
	}
}
