// Package api mounts the service's HTTP surface on a Gin router:
//
//	/api/auth     register, login, refresh (public, rate limited)
//	              logout, me (authenticated)
//	/api/profile  profile and onboarding (authenticated)
//	/api/admin    user lookup (ADMIN only)
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/account"
	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/profile"
	"github.com/kbukum/asthma-api/server/middleware"
)

// Deps are the services the handlers call.
type Deps struct {
	Accounts *account.Service
	Profiles *profile.Service
	Tokens   middleware.TokenVerifier
	Users    middleware.UserFinder
	// Limiter throttles the /api/auth group. Nil disables throttling.
	Limiter middleware.Limiter
	Audit   audit.Sink
	Log     *logger.Logger
	// Now stamps audit events. Defaults to time.Now.
	Now func() time.Time
}

// Handler serves the API routes.
type Handler struct {
	accounts *account.Service
	profiles *profile.Service
	log      *logger.Logger
}

// Register mounts every route on r.
func Register(r gin.IRouter, d Deps) *Handler {
	if d.Audit == nil {
		d.Audit = audit.Nop
	}
	if d.Log == nil {
		d.Log = logger.GetGlobalLogger()
	}
	h := &Handler{accounts: d.Accounts, profiles: d.Profiles, log: d.Log.WithComponent("api")}

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		Tokens: d.Tokens,
		Users:  d.Users,
		Audit:  d.Audit,
		Now:    d.Now,
	})

	authGroup := r.Group("/api/auth")
	if d.Limiter != nil {
		authGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: d.Limiter,
			Audit:   d.Audit,
			Log:     d.Log,
			Now:     d.Now,
		}))
	}
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)
	authGroup.POST("/logout", authenticate, h.logout)
	authGroup.GET("/me", authenticate, h.me)

	profileGroup := r.Group("/api/profile", authenticate)
	profileGroup.GET("", h.getProfile)
	profileGroup.PATCH("", h.updateProfile)
	profileGroup.POST("/onboarding/complete", h.completeOnboarding)
	profileGroup.GET("/onboarding/status", h.onboardingStatus)

	adminGroup := r.Group("/api/admin", authenticate, middleware.RequireRole(d.Audit, auth.RoleAdmin))
	adminGroup.GET("/users/:id", h.getUser)

	return h
}
