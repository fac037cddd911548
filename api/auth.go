package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/account"
	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/auth/authctx"
	"github.com/kbukum/asthma-api/auth/jwt"
	"github.com/kbukum/asthma-api/server"
	"github.com/kbukum/asthma-api/server/middleware"
	"github.com/kbukum/asthma-api/user"
	"github.com/kbukum/asthma-api/validation"
)

type registerRequest struct {
	Email                   string `json:"email" validate:"required,email,max=255"`
	Password                string `json:"password" validate:"required,min=8,max=128,password_strength"`
	ConfirmPassword         string `json:"confirmPassword" validate:"required"`
	Role                    string `json:"role" validate:"omitempty,oneof=PATIENT ADMIN"`
	TermsAccepted           bool   `json:"termsAccepted" validate:"accepted"`
	HipaaNoticeAcknowledged *bool  `json:"hipaaNoticeAcknowledged"`
	HipaaAck                *bool  `json:"hipaaAck"`
}

func (r *registerRequest) normalize() {
	r.Email = user.NormalizeEmail(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

// hipaaAcknowledged accepts either field name; clients have sent both.
func (r *registerRequest) hipaaAcknowledged() bool {
	return (r.HipaaNoticeAcknowledged != nil && *r.HipaaNoticeAcknowledged) ||
		(r.HipaaAck != nil && *r.HipaaAck)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = user.NormalizeEmail(r.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type sessionResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	User    *user.PublicUser `json:"user,omitempty"`
	Tokens  tokensResponse   `json:"tokens"`
}

type userResponse struct {
	Success bool            `json:"success"`
	User    user.PublicUser `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) tokens(pair jwt.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    expiresIn(h.accounts.AccessTokenTTL()),
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	err := bind(c, &req, func(v *validation.Validator) {
		v.Custom(v.Failed("confirmPassword") || req.Password == req.ConfirmPassword, "confirmPassword", "Passwords don't match")
		v.Custom(req.hipaaAcknowledged(), "hipaaNoticeAcknowledged", "Must acknowledge HIPAA notice")
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	session, err := h.accounts.Register(c.Request.Context(), account.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     auth.Role(req.Role),
	}, middleware.AuditRequest(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondCreated(c, sessionResponse{
		Success: true,
		Message: "Registration successful",
		User:    &session.User,
		Tokens:  h.tokens(session.Tokens),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password, middleware.AuditRequest(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, sessionResponse{
		Success: true,
		Message: "Login successful",
		User:    &session.User,
		Tokens:  h.tokens(session.Tokens),
	})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := decode(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	session, err := h.accounts.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken), middleware.AuditRequest(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	server.RespondOK(c, sessionResponse{Success: true, Tokens: h.tokens(session.Tokens)})
}

func (h *Handler) logout(c *gin.Context) {
	p := authctx.MustPrincipal(c.Request.Context())
	h.accounts.Logout(c.Request.Context(), p, middleware.AuditRequest(c))
	server.RespondOK(c, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) me(c *gin.Context) {
	p := authctx.MustPrincipal(c.Request.Context())
	u, err := h.accounts.Me(c.Request.Context(), p)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, userResponse{Success: true, User: u})
}
