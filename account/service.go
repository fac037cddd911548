// Package account implements registration, login, token refresh and
// logout on top of the user store, the password hasher and the token
// service. Every outcome is written to the audit sink.
package account

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/auth/jwt"
	"github.com/kbukum/asthma-api/auth/password"
	"github.com/kbukum/asthma-api/database"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/user"
)

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email    string
	Password string
	Role     auth.Role
}

// Session is the result of a successful register, login or refresh.
type Session struct {
	User   user.PublicUser
	Tokens jwt.TokenPair
}

// Service runs the account flows.
type Service struct {
	users  user.Store
	hasher password.Hasher
	tokens *jwt.Service
	audit  audit.Sink
	log    *logger.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the account flows.
func NewService(users user.Store, hasher password.Hasher, tokens *jwt.Service, sink audit.Sink, log *logger.Logger, opts ...Option) *Service {
	if sink == nil {
		sink = audit.Nop
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		audit:  sink,
		log:    log.WithComponent("account"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a PATIENT (or the requested role) account and signs
// the caller in.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta audit.Request) (*Session, error) {
	role := in.Role
	if role == "" {
		role = auth.DefaultRole
	}
	if !role.Valid() {
		return nil, apperrors.InvalidField("role", "must be one of: PATIENT ADMIN")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	u := &user.User{
		Email:        user.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, apperrors.EmailExists().WithCause(err)
		}
		return nil, database.FromDatabase(err, "user")
	}

	created := meta.Event(audit.UserCreated, u.ID, s.now())
	created.Metadata = map[string]string{"role": string(u.Role)}
	s.audit.Record(ctx, created)

	pair, err := s.tokens.IssueTokenPair(u.Principal())
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	registered := meta.Event(audit.UserRegistered, u.ID, s.now())
	registered.Metadata = map[string]string{"role": string(u.Role)}
	s.audit.Record(ctx, registered)

	return &Session{User: u.Public(), Tokens: pair}, nil
}

// Login checks credentials. Unknown email and wrong password return the
// same error, and an unknown email still costs one bcrypt comparison.
func (s *Service) Login(ctx context.Context, email, plaintext string, meta audit.Request) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return nil, database.FromDatabase(err, "user")
		}
		s.hasher.Verify(plaintext, s.dummy())
		failed := meta.Event(audit.LoginFailed, "", s.now())
		failed.Reason = audit.ReasonUserNotFound
		s.audit.Record(ctx, failed)
		return nil, apperrors.InvalidCredentials()
	}

	if !s.hasher.Verify(plaintext, u.PasswordHash) {
		failed := meta.Event(audit.LoginFailed, u.ID, s.now())
		failed.Reason = audit.ReasonInvalidPassword
		s.audit.Record(ctx, failed)
		return nil, apperrors.InvalidCredentials()
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u.ID, plaintext)
	}

	pair, err := s.tokens.IssueTokenPair(u.Principal())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.audit.Record(ctx, meta.Event(audit.LoginSuccess, u.ID, s.now()))

	return &Session{User: u.Public(), Tokens: pair}, nil
}

// rehash upgrades a hash made with an older cost. Failure is logged and
// does not fail the login.
func (s *Service) rehash(ctx context.Context, userID, plaintext string) {
	hash, err := s.hasher.Hash(plaintext)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.log.WithContext(ctx).Warn("Password rehash failed", logger.Fields(
			logger.FieldUserID, userID,
			logger.FieldError, err.Error(),
		))
		return
	}
	s.log.WithContext(ctx).Info("Password hash upgraded", logger.Fields(logger.FieldUserID, userID))
}

// dummy returns a hash at the current cost, used to equalize login
// timing for unknown emails.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			s.log.Error("Failed to build dummy hash", logger.Fields(logger.FieldError, err.Error()))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// Refresh exchanges a refresh token for a new pair. The account must
// still exist.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta audit.Request) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.NoRefreshToken()
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		failed := meta.Event(audit.AuthFailed, "", s.now())
		failed.Reason = jwt.Reason(err)
		s.audit.Record(ctx, failed)
		return nil, jwt.AppError(err)
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return nil, database.FromDatabase(err, "user")
		}
		failed := meta.Event(audit.AuthFailed, claims.UserID, s.now())
		failed.Reason = audit.ReasonUserNotFound
		s.audit.Record(ctx, failed)
		return nil, apperrors.UnknownPrincipal()
	}

	pair, err := s.tokens.IssueTokenPair(u.Principal())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.audit.Record(ctx, meta.Event(audit.TokenRefreshed, u.ID, s.now()))

	return &Session{User: u.Public(), Tokens: pair}, nil
}

// Me returns the public record of the authenticated user.
func (s *Service) Me(ctx context.Context, p auth.Principal) (user.PublicUser, error) {
	u, err := s.users.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.PublicUser{}, apperrors.UserNotFound()
		}
		return user.PublicUser{}, database.FromDatabase(err, "user")
	}
	return u.Public(), nil
}

// Lookup returns the public record of any user by id.
func (s *Service) Lookup(ctx context.Context, id string) (user.PublicUser, error) {
	return s.Me(ctx, auth.Principal{ID: id})
}

// Logout records the event. Tokens stay valid until they expire; the
// client discards them.
func (s *Service) Logout(ctx context.Context, p auth.Principal, meta audit.Request) {
	s.audit.Record(ctx, meta.Event(audit.Logout, p.ID, s.now()))
}

// AccessTokenTTL is the lifetime clients are told in expiresIn.
func (s *Service) AccessTokenTTL() time.Duration {
	return s.tokens.Config().AccessTokenTTL
}
