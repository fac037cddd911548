package account

import (
	"context"
	"errors"

	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/user"
)

// EnsureUser creates the account if the email is free. It reports whether
// a new account was created and never changes an existing one.
func (s *Service) EnsureUser(ctx context.Context, email, plaintext string, role auth.Role) (user.PublicUser, bool, error) {
	existing, err := s.users.FindByEmail(ctx, user.NormalizeEmail(email))
	if err == nil {
		return existing.Public(), false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.PublicUser{}, false, err
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return user.PublicUser{}, false, err
	}
	u := &user.User{Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return user.PublicUser{}, false, err
	}
	s.log.WithContext(ctx).Info("Seeded user", map[string]interface{}{
		"user_id": u.ID,
		"role":    string(u.Role),
	})
	return u.Public(), true, nil
}
