package app

import (
	"context"
	"errors"

	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/user"
)

// Development account created by the seed-test-user command. The password
// predates the registration strength rules and is only usable in
// non-production environments.
const (
	TestUserEmail    = "test@example.com"
	TestUserPassword = "password123"
)

// ErrSeedInProduction is returned when seeding is attempted in production.
var ErrSeedInProduction = errors.New("refusing to seed the test user in production")

// SeedTestUser creates the development PATIENT account if it does not
// exist. It must run inside RunTask so the database is open.
func (s *Service) SeedTestUser(ctx context.Context) (user.PublicUser, bool, error) {
	if s.App.Cfg.IsProduction() {
		return user.PublicUser{}, false, ErrSeedInProduction
	}
	return s.Accounts.EnsureUser(ctx, TestUserEmail, TestUserPassword, auth.RolePatient)
}
