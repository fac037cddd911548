// Package profile reads and updates the patient profile and records
// onboarding completion.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kbukum/asthma-api/audit"
	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/database"
	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/user"
)

// Onboarding is the data collected by the onboarding flow, submitted in
// one request.
type Onboarding struct {
	ChildFirstName   string
	ChildLastName    string
	ChildDateOfBirth time.Time
	ChildSex         user.Sex
	ZipCode          string

	MedicationRemindersEnabled bool
	DailyMedicationDoses       *int
	PreferredMedicationTime    *string

	DailyLogRemindersEnabled bool
	PreferredDailyLogTime    *string
}

func (o Onboarding) update() user.ProfileUpdate {
	done := true
	return user.ProfileUpdate{
		ChildFirstName:             &o.ChildFirstName,
		ChildLastName:              &o.ChildLastName,
		ChildDateOfBirth:           &o.ChildDateOfBirth,
		ChildSex:                   &o.ChildSex,
		ZipCode:                    &o.ZipCode,
		MedicationRemindersEnabled: &o.MedicationRemindersEnabled,
		DailyMedicationDoses:       o.DailyMedicationDoses,
		PreferredMedicationTime:    o.PreferredMedicationTime,
		DailyLogRemindersEnabled:   &o.DailyLogRemindersEnabled,
		PreferredDailyLogTime:      o.PreferredDailyLogTime,
		OnboardingCompleted:        &done,
	}
}

// Service serves the profile endpoints.
type Service struct {
	users user.Store
	audit audit.Sink
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a profile service.
func NewService(users user.Store, sink audit.Sink, log *logger.Logger) *Service {
	if sink == nil {
		sink = audit.Nop
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{users: users, audit: sink, log: log.WithComponent("profile"), now: time.Now}
}

// Get returns the caller's full profile.
func (s *Service) Get(ctx context.Context, p auth.Principal) (user.Profile, error) {
	u, err := s.users.FindByID(ctx, p.ID)
	if err != nil {
		return user.Profile{}, storeError(err)
	}
	return u.Profile(), nil
}

// Update applies a partial profile change.
func (s *Service) Update(ctx context.Context, p auth.Principal, upd user.ProfileUpdate, req audit.Request) (user.Profile, error) {
	u, err := s.users.UpdateProfile(ctx, p.ID, upd)
	if err != nil {
		return user.Profile{}, storeError(err)
	}

	fields := upd.Fields()
	e := req.Event(audit.ProfileUpdated, p.ID, s.now())
	e.Metadata = map[string]string{"fields": strings.Join(fields, ",")}
	s.audit.Record(ctx, e)
	s.log.WithContext(ctx).Info("User profile updated", logger.Fields(
		logger.FieldUserID, p.ID,
		"updated_fields", fields,
	))
	return u.Profile(), nil
}

// CompleteOnboarding stores the onboarding answers and marks onboarding done.
func (s *Service) CompleteOnboarding(ctx context.Context, p auth.Principal, in Onboarding, req audit.Request) error {
	if _, err := s.users.UpdateProfile(ctx, p.ID, in.update()); err != nil {
		return storeError(err)
	}
	s.audit.Record(ctx, req.Event(audit.OnboardingCompleted, p.ID, s.now()))
	return nil
}

// OnboardingStatus reports whether the caller finished onboarding.
func (s *Service) OnboardingStatus(ctx context.Context, p auth.Principal) (bool, error) {
	u, err := s.users.FindByID(ctx, p.ID)
	if err != nil {
		return false, storeError(err)
	}
	return u.OnboardingCompleted, nil
}

func storeError(err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return apperrors.UserNotFound()
	}
	return database.FromDatabase(err, "user")
}
