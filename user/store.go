package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/asthma-api/database"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user: not found")
	// ErrDuplicateEmail is returned by Create when the email is taken.
	ErrDuplicateEmail = errors.New("user: email already registered")
)

// ProfileUpdate lists the profile fields to change. Nil fields are left
// alone.
type ProfileUpdate struct {
	FirstName        *string
	LastName         *string
	ChildFirstName   *string
	ChildLastName    *string
	ChildDateOfBirth *time.Time
	ChildSex         *Sex
	ZipCode          *string

	MedicationRemindersEnabled *bool
	DailyMedicationDoses       *int
	PreferredMedicationTime    *string
	DailyLogRemindersEnabled   *bool
	PreferredDailyLogTime      *string

	OnboardingCompleted   *bool
	CurrentOnboardingStep *string
}

// Fields returns the column names that would change, in a stable order.
func (u ProfileUpdate) Fields() []string {
	var out []string
	for _, c := range u.columns() {
		out = append(out, c.name)
	}
	return out
}

type column struct {
	name  string
	value interface{}
}

func (u ProfileUpdate) columns() []column {
	var cols []column
	if u.FirstName != nil {
		cols = append(cols, column{"first_name", *u.FirstName})
	}
	if u.LastName != nil {
		cols = append(cols, column{"last_name", *u.LastName})
	}
	if u.ChildFirstName != nil {
		cols = append(cols, column{"child_first_name", *u.ChildFirstName})
	}
	if u.ChildLastName != nil {
		cols = append(cols, column{"child_last_name", *u.ChildLastName})
	}
	if u.ChildDateOfBirth != nil {
		cols = append(cols, column{"child_date_of_birth", u.ChildDateOfBirth.UTC()})
	}
	if u.ChildSex != nil {
		cols = append(cols, column{"child_sex", string(*u.ChildSex)})
	}
	if u.ZipCode != nil {
		cols = append(cols, column{"zip_code", *u.ZipCode})
	}
	if u.MedicationRemindersEnabled != nil {
		cols = append(cols, column{"medication_reminders_enabled", *u.MedicationRemindersEnabled})
	}
	if u.DailyMedicationDoses != nil {
		cols = append(cols, column{"daily_medication_doses", *u.DailyMedicationDoses})
	}
	if u.PreferredMedicationTime != nil {
		cols = append(cols, column{"preferred_medication_time", *u.PreferredMedicationTime})
	}
	if u.DailyLogRemindersEnabled != nil {
		cols = append(cols, column{"daily_log_reminders_enabled", *u.DailyLogRemindersEnabled})
	}
	if u.PreferredDailyLogTime != nil {
		cols = append(cols, column{"preferred_daily_log_time", *u.PreferredDailyLogTime})
	}
	if u.OnboardingCompleted != nil {
		cols = append(cols, column{"onboarding_completed", *u.OnboardingCompleted})
	}
	if u.CurrentOnboardingStep != nil {
		cols = append(cols, column{"current_onboarding_step", *u.CurrentOnboardingStep})
	}
	return cols
}

// Store persists users. Implementations guarantee email uniqueness.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	Delete(ctx context.Context, id string) error
}

// GormStore is the Store backed by the relational database.
type GormStore struct {
	db *database.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a store over db.
func NewGormStore(db *database.DB) *GormStore {
	return &GormStore{db: db}
}

// Models returns the tables this store needs migrated.
func Models() []interface{} {
	return []interface{}{&User{}}
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Take(&u).Error
	if err != nil {
		return nil, wrap("find by email", err)
	}
	return &u, nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, wrap("find by id", err)
	}
	return &u, nil
}

// Create inserts u, normalizing its email and filling ID and timestamps.
func (s *GormStore) Create(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (s *GormStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("user update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile applies upd and returns the updated record.
func (s *GormStore) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	cols := upd.columns()
	var out *User
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var u User
		if err := tx.Where("id = ?", id).Take(&u).Error; err != nil {
			return err
		}
		if len(cols) > 0 {
			values := make(map[string]interface{}, len(cols))
			for _, c := range cols {
				values[c.name] = c.value
			}
			if err := tx.Model(&u).Updates(values).Error; err != nil {
				return err
			}
			if err := tx.Where("id = ?", id).Take(&u).Error; err != nil {
				return err
			}
		}
		out = &u
		return nil
	})
	if err != nil {
		return nil, wrap("update profile", err)
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&User{})
	if res.Error != nil {
		return fmt.Errorf("user delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func wrap(op string, err error) error {
	if database.IsNotFoundError(err) {
		return ErrNotFound
	}
	return fmt.Errorf("user %s: %w", op, err)
}
