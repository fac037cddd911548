// Package user owns the credential record and the patient profile, and
// the store that persists them.
package user

import (
	"strings"
	"time"

	"github.com/kbukum/asthma-api/auth"
	"github.com/kbukum/asthma-api/database"
)

// Sex is the child's recorded sex.
type Sex string

const (
	SexMale           Sex = "MALE"
	SexFemale         Sex = "FEMALE"
	SexOther          Sex = "OTHER"
	SexPreferNotToSay Sex = "PREFER_NOT_TO_SAY"
)

// User is the stored account: credentials plus the profile collected
// during onboarding. PasswordHash never leaves the package through JSON.
type User struct {
	database.BaseModel
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         auth.Role `gorm:"type:varchar(16);not null;default:PATIENT" json:"role"`

	FirstName *string `gorm:"type:varchar(50)" json:"firstName"`
	LastName  *string `gorm:"type:varchar(50)" json:"lastName"`

	ChildFirstName   *string    `gorm:"type:varchar(50)" json:"childFirstName"`
	ChildLastName    *string    `gorm:"type:varchar(50)" json:"childLastName"`
	ChildDateOfBirth *time.Time `json:"childDateOfBirth"`
	ChildSex         *Sex       `gorm:"type:varchar(20)" json:"childSex"`

	ZipCode *string `gorm:"type:varchar(10)" json:"zipCode"`

	MedicationRemindersEnabled bool    `gorm:"not null;default:false" json:"medicationRemindersEnabled"`
	DailyMedicationDoses       *int    `json:"dailyMedicationDoses"`
	PreferredMedicationTime    *string `gorm:"type:varchar(8)" json:"preferredMedicationTime"`

	DailyLogRemindersEnabled bool    `gorm:"not null;default:false" json:"dailyLogRemindersEnabled"`
	PreferredDailyLogTime    *string `gorm:"type:varchar(8)" json:"preferredDailyLogTime"`

	OnboardingCompleted   bool    `gorm:"not null;default:false" json:"onboardingCompleted"`
	CurrentOnboardingStep *string `gorm:"type:varchar(50)" json:"currentOnboardingStep"`
}

// TableName pins the table name.
func (User) TableName() string { return "users" }

// Principal returns the identity carried in tokens.
func (u *User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// PublicUser is the account summary returned by the auth endpoints.
type PublicUser struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	Role                  auth.Role `json:"role"`
	OnboardingCompleted   bool      `json:"onboardingCompleted"`
	CurrentOnboardingStep *string   `json:"currentOnboardingStep"`
	CreatedAt             time.Time `json:"createdAt"`
}

// Public returns the summary view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                    u.ID,
		Email:                 u.Email,
		Role:                  u.Role,
		OnboardingCompleted:   u.OnboardingCompleted,
		CurrentOnboardingStep: u.CurrentOnboardingStep,
		CreatedAt:             u.CreatedAt,
	}
}

// Profile is the full view returned by the profile endpoints.
type Profile struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`

	FirstName        *string    `json:"firstName"`
	LastName         *string    `json:"lastName"`
	ChildFirstName   *string    `json:"childFirstName"`
	ChildLastName    *string    `json:"childLastName"`
	ChildDateOfBirth *time.Time `json:"childDateOfBirth"`
	ChildSex         *Sex       `json:"childSex"`
	ZipCode          *string    `json:"zipCode"`

	MedicationRemindersEnabled bool    `json:"medicationRemindersEnabled"`
	DailyMedicationDoses       *int    `json:"dailyMedicationDoses"`
	PreferredMedicationTime    *string `json:"preferredMedicationTime"`
	DailyLogRemindersEnabled   bool    `json:"dailyLogRemindersEnabled"`
	PreferredDailyLogTime      *string `json:"preferredDailyLogTime"`

	OnboardingCompleted   bool      `json:"onboardingCompleted"`
	CurrentOnboardingStep *string   `json:"currentOnboardingStep"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Profile returns the full profile view of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:                         u.ID,
		Email:                      u.Email,
		Role:                       u.Role,
		FirstName:                  u.FirstName,
		LastName:                   u.LastName,
		ChildFirstName:             u.ChildFirstName,
		ChildLastName:              u.ChildLastName,
		ChildDateOfBirth:           u.ChildDateOfBirth,
		ChildSex:                   u.ChildSex,
		ZipCode:                    u.ZipCode,
		MedicationRemindersEnabled: u.MedicationRemindersEnabled,
		DailyMedicationDoses:       u.DailyMedicationDoses,
		PreferredMedicationTime:    u.PreferredMedicationTime,
		DailyLogRemindersEnabled:   u.DailyLogRemindersEnabled,
		PreferredDailyLogTime:      u.PreferredDailyLogTime,
		OnboardingCompleted:        u.OnboardingCompleted,
		CurrentOnboardingStep:      u.CurrentOnboardingStep,
		CreatedAt:                  u.CreatedAt,
		UpdatedAt:                  u.UpdatedAt,
	}
}

// NormalizeEmail trims and lower-cases an address. Emails are stored and
// looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
