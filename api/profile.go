package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/asthma-api/auth/authctx"
	"github.com/kbukum/asthma-api/profile"
	"github.com/kbukum/asthma-api/server"
	"github.com/kbukum/asthma-api/server/middleware"
	"github.com/kbukum/asthma-api/user"
	"github.com/kbukum/asthma-api/validation"
)

type updateProfileRequest struct {
	FirstName        *string `json:"firstName" validate:"omitempty,min=1,max=50"`
	LastName         *string `json:"lastName" validate:"omitempty,min=1,max=50"`
	ChildFirstName   *string `json:"childFirstName" validate:"omitempty,min=1,max=50"`
	ChildLastName    *string `json:"childLastName" validate:"omitempty,min=1,max=50"`
	ChildDateOfBirth *string `json:"childDateOfBirth"`
	ChildSex         *string `json:"childSex" validate:"omitempty,oneof=MALE FEMALE OTHER PREFER_NOT_TO_SAY"`
	ZipCode          *string `json:"zipCode" validate:"omitempty,us_zip"`

	MedicationRemindersEnabled *bool   `json:"medicationRemindersEnabled"`
	DailyMedicationDoses       *int    `json:"dailyMedicationDoses" validate:"omitempty,gte=0,lte=10"`
	PreferredMedicationTime    *string `json:"preferredMedicationTime" validate:"omitempty,clock_time"`
	DailyLogRemindersEnabled   *bool   `json:"dailyLogRemindersEnabled"`
	PreferredDailyLogTime      *string `json:"preferredDailyLogTime" validate:"omitempty,clock_time"`

	CurrentOnboardingStep *string `json:"currentOnboardingStep" validate:"omitempty,min=1,max=50"`

	dob *time.Time
}

func (r *updateProfileRequest) normalize() {
	for _, s := range []*string{r.FirstName, r.LastName, r.ChildFirstName, r.ChildLastName, r.ZipCode, r.CurrentOnboardingStep} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if r.ChildDateOfBirth != nil {
		if t, ok := parseDate(strings.TrimSpace(*r.ChildDateOfBirth)); ok {
			r.dob = &t
		}
	}
}

func (r *updateProfileRequest) update() user.ProfileUpdate {
	upd := user.ProfileUpdate{
		FirstName:                  r.FirstName,
		LastName:                   r.LastName,
		ChildFirstName:             r.ChildFirstName,
		ChildLastName:              r.ChildLastName,
		ChildDateOfBirth:           r.dob,
		ZipCode:                    r.ZipCode,
		MedicationRemindersEnabled: r.MedicationRemindersEnabled,
		DailyMedicationDoses:       r.DailyMedicationDoses,
		PreferredMedicationTime:    r.PreferredMedicationTime,
		DailyLogRemindersEnabled:   r.DailyLogRemindersEnabled,
		PreferredDailyLogTime:      r.PreferredDailyLogTime,
		CurrentOnboardingStep:      r.CurrentOnboardingStep,
	}
	if r.ChildSex != nil {
		sex := user.Sex(*r.ChildSex)
		upd.ChildSex = &sex
	}
	return upd
}

type completeOnboardingRequest struct {
	ChildFirstName   string `json:"childFirstName" validate:"required,max=50"`
	ChildLastName    string `json:"childLastName" validate:"required,max=50"`
	ChildDateOfBirth string `json:"childDateOfBirth" validate:"required"`
	ChildSex         string `json:"childSex" validate:"required,oneof=MALE FEMALE OTHER PREFER_NOT_TO_SAY"`
	ZipCode          string `json:"zipCode" validate:"required,us_zip"`

	MedicationRemindersEnabled *bool   `json:"medicationRemindersEnabled" validate:"required"`
	DailyMedicationDoses       *int    `json:"dailyMedicationDoses" validate:"omitempty,gte=0,lte=10"`
	PreferredMedicationTime    *string `json:"preferredMedicationTime" validate:"omitempty,clock_time"`
	DailyLogRemindersEnabled   *bool   `json:"dailyLogRemindersEnabled" validate:"required"`
	PreferredDailyLogTime      *string `json:"preferredDailyLogTime" validate:"omitempty,clock_time"`

	dob time.Time
}

func (r *completeOnboardingRequest) normalize() {
	r.ChildFirstName = strings.TrimSpace(r.ChildFirstName)
	r.ChildLastName = strings.TrimSpace(r.ChildLastName)
	r.ZipCode = strings.TrimSpace(r.ZipCode)
	if t, ok := parseDate(strings.TrimSpace(r.ChildDateOfBirth)); ok {
		r.dob = t
	}
}

func (r *completeOnboardingRequest) onboarding() profile.Onboarding {
	return profile.Onboarding{
		ChildFirstName:             r.ChildFirstName,
		ChildLastName:              r.ChildLastName,
		ChildDateOfBirth:           r.dob,
		ChildSex:                   user.Sex(r.ChildSex),
		ZipCode:                    r.ZipCode,
		MedicationRemindersEnabled: *r.MedicationRemindersEnabled,
		DailyMedicationDoses:       r.DailyMedicationDoses,
		PreferredMedicationTime:    r.PreferredMedicationTime,
		DailyLogRemindersEnabled:   *r.DailyLogRemindersEnabled,
		PreferredDailyLogTime:      r.PreferredDailyLogTime,
	}
}

type profileResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    user.Profile `json:"user"`
}

type onboardingResponse struct {
	Success             bool   `json:"success"`
	Message             string `json:"message,omitempty"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}

const dateMessage = "must be an ISO 8601 date"

func (h *Handler) getProfile(c *gin.Context) {
	p := authctx.MustPrincipal(c.Request.Context())
	prof, err := h.profiles.Get(c.Request.Context(), p)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, profileResponse{Success: true, User: prof})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	err := bind(c, &req, func(v *validation.Validator) {
		v.Custom(req.ChildDateOfBirth == nil || req.dob != nil, "childDateOfBirth", dateMessage)
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	p := authctx.MustPrincipal(c.Request.Context())
	prof, err := h.profiles.Update(c.Request.Context(), p, req.update(), middleware.AuditRequest(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, profileResponse{Success: true, Message: "Profile updated successfully", User: prof})
}

func (h *Handler) completeOnboarding(c *gin.Context) {
	var req completeOnboardingRequest
	err := bind(c, &req, func(v *validation.Validator) {
		v.Custom(req.ChildDateOfBirth == "" || !req.dob.IsZero(), "childDateOfBirth", dateMessage)
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	p := authctx.MustPrincipal(c.Request.Context())
	if err := h.profiles.CompleteOnboarding(c.Request.Context(), p, req.onboarding(), middleware.AuditRequest(c)); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, onboardingResponse{
		Success:             true,
		Message:             "Onboarding completed successfully",
		OnboardingCompleted: true,
	})
}

func (h *Handler) onboardingStatus(c *gin.Context) {
	p := authctx.MustPrincipal(c.Request.Context())
	done, err := h.profiles.OnboardingStatus(c.Request.Context(), p)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, onboardingResponse{Success: true, OnboardingCompleted: done})
}
