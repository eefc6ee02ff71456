package crm

import (
	"strings"
	"time"

	"github.com/hubcrm/backend/internal/domain/shared"
)

// Activity is a logged or planned interaction: a call, an email or a meeting
type Activity struct {
	ID           int64
	Name         string
	Subject      string
	ActivityType string
	Status       string
	DueDate      string
	Description  string
	Tags         []string
	Owner        string
	CreatedBy    string
	ModifiedBy   string
	CreatedAt    string
	UpdatedAt    string
}

// ApplyDefaults fills type and status the way new activities start out
func (a *Activity) ApplyDefaults() {
	if a.ActivityType == "" {
		a.ActivityType = ActivityTypeCall
	}
	if a.Status == "" {
		a.Status = ActivityStatusPlanned
	}
}

// IsOverdue reports whether an open activity is due on a day before now.
// Completed and cancelled activities are never overdue.
func (a *Activity) IsOverdue(now time.Time) bool {
	if a.DueDate == "" {
		return false
	}
	if strings.EqualFold(a.Status, ActivityStatusCompleted) || strings.EqualFold(a.Status, ActivityStatusCancelled) {
		return false
	}
	return isBeforeToday(a.DueDate, now)
}

// Validate checks the activity form rules
func (a *Activity) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "subject", a.Subject, "Subject")
	requireOneOf(&errs, "activityType", a.ActivityType, ActivityTypes)
	requireOneOf(&errs, "status", a.Status, ActivityStatuses)
	requireDate(&errs, "dueDate", a.DueDate)
	return errs.OrNil()
}

// FilterActivities searches subject and description, filters by type and
// status, and supports the overdue preset.
func FilterActivities(items []Activity, f ListFilter, now time.Time) ([]Activity, error) {
	if err := f.checkPreset(PresetOverdue); err != nil {
		return nil, err
	}
	return filterSlice(items, func(a Activity) bool {
		if !matchesSearch(f.Search, a.Subject, a.Description) {
			return false
		}
		if !matchesOption(f.Type, a.ActivityType) || !matchesOption(f.Status, a.Status) {
			return false
		}
		if f.Preset == PresetOverdue {
			return a.IsOverdue(now)
		}
		return true
	}), nil
}
