package crm

import (
	"strings"
	"time"
	"unicode"

	"github.com/hubcrm/backend/internal/domain/shared"
)

// Contact is a person the team is in touch with. Company is free text.
type Contact struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Position  string
	Photo     string
	Notes     string
	Tags      []string
	CreatedAt string
	UpdatedAt string
}

// FullName joins first and last name
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Initials returns the upper-cased first letters of first and last name
func (c *Contact) Initials() string {
	var b strings.Builder
	for _, part := range []string{c.FirstName, c.LastName} {
		for _, r := range strings.TrimSpace(part) {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}

// Validate checks the contact form rules
func (c *Contact) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "firstName", c.FirstName, "First name")
	requireText(&errs, "lastName", c.LastName, "Last name")
	if c.Email != "" && !isEmail(c.Email) {
		errs.Add("email", "Invalid email format")
	}
	return errs.OrNil()
}

// FilterContacts searches name, email and company. Supports the recent preset.
func FilterContacts(items []Contact, f ListFilter, now time.Time) ([]Contact, error) {
	if err := f.checkPreset(PresetRecent); err != nil {
		return nil, err
	}
	return filterSlice(items, func(c Contact) bool {
		if !matchesSearch(f.Search, c.FirstName, c.LastName, c.FullName(), c.Email, c.Company) {
			return false
		}
		if f.Preset == PresetRecent {
			return isWithin(c.CreatedAt, now, RecentWindow)
		}
		return true
	}), nil
}
