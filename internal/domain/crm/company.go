package crm

import (
	"time"

	"github.com/hubcrm/backend/internal/domain/shared"
)

// Company is an organisation that deals and quotes refer to
type Company struct {
	ID        int64
	Name      string
	Address   string
	City      string
	State     string
	ZipCode   string
	Tags      []string
	CreatedAt string
	UpdatedAt string
}

// Validate checks the company form rules
func (c *Company) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "name", c.Name, "Company name")
	return errs.OrNil()
}

// FilterCompanies searches name, city and state. Supports the recent preset.
func FilterCompanies(items []Company, f ListFilter, now time.Time) ([]Company, error) {
	if err := f.checkPreset(PresetRecent); err != nil {
		return nil, err
	}
	return filterSlice(items, func(c Company) bool {
		if !matchesSearch(f.Search, c.Name, c.City, c.State) {
			return false
		}
		if f.Preset == PresetRecent {
			return isWithin(c.CreatedAt, now, RecentWindow)
		}
		return true
	}), nil
}
