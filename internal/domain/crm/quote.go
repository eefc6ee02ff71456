package crm

import (
	"time"

	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Quote is a priced offer sent to a company
type Quote struct {
	ID             int64
	Name           string
	Description    string
	Amount         decimal.Decimal
	IssueDate      string
	ExpirationDate string
	Company        *Ref
	Tags           []string
	CreatedAt      string
	UpdatedAt      string
}

// IsExpired reports whether the expiration date has passed. Quotes without
// one never expire.
func (q *Quote) IsExpired(now time.Time) bool {
	exp, ok := ParseDate(q.ExpirationDate)
	if !ok {
		return false
	}
	return !exp.After(now)
}

// Validate checks the quote form rules
func (q *Quote) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "name", q.Name, "Quote name")
	if q.Amount.IsNegative() {
		errs.Add("amount", "Amount must not be negative")
	}
	issue, issueOK := requireDate(&errs, "issueDate", q.IssueDate)
	exp, expOK := requireDate(&errs, "expirationDate", q.ExpirationDate)
	if issueOK && expOK && !exp.After(issue) {
		errs.Add("expirationDate", "Expiration date must be after issue date")
	}
	return errs.OrNil()
}

// FilterQuotes searches name and company name. Presets: active, expired, recent.
func FilterQuotes(items []Quote, f ListFilter, now time.Time) ([]Quote, error) {
	if err := f.checkPreset(PresetActive, PresetExpired, PresetRecent); err != nil {
		return nil, err
	}
	return filterSlice(items, func(q Quote) bool {
		if !matchesSearch(f.Search, q.Name, RefName(q.Company)) {
			return false
		}
		switch f.Preset {
		case PresetActive:
			return !q.IsExpired(now)
		case PresetExpired:
			return q.IsExpired(now)
		case PresetRecent:
			return isWithin(q.CreatedAt, now, RecentWindow)
		}
		return true
	}), nil
}
