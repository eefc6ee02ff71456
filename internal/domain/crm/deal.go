package crm

import (
	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Deal is a sales opportunity moving through the pipeline stages
type Deal struct {
	ID          int64
	Name        string
	Description string
	Amount      decimal.Decimal
	CloseDate   string
	Stage       string
	Company     *Ref
	Task        *Ref
	Tags        []string
	CreatedAt   string
	UpdatedAt   string
}

// IsClosed reports whether the deal was won or lost
func (d *Deal) IsClosed() bool {
	return d.Stage == StageClosedWon || d.Stage == StageClosedLost
}

// Validate checks the deal form rules
func (d *Deal) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "name", d.Name, "Deal name")
	if d.Amount.IsNegative() {
		errs.Add("amount", "Amount must not be negative")
	}
	requireOneOf(&errs, "stage", d.Stage, DealStages)
	requireDate(&errs, "closeDate", d.CloseDate)
	return errs.OrNil()
}

// FilterDeals searches name, stage and company name. Presets: active, won, lost.
// A status filter matches the stage.
func FilterDeals(items []Deal, f ListFilter) ([]Deal, error) {
	if err := f.checkPreset(PresetActive, PresetWon, PresetLost); err != nil {
		return nil, err
	}
	return filterSlice(items, func(d Deal) bool {
		if !matchesSearch(f.Search, d.Name, d.Stage, RefName(d.Company)) {
			return false
		}
		if !matchesOption(f.Status, d.Stage) {
			return false
		}
		switch f.Preset {
		case PresetActive:
			return !d.IsClosed()
		case PresetWon:
			return d.Stage == StageClosedWon
		case PresetLost:
			return d.Stage == StageClosedLost
		}
		return true
	}), nil
}
