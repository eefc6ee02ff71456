package crm

import (
	"strings"

	"github.com/hubcrm/backend/internal/domain/shared"
)

// List presets understood by the entity filters
const (
	PresetAll     = "all"
	PresetActive  = "active"
	PresetWon     = "won"
	PresetLost    = "lost"
	PresetExpired = "expired"
	PresetRecent  = "recent"
	PresetOverdue = "overdue"
)

// Paging defaults for list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter narrows a list of records. Search is a case-insensitive
// substring match over each entity's searchable fields.
type ListFilter struct {
	Search   string
	Preset   string
	Status   string
	Priority string
	Type     string
	Page     int
	PageSize int
}

// Normalize trims inputs and applies paging defaults
func (f ListFilter) Normalize() ListFilter {
	f.Search = strings.TrimSpace(f.Search)
	f.Preset = strings.ToLower(strings.TrimSpace(f.Preset))
	f.Status = strings.TrimSpace(f.Status)
	f.Priority = strings.TrimSpace(f.Priority)
	f.Type = strings.TrimSpace(f.Type)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f ListFilter) checkPreset(allowed ...string) error {
	if f.Preset == "" || f.Preset == PresetAll {
		return nil
	}
	for _, p := range allowed {
		if f.Preset == p {
			return nil
		}
	}
	return shared.ErrInvalidInput.WithMessage("Unknown filter: " + f.Preset)
}

// matchesSearch reports whether any field contains search, ignoring case
func matchesSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// matchesOption compares an enumeration filter, ignoring case. An empty or
// "all" filter matches everything.
func matchesOption(filter, value string) bool {
	if filter == "" || strings.EqualFold(filter, PresetAll) {
		return true
	}
	return strings.EqualFold(filter, value)
}

func filterSlice[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Paginate returns the requested 1-based page of items
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
