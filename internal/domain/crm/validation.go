package crm

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hubcrm/backend/internal/domain/shared"
)

var validate = validator.New()

func isEmail(s string) bool {
	return validate.Var(s, "email") == nil
}

func requireText(errs *shared.ValidationErrors, field, value, label string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, label+" is required")
	}
}

func requireOneOf(errs *shared.ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	if !isOneOf(value, allowed) {
		errs.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	}
}

// requireDate checks that value, when present, parses as a date and returns it
func requireDate(errs *shared.ValidationErrors, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, ok := ParseDate(value)
	if !ok {
		errs.Add(field, "Invalid date")
	}
	return t, ok
}
