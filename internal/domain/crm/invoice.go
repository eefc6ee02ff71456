package crm

import (
	"strings"

	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice is a bill issued to a contact
type Invoice struct {
	ID            int64
	InvoiceNumber string
	InvoiceDate   string
	DueDate       string
	AmountDue     decimal.Decimal
	Status        string
	Contact       *Ref
	Tags          []string
	CreatedAt     string
	UpdatedAt     string
}

// EffectiveStatus returns the status, treating an unset one as Draft
func (i *Invoice) EffectiveStatus() string {
	if i.Status == "" {
		return InvoiceStatusDraft
	}
	return i.Status
}

// Validate checks the invoice form rules
func (i *Invoice) Validate() error {
	var errs shared.ValidationErrors
	requireText(&errs, "invoiceNumber", i.InvoiceNumber, "Invoice number")
	requireText(&errs, "invoiceDate", i.InvoiceDate, "Invoice date")
	requireText(&errs, "dueDate", i.DueDate, "Due date")
	requireText(&errs, "status", i.Status, "Status")
	requireOneOf(&errs, "status", i.Status, InvoiceStatuses)
	if i.Contact == nil || i.Contact.ID == 0 {
		errs.Add("contact", "Contact is required")
	}
	issued, issuedOK := requireDate(&errs, "invoiceDate", i.InvoiceDate)
	due, dueOK := requireDate(&errs, "dueDate", i.DueDate)
	if issuedOK && dueOK && !due.After(issued) {
		errs.Add("dueDate", "Due date must be after invoice date")
	}
	if !i.AmountDue.GreaterThan(decimal.Zero) {
		errs.Add("amountDue", "Amount due must be greater than 0")
	}
	return errs.OrNil()
}

// FilterInvoices searches invoice number and contact name and filters by
// status, ignoring case. Invoices without a status count as drafts.
func FilterInvoices(items []Invoice, f ListFilter) ([]Invoice, error) {
	if err := f.checkPreset(); err != nil {
		return nil, err
	}
	return filterSlice(items, func(i Invoice) bool {
		if !matchesSearch(f.Search, i.InvoiceNumber, RefName(i.Contact)) {
			return false
		}
		return f.Status == "" || strings.EqualFold(f.Status, PresetAll) ||
			strings.EqualFold(f.Status, i.EffectiveStatus())
	}), nil
}
