package crm

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

const invoiceTable = "invoice_c"

var invoiceFields = []string{
	record.FieldID, "invoice_number_c", "invoice_date_c", "due_date_c", "amount_due_c", "status_c",
	"contact_c", record.FieldTags, record.FieldCreatedOn, record.FieldModifiedOn,
}

// CreateInvoiceRequest is the invoice form
type CreateInvoiceRequest struct {
	InvoiceNumber string           `json:"invoiceNumber" binding:"max=50"`
	InvoiceDate   string           `json:"invoiceDate"`
	DueDate       string           `json:"dueDate"`
	AmountDue     *decimal.Decimal `json:"amountDue"`
	Status        string           `json:"status"`
	Contact       *RelationID      `json:"contact"`
	Tags          []string         `json:"tags"`
}

// UpdateInvoiceRequest changes the provided invoice fields
type UpdateInvoiceRequest struct {
	InvoiceNumber *string          `json:"invoiceNumber" binding:"omitempty,max=50"`
	InvoiceDate   *string          `json:"invoiceDate"`
	DueDate       *string          `json:"dueDate"`
	AmountDue     *decimal.Decimal `json:"amountDue"`
	Status        *string          `json:"status"`
	Contact       *RelationID      `json:"contact"`
	Tags          *[]string        `json:"tags"`
}

// InvoiceResponse is the invoice view model
type InvoiceResponse struct {
	ID                 int64          `json:"id"`
	InvoiceNumber      string         `json:"invoiceNumber"`
	InvoiceDate        string         `json:"invoiceDate"`
	DueDate            string         `json:"dueDate"`
	AmountDue          float64        `json:"amountDue"`
	FormattedAmountDue string         `json:"formattedAmountDue"`
	Status             string         `json:"status"`
	Contact            *record.Lookup `json:"contact"`
	Tags               []string       `json:"tags"`
	CreatedAt          string         `json:"createdAt"`
	UpdatedAt          string         `json:"updatedAt"`
}

func invoiceFromRecord(rec record.Record) crm.Invoice {
	return crm.Invoice{
		ID:            idOf(rec),
		InvoiceNumber: text(rec, "invoice_number_c"),
		InvoiceDate:   text(rec, "invoice_date_c"),
		DueDate:       text(rec, "due_date_c"),
		AmountDue:     amount(rec, "amount_due_c"),
		Status:        text(rec, "status_c"),
		Contact:       ref(rec, "contact_c"),
		Tags:          record.SplitTags(rec[record.FieldTags]),
		CreatedAt:     text(rec, record.FieldCreatedOn),
		UpdatedAt:     text(rec, record.FieldModifiedOn),
	}
}

func invoiceRecord(i *crm.Invoice) record.Record {
	rec := record.Record{
		"invoice_number_c": i.InvoiceNumber,
		"invoice_date_c":   i.InvoiceDate,
		"due_date_c":       i.DueDate,
		"amount_due_c":     floatOf(i.AmountDue),
		"status_c":         i.Status,
		record.FieldTags:   record.JoinTags(i.Tags),
	}
	if i.Contact != nil {
		rec["contact_c"] = i.Contact.ID
	}
	return rec
}

func (r *UpdateInvoiceRequest) applyTo(i *crm.Invoice) {
	setText(&i.InvoiceNumber, r.InvoiceNumber)
	setText(&i.InvoiceDate, r.InvoiceDate)
	setText(&i.DueDate, r.DueDate)
	setAmount(&i.AmountDue, r.AmountDue)
	setText(&i.Status, r.Status)
	setRef(&i.Contact, r.Contact)
	setTags(&i.Tags, r.Tags)
}

func (r *UpdateInvoiceRequest) toRecord() record.Record {
	p := patch{}
	p.text("invoice_number_c", r.InvoiceNumber)
	p.text("invoice_date_c", r.InvoiceDate)
	p.text("due_date_c", r.DueDate)
	p.amount("amount_due_c", r.AmountDue)
	p.text("status_c", r.Status)
	p.ref("contact_c", r.Contact)
	p.tags(record.FieldTags, r.Tags)
	return record.Record(p)
}

func invoiceResponse(i *crm.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                 i.ID,
		InvoiceNumber:      i.InvoiceNumber,
		InvoiceDate:        i.InvoiceDate,
		DueDate:            i.DueDate,
		AmountDue:          floatOf(i.AmountDue),
		FormattedAmountDue: crm.FormatCurrency(i.AmountDue),
		Status:             i.EffectiveStatus(),
		Contact:            lookupOf(i.Contact),
		Tags:               i.Tags,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// InvoiceService manages invoices
type InvoiceService struct {
	records records[crm.Invoice]
}

func newInvoiceService(client record.Client) *InvoiceService {
	return &InvoiceService{
		records: records[crm.Invoice]{
			client: client,
			table: table[crm.Invoice]{
				entity: "invoice",
				name:   invoiceTable,
				fields: invoiceFields,
				order:  record.OrderBy{FieldName: record.FieldID, SortType: record.SortDesc},
				decode: invoiceFromRecord,
			},
		},
	}
}

// List returns a page of invoices matching f and the number of matches
func (s *InvoiceService) List(ctx context.Context, f crm.ListFilter) ([]InvoiceResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, crm.FilterInvoices)
	if err != nil {
		return nil, 0, err
	}
	out := make([]InvoiceResponse, len(items))
	for i := range items {
		out[i] = invoiceResponse(&items[i])
	}
	return out, total, nil
}

// GetByID returns one invoice
func (s *InvoiceService) GetByID(ctx context.Context, id int64) (*InvoiceResponse, error) {
	i, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := invoiceResponse(&i)
	return &resp, nil
}

// GetRecord returns the invoice as stored by the backend
func (s *InvoiceService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new invoice
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	i := crm.Invoice{
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		InvoiceDate:   req.InvoiceDate,
		DueDate:       req.DueDate,
		Status:        req.Status,
		Tags:          record.SplitTags(req.Tags),
	}
	setAmount(&i.AmountDue, req.AmountDue)
	setRef(&i.Contact, req.Contact)
	if err := i.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, invoiceRecord(&i))
	if err != nil {
		return nil, err
	}
	resp := invoiceResponse(&created)
	return &resp, nil
}

// Update applies the provided fields
func (s *InvoiceService) Update(ctx context.Context, id int64, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	i, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&i)
	if err := i.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := invoiceResponse(&updated)
	return &resp, nil
}

// Delete removes an invoice and returns its Id
func (s *InvoiceService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.records.delete(ctx, id)
}
