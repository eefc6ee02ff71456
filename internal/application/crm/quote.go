package crm

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

const quoteTable = "quotes_c"

var quoteFields = []string{
	record.FieldID, "name_c", "description_c", "amount_c", "issue_date_c", "expiration_date_c",
	"company_c", record.FieldTags, record.FieldCreatedOn, record.FieldModifiedOn,
}

// CreateQuoteRequest is the quote form
type CreateQuoteRequest struct {
	Name           string           `json:"name" binding:"max=200"`
	Description    string           `json:"description" binding:"max=5000"`
	Amount         *decimal.Decimal `json:"amount"`
	IssueDate      string           `json:"issueDate"`
	ExpirationDate string           `json:"expirationDate"`
	Company        *RelationID      `json:"company"`
	Tags           []string         `json:"tags"`
}

// UpdateQuoteRequest changes the provided quote fields
type UpdateQuoteRequest struct {
	Name           *string          `json:"name" binding:"omitempty,max=200"`
	Description    *string          `json:"description" binding:"omitempty,max=5000"`
	Amount         *decimal.Decimal `json:"amount"`
	IssueDate      *string          `json:"issueDate"`
	ExpirationDate *string          `json:"expirationDate"`
	Company        *RelationID      `json:"company"`
	Tags           *[]string        `json:"tags"`
}

// QuoteResponse is the quote view model
type QuoteResponse struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Amount          float64        `json:"amount"`
	FormattedAmount string         `json:"formattedAmount"`
	IssueDate       string         `json:"issueDate"`
	ExpirationDate  string         `json:"expirationDate"`
	Expired         bool           `json:"expired"`
	Company         *record.Lookup `json:"company"`
	Tags            []string       `json:"tags"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

func quoteFromRecord(rec record.Record) crm.Quote {
	return crm.Quote{
		ID:             idOf(rec),
		Name:           text(rec, "name_c"),
		Description:    text(rec, "description_c"),
		Amount:         amount(rec, "amount_c"),
		IssueDate:      text(rec, "issue_date_c"),
		ExpirationDate: text(rec, "expiration_date_c"),
		Company:        ref(rec, "company_c"),
		Tags:           record.SplitTags(rec[record.FieldTags]),
		CreatedAt:      text(rec, record.FieldCreatedOn),
		UpdatedAt:      text(rec, record.FieldModifiedOn),
	}
}

func quoteRecord(q *crm.Quote) record.Record {
	rec := record.Record{
		"name_c":            q.Name,
		"description_c":     q.Description,
		"amount_c":          floatOf(q.Amount),
		"issue_date_c":      q.IssueDate,
		"expiration_date_c": q.ExpirationDate,
		record.FieldTags:    record.JoinTags(q.Tags),
	}
	if q.Company != nil {
		rec["company_c"] = q.Company.ID
	}
	return rec
}

func (r *UpdateQuoteRequest) applyTo(q *crm.Quote) {
	setText(&q.Name, r.Name)
	setText(&q.Description, r.Description)
	setAmount(&q.Amount, r.Amount)
	setText(&q.IssueDate, r.IssueDate)
	setText(&q.ExpirationDate, r.ExpirationDate)
	setRef(&q.Company, r.Company)
	setTags(&q.Tags, r.Tags)
}

func (r *UpdateQuoteRequest) toRecord() record.Record {
	p := patch{}
	p.text("name_c", r.Name)
	p.text("description_c", r.Description)
	p.amount("amount_c", r.Amount)
	p.text("issue_date_c", r.IssueDate)
	p.text("expiration_date_c", r.ExpirationDate)
	p.ref("company_c", r.Company)
	p.tags(record.FieldTags, r.Tags)
	return record.Record(p)
}

// QuoteService manages quotes
type QuoteService struct {
	records records[crm.Quote]
	now     func() time.Time
}

func newQuoteService(client record.Client, o options) *QuoteService {
	return &QuoteService{
		records: records[crm.Quote]{
			client: client,
			table: table[crm.Quote]{
				entity: "quote",
				name:   quoteTable,
				fields: quoteFields,
				order:  record.OrderBy{FieldName: record.FieldID, SortType: record.SortDesc},
				decode: quoteFromRecord,
			},
		},
		now: o.now,
	}
}

func (s *QuoteService) response(q *crm.Quote) QuoteResponse {
	return QuoteResponse{
		ID:              q.ID,
		Name:            q.Name,
		Description:     q.Description,
		Amount:          floatOf(q.Amount),
		FormattedAmount: crm.FormatCurrency(q.Amount),
		IssueDate:       q.IssueDate,
		ExpirationDate:  q.ExpirationDate,
		Expired:         q.IsExpired(s.now()),
		Company:         lookupOf(q.Company),
		Tags:            q.Tags,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// List returns a page of quotes matching f and the number of matches
func (s *QuoteService) List(ctx context.Context, f crm.ListFilter) ([]QuoteResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, func(all []crm.Quote, f crm.ListFilter) ([]crm.Quote, error) {
		return crm.FilterQuotes(all, f, s.now())
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]QuoteResponse, len(items))
	for i := range items {
		out[i] = s.response(&items[i])
	}
	return out, total, nil
}

// GetByID returns one quote
func (s *QuoteService) GetByID(ctx context.Context, id int64) (*QuoteResponse, error) {
	q, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.response(&q)
	return &resp, nil
}

// GetRecord returns the quote as stored by the backend
func (s *QuoteService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new quote
func (s *QuoteService) Create(ctx context.Context, req CreateQuoteRequest) (*QuoteResponse, error) {
	q := crm.Quote{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		IssueDate:      req.IssueDate,
		ExpirationDate: req.ExpirationDate,
		Tags:           record.SplitTags(req.Tags),
	}
	setAmount(&q.Amount, req.Amount)
	setRef(&q.Company, req.Company)
	if err := q.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, quoteRecord(&q))
	if err != nil {
		return nil, err
	}
	resp := s.response(&created)
	return &resp, nil
}

// Update applies the provided fields
func (s *QuoteService) Update(ctx context.Context, id int64, req UpdateQuoteRequest) (*QuoteResponse, error) {
	q, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&q)
	if err := q.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := s.response(&updated)
	return &resp, nil
}

// Delete removes a quote and returns its Id
func (s *QuoteService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.records.delete(ctx, id)
}
