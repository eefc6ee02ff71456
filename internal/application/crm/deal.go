package crm

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

const dealTable = "deals_c"

var dealFields = []string{
	record.FieldID, "name_c", "description_c", "amount_c", "close_date_c", "stage_c",
	"company_c", "task_c", record.FieldTags, record.FieldCreatedOn, record.FieldModifiedOn,
}

// CreateDealRequest is the deal form
type CreateDealRequest struct {
	Name        string           `json:"name" binding:"max=200"`
	Description string           `json:"description" binding:"max=5000"`
	Amount      *decimal.Decimal `json:"amount"`
	CloseDate   string           `json:"closeDate"`
	Stage       string           `json:"stage"`
	Company     *RelationID      `json:"company"`
	Task        *RelationID      `json:"task"`
	Tags        []string         `json:"tags"`
}

// UpdateDealRequest changes the provided deal fields
type UpdateDealRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Amount      *decimal.Decimal `json:"amount"`
	CloseDate   *string          `json:"closeDate"`
	Stage       *string          `json:"stage"`
	Company     *RelationID      `json:"company"`
	Task        *RelationID      `json:"task"`
	Tags        *[]string        `json:"tags"`
}

// DealResponse is the deal view model
type DealResponse struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Amount          float64        `json:"amount"`
	FormattedAmount string         `json:"formattedAmount"`
	CloseDate       string         `json:"closeDate"`
	Stage           string         `json:"stage"`
	Closed          bool           `json:"closed"`
	Company         *record.Lookup `json:"company"`
	Task            *record.Lookup `json:"task"`
	Tags            []string       `json:"tags"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

func dealFromRecord(rec record.Record) crm.Deal {
	return crm.Deal{
		ID:          idOf(rec),
		Name:        text(rec, "name_c"),
		Description: text(rec, "description_c"),
		Amount:      amount(rec, "amount_c"),
		CloseDate:   text(rec, "close_date_c"),
		Stage:       orDefault(text(rec, "stage_c"), crm.StageProspecting),
		Company:     ref(rec, "company_c"),
		Task:        ref(rec, "task_c"),
		Tags:        record.SplitTags(rec[record.FieldTags]),
		CreatedAt:   text(rec, record.FieldCreatedOn),
		UpdatedAt:   text(rec, record.FieldModifiedOn),
	}
}

func dealRecord(d *crm.Deal) record.Record {
	rec := record.Record{
		"name_c":         d.Name,
		"description_c":  d.Description,
		"amount_c":       floatOf(d.Amount),
		"close_date_c":   d.CloseDate,
		"stage_c":        d.Stage,
		record.FieldTags: record.JoinTags(d.Tags),
	}
	if d.Company != nil {
		rec["company_c"] = d.Company.ID
	}
	if d.Task != nil {
		rec["task_c"] = d.Task.ID
	}
	return rec
}

func (r *CreateDealRequest) toEntity() crm.Deal {
	d := crm.Deal{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		CloseDate:   r.CloseDate,
		Stage:       orDefault(r.Stage, crm.StageProspecting),
		Tags:        record.SplitTags(r.Tags),
	}
	setAmount(&d.Amount, r.Amount)
	setRef(&d.Company, r.Company)
	setRef(&d.Task, r.Task)
	return d
}

func (r *UpdateDealRequest) applyTo(d *crm.Deal) {
	setText(&d.Name, r.Name)
	setText(&d.Description, r.Description)
	setAmount(&d.Amount, r.Amount)
	setText(&d.CloseDate, r.CloseDate)
	setText(&d.Stage, r.Stage)
	setRef(&d.Company, r.Company)
	setRef(&d.Task, r.Task)
	setTags(&d.Tags, r.Tags)
}

func (r *UpdateDealRequest) toRecord() record.Record {
	p := patch{}
	p.text("name_c", r.Name)
	p.text("description_c", r.Description)
	p.amount("amount_c", r.Amount)
	p.text("close_date_c", r.CloseDate)
	p.text("stage_c", r.Stage)
	p.ref("company_c", r.Company)
	p.ref("task_c", r.Task)
	p.tags(record.FieldTags, r.Tags)
	return record.Record(p)
}

func dealResponse(d *crm.Deal) DealResponse {
	return DealResponse{
		ID:              d.ID,
		Name:            d.Name,
		Description:     d.Description,
		Amount:          floatOf(d.Amount),
		FormattedAmount: crm.FormatCurrency(d.Amount),
		CloseDate:       d.CloseDate,
		Stage:           d.Stage,
		Closed:          d.IsClosed(),
		Company:         lookupOf(d.Company),
		Task:            lookupOf(d.Task),
		Tags:            d.Tags,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// DealService manages the sales pipeline
type DealService struct {
	records records[crm.Deal]
}

func newDealService(client record.Client) *DealService {
	return &DealService{
		records: records[crm.Deal]{
			client: client,
			table: table[crm.Deal]{
				entity: "deal",
				name:   dealTable,
				fields: dealFields,
				order:  record.OrderBy{FieldName: record.FieldID, SortType: record.SortDesc},
				decode: dealFromRecord,
			},
		},
	}
}

// List returns a page of deals matching f and the number of matches
func (s *DealService) List(ctx context.Context, f crm.ListFilter) ([]DealResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, crm.FilterDeals)
	if err != nil {
		return nil, 0, err
	}
	out := make([]DealResponse, len(items))
	for i := range items {
		out[i] = dealResponse(&items[i])
	}
	return out, total, nil
}

// GetByID returns one deal
func (s *DealService) GetByID(ctx context.Context, id int64) (*DealResponse, error) {
	d, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dealResponse(&d)
	return &resp, nil
}

// GetRecord returns the deal as stored by the backend
func (s *DealService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new deal. Stage defaults to Prospecting.
func (s *DealService) Create(ctx context.Context, req CreateDealRequest) (*DealResponse, error) {
	d := req.toEntity()
	if err := d.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, dealRecord(&d))
	if err != nil {
		return nil, err
	}
	resp := dealResponse(&created)
	return &resp, nil
}

// Update applies the provided fields
func (s *DealService) Update(ctx context.Context, id int64, req UpdateDealRequest) (*DealResponse, error) {
	d, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&d)
	if err := d.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := dealResponse(&updated)
	return &resp, nil
}

// Delete removes a deal and returns its Id
func (s *DealService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.records.delete(ctx, id)
}
