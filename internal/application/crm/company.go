package crm

import (
	"context"
	"strings"
	"time"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

const companyTable = "company_c"

var companyFields = []string{
	record.FieldID, "name_c", "address_c", "city_c", "state_c", "zip_code_c",
	record.FieldTags, record.FieldCreatedOn, record.FieldModifiedOn,
}

// CreateCompanyRequest is the company form
type CreateCompanyRequest struct {
	Name    string   `json:"name" binding:"max=200"`
	Address string   `json:"address" binding:"max=500"`
	City    string   `json:"city" binding:"max=100"`
	State   string   `json:"state" binding:"max=100"`
	ZipCode string   `json:"zipCode" binding:"max=20"`
	Tags    []string `json:"tags"`
}

// UpdateCompanyRequest changes the provided company fields
type UpdateCompanyRequest struct {
	Name    *string   `json:"name" binding:"omitempty,max=200"`
	Address *string   `json:"address" binding:"omitempty,max=500"`
	City    *string   `json:"city" binding:"omitempty,max=100"`
	State   *string   `json:"state" binding:"omitempty,max=100"`
	ZipCode *string   `json:"zipCode" binding:"omitempty,max=20"`
	Tags    *[]string `json:"tags"`
}

// CompanyResponse is the company view model
type CompanyResponse struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	ZipCode   string   `json:"zipCode"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

func companyFromRecord(rec record.Record) crm.Company {
	return crm.Company{
		ID:        idOf(rec),
		Name:      text(rec, "name_c"),
		Address:   text(rec, "address_c"),
		City:      text(rec, "city_c"),
		State:     text(rec, "state_c"),
		ZipCode:   text(rec, "zip_code_c"),
		Tags:      record.SplitTags(rec[record.FieldTags]),
		CreatedAt: text(rec, record.FieldCreatedOn),
		UpdatedAt: text(rec, record.FieldModifiedOn),
	}
}

func companyRecord(c *crm.Company) record.Record {
	return record.Record{
		"name_c":         c.Name,
		"address_c":      c.Address,
		"city_c":         c.City,
		"state_c":        c.State,
		"zip_code_c":     c.ZipCode,
		record.FieldTags: record.JoinTags(c.Tags),
	}
}

func (r *UpdateCompanyRequest) applyTo(c *crm.Company) {
	setText(&c.Name, r.Name)
	setText(&c.Address, r.Address)
	setText(&c.City, r.City)
	setText(&c.State, r.State)
	setText(&c.ZipCode, r.ZipCode)
	setTags(&c.Tags, r.Tags)
}

func (r *UpdateCompanyRequest) toRecord() record.Record {
	p := patch{}
	p.text("name_c", r.Name)
	p.text("address_c", r.Address)
	p.text("city_c", r.City)
	p.text("state_c", r.State)
	p.text("zip_code_c", r.ZipCode)
	p.tags(record.FieldTags, r.Tags)
	return record.Record(p)
}

func companyResponse(c *crm.Company) CompanyResponse {
	return CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		ZipCode:   c.ZipCode,
		Tags:      c.Tags,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CompanyService manages companies
type CompanyService struct {
	records records[crm.Company]
	now     func() time.Time
}

func newCompanyService(client record.Client, o options) *CompanyService {
	return &CompanyService{
		records: records[crm.Company]{
			client: client,
			table: table[crm.Company]{
				entity: "company",
				name:   companyTable,
				fields: companyFields,
				order:  record.OrderBy{FieldName: record.FieldID, SortType: record.SortDesc},
				decode: companyFromRecord,
			},
		},
		now: o.now,
	}
}

// List returns a page of companies matching f and the number of matches
func (s *CompanyService) List(ctx context.Context, f crm.ListFilter) ([]CompanyResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, func(all []crm.Company, f crm.ListFilter) ([]crm.Company, error) {
		return crm.FilterCompanies(all, f, s.now())
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]CompanyResponse, len(items))
	for i := range items {
		out[i] = companyResponse(&items[i])
	}
	return out, total, nil
}

// GetByID returns one company
func (s *CompanyService) GetByID(ctx context.Context, id int64) (*CompanyResponse, error) {
	c, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := companyResponse(&c)
	return &resp, nil
}

// GetRecord returns the company as stored by the backend
func (s *CompanyService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new company
func (s *CompanyService) Create(ctx context.Context, req CreateCompanyRequest) (*CompanyResponse, error) {
	c := crm.Company{
		Name:    strings.TrimSpace(req.Name),
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Tags:    record.SplitTags(req.Tags),
	}
	if err := c.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, companyRecord(&c))
	if err != nil {
		return nil, err
	}
	resp := companyResponse(&created)
	return &resp, nil
}

// Update applies the provided fields
func (s *CompanyService) Update(ctx context.Context, id int64, req UpdateCompanyRequest) (*CompanyResponse, error) {
	c, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&c)
	if err := c.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := companyResponse(&updated)
	return &resp, nil
}

// Delete removes a company and returns its Id
func (s *CompanyService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.records.delete(ctx, id)
}
