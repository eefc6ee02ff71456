package recordapi

import (
	"encoding/json"

	"github.com/hubcrm/backend/internal/domain/record"
)

type fieldRef struct {
	Name string `json:"Name"`
}

type fieldSpec struct {
	Field fieldRef `json:"field"`
}

func fieldSpecs(fields []string) []fieldSpec {
	specs := make([]fieldSpec, len(fields))
	for i, f := range fields {
		specs[i] = fieldSpec{Field: fieldRef{Name: f}}
	}
	return specs
}

type fetchRequest struct {
	Fields     []fieldSpec        `json:"fields,omitempty"`
	OrderBy    []record.OrderBy   `json:"orderBy,omitempty"`
	PagingInfo *record.PagingInfo `json:"pagingInfo,omitempty"`
}

type writeRequest struct {
	Records []record.Record `json:"records"`
}

type deleteRequest struct {
	RecordIDs []int64 `json:"RecordIds"`
}

// FieldError is a per-field failure reported for one record
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// Result is the outcome of writing one record
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []FieldError    `json:"errors,omitempty"`
}

// Response is the envelope returned by every record endpoint
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []Result        `json:"results,omitempty"`
}
