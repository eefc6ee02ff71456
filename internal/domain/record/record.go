// Package record defines the contract of the record backend: named tables of
// flat records addressed by an integer Id. Platform-managed system fields use
// PascalCase names (Id, Name, Tags, CreatedOn, ...) and application fields
// carry a "_c" suffix (first_name_c, stage_c, ...).
package record

import "context"

// Record is a single row keyed by backend field name
type Record map[string]any

// System field names managed by the record backend
const (
	FieldID         = "Id"
	FieldName       = "Name"
	FieldTags       = "Tags"
	FieldOwner      = "Owner"
	FieldCreatedOn  = "CreatedOn"
	FieldCreatedBy  = "CreatedBy"
	FieldModifiedOn = "ModifiedOn"
	FieldModifiedBy = "ModifiedBy"
)

// SortType is the direction of an OrderBy clause
type SortType string

const (
	SortAsc  SortType = "ASC"
	SortDesc SortType = "DESC"
)

// OrderBy orders fetched records by a single field
type OrderBy struct {
	FieldName string   `json:"fieldName"`
	SortType  SortType `json:"sorttype"`
}

// PagingInfo limits a fetch to a window of records
type PagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultLimit is the page size used when a fetch does not specify one
const DefaultLimit = 100

// DefaultPaging returns the first page of DefaultLimit records
func DefaultPaging() PagingInfo {
	return PagingInfo{Limit: DefaultLimit, Offset: 0}
}

// FetchParams selects which fields to return and in what order
type FetchParams struct {
	Fields     []string
	OrderBy    []OrderBy
	PagingInfo PagingInfo
}

// Normalize fills in default paging
func (p FetchParams) Normalize() FetchParams {
	if p.PagingInfo.Limit <= 0 {
		p.PagingInfo.Limit = DefaultLimit
	}
	if p.PagingInfo.Offset < 0 {
		p.PagingInfo.Offset = 0
	}
	return p
}

// Lookup is the expanded form of a relation field
type Lookup struct {
	ID   int64  `json:"Id"`
	Name string `json:"Name,omitempty"`
}

// Client is the generic CRUD surface of the record backend.
// Implementations return shared.ErrNotFound for missing records.
type Client interface {
	FetchRecords(ctx context.Context, table string, params FetchParams) ([]Record, error)
	GetRecordByID(ctx context.Context, table string, id int64, fields []string) (Record, error)
	CreateRecord(ctx context.Context, table string, rec Record) (Record, error)
	UpdateRecord(ctx context.Context, table string, id int64, rec Record) (Record, error)
	DeleteRecord(ctx context.Context, table string, id int64) error
}

type actorKey struct{}

// WithActor attaches the acting user's name to ctx. Backends stamp it into
// Owner, CreatedBy and ModifiedBy.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ActorFromContext returns the acting user's name, or "" if none was set
func ActorFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok {
		return name
	}
	return ""
}
