// Package crm holds the CRM service wrappers. Each service translates its
// entity between the UI field names and the record backend's fields and
// forwards CRUD calls to a record.Client.
package crm

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/hubcrm/backend/internal/infrastructure/logger"
	"github.com/hubcrm/backend/internal/infrastructure/telemetry"
)

// table binds an entity type to its record table
type table[E any] struct {
	entity string // span and log name, e.g. "deal"
	name   string
	fields []string
	order  record.OrderBy
	decode func(record.Record) E
}

// records runs the CRUD calls of one entity against the record backend
type records[E any] struct {
	client record.Client
	table  table[E]
}

func (r *records[E]) span(ctx context.Context, op string, keyValues ...any) (context.Context, trace.Span) {
	ctx, span := telemetry.StartServiceSpan(ctx, r.table.entity, op)
	telemetry.SetAttributes(span, append([]any{
		telemetry.SpanAttrEntity, r.table.entity,
		telemetry.SpanAttrTable, r.table.name,
	}, keyValues...)...)
	return ctx, span
}

// fail records err on the span and logs it. Caller mistakes log at warn,
// backend failures at error.
func (r *records[E]) fail(ctx context.Context, span trace.Span, op string, err error) error {
	telemetry.RecordError(span, err)
	fields := []zap.Field{
		zap.String("entity", r.table.entity),
		zap.String("operation", op),
		zap.Error(err),
	}
	if isClientError(err) {
		logger.L(ctx).Warn("CRM operation rejected", fields...)
	} else {
		logger.L(ctx).Error("CRM operation failed", fields...)
	}
	return err
}

func isClientError(err error) bool {
	return errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrInvalidInput)
}

// list fetches the first page of records in table order, applies filter
// and returns the requested page with the filtered total.
func (r *records[E]) list(ctx context.Context, f crm.ListFilter, filter func([]E, crm.ListFilter) ([]E, error)) ([]E, int64, error) {
	f = f.Normalize()
	ctx, span := r.span(ctx, "list", telemetry.SpanAttrFilter, f.Preset)
	defer span.End()

	recs, err := r.client.FetchRecords(ctx, r.table.name, record.FetchParams{
		Fields:     r.table.fields,
		OrderBy:    []record.OrderBy{r.table.order},
		PagingInfo: record.DefaultPaging(),
	})
	if err != nil {
		return nil, 0, r.fail(ctx, span, "list", err)
	}

	items := make([]E, 0, len(recs))
	for _, rec := range recs {
		items = append(items, r.table.decode(rec))
	}
	matched, err := filter(items, f)
	if err != nil {
		return nil, 0, r.fail(ctx, span, "list", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(matched))

	return crm.Paginate(matched, f.Page, f.PageSize), int64(len(matched)), nil
}

func (r *records[E]) getRaw(ctx context.Context, id int64) (record.Record, error) {
	ctx, span := r.span(ctx, "get", telemetry.SpanAttrRecordID, id)
	defer span.End()

	rec, err := r.client.GetRecordByID(ctx, r.table.name, id, r.table.fields)
	if err != nil {
		return nil, r.fail(ctx, span, "get", err)
	}
	return rec, nil
}

func (r *records[E]) get(ctx context.Context, id int64) (E, error) {
	rec, err := r.getRaw(ctx, id)
	if err != nil {
		var zero E
		return zero, err
	}
	return r.table.decode(rec), nil
}

func (r *records[E]) create(ctx context.Context, rec record.Record) (E, error) {
	ctx, span := r.span(ctx, "create")
	defer span.End()

	var zero E
	created, err := r.client.CreateRecord(ctx, r.table.name, record.StripEmpty(rec))
	if err != nil {
		return zero, r.fail(ctx, span, "create", err)
	}
	if id, ok := record.RelationID(created[record.FieldID]); ok {
		telemetry.SetAttributes(span, telemetry.SpanAttrRecordID, id)
		logger.L(ctx).Info("CRM record created", zap.String("entity", r.table.entity), zap.Int64("id", id))
	}
	return r.table.decode(created), nil
}

func (r *records[E]) update(ctx context.Context, id int64, rec record.Record) (E, error) {
	ctx, span := r.span(ctx, "update", telemetry.SpanAttrRecordID, id)
	defer span.End()

	var zero E
	updated, err := r.client.UpdateRecord(ctx, r.table.name, id, record.StripEmpty(rec))
	if err != nil {
		return zero, r.fail(ctx, span, "update", err)
	}
	if _, ok := updated[record.FieldID]; !ok {
		updated[record.FieldID] = id
	}
	return r.table.decode(updated), nil
}

func (r *records[E]) delete(ctx context.Context, id int64) (int64, error) {
	ctx, span := r.span(ctx, "delete", telemetry.SpanAttrRecordID, id)
	defer span.End()

	if err := r.client.DeleteRecord(ctx, r.table.name, id); err != nil {
		return 0, r.fail(ctx, span, "delete", err)
	}
	logger.L(ctx).Info("CRM record deleted", zap.String("entity", r.table.entity), zap.Int64("id", id))
	return id, nil
}

// invalid logs a form rejected by the domain rules
func (r *records[E]) invalid(ctx context.Context, op string, err error) error {
	logger.L(ctx).Warn("CRM form rejected",
		zap.String("entity", r.table.entity),
		zap.String("operation", op),
		zap.Error(err),
	)
	return err
}

// Option configures the services
type Option func(*options)

type options struct {
	now     func() time.Time
	storage ObjectStorage
}

// WithClock replaces time.Now for date-relative filters
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithObjectStorage enables contact photo uploads
func WithObjectStorage(storage ObjectStorage) Option {
	return func(o *options) {
		o.storage = storage
	}
}

// Services bundles the service of every CRM entity
type Services struct {
	Contacts   *ContactService
	Companies  *CompanyService
	Deals      *DealService
	Tasks      *TaskService
	Activities *ActivityService
	Quotes     *QuoteService
	Invoices   *InvoiceService
}

// NewServices creates every entity service over client
func NewServices(client record.Client, opts ...Option) *Services {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Services{
		Contacts:   newContactService(client, o),
		Companies:  newCompanyService(client, o),
		Deals:      newDealService(client),
		Tasks:      newTaskService(client, o),
		Activities: newActivityService(client, o),
		Quotes:     newQuoteService(client, o),
		Invoices:   newInvoiceService(client),
	}
}

// Options returns the choices offered by the entity forms
func (s *Services) Options() crm.Options {
	return crm.AllOptions()
}
