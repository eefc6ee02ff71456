package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
)

// Record operation names used as span suffix and metric attribute
const (
	OpFetch  = "fetch"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// InstrumentedClient decorates a record.Client with a client span and
// call count and latency metrics per table and operation.
type InstrumentedClient struct {
	inner    record.Client
	calls    *Counter
	duration *Histogram
}

var _ record.Client = (*InstrumentedClient)(nil)

// NewInstrumentedClient wraps inner. Instruments come from mp, which may be
// disabled, in which case only spans are produced.
func NewInstrumentedClient(inner record.Client, mp *MeterProvider) (*InstrumentedClient, error) {
	meter := mp.Meter("hubcrm.record")

	calls, err := NewCounter(meter,
		"record_backend_calls_total",
		"Record backend calls by table, operation and outcome",
		"{call}",
	)
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "record_backend_call_duration_seconds",
		Description: "Record backend call latency in seconds",
		Unit:        "s",
		Boundaries:  BackendDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{inner: inner, calls: calls, duration: duration}, nil
}

// FetchRecords implements record.Client
func (c *InstrumentedClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	ctx, done := c.start(ctx, table, OpFetch)
	recs, err := c.inner.FetchRecords(ctx, table, params)
	done(err, attribute.Int(SpanAttrCount, len(recs)))
	return recs, err
}

// GetRecordByID implements record.Client
func (c *InstrumentedClient) GetRecordByID(ctx context.Context, table string, id int64, fields []string) (record.Record, error) {
	ctx, done := c.start(ctx, table, OpGet, attribute.Int64(SpanAttrRecordID, id))
	rec, err := c.inner.GetRecordByID(ctx, table, id, fields)
	done(err)
	return rec, err
}

// CreateRecord implements record.Client
func (c *InstrumentedClient) CreateRecord(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	ctx, done := c.start(ctx, table, OpCreate)
	created, err := c.inner.CreateRecord(ctx, table, rec)
	done(err)
	return created, err
}

// UpdateRecord implements record.Client
func (c *InstrumentedClient) UpdateRecord(ctx context.Context, table string, id int64, rec record.Record) (record.Record, error) {
	ctx, done := c.start(ctx, table, OpUpdate, attribute.Int64(SpanAttrRecordID, id))
	updated, err := c.inner.UpdateRecord(ctx, table, id, rec)
	done(err)
	return updated, err
}

// DeleteRecord implements record.Client
func (c *InstrumentedClient) DeleteRecord(ctx context.Context, table string, id int64) error {
	ctx, done := c.start(ctx, table, OpDelete, attribute.Int64(SpanAttrRecordID, id))
	err := c.inner.DeleteRecord(ctx, table, id)
	done(err)
	return err
}

// start opens the span and returns a func that closes it and records the
// metrics for the call's outcome.
func (c *InstrumentedClient) start(ctx context.Context, table, op string, attrs ...attribute.KeyValue) (context.Context, func(error, ...attribute.KeyValue)) {
	began := time.Now()
	ctx, span := StartSpan(ctx, "record."+op,
		WithSpanKind(trace.SpanKindClient),
		WithAttribute(SpanAttrTable, table),
	)
	span.SetAttributes(attrs...)

	return ctx, func(err error, extra ...attribute.KeyValue) {
		outcome := Outcome(err)
		if err != nil && outcome != "not_found" {
			RecordError(span, err)
		}
		span.SetAttributes(extra...)
		span.End()

		c.calls.Inc(ctx,
			AttrRecordTable.String(table),
			AttrRecordOperation.String(op),
			AttrRecordOutcome.String(outcome),
		)
		c.duration.RecordDuration(ctx, time.Since(began),
			AttrRecordTable.String(table),
			AttrRecordOperation.String(op),
		)
	}
}

// Outcome classifies a record backend result for metrics
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrValidation):
		return "rejected"
	default:
		return "error"
	}
}
