package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
	"github.com/hubcrm/backend/internal/infrastructure/telemetry"
)

type stubClient struct {
	err  error
	recs []record.Record
}

func (s *stubClient) FetchRecords(context.Context, string, record.FetchParams) ([]record.Record, error) {
	return s.recs, s.err
}

func (s *stubClient) GetRecordByID(context.Context, string, int64, []string) (record.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return record.Record{record.FieldID: int64(1)}, nil
}

func (s *stubClient) CreateRecord(_ context.Context, _ string, rec record.Record) (record.Record, error) {
	return rec, s.err
}

func (s *stubClient) UpdateRecord(_ context.Context, _ string, _ int64, rec record.Record) (record.Record, error) {
	return rec, s.err
}

func (s *stubClient) DeleteRecord(context.Context, string, int64) error {
	return s.err
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func attrValue(set attribute.Set, key attribute.Key) string {
	v, _ := set.Value(key)
	return v.AsString()
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestInstrumentedClient_RecordsCallsAndSpans(t *testing.T) {
	sr := setupTestTracer(t)
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zap.NewNop())

	inner := &stubClient{recs: []record.Record{{}, {}}}
	client, err := telemetry.NewInstrumentedClient(inner, mp)
	require.NoError(t, err)
	ctx := context.Background()

	recs, err := client.FetchRecords(ctx, "deals_c", record.FetchParams{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	inner.err = shared.ErrNotFound
	_, err = client.GetRecordByID(ctx, "deals_c", 9, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	inner.err = shared.ErrUpstream.WithMessage("record API unavailable")
	assert.Error(t, client.DeleteRecord(ctx, "contact_c", 3))

	data := collect(t, reader)
	sum, ok := data["record_backend_calls_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	outcomes := map[string]string{}
	for _, dp := range sum.DataPoints {
		assert.Equal(t, int64(1), dp.Value)
		outcomes[attrValue(dp.Attributes, telemetry.AttrRecordOperation)] = attrValue(dp.Attributes, telemetry.AttrRecordOutcome)
	}
	assert.Equal(t, map[string]string{"fetch": "ok", "get": "not_found", "delete": "error"}, outcomes)

	hist, ok := data["record_backend_call_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 3)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "record.fetch", spans[0].Name())
	assert.Equal(t, "deals_c", attrMap(spans[0].Attributes())[telemetry.SpanAttrTable].AsString())
	assert.Equal(t, int64(2), attrMap(spans[0].Attributes())[telemetry.SpanAttrCount].AsInt64())
	assert.NotEqual(t, codes.Error, spans[1].Status().Code, "not found is not a span failure")
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", telemetry.Outcome(nil))
	assert.Equal(t, "not_found", telemetry.Outcome(shared.ErrNotFound.WithMessage("gone")))
	assert.Equal(t, "rejected", telemetry.Outcome(shared.ErrInvalidInput))
	assert.Equal(t, "rejected", telemetry.Outcome(shared.ValidationErrors{{Field: "name", Message: "required"}}))
	assert.Equal(t, "error", telemetry.Outcome(errors.New("boom")))
}

type recordingProcessor struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r.Clone())
	return nil
}

func (p *recordingProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool { return true }

func (p *recordingProcessor) Shutdown(context.Context) error   { return nil }
func (p *recordingProcessor) ForceFlush(context.Context) error { return nil }

func (p *recordingProcessor) bodies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.records))
	for _, r := range p.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestLoggerProvider_Bridge(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	t.Run("disabled returns base", func(t *testing.T) {
		lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, lp.IsEnabled())
		assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
		assert.NoError(t, lp.Shutdown(context.Background()))
	})

	t.Run("forwards entries at or above level", func(t *testing.T) {
		proc := &recordingProcessor{}
		lp := telemetry.NewLoggerProviderWithProcessor(proc, zap.NewNop())
		require.True(t, lp.IsEnabled())

		bridged := lp.Bridge(base, zapcore.WarnLevel)
		bridged.Debug("cache miss")
		bridged.Warn("record API slow", zap.String("table", "deals_c"))

		assert.Equal(t, []string{"record API slow"}, proc.bodies())
		assert.Equal(t, 2, logs.Len(), "base core still receives everything")

		proc.mu.Lock()
		assert.Equal(t, otellog.SeverityWarn, proc.records[0].Severity())
		proc.mu.Unlock()
		assert.NoError(t, lp.Shutdown(context.Background()))
	})
}

func TestNewProfiler(t *testing.T) {
	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	_, err = telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ApplicationName: "crm"}, zap.NewNop())
	assert.Error(t, err)

	_, err = telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, zap.NewNop())
	assert.Error(t, err)
}

func TestEnableSpanProfiles_DisabledTracing(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotPanics(t, tp.EnableSpanProfiles)
}
