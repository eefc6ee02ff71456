package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
)

type mockRecordClient struct {
	mock.Mock
}

func (m *mockRecordClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	args := m.Called(ctx, table, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func (m *mockRecordClient) GetRecordByID(ctx context.Context, table string, id int64, fields []string) (record.Record, error) {
	args := m.Called(ctx, table, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *mockRecordClient) CreateRecord(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	args := m.Called(ctx, table, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *mockRecordClient) UpdateRecord(ctx context.Context, table string, id int64, rec record.Record) (record.Record, error) {
	args := m.Called(ctx, table, id, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *mockRecordClient) DeleteRecord(ctx context.Context, table string, id int64) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

// failingStore fails every operation
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Incr(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) Close() error { return nil }

func newCachedClient(t *testing.T, inner record.Client) *CachedClient {
	t.Helper()
	store := NewInMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return NewCachedClient(inner, store, WithDependents(map[string][]string{
		"company_c": {"deals_c", "quotes_c"},
	}))
}

func TestCachedClient_FetchIsCached(t *testing.T) {
	inner := new(mockRecordClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	params := record.FetchParams{Fields: []string{"Id", "name_c"}}

	inner.On("FetchRecords", ctx, "company_c", params.Normalize()).
		Return([]record.Record{{"Id": int64(1), "name_c": "Acme"}}, nil).Once()

	first, err := client.FetchRecords(ctx, "company_c", params)
	require.NoError(t, err)
	second, err := client.FetchRecords(ctx, "company_c", params)
	require.NoError(t, err)

	assert.Equal(t, "Acme", second[0]["name_c"])
	id, ok := record.RelationID(second[0][record.FieldID])
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Len(t, first, 1)
	inner.AssertExpectations(t)
}

func TestCachedClient_WriteInvalidatesTableAndDependents(t *testing.T) {
	inner := new(mockRecordClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()
	params := record.FetchParams{}.Normalize()

	inner.On("FetchRecords", ctx, "deals_c", params).
		Return([]record.Record{{"Id": int64(4), "company_c": map[string]any{"Id": 1, "Name": "Acme"}}}, nil).Twice()
	inner.On("FetchRecords", ctx, "task_c", params).
		Return([]record.Record{}, nil).Once()
	inner.On("UpdateRecord", ctx, "company_c", int64(1), record.Record{"name_c": "Acme Inc"}).
		Return(record.Record{"Id": int64(1), "name_c": "Acme Inc"}, nil).Once()

	_, err := client.FetchRecords(ctx, "deals_c", params)
	require.NoError(t, err)
	_, err = client.FetchRecords(ctx, "task_c", params)
	require.NoError(t, err)

	_, err = client.UpdateRecord(ctx, "company_c", 1, record.Record{"name_c": "Acme Inc"})
	require.NoError(t, err)

	// deals embed company names and must be refetched; tasks stay cached
	_, err = client.FetchRecords(ctx, "deals_c", params)
	require.NoError(t, err)
	_, err = client.FetchRecords(ctx, "task_c", params)
	require.NoError(t, err)

	inner.AssertExpectations(t)
}

func TestCachedClient_GetDoesNotCacheMisses(t *testing.T) {
	inner := new(mockRecordClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()

	inner.On("GetRecordByID", ctx, "invoice_c", int64(9), []string(nil)).
		Return(nil, shared.ErrNotFound).Twice()

	for i := 0; i < 2; i++ {
		_, err := client.GetRecordByID(ctx, "invoice_c", 9, nil)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	}
	inner.AssertExpectations(t)
}

func TestCachedClient_DeleteInvalidates(t *testing.T) {
	inner := new(mockRecordClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()

	inner.On("GetRecordByID", ctx, "task_c", int64(3), []string(nil)).
		Return(record.Record{"Id": int64(3)}, nil).Twice()
	inner.On("DeleteRecord", ctx, "task_c", int64(3)).Return(nil).Once()

	_, err := client.GetRecordByID(ctx, "task_c", 3, nil)
	require.NoError(t, err)
	_, err = client.GetRecordByID(ctx, "task_c", 3, nil)
	require.NoError(t, err)

	require.NoError(t, client.DeleteRecord(ctx, "task_c", 3))

	_, err = client.GetRecordByID(ctx, "task_c", 3, nil)
	require.NoError(t, err)
	inner.AssertExpectations(t)
}

func TestCachedClient_StoreFailureFallsThrough(t *testing.T) {
	inner := new(mockRecordClient)
	client := NewCachedClient(inner, failingStore{})
	ctx := context.Background()

	inner.On("FetchRecords", ctx, "activity_c", record.FetchParams{}.Normalize()).
		Return([]record.Record{{"Id": int64(1)}}, nil).Twice()
	inner.On("CreateRecord", ctx, "activity_c", record.Record{"subject_c": "Call"}).
		Return(record.Record{"Id": int64(2)}, nil).Once()

	for i := 0; i < 2; i++ {
		recs, err := client.FetchRecords(ctx, "activity_c", record.FetchParams{})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	}
	_, err := client.CreateRecord(ctx, "activity_c", record.Record{"subject_c": "Call"})
	require.NoError(t, err)
	inner.AssertExpectations(t)
}

func TestCachedClient_WriteErrorSkipsInvalidation(t *testing.T) {
	inner := new(mockRecordClient)
	client := newCachedClient(t, inner)
	ctx := context.Background()

	inner.On("CreateRecord", ctx, "contact_c", record.Record{}).
		Return(nil, shared.ErrInvalidInput).Once()

	_, err := client.CreateRecord(ctx, "contact_c", record.Record{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, found, err := client.store.Get(ctx, versionKey("contact_c"))
	require.NoError(t, err)
	assert.False(t, found)
}
