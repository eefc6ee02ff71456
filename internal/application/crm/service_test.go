package crm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

// MockRecordClient is a mock implementation of record.Client
type MockRecordClient struct {
	mock.Mock
}

func (m *MockRecordClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	args := m.Called(ctx, table, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func (m *MockRecordClient) GetRecordByID(ctx context.Context, table string, id int64, fields []string) (record.Record, error) {
	args := m.Called(ctx, table, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *MockRecordClient) CreateRecord(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	args := m.Called(ctx, table, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *MockRecordClient) UpdateRecord(ctx context.Context, table string, id int64, rec record.Record) (record.Record, error) {
	args := m.Called(ctx, table, id, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *MockRecordClient) DeleteRecord(ctx context.Context, table string, id int64) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func newTestServices(opts ...Option) (*Services, *MockRecordClient) {
	client := new(MockRecordClient)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewServices(client, opts...), client
}

func strPtr(s string) *string { return &s }

func TestContactService_List(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("FetchRecords", mock.Anything, contactTable, record.FetchParams{
		Fields:     contactFields,
		OrderBy:    []record.OrderBy{{FieldName: "Id", SortType: record.SortDesc}},
		PagingInfo: record.PagingInfo{Limit: 100, Offset: 0},
	}).Return([]record.Record{
		{"Id": json.Number("3"), "first_name_c": "Ada", "last_name_c": "Lovelace", "email_c": "ada@example.com", "tags_c": "vip, math"},
		{"Id": json.Number("2"), "first_name_c": "Alan", "last_name_c": "Turing", "company_c": "Bletchley"},
		{"Id": json.Number("1"), "first_name_c": "Grace", "last_name_c": "Hopper"},
	}, nil)

	items, total, err := svc.Contacts.List(ctx, crm.ListFilter{Search: "a", PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, "Ada Lovelace", items[0].FullName)
	assert.Equal(t, "AL", items[0].Initials)
	assert.Equal(t, []string{"vip", "math"}, items[0].Tags)

	items, total, err = svc.Contacts.List(ctx, crm.ListFilter{Search: "bletch"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Alan", items[0].FirstName)

	_, _, err = svc.Contacts.List(ctx, crm.ListFilter{Preset: "nonsense"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestContactService_Create(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("CreateRecord", mock.Anything, contactTable, record.Record{
		"first_name_c": "Ada",
		"last_name_c":  "Lovelace",
		"email_c":      "ada@example.com",
		"tags_c":       "vip,math",
	}).Return(record.Record{
		"Id": json.Number("7"), "first_name_c": "Ada", "last_name_c": "Lovelace",
		"email_c": "ada@example.com", "tags_c": "vip,math", "created_at_c": "2024-06-15T10:30:00Z",
	}, nil).Once()

	resp, err := svc.Contacts.Create(ctx, CreateContactRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Tags:      []string{"vip", " math", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "2024-06-15T10:30:00Z", resp.CreatedAt)
	client.AssertExpectations(t)
}

func TestContactService_CreateValidation(t *testing.T) {
	svc, client := newTestServices()

	_, err := svc.Contacts.Create(context.Background(), CreateContactRequest{Email: "not-an-email"})
	require.ErrorIs(t, err, shared.ErrValidation)

	verrs, ok := shared.AsValidationErrors(err)
	require.True(t, ok)
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"firstName", "lastName", "email"}, fields)
	client.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestContactService_UpdateSendsOnlyProvidedFields(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("GetRecordByID", mock.Anything, contactTable, int64(5), contactFields).
		Return(record.Record{"Id": int64(5), "first_name_c": "Ada", "last_name_c": "Lovelace"}, nil)
	client.On("UpdateRecord", mock.Anything, contactTable, int64(5), record.Record{"phone_c": "555-0100"}).
		Return(record.Record{"Id": int64(5), "first_name_c": "Ada", "last_name_c": "Lovelace", "phone_c": "555-0100"}, nil)

	resp, err := svc.Contacts.Update(ctx, 5, UpdateContactRequest{Phone: strPtr("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", resp.Phone)
	client.AssertExpectations(t)
}

func TestContactService_UpdateMissing(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("GetRecordByID", mock.Anything, contactTable, int64(9), contactFields).
		Return(nil, shared.ErrNotFound)

	_, err := svc.Contacts.Update(ctx, 9, UpdateContactRequest{Phone: strPtr("1")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	client.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDealService_CreateDefaultsAndRelations(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	company := RelationID(4)
	amount := decimal.RequireFromString("12500.5")

	client.On("CreateRecord", mock.Anything, dealTable, record.Record{
		"name_c":    "Renewal",
		"amount_c":  12500.5,
		"stage_c":   crm.StageProspecting,
		"company_c": int64(4),
	}).Return(record.Record{
		"Id": json.Number("11"), "name_c": "Renewal", "amount_c": json.Number("12500.5"),
		"stage_c": "Prospecting", "company_c": map[string]any{"Id": json.Number("4"), "Name": "Acme"},
	}, nil)

	resp, err := svc.Deals.Create(ctx, CreateDealRequest{Name: "Renewal", Amount: &amount, Company: &company})
	require.NoError(t, err)
	assert.Equal(t, 12500.5, resp.Amount)
	assert.Equal(t, "$12,500.50", resp.FormattedAmount)
	assert.Equal(t, &record.Lookup{ID: 4, Name: "Acme"}, resp.Company)
	assert.Nil(t, resp.Task)
	assert.False(t, resp.Closed)
}

func TestDealService_Validation(t *testing.T) {
	svc, _ := newTestServices()
	negative := decimal.NewFromInt(-1)

	_, err := svc.Deals.Create(context.Background(), CreateDealRequest{Name: "X", Amount: &negative, Stage: "Won?"})
	verrs, ok := shared.AsValidationErrors(err)
	require.True(t, ok)
	assert.Len(t, verrs, 2)
}

func TestDealService_ListPresets(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("FetchRecords", mock.Anything, dealTable, mock.Anything).Return([]record.Record{
		{"Id": 1, "name_c": "A", "stage_c": "Closed Won", "company_c": record.Lookup{ID: 2, Name: "Acme"}},
		{"Id": 2, "name_c": "B", "stage_c": "Negotiation"},
		{"Id": 3, "name_c": "C"},
	}, nil)

	active, total, err := svc.Deals.List(ctx, crm.ListFilter{Preset: "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Prospecting", active[1].Stage)

	won, _, err := svc.Deals.List(ctx, crm.ListFilter{Preset: "won", Search: "acme"})
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.Equal(t, "Acme", won[0].Company.Name)
}

func TestTaskService(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()
	assignee := RelationID(8)

	client.On("FetchRecords", mock.Anything, taskTable, mock.MatchedBy(func(p record.FetchParams) bool {
		return p.OrderBy[0].FieldName == record.FieldCreatedOn
	})).Return([]record.Record{
		{"Id": 1, "name_c": "Call back", "due_date_c": "2024-06-14", "status_c": "Completed"},
		{"Id": 2, "name_c": "Send deck", "due_date_c": "2024-06-15", "priority_c": "High"},
		{"Id": 3, "name_c": "Plan", "Owner": "alice"},
	}, nil)
	client.On("CreateRecord", mock.Anything, taskTable, record.Record{
		"name_c": "Follow up", "status_c": "Open", "priority_c": "Medium", "assigned_to_c": int64(8),
	}).Return(record.Record{"Id": 4, "name_c": "Follow up", "status_c": "Open", "priority_c": "Medium",
		"assigned_to_c": map[string]any{"Id": 8, "Name": "Ada Lovelace"}, "CreatedBy": "alice"}, nil)

	overdue, _, err := svc.Tasks.List(ctx, crm.ListFilter{Preset: "overdue"})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, int64(1), overdue[0].ID)
	assert.True(t, overdue[0].Overdue)

	high, _, err := svc.Tasks.List(ctx, crm.ListFilter{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "Open", high[0].Status)

	created, err := svc.Tasks.Create(ctx, CreateTaskRequest{Name: "Follow up", AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", created.AssignedTo.Name)
	assert.Equal(t, "alice", created.CreatedBy)
}

func TestActivityService(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("FetchRecords", mock.Anything, activityTable, mock.Anything).Return([]record.Record{
		{"Id": 1, "subject_c": "Intro call", "due_date_c": "2024-06-10"},
		{"Id": 2, "subject_c": "Demo", "activity_type_c": "Meeting", "due_date_c": "2024-06-10", "status_c": "Completed"},
	}, nil)
	client.On("CreateRecord", mock.Anything, activityTable, record.Record{
		"Name": "Kickoff", "subject_c": "Kickoff", "activity_type_c": "Call", "status_c": "Planned",
	}).Return(record.Record{"Id": 3, "Name": "Kickoff", "subject_c": "Kickoff"}, nil)

	overdue, total, err := svc.Activities.List(ctx, crm.ListFilter{Preset: "overdue"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Call", overdue[0].ActivityType)

	meetings, _, err := svc.Activities.List(ctx, crm.ListFilter{Type: "meeting"})
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.False(t, meetings[0].Overdue)

	created, err := svc.Activities.Create(ctx, CreateActivityRequest{Subject: "Kickoff"})
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", created.Name)
	assert.Equal(t, "Planned", created.Status)
}

func TestQuoteService(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("FetchRecords", mock.Anything, quoteTable, mock.Anything).Return([]record.Record{
		{"Id": 1, "name_c": "Old", "expiration_date_c": "2024-06-01"},
		{"Id": 2, "name_c": "Open", "expiration_date_c": "2024-07-01"},
		{"Id": 3, "name_c": "Forever"},
	}, nil)

	expired, _, err := svc.Quotes.List(ctx, crm.ListFilter{Preset: "expired"})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.True(t, expired[0].Expired)

	active, total, err := svc.Quotes.List(ctx, crm.ListFilter{Preset: "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.False(t, active[0].Expired)

	_, err = svc.Quotes.Create(ctx, CreateQuoteRequest{Name: "Q", IssueDate: "2024-06-10", ExpirationDate: "2024-06-01"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestInvoiceService(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()
	contact := RelationID(3)
	due := decimal.NewFromInt(250)

	client.On("FetchRecords", mock.Anything, invoiceTable, mock.Anything).Return([]record.Record{
		{"Id": 1, "invoice_number_c": "INV-001", "contact_c": map[string]any{"Id": 3, "Name": "Ada Lovelace"}},
		{"Id": 2, "invoice_number_c": "INV-002", "status_c": "Paid"},
	}, nil)
	client.On("CreateRecord", mock.Anything, invoiceTable, record.Record{
		"invoice_number_c": "INV-003", "invoice_date_c": "2024-06-01", "due_date_c": "2024-07-01",
		"amount_due_c": 250.0, "status_c": "Sent", "contact_c": int64(3),
	}).Return(record.Record{"Id": 9, "invoice_number_c": "INV-003", "amount_due_c": 250, "status_c": "Sent"}, nil)
	client.On("DeleteRecord", mock.Anything, invoiceTable, int64(9)).Return(nil)

	drafts, _, err := svc.Invoices.List(ctx, crm.ListFilter{Status: "DRAFT"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Draft", drafts[0].Status)
	assert.Equal(t, "Ada Lovelace", drafts[0].Contact.Name)

	byContact, _, err := svc.Invoices.List(ctx, crm.ListFilter{Search: "lovelace"})
	require.NoError(t, err)
	assert.Len(t, byContact, 1)

	created, err := svc.Invoices.Create(ctx, CreateInvoiceRequest{
		InvoiceNumber: "INV-003", InvoiceDate: "2024-06-01", DueDate: "2024-07-01",
		AmountDue: &due, Status: "Sent", Contact: &contact,
	})
	require.NoError(t, err)
	assert.Equal(t, "$250.00", created.FormattedAmountDue)

	id, err := svc.Invoices.Delete(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	_, err = svc.Invoices.Create(ctx, CreateInvoiceRequest{InvoiceNumber: "INV-004"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompanyService_UpstreamErrorPassesThrough(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("FetchRecords", mock.Anything, companyTable, mock.Anything).
		Return(nil, shared.ErrUpstream.WithMessage("record API unavailable"))

	_, _, err := svc.Companies.List(ctx, crm.ListFilter{})
	assert.ErrorIs(t, err, shared.ErrUpstream)
}

func TestCompanyService_RecentAndRaw(t *testing.T) {
	svc, client := newTestServices()
	ctx := context.Background()

	client.On("FetchRecords", mock.Anything, companyTable, mock.Anything).Return([]record.Record{
		{"Id": 1, "name_c": "New Co", "CreatedOn": "2024-06-14T09:00:00Z"},
		{"Id": 2, "name_c": "Old Co", "CreatedOn": "2024-01-01T09:00:00Z"},
	}, nil)
	raw := record.Record{"Id": 1, "name_c": "New Co", "Tags": "a,b"}
	client.On("GetRecordByID", mock.Anything, companyTable, int64(1), companyFields).Return(raw, nil)

	recent, _, err := svc.Companies.List(ctx, crm.ListFilter{Preset: "recent"})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "New Co", recent[0].Name)

	got, err := svc.Companies.GetRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	resp, err := svc.Companies.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.Tags)
}

func TestRelationID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    RelationID
		wantErr bool
	}{
		{`5`, 5, false},
		{`"12"`, 12, false},
		{`{"Id": 7, "Name": "Acme"}`, 7, false},
		{`{"id": 9}`, 9, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`0`, 0, false},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var r RelationID
			err := json.Unmarshal([]byte(tt.in), &r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestServices_Options(t *testing.T) {
	svc, _ := newTestServices()
	opts := svc.Options()
	assert.Equal(t, crm.DealStages, opts.DealStages)
	assert.Contains(t, opts.InvoiceStatuses, "Void")
}
