package crm

import (
	"context"
	"strings"
	"time"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

const activityTable = "activity_c"

var activityFields = []string{
	record.FieldID, record.FieldName, "subject_c", "activity_type_c", "status_c", "due_date_c", "description_c",
	record.FieldTags, record.FieldOwner, record.FieldCreatedBy, record.FieldModifiedBy,
	record.FieldCreatedOn, record.FieldModifiedOn,
}

// CreateActivityRequest is the activity form
type CreateActivityRequest struct {
	Subject      string   `json:"subject" binding:"max=200"`
	ActivityType string   `json:"activityType"`
	Status       string   `json:"status"`
	DueDate      string   `json:"dueDate"`
	Description  string   `json:"description" binding:"max=5000"`
	Tags         []string `json:"tags"`
}

// UpdateActivityRequest changes the provided activity fields
type UpdateActivityRequest struct {
	Subject      *string   `json:"subject" binding:"omitempty,max=200"`
	ActivityType *string   `json:"activityType"`
	Status       *string   `json:"status"`
	DueDate      *string   `json:"dueDate"`
	Description  *string   `json:"description" binding:"omitempty,max=5000"`
	Tags         *[]string `json:"tags"`
}

// ActivityResponse is the activity view model
type ActivityResponse struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Subject      string   `json:"subject"`
	ActivityType string   `json:"activityType"`
	Status       string   `json:"status"`
	DueDate      string   `json:"dueDate"`
	Description  string   `json:"description"`
	Overdue      bool     `json:"overdue"`
	Tags         []string `json:"tags"`
	Owner        string   `json:"owner"`
	CreatedBy    string   `json:"createdBy"`
	ModifiedBy   string   `json:"modifiedBy"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func activityFromRecord(rec record.Record) crm.Activity {
	a := crm.Activity{
		ID:           idOf(rec),
		Name:         text(rec, record.FieldName),
		Subject:      text(rec, "subject_c"),
		ActivityType: text(rec, "activity_type_c"),
		Status:       text(rec, "status_c"),
		DueDate:      text(rec, "due_date_c"),
		Description:  text(rec, "description_c"),
		Tags:         record.SplitTags(rec[record.FieldTags]),
		Owner:        text(rec, record.FieldOwner),
		CreatedBy:    text(rec, record.FieldCreatedBy),
		ModifiedBy:   text(rec, record.FieldModifiedBy),
		CreatedAt:    text(rec, record.FieldCreatedOn),
		UpdatedAt:    text(rec, record.FieldModifiedOn),
	}
	a.ApplyDefaults()
	return a
}

func activityRecord(a *crm.Activity) record.Record {
	return record.Record{
		record.FieldName:  a.Subject,
		"subject_c":       a.Subject,
		"activity_type_c": a.ActivityType,
		"status_c":        a.Status,
		"due_date_c":      a.DueDate,
		"description_c":   a.Description,
		record.FieldTags:  record.JoinTags(a.Tags),
	}
}

func (r *UpdateActivityRequest) applyTo(a *crm.Activity) {
	setText(&a.Subject, r.Subject)
	setText(&a.ActivityType, r.ActivityType)
	setText(&a.Status, r.Status)
	setText(&a.DueDate, r.DueDate)
	setText(&a.Description, r.Description)
	setTags(&a.Tags, r.Tags)
}

func (r *UpdateActivityRequest) toRecord() record.Record {
	p := patch{}
	p.text(record.FieldName, r.Subject)
	p.text("subject_c", r.Subject)
	p.text("activity_type_c", r.ActivityType)
	p.text("status_c", r.Status)
	p.text("due_date_c", r.DueDate)
	p.text("description_c", r.Description)
	p.tags(record.FieldTags, r.Tags)
	return record.Record(p)
}

// ActivityService manages calls, emails and meetings
type ActivityService struct {
	records records[crm.Activity]
	now     func() time.Time
}

func newActivityService(client record.Client, o options) *ActivityService {
	return &ActivityService{
		records: records[crm.Activity]{
			client: client,
			table: table[crm.Activity]{
				entity: "activity",
				name:   activityTable,
				fields: activityFields,
				order:  record.OrderBy{FieldName: record.FieldCreatedOn, SortType: record.SortDesc},
				decode: activityFromRecord,
			},
		},
		now: o.now,
	}
}

func (s *ActivityService) response(a *crm.Activity) ActivityResponse {
	return ActivityResponse{
		ID:           a.ID,
		Name:         a.Name,
		Subject:      a.Subject,
		ActivityType: a.ActivityType,
		Status:       a.Status,
		DueDate:      a.DueDate,
		Description:  a.Description,
		Overdue:      a.IsOverdue(s.now()),
		Tags:         a.Tags,
		Owner:        a.Owner,
		CreatedBy:    a.CreatedBy,
		ModifiedBy:   a.ModifiedBy,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// List returns a page of activities matching f and the number of matches
func (s *ActivityService) List(ctx context.Context, f crm.ListFilter) ([]ActivityResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, func(all []crm.Activity, f crm.ListFilter) ([]crm.Activity, error) {
		return crm.FilterActivities(all, f, s.now())
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]ActivityResponse, len(items))
	for i := range items {
		out[i] = s.response(&items[i])
	}
	return out, total, nil
}

// GetByID returns one activity
func (s *ActivityService) GetByID(ctx context.Context, id int64) (*ActivityResponse, error) {
	a, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.response(&a)
	return &resp, nil
}

// GetRecord returns the activity as stored by the backend
func (s *ActivityService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new activity. Type defaults to Call and
// status to Planned.
func (s *ActivityService) Create(ctx context.Context, req CreateActivityRequest) (*ActivityResponse, error) {
	a := crm.Activity{
		Subject:      strings.TrimSpace(req.Subject),
		ActivityType: req.ActivityType,
		Status:       req.Status,
		DueDate:      req.DueDate,
		Description:  req.Description,
		Tags:         record.SplitTags(req.Tags),
	}
	a.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, activityRecord(&a))
	if err != nil {
		return nil, err
	}
	resp := s.response(&created)
	return &resp, nil
}

// Update applies the provided fields
func (s *ActivityService) Update(ctx context.Context, id int64, req UpdateActivityRequest) (*ActivityResponse, error) {
	a, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&a)
	if err := a.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := s.response(&updated)
	return &resp, nil
}

// Delete removes an activity and returns its Id
func (s *ActivityService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.records.delete(ctx, id)
}
