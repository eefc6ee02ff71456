package crm

import (
	"context"
	"strings"
	"time"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

const taskTable = "task_c"

var taskFields = []string{
	record.FieldID, "name_c", "description_c", "due_date_c", "status_c", "priority_c", "assigned_to_c",
	record.FieldOwner, record.FieldCreatedBy, record.FieldModifiedBy, record.FieldCreatedOn, record.FieldModifiedOn,
}

// CreateTaskRequest is the task form
type CreateTaskRequest struct {
	Name        string      `json:"name" binding:"max=200"`
	Description string      `json:"description" binding:"max=5000"`
	DueDate     string      `json:"dueDate"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	AssignedTo  *RelationID `json:"assignedTo"`
}

// UpdateTaskRequest changes the provided task fields
type UpdateTaskRequest struct {
	Name        *string     `json:"name" binding:"omitempty,max=200"`
	Description *string     `json:"description" binding:"omitempty,max=5000"`
	DueDate     *string     `json:"dueDate"`
	Status      *string     `json:"status"`
	Priority    *string     `json:"priority"`
	AssignedTo  *RelationID `json:"assignedTo"`
}

// TaskResponse is the task view model
type TaskResponse struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	DueDate     string         `json:"dueDate"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	AssignedTo  *record.Lookup `json:"assignedTo"`
	Overdue     bool           `json:"overdue"`
	Owner       string         `json:"owner"`
	CreatedBy   string         `json:"createdBy"`
	ModifiedBy  string         `json:"modifiedBy"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
}

func taskFromRecord(rec record.Record) crm.Task {
	t := crm.Task{
		ID:          idOf(rec),
		Name:        text(rec, "name_c"),
		Description: text(rec, "description_c"),
		DueDate:     text(rec, "due_date_c"),
		Status:      text(rec, "status_c"),
		Priority:    text(rec, "priority_c"),
		AssignedTo:  ref(rec, "assigned_to_c"),
		Owner:       text(rec, record.FieldOwner),
		CreatedBy:   text(rec, record.FieldCreatedBy),
		ModifiedBy:  text(rec, record.FieldModifiedBy),
		CreatedAt:   text(rec, record.FieldCreatedOn),
		UpdatedAt:   text(rec, record.FieldModifiedOn),
	}
	t.ApplyDefaults()
	return t
}

func taskRecord(t *crm.Task) record.Record {
	rec := record.Record{
		"name_c":        t.Name,
		"description_c": t.Description,
		"due_date_c":    t.DueDate,
		"status_c":      t.Status,
		"priority_c":    t.Priority,
	}
	if t.AssignedTo != nil {
		rec["assigned_to_c"] = t.AssignedTo.ID
	}
	return rec
}

func (r *UpdateTaskRequest) applyTo(t *crm.Task) {
	setText(&t.Name, r.Name)
	setText(&t.Description, r.Description)
	setText(&t.DueDate, r.DueDate)
	setText(&t.Status, r.Status)
	setText(&t.Priority, r.Priority)
	setRef(&t.AssignedTo, r.AssignedTo)
}

func (r *UpdateTaskRequest) toRecord() record.Record {
	p := patch{}
	p.text("name_c", r.Name)
	p.text("description_c", r.Description)
	p.text("due_date_c", r.DueDate)
	p.text("status_c", r.Status)
	p.text("priority_c", r.Priority)
	p.ref("assigned_to_c", r.AssignedTo)
	return record.Record(p)
}

// TaskService manages tasks
type TaskService struct {
	records records[crm.Task]
	now     func() time.Time
}

func newTaskService(client record.Client, o options) *TaskService {
	return &TaskService{
		records: records[crm.Task]{
			client: client,
			table: table[crm.Task]{
				entity: "task",
				name:   taskTable,
				fields: taskFields,
				order:  record.OrderBy{FieldName: record.FieldCreatedOn, SortType: record.SortDesc},
				decode: taskFromRecord,
			},
		},
		now: o.now,
	}
}

func (s *TaskService) response(t *crm.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		DueDate:     t.DueDate,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  lookupOf(t.AssignedTo),
		Overdue:     t.IsOverdue(s.now()),
		Owner:       t.Owner,
		CreatedBy:   t.CreatedBy,
		ModifiedBy:  t.ModifiedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// List returns a page of tasks matching f and the number of matches
func (s *TaskService) List(ctx context.Context, f crm.ListFilter) ([]TaskResponse, int64, error) {
	items, total, err := s.records.list(ctx, f, func(all []crm.Task, f crm.ListFilter) ([]crm.Task, error) {
		return crm.FilterTasks(all, f, s.now())
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]TaskResponse, len(items))
	for i := range items {
		out[i] = s.response(&items[i])
	}
	return out, total, nil
}

// GetByID returns one task
func (s *TaskService) GetByID(ctx context.Context, id int64) (*TaskResponse, error) {
	t, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.response(&t)
	return &resp, nil
}

// GetRecord returns the task as stored by the backend
func (s *TaskService) GetRecord(ctx context.Context, id int64) (record.Record, error) {
	return s.records.getRaw(ctx, id)
}

// Create validates and stores a new task. Status defaults to Open and
// priority to Medium.
func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	t := crm.Task{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
	}
	setRef(&t.AssignedTo, req.AssignedTo)
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "create", err)
	}
	created, err := s.records.create(ctx, taskRecord(&t))
	if err != nil {
		return nil, err
	}
	resp := s.response(&created)
	return &resp, nil
}

// Update applies the provided fields
func (s *TaskService) Update(ctx context.Context, id int64, req UpdateTaskRequest) (*TaskResponse, error) {
	t, err := s.records.get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.applyTo(&t)
	if err := t.Validate(); err != nil {
		return nil, s.records.invalid(ctx, "update", err)
	}
	updated, err := s.records.update(ctx, id, req.toRecord())
	if err != nil {
		return nil, err
	}
	resp := s.response(&updated)
	return &resp, nil
}

// Delete removes a task and returns its Id
func (s *TaskService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.records.delete(ctx, id)
}
