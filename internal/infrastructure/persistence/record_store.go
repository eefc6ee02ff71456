package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
)

// RecordStore keeps records in the local SQL database and implements
// record.Client with the same semantics as the hosted record API.
type RecordStore struct {
	db      *gorm.DB
	schemas Schemas
	now     func() time.Time
}

// RecordStoreOption configures a RecordStore
type RecordStoreOption func(*RecordStore)

// WithClock overrides the clock used for CreatedOn/ModifiedOn stamps
func WithClock(now func() time.Time) RecordStoreOption {
	return func(s *RecordStore) {
		s.now = now
	}
}

// NewRecordStore creates a store over db for the given table layouts
func NewRecordStore(db *gorm.DB, schemas Schemas, opts ...RecordStoreOption) *RecordStore {
	s := &RecordStore{db: db, schemas: schemas, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ record.Client = (*RecordStore)(nil)

func (s *RecordStore) schema(table string) (*TableSchema, error) {
	ts, ok := s.schemas.Lookup(table)
	if !ok {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown table %s", table))
	}
	return ts, nil
}

// selection resolves requested fields to columns; Id is always included
func (ts *TableSchema) selection(fields []string) ([]Column, error) {
	if len(fields) == 0 {
		return ts.Columns, nil
	}
	idCol, _ := ts.Column(record.FieldID)
	cols := []Column{idCol}
	seen := map[string]bool{record.FieldID: true}
	for _, f := range fields {
		if seen[f] {
			continue
		}
		c, ok := ts.Column(f)
		if !ok {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown field %s on %s", f, ts.Table))
		}
		seen[f] = true
		cols = append(cols, c)
	}
	return cols, nil
}

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// FetchRecords returns one page of records in the requested order
func (s *RecordStore) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	ts, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	cols, err := ts.selection(params.Fields)
	if err != nil {
		return nil, err
	}
	params = params.Normalize()

	q := s.db.WithContext(ctx).Table(ts.Table).Select(columnNames(cols))
	for _, o := range params.OrderBy {
		c, ok := ts.Column(o.FieldName)
		if !ok {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("cannot order by unknown field %s", o.FieldName))
		}
		q = q.Order(clause.OrderByColumn{
			Column: clause.Column{Name: c.Name},
			Desc:   strings.EqualFold(string(o.SortType), string(record.SortDesc)),
		})
	}

	var rows []map[string]any
	if err := q.Limit(params.PagingInfo.Limit).Offset(params.PagingInfo.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", table, err)
	}
	return s.toRecords(ctx, cols, rows)
}

// GetRecordByID returns a single record or shared.ErrNotFound
func (s *RecordStore) GetRecordByID(ctx context.Context, table string, id int64, fields []string) (record.Record, error) {
	ts, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	cols, err := ts.selection(fields)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	err = s.db.WithContext(ctx).
		Table(ts.Table).
		Select(columnNames(cols)).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record %d: %w", table, id, err)
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("%s record %d not found", table, id))
	}

	recs, err := s.toRecords(ctx, cols, rows)
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// CreateRecord inserts rec and returns the stored record
func (s *RecordStore) CreateRecord(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	ts, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	values, err := ts.columnValues(record.StripEmpty(rec))
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, ts, values); err != nil {
		return nil, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	for _, f := range append(append([]string{}, ts.Created...), ts.Modified...) {
		ts.set(values, f, now)
	}
	if actor := record.ActorFromContext(ctx); actor != "" {
		ts.set(values, record.FieldOwner, actor)
		ts.set(values, record.FieldCreatedBy, actor)
		ts.set(values, record.FieldModifiedBy, actor)
	}
	if _, ok := values["name"]; !ok {
		if name := ts.deriveName(rec); name != "" {
			values["name"] = name
		}
	}

	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		args[i] = values[c]
		placeholders[i] = "?"
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		ts.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := s.db.WithContext(ctx).Raw(stmt, args...).Scan(&id).Error; err != nil {
		return nil, writeError(fmt.Sprintf("failed to create %s record", table), err)
	}
	return s.GetRecordByID(ctx, table, id, nil)
}

// UpdateRecord applies the provided fields to record id
func (s *RecordStore) UpdateRecord(ctx context.Context, table string, id int64, rec record.Record) (record.Record, error) {
	ts, err := s.schema(table)
	if err != nil {
		return nil, err
	}
	rec = record.StripEmpty(rec)
	delete(rec, record.FieldID)

	values, err := ts.columnValues(rec)
	if err != nil {
		return nil, err
	}
	existing, err := s.GetRecordByID(ctx, table, id, nil)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, ts, values); err != nil {
		return nil, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	for _, f := range ts.Modified {
		ts.set(values, f, now)
	}
	if actor := record.ActorFromContext(ctx); actor != "" {
		ts.set(values, record.FieldModifiedBy, actor)
	}
	if _, ok := rec[record.FieldName]; !ok && ts.touchesName(rec) {
		merged := record.Record{}
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range rec {
			merged[k] = v
		}
		values["name"] = ts.deriveName(merged)
	}

	err = s.db.WithContext(ctx).Table(ts.Table).Where("id = ?", id).Updates(values).Error
	if err != nil {
		return nil, writeError(fmt.Sprintf("failed to update %s record %d", table, id), err)
	}
	return s.GetRecordByID(ctx, table, id, nil)
}

// DeleteRecord removes record id or returns shared.ErrNotFound
func (s *RecordStore) DeleteRecord(ctx context.Context, table string, id int64) error {
	ts, err := s.schema(table)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", ts.Table), id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s record %d: %w", table, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage(fmt.Sprintf("%s record %d not found", table, id))
	}
	return nil
}

// checkReferences rejects relation values pointing at records that do not
// exist. sqlite tables carry no foreign keys, so this is the only guard there.
func (s *RecordStore) checkReferences(ctx context.Context, ts *TableSchema, values map[string]any) error {
	for _, c := range ts.Columns {
		if c.Kind != kindRelation {
			continue
		}
		id, ok := values[c.Name].(int64)
		if !ok {
			continue
		}

		var found []int64
		err := s.db.WithContext(ctx).Table(c.Ref).Where("id = ?", id).Pluck("id", &found).Error
		if err != nil {
			return fmt.Errorf("failed to check %s reference: %w", c.Field, err)
		}
		if len(found) == 0 {
			return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s references missing %s record %d", c.Field, c.Ref, id))
		}
	}
	return nil
}

// Postgres error codes that mean the request itself was bad
const (
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// writeError maps constraint failures to ErrInvalidInput and wraps the rest
func writeError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation, pgNumericOutOfRange:
			detail := pgErr.Detail
			if detail == "" {
				detail = pgErr.Message
			}
			return shared.ErrInvalidInput.WithMessage(msg + ": " + detail).Wrap(err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (ts *TableSchema) set(values map[string]any, field string, v any) {
	if c, ok := ts.Column(field); ok {
		values[c.Name] = v
	}
}

func (ts *TableSchema) touchesName(rec record.Record) bool {
	for _, f := range ts.NameFrom {
		if _, ok := rec[f]; ok {
			return true
		}
	}
	return false
}

func (ts *TableSchema) deriveName(rec record.Record) string {
	parts := make([]string, 0, len(ts.NameFrom))
	for _, f := range ts.NameFrom {
		if v := strings.TrimSpace(record.String(rec[f])); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// columnValues converts rec into column values, rejecting unknown fields
func (ts *TableSchema) columnValues(rec record.Record) (map[string]any, error) {
	values := make(map[string]any, len(rec))
	for field, v := range rec {
		if field == record.FieldID {
			continue
		}
		c, ok := ts.Column(field)
		if !ok {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown field %s on %s", field, ts.Table))
		}
		val, err := c.toSQL(v)
		if err != nil {
			return nil, err
		}
		values[c.Name] = val
	}
	return values, nil
}

func (c Column) toSQL(v any) (any, error) {
	switch c.Kind {
	case kindRelation:
		id, ok := record.RelationID(v)
		if !ok {
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("invalid reference for %s", c.Field))
		}
		return id, nil
	case kindNumber:
		switch n := v.(type) {
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s must be a number", c.Field))
			}
			return f, nil
		default:
			return record.Float(n), nil
		}
	default:
		switch t := v.(type) {
		case string:
			return t, nil
		case []string:
			return record.JoinTags(t), nil
		case []any:
			return record.JoinTags(record.SplitTags(t)), nil
		case map[string]any:
			return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s must be text", c.Field))
		default:
			return record.String(t), nil
		}
	}
}

// toRecords converts scanned rows back to field names and expands relations
func (s *RecordStore) toRecords(ctx context.Context, cols []Column, rows []map[string]any) ([]record.Record, error) {
	refs := map[string]map[int64]string{}
	out := make([]record.Record, len(rows))

	for i, row := range rows {
		rec := make(record.Record, len(cols))
		for _, c := range cols {
			v := row[c.Name]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			switch c.Kind {
			case kindRelation:
				if id, ok := record.RelationID(v); ok {
					if refs[c.Ref] == nil {
						refs[c.Ref] = map[int64]string{}
					}
					refs[c.Ref][id] = ""
					rec[c.Field] = id
				} else {
					rec[c.Field] = nil
				}
			case kindNumber:
				if v == nil {
					rec[c.Field] = nil
				} else if c.Field == record.FieldID {
					id, _ := record.RelationID(v)
					rec[c.Field] = id
				} else {
					rec[c.Field] = record.Float(v)
				}
			default:
				rec[c.Field] = v
			}
		}
		out[i] = rec
	}

	for table, ids := range refs {
		if err := s.loadNames(ctx, table, ids); err != nil {
			return nil, err
		}
	}
	for _, rec := range out {
		for _, c := range cols {
			if c.Kind != kindRelation {
				continue
			}
			if id, ok := rec[c.Field].(int64); ok {
				rec[c.Field] = record.Lookup{ID: id, Name: refs[c.Ref][id]}
			}
		}
	}
	return out, nil
}

func (s *RecordStore) loadNames(ctx context.Context, table string, ids map[int64]string) error {
	keys := make([]int64, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}

	var rows []map[string]any
	err := s.db.WithContext(ctx).Table(table).Select([]string{"id", "name"}).Where("id IN ?", keys).Find(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to resolve %s references: %w", table, err)
	}
	for _, row := range rows {
		id, ok := record.RelationID(row["id"])
		if !ok {
			continue
		}
		ids[id] = record.String(row["name"])
	}
	return nil
}
