package persistence

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/hubcrm/backend/internal/domain/record"
)

type columnKind int

const (
	kindText columnKind = iota
	kindNumber
	kindRelation
)

// Column maps a record field onto a SQL column
type Column struct {
	Field string
	Name  string
	Kind  columnKind
	Ref   string // referenced table for relations
}

// TableSchema describes how one record table is laid out in SQL. Every
// table carries the platform system columns plus a name column that
// relation lookups read from.
type TableSchema struct {
	Table    string
	Columns  []Column
	NameFrom []string // fields joined to derive Name when it is not given
	Created  []string // fields stamped on insert
	Modified []string // fields stamped on insert and update

	byField map[string]Column
}

// Column returns the column for field
func (s *TableSchema) Column(field string) (Column, bool) {
	c, ok := s.byField[field]
	return c, ok
}

// Fields lists every field in declaration order
func (s *TableSchema) Fields() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Field
	}
	return out
}

// columnName converts a field name to its SQL column:
// "Id" -> "id", "CreatedOn" -> "created_on", "first_name_c" stays as is.
func columnName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func text(fields ...string) []Column {
	cols := make([]Column, len(fields))
	for i, f := range fields {
		cols[i] = Column{Field: f, Name: columnName(f), Kind: kindText}
	}
	return cols
}

func number(field string) Column {
	return Column{Field: field, Name: columnName(field), Kind: kindNumber}
}

func relation(field, ref string) Column {
	return Column{Field: field, Name: columnName(field), Kind: kindRelation, Ref: ref}
}

func systemColumns() []Column {
	cols := []Column{{Field: record.FieldID, Name: "id", Kind: kindNumber}}
	return append(cols, text(
		record.FieldName,
		record.FieldTags,
		record.FieldOwner,
		record.FieldCreatedOn,
		record.FieldCreatedBy,
		record.FieldModifiedOn,
		record.FieldModifiedBy,
	)...)
}

func newSchema(table string, nameFrom []string, extra ...[]Column) *TableSchema {
	s := &TableSchema{
		Table:    table,
		Columns:  systemColumns(),
		NameFrom: nameFrom,
		Created:  []string{record.FieldCreatedOn},
		Modified: []string{record.FieldModifiedOn},
	}
	for _, cols := range extra {
		s.Columns = append(s.Columns, cols...)
	}
	s.byField = make(map[string]Column, len(s.Columns))
	for _, c := range s.Columns {
		s.byField[c.Field] = c
	}
	return s
}

// Schemas is the registry of tables served by the local store
type Schemas map[string]*TableSchema

// Lookup returns the schema for table
func (s Schemas) Lookup(table string) (*TableSchema, bool) {
	ts, ok := s[table]
	return ts, ok
}

// Tables lists registered tables in a stable order
func (s Schemas) Tables() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CRMSchemas returns the layout of the CRM tables
func CRMSchemas() Schemas {
	contact := newSchema("contact_c", []string{"first_name_c", "last_name_c"},
		text("first_name_c", "last_name_c", "email_c", "phone_c", "company_c",
			"position_c", "photo_c", "notes_c", "tags_c", "created_at_c", "updated_at_c"),
	)
	contact.Created = append(contact.Created, "created_at_c")
	contact.Modified = append(contact.Modified, "updated_at_c")

	company := newSchema("company_c", []string{"name_c"},
		text("name_c", "address_c", "city_c", "state_c", "zip_code_c"),
	)

	task := newSchema("task_c", []string{"name_c"},
		text("name_c", "description_c", "due_date_c", "status_c", "priority_c"),
		[]Column{relation("assigned_to_c", "contact_c")},
	)

	deal := newSchema("deals_c", []string{"name_c"},
		text("name_c", "description_c", "close_date_c", "stage_c"),
		[]Column{
			number("amount_c"),
			relation("company_c", "company_c"),
			relation("task_c", "task_c"),
		},
	)

	activity := newSchema("activity_c", []string{"subject_c"},
		text("subject_c", "activity_type_c", "status_c", "due_date_c", "description_c"),
	)

	quote := newSchema("quotes_c", []string{"name_c"},
		text("name_c", "description_c", "issue_date_c", "expiration_date_c"),
		[]Column{
			number("amount_c"),
			relation("company_c", "company_c"),
		},
	)

	invoice := newSchema("invoice_c", []string{"invoice_number_c"},
		text("invoice_number_c", "invoice_date_c", "due_date_c", "status_c"),
		[]Column{
			number("amount_due_c"),
			relation("contact_c", "contact_c"),
		},
	)

	return Schemas{
		contact.Table:  contact,
		company.Table:  company,
		task.Table:     task,
		deal.Table:     deal,
		activity.Table: activity,
		quote.Table:    quote,
		invoice.Table:  invoice,
	}
}

// CreateTables creates missing tables for every registered schema. It serves
// sqlite databases; postgres deployments run the SQL migrations instead.
func (s Schemas) CreateTables(ctx context.Context, db *gorm.DB) error {
	for _, table := range s.Tables() {
		ts := s[table]
		defs := make([]string, 0, len(ts.Columns))
		for _, c := range ts.Columns {
			switch {
			case c.Field == record.FieldID:
				defs = append(defs, "id INTEGER PRIMARY KEY AUTOINCREMENT")
			case c.Kind == kindNumber:
				defs = append(defs, c.Name+" REAL")
			case c.Kind == kindRelation:
				defs = append(defs, c.Name+" INTEGER")
			default:
				defs = append(defs, c.Name+" TEXT")
			}
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// Dependents maps each table to the tables holding relations to it. Reads of
// a dependent embed the referenced record's name, so writes to a table make
// cached reads of its dependents stale.
func (s Schemas) Dependents() map[string][]string {
	out := make(map[string][]string)
	for _, table := range s.Tables() {
		for _, c := range s[table].Columns {
			if c.Kind == kindRelation && !slices.Contains(out[c.Ref], table) {
				out[c.Ref] = append(out[c.Ref], table)
			}
		}
	}
	return out
}
