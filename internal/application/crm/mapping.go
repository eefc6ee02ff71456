package crm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hubcrm/backend/internal/domain/crm"
	"github.com/hubcrm/backend/internal/domain/record"
)

func text(rec record.Record, field string) string {
	return record.String(rec[field])
}

func idOf(rec record.Record) int64 {
	id, _ := record.RelationID(rec[record.FieldID])
	return id
}

func amount(rec record.Record, field string) decimal.Decimal {
	return decimal.NewFromFloat(record.Float(rec[field]))
}

func ref(rec record.Record, field string) *crm.Ref {
	l := record.AsLookup(rec[field])
	if l == nil {
		return nil
	}
	return &crm.Ref{ID: l.ID, Name: l.Name}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// patch collects the backend fields of a create or update
type patch record.Record

func (p patch) text(field string, v *string) {
	if v != nil {
		p[field] = *v
	}
}

func (p patch) amount(field string, v *decimal.Decimal) {
	if v != nil {
		p[field] = v.InexactFloat64()
	}
}

func (p patch) tags(field string, v *[]string) {
	if v != nil {
		p[field] = record.JoinTags(*v)
	}
}

func (p patch) ref(field string, v *RelationID) {
	if v != nil && *v != 0 {
		p[field] = int64(*v)
	}
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setAmount(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

func setTags(dst *[]string, v *[]string) {
	if v != nil {
		*dst = record.SplitTags(*v)
	}
}

func setRef(dst **crm.Ref, v *RelationID) {
	if v == nil {
		return
	}
	if *v == 0 {
		*dst = nil
		return
	}
	if *dst == nil || (*dst).ID != int64(*v) {
		*dst = &crm.Ref{ID: int64(*v)}
	}
}

// RelationID is a relation in a request body. It accepts a bare Id, a
// numeric string or an {"Id": n} object; null and "" mean unset.
type RelationID int64

// UnmarshalJSON implements json.Unmarshaler
func (r *RelationID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if obj, ok := v.(map[string]any); ok {
		if id, found := obj["id"]; found {
			v = id
		} else {
			v = obj[record.FieldID]
		}
	}
	if v == nil || v == "" || v == json.Number("0") {
		*r = 0
		return nil
	}
	id, ok := record.RelationID(v)
	if !ok {
		return fmt.Errorf("invalid relation id %s", string(data))
	}
	*r = RelationID(id)
	return nil
}

func lookupOf(r *crm.Ref) *record.Lookup {
	if r == nil {
		return nil
	}
	return &record.Lookup{ID: r.ID, Name: r.Name}
}

func floatOf(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
