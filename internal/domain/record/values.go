package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StripEmpty returns a copy of rec without nil and empty-string values.
// Zero numbers and false are kept.
func StripEmpty(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
		case *Lookup:
			if val == nil {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// String renders a record value as text. Lookups render as their name.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case Lookup, *Lookup, map[string]any:
		return LookupName(val)
	default:
		return fmt.Sprint(val)
	}
}

// Float converts a numeric record value. Unparseable values yield 0.
func Float(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	case []byte:
		return Float(string(val))
	default:
		return 0
	}
}

// RelationID extracts a record Id from a relation value: a bare number, a
// numeric string, a Lookup, or a {"Id": ...} object.
func RelationID(v any) (int64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(val), val != 0
	case int64:
		return val, val != 0
	case int32:
		return int64(val), val != 0
	case float64:
		return int64(val), val != 0
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			f, ferr := val.Float64()
			if ferr != nil {
				return 0, false
			}
			n = int64(f)
		}
		return n, n != 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, n != 0
	case Lookup:
		return val.ID, val.ID != 0
	case *Lookup:
		if val == nil {
			return 0, false
		}
		return val.ID, val.ID != 0
	case map[string]any:
		return RelationID(val[FieldID])
	default:
		return 0, false
	}
}

// AsLookup normalizes a relation value into a Lookup, or nil when unset
func AsLookup(v any) *Lookup {
	id, ok := RelationID(v)
	if !ok {
		return nil
	}
	return &Lookup{ID: id, Name: LookupName(v)}
}

// LookupName returns the display name carried by a relation value
func LookupName(v any) string {
	switch val := v.(type) {
	case Lookup:
		return val.Name
	case *Lookup:
		if val == nil {
			return ""
		}
		return val.Name
	case map[string]any:
		if name, ok := val[FieldName].(string); ok {
			return name
		}
	}
	return ""
}

// JoinTags joins tags with commas, dropping blanks
func JoinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}

// SplitTags parses a tags value. Strings are split on commas and trimmed;
// lists are taken as-is. Blank tags are dropped.
func SplitTags(v any) []string {
	var raw []string
	switch val := v.(type) {
	case nil:
		return []string{}
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, String(item))
		}
	default:
		raw = strings.Split(String(val), ",")
	}

	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
