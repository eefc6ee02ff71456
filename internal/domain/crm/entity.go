// Package crm holds the CRM record types, the option enumerations offered by
// their forms, and the rules behind form validation and list filtering.
package crm

// Ref points at a related record. Name is filled when the backend expands
// the relation.
type Ref struct {
	ID   int64
	Name string
}

// RefName returns the display name of r, or "" when r is nil
func RefName(r *Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}
