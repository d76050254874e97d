// Package task defines query tasks: a named, reusable template describing
// what data to fetch, how to aggregate it and how to present it.
package task

import (
	"fmt"
	"strings"
)

// Data presentation formats a task template may declare.
const (
	FormatTable     = "table"
	FormatLineChart = "line_chart"
)

// Detail is the task template. A task is executable once all four fields are
// filled in. Pointer fields distinguish "not provided yet" from empty, which
// drives the merge semantics during incremental creation and editing.
type Detail struct {
	Target        *string `json:"target"`        // What data the task fetches
	QueryParam    *string `json:"queryParam"`    // Filter / time range parameters
	DataOperation *string `json:"dataOperation"` // Aggregation or transformation to apply
	DataFormat    *string `json:"dataFormat"`    // Presentation format (table, line_chart)
}

// IsIntegrated reports whether every template field has a non-empty value.
// Only integrated tasks may be saved or executed.
func (d *Detail) IsIntegrated() bool {
	if d == nil {
		return false
	}
	for _, f := range []*string{d.Target, d.QueryParam, d.DataOperation, d.DataFormat} {
		if f == nil || strings.TrimSpace(*f) == "" {
			return false
		}
	}
	return true
}

// Merge overlays patch onto d, overwriting only the fields patch explicitly
// provides. Fields absent from the patch keep their current value.
func (d Detail) Merge(patch Detail) Detail {
	out := d
	if patch.Target != nil {
		out.Target = patch.Target
	}
	if patch.QueryParam != nil {
		out.QueryParam = patch.QueryParam
	}
	if patch.DataOperation != nil {
		out.DataOperation = patch.DataOperation
	}
	if patch.DataFormat != nil {
		out.DataFormat = patch.DataFormat
	}
	return out
}

// Equal reports field-by-field string equality, treating nil as empty.
func (d *Detail) Equal(other *Detail) bool {
	return deref(d.fieldOrNil(0)) == deref(other.fieldOrNil(0)) &&
		deref(d.fieldOrNil(1)) == deref(other.fieldOrNil(1)) &&
		deref(d.fieldOrNil(2)) == deref(other.fieldOrNil(2)) &&
		deref(d.fieldOrNil(3)) == deref(other.fieldOrNil(3))
}

func (d *Detail) fieldOrNil(i int) *string {
	if d == nil {
		return nil
	}
	switch i {
	case 0:
		return d.Target
	case 1:
		return d.QueryParam
	case 2:
		return d.DataOperation
	case 3:
		return d.DataFormat
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MissingFields lists the template fields that still need a value, in a fixed
// order suitable for prompting the user.
func (d *Detail) MissingFields() []string {
	var missing []string
	names := []string{"target", "queryParam", "dataOperation", "dataFormat"}
	for i, name := range names {
		f := d.fieldOrNil(i)
		if f == nil || strings.TrimSpace(*f) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Describe renders the template as labeled lines for inclusion in prompts.
// Unset fields are shown as "(not set)".
func (d *Detail) Describe() string {
	value := func(i int) string {
		f := d.fieldOrNil(i)
		if f == nil || strings.TrimSpace(*f) == "" {
			return "(not set)"
		}
		return *f
	}
	return fmt.Sprintf(
		"Target: %s\nQuery parameters: %s\nData operation: %s\nData format: %s",
		value(0), value(1), value(2), value(3),
	)
}

// Ptr is a convenience for building Detail literals.
func Ptr(s string) *string { return &s }
