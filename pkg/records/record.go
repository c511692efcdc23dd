// Package records defines the loosely-typed record shape shared by the JSON
// parser, the source loader and the query engine.
package records

import "sort"

// Record is one decoded input object keyed by its JSON field names. Values are
// whatever encoding/json produced with UseNumber enabled: json.Number, string,
// bool, nil, map[string]any or []any.
type Record map[string]any

// Keys returns the record's field names in sorted order.
func (r Record) Keys() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
