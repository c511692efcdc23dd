package sqlite

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"musiclake/internal/plan"
	"musiclake/pkg/records"
)

// inferSchema returns hint followed by every other key present in recs, in
// sorted order. Unhinted columns take the promoted type of their values;
// columns that only ever hold null become strings.
func inferSchema(recs []records.Record, hint plan.Schema) plan.Schema {
	seen := make(map[string]plan.Type)
	for _, r := range recs {
		for k, v := range r {
			if hint.Index(k) >= 0 {
				continue
			}
			t, ok := seen[k]
			if !ok {
				t = plan.TypeNull
			}
			seen[k] = plan.Promote(t, valueType(v))
		}
	}

	extra := make(plan.Schema, 0, len(seen))
	for k, t := range seen {
		if t == plan.TypeNull {
			t = plan.TypeString
		}
		extra = append(extra, plan.Field{Name: k, Type: t})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })

	// SQLite column names are case-insensitive; the first spelling wins.
	taken := make(map[string]bool, len(hint)+len(extra))
	for _, f := range hint {
		taken[strings.ToLower(f.Name)] = true
	}
	kept := extra[:0]
	for _, f := range extra {
		if taken[strings.ToLower(f.Name)] {
			continue
		}
		taken[strings.ToLower(f.Name)] = true
		kept = append(kept, f)
	}
	return hint.Merge(kept)
}

// valueType maps a decoded JSON value to its logical type.
func valueType(v any) plan.Type {
	switch x := v.(type) {
	case nil:
		return plan.TypeNull
	case bool:
		return plan.TypeBool
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return plan.TypeInt64
		}
		return plan.TypeFloat64
	case int64, int:
		return plan.TypeInt64
	case float64:
		return plan.TypeFloat64
	default:
		return plan.TypeString
	}
}

// coerce converts a decoded JSON value to t. Values that do not fit become
// nil. Objects and arrays convert to their JSON text for string columns.
func coerce(v any, t plan.Type) any {
	if v == nil {
		return nil
	}
	switch t {
	case plan.TypeInt64:
		switch x := v.(type) {
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return n
			}
			if f, err := x.Float64(); err == nil && isIntegral(f) {
				return int64(f)
			}
		case int64:
			return x
		case int:
			return int64(x)
		case float64:
			if isIntegral(x) {
				return int64(x)
			}
		}
		return nil

	case plan.TypeFloat64:
		switch x := v.(type) {
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f
			}
		case float64:
			return x
		case int64:
			return float64(x)
		case int:
			return float64(x)
		}
		return nil

	case plan.TypeBool:
		if b, ok := v.(bool); ok {
			return b
		}
		return nil

	case plan.TypeString:
		switch x := v.(type) {
		case string:
			return x
		case json.Number:
			return x.String()
		case bool:
			return strconv.FormatBool(x)
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64)
		default:
			b, err := json.Marshal(x)
			if err != nil {
				return nil
			}
			return string(b)
		}
	}
	return nil
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) &&
		f >= math.MinInt64 && f <= math.MaxInt64
}

// fromSQL converts a value scanned from SQLite into the Go type for t.
func fromSQL(v any, t plan.Type) any {
	if v == nil {
		return nil
	}
	switch t {
	case plan.TypeBool:
		switch x := v.(type) {
		case int64:
			return x != 0
		case bool:
			return x
		}
		return nil
	case plan.TypeInt64:
		switch x := v.(type) {
		case int64:
			return x
		case float64:
			if isIntegral(x) {
				return int64(x)
			}
		}
		return nil
	case plan.TypeFloat64:
		switch x := v.(type) {
		case float64:
			return x
		case int64:
			return float64(x)
		}
		return nil
	case plan.TypeString:
		switch x := v.(type) {
		case string:
			return x
		case []byte:
			return string(x)
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return nil
	}
	return v
}

// sqlType is the declared column type for t.
func sqlType(t plan.Type) string {
	switch t {
	case plan.TypeBool:
		return "BOOLEAN"
	case plan.TypeInt64:
		return "INTEGER"
	case plan.TypeFloat64:
		return "REAL"
	default:
		return "TEXT"
	}
}

// typeOfDecl maps a declared column type back to a plan type using SQLite's
// affinity rules.
func typeOfDecl(decl string) plan.Type {
	switch d := strings.ToUpper(decl); {
	case strings.Contains(d, "BOOL"):
		return plan.TypeBool
	case strings.Contains(d, "INT"):
		return plan.TypeInt64
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return plan.TypeFloat64
	default:
		return plan.TypeString
	}
}
