// Package plan describes relational queries as small trees of algebra nodes
// (scan, alias, filter, project, join, distinct) over typed expressions.
//
// A plan is inert: it carries no SQL text and knows nothing about the engine
// that will run it. Engines compile plans into their own dialect and use
// OutputSchema to learn the column names and types a plan produces.
package plan

import (
	"fmt"
	"strings"
)

// Type is the logical column type understood by every engine and by the
// columnar writer.
type Type int

const (
	// TypeNull is the type of an untyped NULL literal or of a column whose
	// values were all null. It widens to any other type.
	TypeNull Type = iota
	TypeBool
	TypeInt64
	TypeFloat64
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType maps a textual type name (as used in config files) to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return TypeBool, nil
	case "int", "int64", "integer", "long", "bigint":
		return TypeInt64, nil
	case "float", "float64", "double", "real":
		return TypeFloat64, nil
	case "string", "text":
		return TypeString, nil
	case "null":
		return TypeNull, nil
	}
	return TypeNull, fmt.Errorf("plan: unknown type %q", s)
}

// Promote returns the narrowest type able to hold values of both a and b.
// Numbers widen int64 -> float64; any other mix falls back to string, the
// same rule JSON schema inference uses.
func Promote(a, b Type) Type {
	switch {
	case a == b:
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	case (a == TypeInt64 && b == TypeFloat64) || (a == TypeFloat64 && b == TypeInt64):
		return TypeFloat64
	default:
		return TypeString
	}
}

// Field is a named, typed column.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered list of columns.
type Schema []Field

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// Index returns the position of the named column or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named column.
func (s Schema) Lookup(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return Field{}, false
}

// Merge returns s extended with the columns of other that s does not have.
// Columns present in both keep the type declared by s.
func (s Schema) Merge(other Schema) Schema {
	out := append(Schema(nil), s...)
	for _, f := range other {
		if out.Index(f.Name) < 0 {
			out = append(out, f)
		}
	}
	return out
}
