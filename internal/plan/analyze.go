package plan

import "fmt"

// ScopedField is a column visible to expressions, together with the relation
// name or alias that qualifies it.
type ScopedField struct {
	Qual string
	Field
}

// Scope is the set of columns expressions may reference at some node.
type Scope []ScopedField

// Resolve finds the column c refers to. Unqualified names must be unique in
// the scope.
func (s Scope) Resolve(c ColRef) (ScopedField, error) {
	var (
		found ScopedField
		n     int
	)
	for _, f := range s {
		if f.Name != c.Name {
			continue
		}
		if c.Qual != "" && f.Qual != c.Qual {
			continue
		}
		found = f
		n++
	}
	switch n {
	case 0:
		return ScopedField{}, fmt.Errorf("%w: %s", ErrUnresolved, c)
	case 1:
		return found, nil
	default:
		return ScopedField{}, fmt.Errorf("%w: %s", ErrAmbiguous, c)
	}
}

// Schema drops the qualifiers.
func (s Scope) Schema() Schema {
	out := make(Schema, len(s))
	for i, f := range s {
		out[i] = f.Field
	}
	return out
}

// OutputSchema analyses n against cat and returns the columns it produces.
func OutputSchema(n Node, cat Catalog) (Schema, error) {
	sc, err := ScopeOf(n, cat)
	if err != nil {
		return nil, err
	}
	return sc.Schema(), nil
}

// ScopeOf analyses n and returns the columns visible above it.
func ScopeOf(n Node, cat Catalog) (Scope, error) {
	switch n := n.(type) {
	case *ScanNode:
		s, ok := cat.Relation(n.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRelation, n.Name)
		}
		out := make(Scope, len(s))
		for i, f := range s {
			out[i] = ScopedField{Qual: n.Name, Field: f}
		}
		return out, nil

	case *AliasNode:
		in, err := ScopeOf(n.Input, cat)
		if err != nil {
			return nil, err
		}
		out := make(Scope, len(in))
		for i, f := range in {
			out[i] = ScopedField{Qual: n.Alias, Field: f.Field}
		}
		return out, nil

	case *FilterNode:
		in, err := ScopeOf(n.Input, cat)
		if err != nil {
			return nil, err
		}
		if _, err := TypeOf(n.Pred, in, cat); err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		return in, nil

	case *ProjectNode:
		in, err := ScopeOf(n.Input, cat)
		if err != nil {
			return nil, err
		}
		out := make(Scope, 0, len(n.Cols))
		seen := make(map[string]struct{}, len(n.Cols))
		for _, c := range n.Cols {
			t, err := TypeOf(c.Expr, in, cat)
			if err != nil {
				return nil, fmt.Errorf("project: %w", err)
			}
			name := c.OutputName()
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateOutput, name)
			}
			seen[name] = struct{}{}
			out = append(out, ScopedField{Field: Field{Name: name, Type: t}})
		}
		return out, nil

	case *JoinNode:
		l, err := ScopeOf(n.Left, cat)
		if err != nil {
			return nil, err
		}
		r, err := ScopeOf(n.Right, cat)
		if err != nil {
			return nil, err
		}
		both := append(append(Scope(nil), l...), r...)
		if _, err := TypeOf(n.On, both, cat); err != nil {
			return nil, fmt.Errorf("join: %w", err)
		}
		return both, nil

	case *DistinctNode:
		return ScopeOf(n.Input, cat)
	}
	return nil, fmt.Errorf("plan: unsupported node %T", n)
}

// TypeOf resolves every reference in e and returns its result type.
func TypeOf(e Expr, sc Scope, cat Catalog) (Type, error) {
	switch e := e.(type) {
	case ColRef:
		f, err := sc.Resolve(e)
		if err != nil {
			return TypeNull, err
		}
		return f.Type, nil

	case Literal:
		switch e.Value.(type) {
		case nil:
			return TypeNull, nil
		case bool:
			return TypeBool, nil
		case int64:
			return TypeInt64, nil
		case float64:
			return TypeFloat64, nil
		case string:
			return TypeString, nil
		}
		return TypeNull, fmt.Errorf("plan: unsupported literal %T", e.Value)

	case Binary:
		if _, err := TypeOf(e.L, sc, cat); err != nil {
			return TypeNull, err
		}
		if _, err := TypeOf(e.R, sc, cat); err != nil {
			return TypeNull, err
		}
		return TypeBool, nil

	case FuncCall:
		fn, ok := cat.Function(e.Name)
		if !ok {
			return TypeNull, fmt.Errorf("%w: %s", ErrUnknownFunction, e.Name)
		}
		if fn.Args != len(e.Args) {
			return TypeNull, fmt.Errorf("plan: %s takes %d argument(s), got %d", e.Name, fn.Args, len(e.Args))
		}
		for _, a := range e.Args {
			if _, err := TypeOf(a, sc, cat); err != nil {
				return TypeNull, err
			}
		}
		return fn.Returns, nil
	}
	return TypeNull, fmt.Errorf("plan: unsupported expression %T", e)
}
