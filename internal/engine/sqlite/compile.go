package sqlite

import (
	"fmt"
	"strconv"
	"strings"

	"musiclake/internal/plan"
)

// column is one output column of a compiled relation. Every column gets a
// generated SQL name unique within the whole statement, so joined
// relations never clash and qualifiers only matter during resolution.
type column struct {
	plan.ScopedField
	sqlName string
}

// relation is a compiled plan node: a SELECT statement plus the columns it
// exposes.
type relation struct {
	sql  string
	cols []column
}

func (r relation) scope() plan.Scope {
	out := make(plan.Scope, len(r.cols))
	for i, c := range r.cols {
		out[i] = c.ScopedField
	}
	return out
}

// compiler turns plans into SQLite SELECT statements.
type compiler struct {
	cat  *Session
	tz   string
	next int
}

func (c *compiler) fresh(prefix string) string {
	c.next++
	return fmt.Sprintf("%s%d", prefix, c.next)
}

// compile analyses n and returns the final SELECT together with its output
// schema. Output columns carry their plan names.
func (c *compiler) compile(n plan.Node) (string, plan.Schema, error) {
	if _, err := plan.ScopeOf(n, c.cat); err != nil {
		return "", nil, err
	}
	rel, err := c.node(n)
	if err != nil {
		return "", nil, err
	}
	sel := make([]string, len(rel.cols))
	schema := make(plan.Schema, len(rel.cols))
	for i, col := range rel.cols {
		sel[i] = quoteIdent(col.sqlName) + " AS " + quoteIdent(col.Name)
		schema[i] = col.Field
	}
	return "SELECT " + strings.Join(sel, ", ") + " FROM (" + rel.sql + ") AS " + quoteIdent(c.fresh("_q")), schema, nil
}

func (c *compiler) node(n plan.Node) (relation, error) {
	switch n := n.(type) {
	case *plan.ScanNode:
		schema, ok := c.cat.Relation(n.Name)
		if !ok {
			return relation{}, fmt.Errorf("%w: %s", plan.ErrUnknownRelation, n.Name)
		}
		rel := relation{cols: make([]column, len(schema))}
		sel := make([]string, len(schema))
		for i, f := range schema {
			name := c.fresh("_c")
			rel.cols[i] = column{ScopedField: plan.ScopedField{Qual: n.Name, Field: f}, sqlName: name}
			sel[i] = quoteIdent(f.Name) + " AS " + quoteIdent(name)
		}
		if len(sel) == 0 {
			sel = []string{"NULL AS " + quoteIdent(c.fresh("_c"))}
		}
		rel.sql = "SELECT " + strings.Join(sel, ", ") + " FROM " + quoteIdent(n.Name)
		return rel, nil

	case *plan.AliasNode:
		in, err := c.node(n.Input)
		if err != nil {
			return relation{}, err
		}
		out := relation{sql: in.sql, cols: make([]column, len(in.cols))}
		for i, col := range in.cols {
			col.Qual = n.Alias
			out.cols[i] = col
		}
		return out, nil

	case *plan.FilterNode:
		in, err := c.node(n.Input)
		if err != nil {
			return relation{}, err
		}
		pred, err := c.expr(n.Pred, in)
		if err != nil {
			return relation{}, err
		}
		return relation{
			sql:  "SELECT * FROM (" + in.sql + ") AS " + quoteIdent(c.fresh("_f")) + " WHERE " + pred,
			cols: in.cols,
		}, nil

	case *plan.ProjectNode:
		in, err := c.node(n.Input)
		if err != nil {
			return relation{}, err
		}
		sc := in.scope()
		out := relation{cols: make([]column, len(n.Cols))}
		sel := make([]string, len(n.Cols))
		for i, nc := range n.Cols {
			e, err := c.expr(nc.Expr, in)
			if err != nil {
				return relation{}, err
			}
			t, err := plan.TypeOf(nc.Expr, sc, c.cat)
			if err != nil {
				return relation{}, err
			}
			name := c.fresh("_c")
			out.cols[i] = column{ScopedField: plan.ScopedField{Field: plan.Field{Name: nc.OutputName(), Type: t}}, sqlName: name}
			sel[i] = e + " AS " + quoteIdent(name)
		}
		out.sql = "SELECT " + strings.Join(sel, ", ") + " FROM (" + in.sql + ") AS " + quoteIdent(c.fresh("_p"))
		return out, nil

	case *plan.JoinNode:
		l, err := c.node(n.Left)
		if err != nil {
			return relation{}, err
		}
		r, err := c.node(n.Right)
		if err != nil {
			return relation{}, err
		}
		both := relation{cols: append(append([]column(nil), l.cols...), r.cols...)}
		on, err := c.expr(n.On, both)
		if err != nil {
			return relation{}, err
		}
		both.sql = "SELECT * FROM (" + l.sql + ") AS " + quoteIdent(c.fresh("_l")) +
			" JOIN (" + r.sql + ") AS " + quoteIdent(c.fresh("_r")) + " ON " + on
		return both, nil

	case *plan.DistinctNode:
		in, err := c.node(n.Input)
		if err != nil {
			return relation{}, err
		}
		return relation{
			sql:  "SELECT DISTINCT * FROM (" + in.sql + ") AS " + quoteIdent(c.fresh("_d")),
			cols: in.cols,
		}, nil
	}
	return relation{}, fmt.Errorf("sqlite: unsupported node %T", n)
}

func (c *compiler) expr(e plan.Expr, in relation) (string, error) {
	switch e := e.(type) {
	case plan.ColRef:
		sf, err := in.scope().Resolve(e)
		if err != nil {
			return "", err
		}
		for _, col := range in.cols {
			if col.ScopedField == sf {
				return quoteIdent(col.sqlName), nil
			}
		}
		return "", fmt.Errorf("%w: %s", plan.ErrUnresolved, e)

	case plan.Literal:
		return literal(e.Value)

	case plan.Binary:
		l, err := c.expr(e.L, in)
		if err != nil {
			return "", err
		}
		r, err := c.expr(e.R, in)
		if err != nil {
			return "", err
		}
		switch e.Op {
		case plan.OpEq:
			return "(" + l + " = " + r + ")", nil
		case plan.OpAnd:
			return "(" + l + " AND " + r + ")", nil
		}
		return "", fmt.Errorf("sqlite: unsupported operator %s", e.Op)

	case plan.FuncCall:
		fn, ok := functions[e.Name]
		if !ok {
			return "", fmt.Errorf("%w: %s", plan.ErrUnknownFunction, e.Name)
		}
		args := make([]string, 0, len(e.Args)+1)
		for _, a := range e.Args {
			s, err := c.expr(a, in)
			if err != nil {
				return "", err
			}
			args = append(args, s)
		}
		if fn.zoned {
			tz, _ := literal(c.tz)
			args = append(args, tz)
		}
		return e.Name + "(" + strings.Join(args, ", ") + ")", nil
	}
	return "", fmt.Errorf("sqlite: unsupported expression %T", e)
}

func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s, nil
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	}
	return "", fmt.Errorf("sqlite: unsupported literal %T", v)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
