package plan

import (
	"fmt"
	"strings"
)

// Expr is a scalar expression evaluated per row.
type Expr interface {
	fmt.Stringer
	expr()
}

// ColRef references a column, optionally qualified by a relation name or
// alias.
type ColRef struct {
	Qual string
	Name string
}

// Literal is a constant. Value is nil, bool, int64, float64 or string.
type Literal struct {
	Value any
}

// BinaryOp enumerates the binary operators plans may use.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpAnd
)

func (op BinaryOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpAnd:
		return "AND"
	}
	return "?"
}

// Binary applies Op to L and R.
type Binary struct {
	Op BinaryOp
	L  Expr
	R  Expr
}

// FuncCall invokes a scalar function known to the catalog.
type FuncCall struct {
	Name string
	Args []Expr
}

// Named gives an expression an output column name.
type Named struct {
	Expr Expr
	Name string
}

func (ColRef) expr()   {}
func (Literal) expr()  {}
func (Binary) expr()   {}
func (FuncCall) expr() {}

func (c ColRef) String() string {
	if c.Qual != "" {
		return c.Qual + "." + c.Name
	}
	return c.Name
}

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	default:
		return fmt.Sprint(v)
	}
}

func (b Binary) String() string {
	return "(" + b.L.String() + " " + b.Op.String() + " " + b.R.String() + ")"
}

func (f FuncCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n Named) String() string {
	return n.Expr.String() + " AS " + n.OutputName()
}

// OutputName is the column name the expression produces: the explicit name,
// or the referenced column name for a bare column reference.
func (n Named) OutputName() string {
	if n.Name != "" {
		return n.Name
	}
	if c, ok := n.Expr.(ColRef); ok {
		return c.Name
	}
	return n.Expr.String()
}

// Col references an unqualified column.
func Col(name string) ColRef { return ColRef{Name: name} }

// QCol references a column of the relation known as qual.
func QCol(qual, name string) ColRef { return ColRef{Qual: qual, Name: name} }

// Lit wraps a constant. Integer kinds are normalised to int64 and float32 to
// float64 so engines only see the Literal value set.
func Lit(v any) Literal {
	switch x := v.(type) {
	case int:
		return Literal{Value: int64(x)}
	case int32:
		return Literal{Value: int64(x)}
	case float32:
		return Literal{Value: float64(x)}
	}
	return Literal{Value: v}
}

// Eq compares two expressions for equality.
func Eq(l, r Expr) Binary { return Binary{Op: OpEq, L: l, R: r} }

// And folds the given predicates into a left-deep conjunction.
func And(preds ...Expr) Expr {
	if len(preds) == 0 {
		return Lit(true)
	}
	out := preds[0]
	for _, p := range preds[1:] {
		out = Binary{Op: OpAnd, L: out, R: p}
	}
	return out
}

// Call invokes the named scalar function.
func Call(name string, args ...Expr) FuncCall { return FuncCall{Name: name, Args: args} }

// As names an expression in a projection.
func As(e Expr, name string) Named { return Named{Expr: e, Name: name} }

// Cols keeps the given columns under their own names.
func Cols(names ...string) []Named {
	out := make([]Named, len(names))
	for i, n := range names {
		out[i] = Named{Expr: Col(n)}
	}
	return out
}
