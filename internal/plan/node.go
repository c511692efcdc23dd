package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Analysis errors. They are wrapped with the offending name.
var (
	ErrUnknownRelation = errors.New("unknown relation")
	ErrUnknownFunction = errors.New("unknown function")
	ErrUnresolved      = errors.New("unresolved column")
	ErrAmbiguous       = errors.New("ambiguous column")
	ErrDuplicateOutput = errors.New("duplicate output column")
)

// Func describes a scalar function available to plans.
type Func struct {
	Name    string
	Args    int
	Returns Type
}

// Catalog resolves relation and function names during analysis. Engine
// sessions implement it.
type Catalog interface {
	Relation(name string) (Schema, bool)
	Function(name string) (Func, bool)
}

// Node is a relational operator.
type Node interface {
	fmt.Stringer
	node()
}

// ScanNode reads a registered view or table.
type ScanNode struct{ Name string }

// AliasNode renames its input so columns can be referenced as Alias.col.
type AliasNode struct {
	Input Node
	Alias string
}

// FilterNode keeps rows for which Pred is true.
type FilterNode struct {
	Input Node
	Pred  Expr
}

// ProjectNode computes Cols for every input row.
type ProjectNode struct {
	Input Node
	Cols  []Named
}

// JoinNode is an inner join of Left and Right on On.
type JoinNode struct {
	Left  Node
	Right Node
	On    Expr
}

// DistinctNode removes duplicate rows.
type DistinctNode struct{ Input Node }

func (*ScanNode) node()     {}
func (*AliasNode) node()    {}
func (*FilterNode) node()   {}
func (*ProjectNode) node()  {}
func (*JoinNode) node()     {}
func (*DistinctNode) node() {}

// Scan reads the named view or table.
func Scan(name string) *ScanNode { return &ScanNode{Name: name} }

// Alias names in for qualified column references.
func Alias(in Node, alias string) *AliasNode { return &AliasNode{Input: in, Alias: alias} }

// Filter keeps rows of in matching pred.
func Filter(in Node, pred Expr) *FilterNode { return &FilterNode{Input: in, Pred: pred} }

// Project computes cols over in.
func Project(in Node, cols ...Named) *ProjectNode { return &ProjectNode{Input: in, Cols: cols} }

// Join inner-joins left and right on on.
func Join(left, right Node, on Expr) *JoinNode { return &JoinNode{Left: left, Right: right, On: on} }

// Distinct removes duplicate rows of in.
func Distinct(in Node) *DistinctNode { return &DistinctNode{Input: in} }

func (n *ScanNode) String() string  { return "Scan(" + n.Name + ")" }
func (n *AliasNode) String() string { return "Alias(" + n.Input.String() + ", " + n.Alias + ")" }
func (n *FilterNode) String() string {
	return "Filter(" + n.Input.String() + ", " + n.Pred.String() + ")"
}
func (n *ProjectNode) String() string {
	cols := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		cols[i] = c.String()
	}
	return "Project(" + n.Input.String() + ", " + strings.Join(cols, ", ") + ")"
}
func (n *JoinNode) String() string {
	return "Join(" + n.Left.String() + ", " + n.Right.String() + ", " + n.On.String() + ")"
}
func (n *DistinctNode) String() string { return "Distinct(" + n.Input.String() + ")" }
