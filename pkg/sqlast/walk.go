package sqlast

import "strings"

// Inspect traverses the tree rooted at node in depth-first order.
// If fn returns false, the children of that node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *SelectStmt:
		for i := range n.Columns {
			Inspect(&n.Columns[i], fn)
		}
		if n.From != nil {
			Inspect(n.From, fn)
		}
		inspectExpr(n.Where, fn)
		for _, e := range n.GroupBy {
			inspectExpr(e, fn)
		}
		inspectExpr(n.Having, fn)
		for i := range n.OrderBy {
			Inspect(&n.OrderBy[i], fn)
		}
		inspectExpr(n.Limit, fn)
		inspectExpr(n.Offset, fn)
	case *SelectItem:
		inspectExpr(n.Expr, fn)
	case *FromClause:
		if n.Source != nil {
			Inspect(n.Source, fn)
		}
		for _, j := range n.Joins {
			Inspect(j, fn)
		}
	case *Join:
		if n.Right != nil {
			Inspect(n.Right, fn)
		}
		inspectExpr(n.Condition, fn)
	case *OrderByItem:
		inspectExpr(n.Expr, fn)
	case *BinaryExpr:
		inspectExpr(n.Left, fn)
		inspectExpr(n.Right, fn)
	case *UnaryExpr:
		inspectExpr(n.Expr, fn)
	case *FuncCall:
		for _, a := range n.Args {
			inspectExpr(a, fn)
		}
	case *CastExpr:
		inspectExpr(n.Expr, fn)
	case *CaseExpr:
		inspectExpr(n.Operand, fn)
		for _, w := range n.Whens {
			inspectExpr(w.Condition, fn)
			inspectExpr(w.Result, fn)
		}
		inspectExpr(n.Else, fn)
	case *InExpr:
		inspectExpr(n.Expr, fn)
		for _, v := range n.Values {
			inspectExpr(v, fn)
		}
	case *BetweenExpr:
		inspectExpr(n.Expr, fn)
		inspectExpr(n.Low, fn)
		inspectExpr(n.High, fn)
	case *IsNullExpr:
		inspectExpr(n.Expr, fn)
	case *LikeExpr:
		inspectExpr(n.Expr, fn)
		inspectExpr(n.Pattern, fn)
	case *ParenExpr:
		inspectExpr(n.Expr, fn)
	}
}

// inspectExpr skips absent optional expressions.
func inspectExpr(e Expr, fn func(Node) bool) {
	if e == nil {
		return
	}
	Inspect(e, fn)
}

// ColumnRefs returns every column reference under node in visit order.
func ColumnRefs(node Node) []*ColumnRef {
	var refs []*ColumnRef
	Inspect(node, func(n Node) bool {
		if c, ok := n.(*ColumnRef); ok {
			refs = append(refs, c)
		}
		return true
	})
	return refs
}

// Rewrite returns a copy of e with every column reference replaced by
// the result of fn. Other nodes are copied shallowly.
func Rewrite(e Expr, fn func(*ColumnRef) Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *ColumnRef:
		return fn(n)
	case *BinaryExpr:
		return &BinaryExpr{Left: Rewrite(n.Left, fn), Op: n.Op, Right: Rewrite(n.Right, fn)}
	case *UnaryExpr:
		return &UnaryExpr{Op: n.Op, Expr: Rewrite(n.Expr, fn)}
	case *FuncCall:
		c := *n
		c.Args = make([]Expr, len(n.Args))
		for i, a := range n.Args {
			c.Args[i] = Rewrite(a, fn)
		}
		return &c
	case *CastExpr:
		return &CastExpr{Expr: Rewrite(n.Expr, fn), Type: n.Type}
	case *CaseExpr:
		c := &CaseExpr{Operand: Rewrite(n.Operand, fn), Else: Rewrite(n.Else, fn)}
		for _, w := range n.Whens {
			c.Whens = append(c.Whens, WhenClause{Condition: Rewrite(w.Condition, fn), Result: Rewrite(w.Result, fn)})
		}
		return c
	case *InExpr:
		c := &InExpr{Expr: Rewrite(n.Expr, fn), Not: n.Not}
		for _, v := range n.Values {
			c.Values = append(c.Values, Rewrite(v, fn))
		}
		return c
	case *BetweenExpr:
		return &BetweenExpr{Expr: Rewrite(n.Expr, fn), Not: n.Not, Low: Rewrite(n.Low, fn), High: Rewrite(n.High, fn)}
	case *IsNullExpr:
		return &IsNullExpr{Expr: Rewrite(n.Expr, fn), Not: n.Not}
	case *LikeExpr:
		return &LikeExpr{Expr: Rewrite(n.Expr, fn), Not: n.Not, Op: n.Op, Pattern: Rewrite(n.Pattern, fn)}
	case *ParenExpr:
		return &ParenExpr{Expr: Rewrite(n.Expr, fn)}
	}
	return e
}

// HasAggregate reports whether e contains an aggregate function call.
func HasAggregate(e Expr) bool {
	found := false
	inspectExpr(e, func(n Node) bool {
		if f, ok := n.(*FuncCall); ok && IsAggregate(f.Name) {
			found = true
		}
		return !found
	})
	return found
}

var aggregates = map[string]bool{
	"SUM": true, "COUNT": true, "AVG": true, "MIN": true, "MAX": true,
	"MEDIAN": true, "STDDEV": true, "VARIANCE": true, "ANY_VALUE": true,
	"COUNT_IF": true, "APPROX_COUNT_DISTINCT": true,
}

// IsAggregate reports whether name is a known aggregate function.
func IsAggregate(name string) bool {
	return aggregates[strings.ToUpper(name)]
}
