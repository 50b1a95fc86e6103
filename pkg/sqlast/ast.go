package sqlast

// Node is implemented by every AST node.
type Node interface {
	node()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// ---------- Statement ----------

// SelectStmt is a single SELECT statement.
// CTEs, set operations and subqueries are rejected by the parser.
type SelectStmt struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem is one projected expression.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string
	Pos       Position
}

// FromClause is the FROM source plus its joins.
type FromClause struct {
	Source *TableName
	Joins  []*Join
}

// TableName is a table reference, optionally schema-qualified and aliased.
type TableName struct {
	Schema string
	Name   string
	Alias  string
	Pos    Position
}

// Ref returns the name the table is referenced by in the query.
func (t *TableName) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// JoinType is the kind of join.
type JoinType string

// Join types.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// Join is one JOIN clause.
type Join struct {
	Type      JoinType
	Right     *TableName
	Condition Expr
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool
}

// ---------- Expressions ----------

// ColumnRef is a possibly qualified column reference.
type ColumnRef struct {
	Table  string
	Column string
	Pos    Position
}

// LiteralKind identifies the type of a literal.
type LiteralKind int

// Literal kinds.
const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal is a constant value.
type Literal struct {
	Kind  LiteralKind
	Value string
}

// TypedLiteral is a literal with a type prefix: DATE '2024-01-01', INTERVAL '1 day'.
type TypedLiteral struct {
	Type  string
	Value string
}

// BinaryExpr is a binary operation. Op is the canonical operator text
// (e.g. "=", "<>", "AND", "||").
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

// UnaryExpr is NOT or unary minus.
type UnaryExpr struct {
	Op   string
	Expr Expr
}

// FuncCall is a function call, including aggregates.
type FuncCall struct {
	Name     string
	Distinct bool
	Star     bool // COUNT(*)
	Args     []Expr
	Pos      Position
}

// CastExpr is CAST(expr AS type) or expr::type.
type CastExpr struct {
	Expr Expr
	Type string
}

// WhenClause is one WHEN ... THEN ... branch.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CaseExpr is a CASE expression.
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// InExpr is expr [NOT] IN (values).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
}

// BetweenExpr is expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// IsNullExpr is expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

// LikeExpr is expr [NOT] LIKE|ILIKE pattern.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Op      string
	Pattern Expr
}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*SelectStmt) node()   {}
func (*SelectItem) node()   {}
func (*FromClause) node()   {}
func (*TableName) node()    {}
func (*Join) node()         {}
func (*OrderByItem) node()  {}
func (*ColumnRef) node()    {}
func (*Literal) node()      {}
func (*TypedLiteral) node() {}
func (*BinaryExpr) node()   {}
func (*UnaryExpr) node()    {}
func (*FuncCall) node()     {}
func (*CastExpr) node()     {}
func (*CaseExpr) node()     {}
func (*InExpr) node()       {}
func (*BetweenExpr) node()  {}
func (*IsNullExpr) node()   {}
func (*LikeExpr) node()     {}
func (*ParenExpr) node()    {}

func (*ColumnRef) expr()    {}
func (*Literal) expr()      {}
func (*TypedLiteral) expr() {}
func (*BinaryExpr) expr()   {}
func (*UnaryExpr) expr()    {}
func (*FuncCall) expr()     {}
func (*CastExpr) expr()     {}
func (*CaseExpr) expr()     {}
func (*InExpr) expr()       {}
func (*BetweenExpr) expr()  {}
func (*IsNullExpr) expr()   {}
func (*LikeExpr) expr()     {}
func (*ParenExpr) expr()    {}
