// Package planstub is NOT a query planner. Spec §1 places the real
// query parser/planner out of scope ("produces QuerySpec and plan trees
// the core consumes"); this package is a minimal test/demo fixture
// builder that turns a tiny `SELECT ... FROM ... WHERE ... ORDER BY ...`
// string into a QuerySpec using the real TiDB parser's AST, so tests and
// cmd/rowbench can build fixtures from SQL text instead of hand-writing
// QuerySpec literals. It understands a deliberately small subset: a
// single table, a conjunction of `column <op> literal` comparisons, and
// a plain column-list ORDER BY. Anything else is a parse error. It must
// never be mistaken for an index-selecting planner.
package planstub

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// Op is a comparison operator in a WHERE predicate.
type Op string

const (
	OpEQ Op = "="
	OpNE Op = "!="
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
)

// Predicate is one `column <op> literal` conjunct.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// QuerySpec is planstub's stand-in for the real planner's output: a
// table name, a conjunction of predicates, and an order-by spec string
// in the grammar internal/rowinfo.ForSpec parses (direction only, '+' or
// '-' per column; SQL's ORDER BY has no way to express the null-low
// modifier, so every rule here omits it).
type QuerySpec struct {
	Table   string
	Where   []Predicate
	OrderBy string
}

// Parse parses a single SQL statement of the supported subset into a
// QuerySpec.
func Parse(sql string) (*QuerySpec, error) {
	p := parser.New()
	nodes, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("planstub: parse %q: %w", sql, err)
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("planstub: expected exactly one statement, got %d", len(nodes))
	}
	sel, ok := nodes[0].(*ast.SelectStmt)
	if !ok {
		return nil, fmt.Errorf("planstub: only SELECT statements are supported")
	}
	return fromSelect(sel)
}

func fromSelect(sel *ast.SelectStmt) (*QuerySpec, error) {
	table, err := tableName(sel)
	if err != nil {
		return nil, err
	}

	var where []Predicate
	if sel.Where != nil {
		where, err = conjuncts(sel.Where)
		if err != nil {
			return nil, err
		}
	}

	orderBy, err := orderBySpec(sel)
	if err != nil {
		return nil, err
	}

	return &QuerySpec{Table: table, Where: where, OrderBy: orderBy}, nil
}

func tableName(sel *ast.SelectStmt) (string, error) {
	if sel.From == nil || sel.From.TableRefs == nil {
		return "", fmt.Errorf("planstub: missing FROM clause")
	}
	join := sel.From.TableRefs
	if join.Right != nil {
		return "", fmt.Errorf("planstub: joins are not supported")
	}
	src, ok := join.Left.(*ast.TableSource)
	if !ok {
		return "", fmt.Errorf("planstub: unsupported FROM source")
	}
	name, ok := src.Source.(*ast.TableName)
	if !ok {
		return "", fmt.Errorf("planstub: FROM source is not a plain table name")
	}
	return name.Name.O, nil
}

// conjuncts flattens a WHERE expression tree of AND-joined comparisons
// into a flat predicate list. Anything but `column op literal` joined by
// AND is a parse error, per this package's deliberately small grammar.
func conjuncts(expr ast.ExprNode) ([]Predicate, error) {
	if and, ok := expr.(*ast.BinaryOperationExpr); ok && and.Op == opcode.LogicAnd {
		left, err := conjuncts(and.L)
		if err != nil {
			return nil, err
		}
		right, err := conjuncts(and.R)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}

	pred, err := comparison(expr)
	if err != nil {
		return nil, err
	}
	return []Predicate{pred}, nil
}

func comparison(expr ast.ExprNode) (Predicate, error) {
	bin, ok := expr.(*ast.BinaryOperationExpr)
	if !ok {
		return Predicate{}, fmt.Errorf("planstub: unsupported WHERE clause expression")
	}

	op, ok := compareOp(bin.Op)
	if !ok {
		return Predicate{}, fmt.Errorf("planstub: unsupported comparison operator %v", bin.Op)
	}

	col, colOK := bin.L.(*ast.ColumnNameExpr)
	val, valOK := bin.R.(ast.ValueExpr)
	if !colOK || !valOK {
		return Predicate{}, fmt.Errorf("planstub: WHERE clause must be `column op literal`")
	}

	return Predicate{Column: col.Name.Name.O, Op: op, Value: val.GetValue()}, nil
}

func compareOp(op opcode.Op) (Op, bool) {
	switch op {
	case opcode.EQ:
		return OpEQ, true
	case opcode.NE:
		return OpNE, true
	case opcode.LT:
		return OpLT, true
	case opcode.LE:
		return OpLE, true
	case opcode.GT:
		return OpGT, true
	case opcode.GE:
		return OpGE, true
	default:
		return "", false
	}
}

// orderBySpec renders sel's ORDER BY clause into the grammar
// internal/rowinfo.ForSpec parses: `(('+'|'-') '!'? identifier)+`.
func orderBySpec(sel *ast.SelectStmt) (string, error) {
	if sel.OrderBy == nil {
		return "", nil
	}
	var b strings.Builder
	for _, item := range sel.OrderBy.Items {
		col, ok := item.Expr.(*ast.ColumnNameExpr)
		if !ok {
			return "", fmt.Errorf("planstub: ORDER BY must list plain column names")
		}
		if item.Desc {
			b.WriteByte('-')
		} else {
			b.WriteByte('+')
		}
		b.WriteString(col.Name.Name.O)
	}
	return b.String(), nil
}
