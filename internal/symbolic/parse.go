package symbolic

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Relation is lhs op rhs. Op is empty for a plain expression, in which case
// Rhs is zero.
type Relation struct {
	Op       string
	Lhs, Rhs Expr
}

func (r Relation) String() string {
	switch r.Op {
	case "":
		return r.Lhs.String()
	case "==":
		return "Eq(" + r.Lhs.String() + ", " + r.Rhs.String() + ")"
	case "!=":
		return "Ne(" + r.Lhs.String() + ", " + r.Rhs.String() + ")"
	}
	return r.Lhs.String() + " " + r.Op + " " + r.Rhs.String()
}

// Expr returns lhs - rhs.
func (r Relation) Expr() Expr { return Sub(r.Lhs, r.Rhs) }

var functions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "atan": true,
	"exp": true, "log": true, "ln": true, "sqrt": true, "abs": true, "Abs": true,
}

var constants = map[string]Expr{
	"pi": Pi,
	"E":  E,
	"I":  I,
	"oo": Oo,
}

// Clean strips surrounding code-span backticks and removes backslashes, so
// that input pasted from Markdown or LaTeX parses.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")
	return strings.TrimSpace(strings.ReplaceAll(s, "\\", ""))
}

// Parse reads an expression. Relations are rejected.
func Parse(s string) (Expr, error) {
	r, err := ParseRelation(s)
	if err != nil {
		return nil, err
	}
	if r.Op != "" {
		return nil, errorf(ErrParse, "expected an expression, got the relation %s", r)
	}
	return r.Lhs, nil
}

// ParseRelation reads an expression or a relation such as x**2 >= 4 or
// Eq(x, 1).
func ParseRelation(s string) (Relation, error) {
	src := Clean(s)
	if src == "" {
		return Relation{}, errorf(ErrParse, "empty expression")
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return Relation{}, errorf(ErrParse, "cannot parse %q: %v", src, err)
	}
	node := tree.Node
	switch n := node.(type) {
	case *ast.BinaryNode:
		switch n.Operator {
		case "==", "!=", "<", ">", "<=", ">=":
			l, err := convert(n.Left)
			if err != nil {
				return Relation{}, err
			}
			r, err := convert(n.Right)
			if err != nil {
				return Relation{}, err
			}
			return Relation{Op: n.Operator, Lhs: l, Rhs: r}, nil
		}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok && id.Value == "Eq" {
			if len(n.Arguments) != 2 {
				return Relation{}, errorf(ErrParse, "Eq takes 2 arguments, got %d", len(n.Arguments))
			}
			l, err := convert(n.Arguments[0])
			if err != nil {
				return Relation{}, err
			}
			r, err := convert(n.Arguments[1])
			if err != nil {
				return Relation{}, err
			}
			return Relation{Op: "==", Lhs: l, Rhs: r}, nil
		}
	}
	e, err := convert(node)
	if err != nil {
		return Relation{}, err
	}
	return Relation{Lhs: e, Rhs: Zero}, nil
}

// ParseSymbol reads a variable name.
func ParseSymbol(s string) (string, error) {
	e, err := Parse(s)
	if err != nil {
		return "", err
	}
	sym, ok := e.(Sym)
	if !ok || isConstant(sym) {
		return "", errorf(ErrValue, "%s is not a variable", Clean(s))
	}
	return sym.Name, nil
}

func convert(node ast.Node) (Expr, error) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return NewInt(int64(n.Value)), nil
	case *ast.FloatNode:
		r, ok := new(big.Rat).SetString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		if !ok {
			return nil, errorf(ErrParse, "invalid number %v", n.Value)
		}
		return Num{v: r}, nil
	case *ast.IdentifierNode:
		if c, ok := constants[n.Value]; ok {
			return c, nil
		}
		switch n.Value {
		case "zoo":
			return Zoo, nil
		case "nan":
			return Nan, nil
		}
		return Symbol(n.Value), nil
	case *ast.UnaryNode:
		x, err := convert(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return Neg(x), nil
		case "+":
			return x, nil
		}
		return nil, errorf(ErrParse, "unsupported operator %s", n.Operator)
	case *ast.BinaryNode:
		l, err := convert(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := convert(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "+":
			return NewAdd(l, r), nil
		case "-":
			return Sub(l, r), nil
		case "*":
			return NewMul(l, r), nil
		case "/":
			return Div(l, r), nil
		case "**", "^":
			return NewPow(l, r), nil
		}
		return nil, errorf(ErrParse, "unsupported operator %s", n.Operator)
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, errorf(ErrParse, "unsupported call %T", n.Callee)
		}
		return call(id.Value, n.Arguments)
	case *ast.BuiltinNode:
		return call(n.Name, n.Arguments)
	}
	return nil, errorf(ErrParse, "unsupported syntax %T", node)
}

func call(name string, args []ast.Node) (Expr, error) {
	if !functions[name] {
		return nil, errorf(ErrParse, "unknown function %s", name)
	}
	if len(args) != 1 {
		return nil, errorf(ErrParse, "%s takes 1 argument, got %d", name, len(args))
	}
	x, err := convert(args[0])
	if err != nil {
		return nil, err
	}
	switch name {
	case "ln":
		name = "log"
	case "Abs":
		name = "abs"
	}
	return NewCall(name, x), nil
}
