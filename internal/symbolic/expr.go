// Package symbolic is a small computer-algebra engine over exact rational
// arithmetic. It covers what the math commands need: canonical arithmetic,
// expansion, factoring over the rationals, partial fractions, derivatives,
// elementary antiderivatives, limits and polynomial equation solving.
//
// Expressions are immutable. Build them with the constructors (NewAdd,
// NewMul, NewPow, NewCall) so that they stay in canonical form; the raw
// struct literals are only used for display-only results such as factored
// products.
package symbolic

import (
	"math/big"
)

// Expr is a node of an expression tree.
type Expr interface {
	String() string
	isExpr()
}

// Num is an exact rational number.
type Num struct{ v *big.Rat }

// Sym is a named symbol. The names pi, E, I, oo, zoo and nan are reserved
// for constants.
type Sym struct{ Name string }

// Add is a canonical sum of at least two terms.
type Add struct{ Terms []Expr }

// Mul is a product of at least two factors. A numeric coefficient, when
// present, is the first factor.
type Mul struct{ Factors []Expr }

// Pow is Base raised to Exp.
type Pow struct{ Base, Exp Expr }

// Call applies an elementary function to one argument.
type Call struct {
	Fn  string
	Arg Expr
}

func (Num) isExpr()  {}
func (Sym) isExpr()  {}
func (Add) isExpr()  {}
func (Mul) isExpr()  {}
func (Pow) isExpr()  {}
func (Call) isExpr() {}

func (n Num) String() string  { return format(n) }
func (s Sym) String() string  { return format(s) }
func (a Add) String() string  { return format(a) }
func (m Mul) String() string  { return format(m) }
func (p Pow) String() string  { return format(p) }
func (c Call) String() string { return format(c) }

var (
	Zero     = NewInt(0)
	One      = NewInt(1)
	MinusOne = NewInt(-1)
	Half     = NewRat(1, 2)

	Pi  = Sym{Name: "pi"}
	E   = Sym{Name: "E"}
	I   = Sym{Name: "I"}
	Oo  = Sym{Name: "oo"}
	Zoo = Sym{Name: "zoo"}
	// Nan is the value of indeterminate forms such as 0/0 and oo - oo.
	Nan = Sym{Name: "nan"}
)

// NewInt returns the integer n.
func NewInt(n int64) Num { return Num{v: new(big.Rat).SetInt64(n)} }

// NewRat returns a/b.
func NewRat(a, b int64) Num { return Num{v: big.NewRat(a, b)} }

// numOf copies r into a Num.
func numOf(r *big.Rat) Num { return Num{v: new(big.Rat).Set(r)} }

// Rat returns a copy of the value.
func (n Num) Rat() *big.Rat { return new(big.Rat).Set(n.v) }

func (n Num) Sign() int     { return n.v.Sign() }
func (n Num) IsZero() bool  { return n.v.Sign() == 0 }
func (n Num) IsOne() bool   { return n.v.Cmp(one) == 0 }
func (n Num) IsInt() bool   { return n.v.IsInt() }
func (n Num) neg() Num      { return Num{v: new(big.Rat).Neg(n.v)} }
func (n Num) abs() Num      { return Num{v: new(big.Rat).Abs(n.v)} }
func (n Num) mul(m Num) Num { return Num{v: new(big.Rat).Mul(n.v, m.v)} }
func (n Num) add(m Num) Num { return Num{v: new(big.Rat).Add(n.v, m.v)} }

var one = big.NewRat(1, 1)

// Symbol constructs a symbol.
func Symbol(name string) Sym { return Sym{Name: name} }

func isNum(e Expr, want int64) bool {
	n, ok := e.(Num)
	return ok && n.v.Cmp(new(big.Rat).SetInt64(want)) == 0
}

func isZoo(e Expr) bool {
	s, ok := e.(Sym)
	return ok && s == Zoo
}

func isNan(e Expr) bool {
	s, ok := e.(Sym)
	return ok && s == Nan
}

// equal compares two canonical expressions structurally.
func equal(a, b Expr) bool { return a.String() == b.String() }

// FreeOf reports whether e does not mention the symbol x.
func FreeOf(e Expr, x string) bool {
	switch v := e.(type) {
	case Sym:
		return v.Name != x
	case Add:
		for _, t := range v.Terms {
			if !FreeOf(t, x) {
				return false
			}
		}
	case Mul:
		for _, f := range v.Factors {
			if !FreeOf(f, x) {
				return false
			}
		}
	case Pow:
		return FreeOf(v.Base, x) && FreeOf(v.Exp, x)
	case Call:
		return FreeOf(v.Arg, x)
	}
	return true
}

// Symbols returns the names of the free symbols in e, constants excluded.
func Symbols(e Expr) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case Sym:
			if isConstant(v) || seen[v.Name] {
				return
			}
			seen[v.Name] = true
			out = append(out, v.Name)
		case Add:
			for _, t := range v.Terms {
				walk(t)
			}
		case Mul:
			for _, f := range v.Factors {
				walk(f)
			}
		case Pow:
			walk(v.Base)
			walk(v.Exp)
		case Call:
			walk(v.Arg)
		}
	}
	walk(e)
	return out
}

func isConstant(s Sym) bool {
	switch s {
	case Pi, E, I, Oo, Zoo, Nan:
		return true
	}
	return false
}

// Subs replaces every occurrence of the symbol x with v and re-canonicalises.
func Subs(e Expr, x string, v Expr) Expr {
	switch n := e.(type) {
	case Sym:
		if n.Name == x {
			return v
		}
		return n
	case Add:
		terms := make([]Expr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = Subs(t, x, v)
		}
		return NewAdd(terms...)
	case Mul:
		factors := make([]Expr, len(n.Factors))
		for i, f := range n.Factors {
			factors[i] = Subs(f, x, v)
		}
		return NewMul(factors...)
	case Pow:
		return NewPow(Subs(n.Base, x, v), Subs(n.Exp, x, v))
	case Call:
		return NewCall(n.Fn, Subs(n.Arg, x, v))
	}
	return e
}

// size is a rough complexity measure used to pick the simplest of several
// equivalent forms.
func size(e Expr) int {
	switch v := e.(type) {
	case Add:
		s := 1
		for _, t := range v.Terms {
			s += size(t)
		}
		return s
	case Mul:
		s := 1
		for _, f := range v.Factors {
			s += size(f)
		}
		return s
	case Pow:
		return 1 + size(v.Base) + size(v.Exp)
	case Call:
		return 1 + size(v.Arg)
	}
	return 1
}
