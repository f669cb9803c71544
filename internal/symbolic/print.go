package symbolic

import (
	"math/big"
	"strings"
)

// format renders e in the conventional one-line notation: x**2 + 2*x + 1,
// sqrt(2)/2, exp(-x), 1/(x + 1).
func format(e Expr) string {
	switch v := e.(type) {
	case Num:
		if v.v == nil {
			return "0"
		}
		return v.v.RatString()
	case Sym:
		return v.Name
	case Add:
		return formatAdd(v)
	case Mul:
		return formatMul(v)
	case Pow:
		return formatPow(v)
	case Call:
		name := v.Fn
		if name == "abs" {
			name = "Abs"
		}
		return name + "(" + format(v.Arg) + ")"
	}
	return "?"
}

func formatAdd(a Add) string {
	var sb strings.Builder
	for i, t := range a.Terms {
		c, _ := splitCoeff(t)
		negative := c.Sign() < 0
		if negative {
			t = negate(t)
		}
		switch {
		case i == 0 && negative:
			sb.WriteString("-")
		case i > 0 && negative:
			sb.WriteString(" - ")
		case i > 0:
			sb.WriteString(" + ")
		}
		s := format(t)
		if _, ok := t.(Add); ok {
			s = "(" + s + ")"
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// negate flips the sign of a term without re-canonicalising it, so that raw
// display-only products keep their factor order.
func negate(t Expr) Expr {
	switch v := t.(type) {
	case Num:
		return v.neg()
	case Mul:
		c, rest := splitCoeff(v)
		return withCoeff(c.neg(), rest)
	}
	return NewMul(MinusOne, t)
}

func formatMul(m Mul) string {
	c, rest := splitCoeff(m)
	var factors []Expr
	if r, ok := rest.(Mul); ok {
		factors = r.Factors
	} else if !isNum(rest, 1) {
		factors = []Expr{rest}
	}

	sign := ""
	if c.Sign() < 0 {
		sign = "-"
		c = c.abs()
	}

	var num, den []string
	if p := c.v.Num(); p.Cmp(big.NewInt(1)) != 0 {
		num = append(num, p.String())
	}
	if q := c.v.Denom(); q.Cmp(big.NewInt(1)) != 0 {
		den = append(den, q.String())
	}
	var denFactors []Expr
	for _, f := range factors {
		if p, ok := f.(Pow); ok && !equal(p.Base, E) {
			if n, ok := p.Exp.(Num); ok && n.Sign() < 0 {
				inv := n.neg()
				if inv.IsOne() {
					denFactors = append(denFactors, p.Base)
				} else {
					denFactors = append(denFactors, Pow{Base: p.Base, Exp: inv})
				}
				continue
			}
		}
		num = append(num, factorString(f))
	}
	for _, f := range denFactors {
		den = append(den, factorString(f))
	}

	out := strings.Join(num, "*")
	if out == "" {
		out = "1"
	}
	switch {
	case len(den) == 1:
		out += "/" + den[0]
	case len(den) > 0:
		out += "/(" + strings.Join(den, "*") + ")"
	}
	return sign + out
}

func factorString(f Expr) string {
	switch v := f.(type) {
	case Add, Mul:
		return "(" + format(v) + ")"
	case Num:
		if v.Sign() < 0 || !v.IsInt() {
			return "(" + format(v) + ")"
		}
	}
	return format(f)
}

func formatPow(p Pow) string {
	if equal(p.Base, E) {
		return "exp(" + format(p.Exp) + ")"
	}
	if n, ok := p.Exp.(Num); ok {
		switch {
		case n.v.Cmp(big.NewRat(1, 2)) == 0:
			return "sqrt(" + format(p.Base) + ")"
		case n.v.Cmp(big.NewRat(-1, 2)) == 0:
			return "1/sqrt(" + format(p.Base) + ")"
		case n.IsInt() && n.Sign() < 0:
			if n.neg().IsOne() {
				return "1/" + baseString(p.Base)
			}
		}
	}
	return baseString(p.Base) + "**" + expString(p.Exp)
}

func baseString(b Expr) string {
	switch v := b.(type) {
	case Add, Mul, Pow:
		return "(" + format(v) + ")"
	case Num:
		if v.Sign() < 0 || !v.IsInt() {
			return "(" + format(v) + ")"
		}
	}
	return format(b)
}

func expString(e Expr) string {
	switch v := e.(type) {
	case Sym, Call:
		return format(v)
	case Num:
		if v.Sign() >= 0 && v.IsInt() {
			return format(v)
		}
	}
	return "(" + format(e) + ")"
}
