package symbolic

import (
	"math/big"
)

// Diff differentiates e with respect to x.
func Diff(e Expr, x string) Expr {
	if FreeOf(e, x) {
		return Zero
	}
	switch v := e.(type) {
	case Sym:
		return One
	case Add:
		terms := make([]Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = Diff(t, x)
		}
		return NewAdd(terms...)
	case Mul:
		terms := make([]Expr, 0, len(v.Factors))
		for i, f := range v.Factors {
			d := Diff(f, x)
			if isNum(d, 0) {
				continue
			}
			rest := make([]Expr, 0, len(v.Factors))
			rest = append(rest, v.Factors[:i]...)
			rest = append(rest, d)
			rest = append(rest, v.Factors[i+1:]...)
			terms = append(terms, NewMul(rest...))
		}
		return NewAdd(terms...)
	case Pow:
		switch {
		case FreeOf(v.Exp, x):
			return NewMul(v.Exp, NewPow(v.Base, Sub(v.Exp, One)), Diff(v.Base, x))
		case FreeOf(v.Base, x):
			return NewMul(e, NewCall("log", v.Base), Diff(v.Exp, x))
		}
		return NewMul(e, NewAdd(
			NewMul(Diff(v.Exp, x), NewCall("log", v.Base)),
			NewMul(v.Exp, Diff(v.Base, x), NewPow(v.Base, MinusOne)),
		))
	case Call:
		du := Diff(v.Arg, x)
		u := v.Arg
		switch v.Fn {
		case "sin":
			return NewMul(NewCall("cos", u), du)
		case "cos":
			return NewMul(MinusOne, NewCall("sin", u), du)
		case "tan":
			return NewMul(NewAdd(NewPow(NewCall("tan", u), NewInt(2)), One), du)
		case "atan":
			return NewMul(du, NewPow(NewAdd(NewPow(u, NewInt(2)), One), MinusOne))
		case "log":
			return NewMul(du, NewPow(u, MinusOne))
		case "abs":
			return NewMul(NewCall("sign", u), du)
		case "sign":
			return Zero
		}
	}
	return Zero
}

// Integrate returns an antiderivative of e with respect to x, without the
// constant of integration.
func Integrate(e Expr, x string) (Expr, error) {
	if FreeOf(e, x) {
		return NewMul(e, Symbol(x)), nil
	}
	switch v := e.(type) {
	case Add:
		terms := make([]Expr, len(v.Terms))
		for i, t := range v.Terms {
			r, err := Integrate(t, x)
			if err != nil {
				return nil, err
			}
			terms[i] = r
		}
		return NewAdd(terms...), nil
	case Mul:
		var consts, deps []Expr
		for _, f := range v.Factors {
			if FreeOf(f, x) {
				consts = append(consts, f)
			} else {
				deps = append(deps, f)
			}
		}
		if len(consts) > 0 {
			r, err := Integrate(NewMul(deps...), x)
			if err != nil {
				return nil, err
			}
			return NewMul(append(consts, r)...), nil
		}
		return integrateProduct(v, x)
	}
	if r, ok := integrateSingle(e, x); ok {
		return r, nil
	}
	if isRational(e, x) {
		return integrateRational(e, x)
	}
	return nil, errorf(ErrNotImplemented, "cannot integrate %s with respect to %s", e, x)
}

// linear matches a*x + b and returns a and b.
func linear(e Expr, x string) (a, b Expr, ok bool) {
	c, err := coeffs(e, x)
	if err != nil || len(c) != 2 {
		return nil, nil, false
	}
	return c[1], c[0], true
}

// integrateSingle handles a single x-dependent factor of a linear argument.
func integrateSingle(e Expr, x string) (Expr, bool) {
	switch v := e.(type) {
	case Sym:
		return Div(NewPow(v, NewInt(2)), NewInt(2)), true
	case Pow:
		if FreeOf(v.Exp, x) {
			a, _, ok := linear(v.Base, x)
			if !ok {
				return nil, false
			}
			if isNum(v.Exp, -1) {
				return Div(NewCall("log", v.Base), a), true
			}
			n1 := NewAdd(v.Exp, One)
			return Div(NewPow(v.Base, n1), NewMul(n1, a)), true
		}
		if FreeOf(v.Base, x) {
			a, _, ok := linear(v.Exp, x)
			if !ok {
				return nil, false
			}
			if equal(v.Base, E) {
				return Div(e, a), true
			}
			return Div(e, NewMul(a, NewCall("log", v.Base))), true
		}
	case Call:
		u := v.Arg
		a, _, ok := linear(u, x)
		if !ok {
			return nil, false
		}
		switch v.Fn {
		case "sin":
			return Div(Neg(NewCall("cos", u)), a), true
		case "cos":
			return Div(NewCall("sin", u), a), true
		case "tan":
			return Div(Neg(NewCall("log", NewCall("cos", u))), a), true
		case "log":
			return Div(Sub(NewMul(u, NewCall("log", u)), u), a), true
		}
	}
	return nil, false
}

// integrateProduct handles products whose factors all depend on x.
func integrateProduct(m Mul, x string) (Expr, error) {
	if isRational(m, x) {
		return integrateRational(m, x)
	}
	var polys []Expr
	var others []Expr
	for _, f := range m.Factors {
		if _, err := coeffs(f, x); err == nil {
			polys = append(polys, f)
			continue
		}
		others = append(others, f)
	}
	if len(others) == 1 && len(polys) > 0 {
		p := NewMul(polys...)
		f := others[0]
		if c, ok := f.(Call); ok && c.Fn == "log" {
			return integrateLogProduct(p, c, x)
		}
		if r, ok := byParts(p, f, x); ok {
			return r, nil
		}
	}
	if ex := Expand(m); !equal(ex, m) {
		return Integrate(ex, x)
	}
	return nil, errorf(ErrNotImplemented, "cannot integrate %s with respect to %s", m, x)
}

// byParts integrates p*f for a polynomial p and an f whose repeated
// antiderivatives are known (exponentials, sin and cos of linear arguments).
func byParts(p, f Expr, x string) (Expr, bool) {
	var terms []Expr
	var sign Expr = One
	deriv := p
	anti := f
	for !isNum(deriv, 0) {
		next, err := Integrate(anti, x)
		if err != nil {
			return nil, false
		}
		anti = next
		terms = append(terms, NewMul(sign, deriv, anti))
		deriv = Expand(Diff(deriv, x))
		sign = Neg(sign)
		if len(terms) > maxExpandPow {
			return nil, false
		}
	}
	return Expand(NewAdd(terms...)), true
}

// integrateLogProduct uses ∫p*log(u) = P*log(u) - ∫P*u'/u with P = ∫p.
func integrateLogProduct(p Expr, l Call, x string) (Expr, error) {
	if _, _, ok := linear(l.Arg, x); !ok {
		return nil, errorf(ErrNotImplemented, "cannot integrate %s with respect to %s", NewMul(p, l), x)
	}
	anti, err := Integrate(p, x)
	if err != nil {
		return nil, err
	}
	rest, err := Integrate(Cancel(NewMul(anti, Diff(l.Arg, x), NewPow(l.Arg, MinusOne))), x)
	if err != nil {
		return nil, err
	}
	return Sub(NewMul(anti, l), rest), nil
}

// isRational reports whether e is a ratio of polynomials in x with rational
// coefficients.
func isRational(e Expr, x string) bool {
	num, den := Together(e)
	if _, err := polyOf(num, x); err != nil {
		return false
	}
	_, err := polyOf(den, x)
	return err == nil
}

func integrateRational(e Expr, x string) (Expr, error) {
	num, den := Together(e)
	p, err := polyOf(num, x)
	if err != nil {
		return nil, err
	}
	q, err := polyOf(den, x)
	if err != nil {
		return nil, err
	}
	pf, err := partialFractions(p, q)
	if err != nil {
		return nil, err
	}
	xs := Symbol(x)
	var terms []Expr
	for i, c := range pf.quotient {
		if c.Sign() == 0 {
			continue
		}
		k := int64(i + 1)
		terms = append(terms, NewMul(numOf(c), NewRat(1, k), NewPow(xs, NewInt(k))))
	}
	for _, t := range pf.linear {
		lin := NewAdd(xs, Neg(t.root))
		if t.power == 1 {
			terms = append(terms, NewMul(numOf(t.coeff), NewCall("log", lin)))
			continue
		}
		k := int64(t.power - 1)
		terms = append(terms, NewMul(numOf(t.coeff), NewRat(-1, k), NewPow(lin, NewInt(-k))))
	}
	if !pf.remNum.isZero() {
		r, err := integrateQuadratic(pf.remNum, pf.remDen, x)
		if err != nil {
			return nil, err
		}
		terms = append(terms, r)
	}
	return NewAdd(terms...), nil
}

// integrateQuadratic integrates (p1*x + p0)/(a*x**2 + b*x + c) for an
// irreducible denominator.
func integrateQuadratic(n, d poly, x string) (Expr, error) {
	if d.deg() != 2 || n.deg() > 1 {
		return nil, errorf(ErrNotImplemented, "cannot integrate %s with respect to %s",
			Div(n.expr(x), d.expr(x)), x)
	}
	a, b, c := numOf(d[2]), numOf(d[1]), numOf(d[0])
	p1, p0 := Zero, numOf(n[0])
	if len(n) > 1 {
		p1 = numOf(n[1])
	}
	xs := Symbol(x)
	// (p1*x + p0) = p1/(2a) * (2a*x + b) + (p0 - p1*b/(2a))
	twoA := a.mul(NewInt(2))
	k := Div(p1, twoA)
	r := Sub(p0, Div(NewMul(p1, b), twoA))
	var terms []Expr
	if !isNum(k, 0) {
		terms = append(terms, NewMul(k, NewCall("log", d.expr(x))))
	}
	if !isNum(r, 0) {
		disc := Sub(NewMul(NewInt(4), a, c), NewPow(b, NewInt(2)))
		s := NewPow(disc, Half)
		arg := Div(NewAdd(NewMul(twoA, xs), b), s)
		terms = append(terms, NewMul(NewInt(2), r, NewPow(s, MinusOne), NewCall("atan", Expand(arg))))
	}
	return NewAdd(terms...), nil
}

// maxLHopital bounds the number of times L'Hôpital's rule is applied.
const maxLHopital = 8

// Limit returns the limit of e as x approaches at from above. at may be oo
// or -oo.
func Limit(e Expr, x string, at Expr) (Expr, error) {
	switch {
	case equal(at, Oo):
		return limitInfinity(e, x, 1)
	case equal(at, Neg(Oo)):
		return limitInfinity(e, x, -1)
	}
	return limitFinite(e, x, at, 0)
}

func finite(e Expr) bool {
	ok := true
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case Sym:
			if v == Zoo || v == Oo || v == Nan {
				ok = false
			}
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
	return ok
}

func limitFinite(e Expr, x string, at Expr, depth int) (Expr, error) {
	if v := Subs(e, x, at); finite(v) {
		return v, nil
	}
	num, den := Together(e)
	nv, dv := Subs(num, x, at), Subs(den, x, at)
	if finite(nv) && finite(dv) {
		dz, nz := isNum(Cancel(dv), 0), isNum(Cancel(nv), 0)
		switch {
		case !dz:
			return Cancel(Div(nv, dv)), nil
		case !nz:
			return infinityFromAbove(e, x, at)
		}
	}
	if depth >= maxLHopital {
		return nil, errorf(ErrNotImplemented, "cannot compute the limit of %s at %s = %s", e, x, at)
	}
	if c := Cancel(e); !equal(c, e) && isRational(e, x) {
		return limitFinite(c, x, at, depth+1)
	}
	return limitFinite(Div(Diff(num, x), Diff(den, x)), x, at, depth+1)
}

// infinityFromAbove picks the sign of a divergent limit by evaluating just
// to the right of the point.
func infinityFromAbove(e Expr, x string, at Expr) (Expr, error) {
	p, err := Eval(at, nil)
	if err != nil {
		return nil, err
	}
	s, err := realSign(e, x, real(p)+1e-9)
	if err != nil {
		return nil, err
	}
	if s < 0 {
		return Neg(Oo), nil
	}
	return Oo, nil
}

func limitInfinity(e Expr, x string, dir int) (Expr, error) {
	num, den := Together(e)
	p, errP := polyOf(num, x)
	q, errQ := polyOf(den, x)
	if errP == nil && errQ == nil && !q.isZero() {
		if p.isZero() {
			return Zero, nil
		}
		ratio := new(big.Rat).Quo(p.lead(), q.lead())
		diff := p.deg() - q.deg()
		switch {
		case diff < 0:
			return Zero, nil
		case diff == 0:
			return numOf(ratio), nil
		}
		sign := ratio.Sign()
		if dir < 0 && diff%2 == 1 {
			sign = -sign
		}
		if sign < 0 {
			return Neg(Oo), nil
		}
		return Oo, nil
	}
	// x = dir/t with t -> 0+
	t := "_t"
	sub := Subs(e, x, Div(NewInt(int64(dir)), Symbol(t)))
	return limitFinite(sub, t, Zero, 0)
}
