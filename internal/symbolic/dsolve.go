package symbolic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// applyRe matches an application such as f(x), with optional primes f'(x).
var applyRe = regexp.MustCompile(`\b([A-Za-z_]\w*)('*)\(\s*([A-Za-z_]\w*)\s*\)`)

// Solution is the general solution of an ODE, f(x) = Rhs, with integration
// constants C1, C2, ...
type Solution struct {
	Fn, X string
	Rhs   Expr
}

// Func returns the unknown as written, e.g. f(x).
func (s Solution) Func() string { return s.Fn + "(" + s.X + ")" }

func (s Solution) String() string { return s.Func() + " = " + s.Rhs.String() }

// ode is sum a[k]*f^(k) + rest = 0 with a and rest free of f.
type ode struct {
	x    string
	a    []Expr
	rest Expr
}

// Dsolve solves a linear ODE for an unknown function. Derivatives are
// written D(f(x), x), D(f(x), x, 2), Derivative(f(x), x, x) or with primes
// as in f'(x).
// of is either the independent variable, in which case the unknown is the
// first undefined function applied to it, or the unknown itself as f(x).
// First-order equations are solved with an integrating factor; higher
// orders need constant coefficients and a constant inhomogeneous term.
func Dsolve(src, of string) (Solution, error) {
	src = Clean(src)
	fn, x, err := unknownFunction(src, strings.TrimSpace(of))
	if err != nil {
		return Solution{}, err
	}
	text, order, err := substituteDerivatives(src, fn, x)
	if err != nil {
		return Solution{}, err
	}
	rel, err := ParseRelation(text)
	if err != nil {
		return Solution{}, err
	}
	if rel.Op != "" && rel.Op != "==" {
		return Solution{}, errorf(ErrValue, "%s is not an equation", src)
	}
	eq, err := linearODE(rel.Expr(), x, order)
	if err != nil {
		return Solution{}, errorf(ErrNotImplemented, "cannot solve %s: %v", src, err)
	}
	var rhs Expr
	switch n := len(eq.a) - 1; {
	case n == 0:
		return Solution{}, errorf(ErrValue, "%s is not a differential equation in %s(%s)", src, fn, x)
	case n == 1:
		rhs, err = eq.firstOrder()
	default:
		rhs, err = eq.constantCoefficients()
	}
	if err != nil {
		return Solution{}, err
	}
	return Solution{Fn: fn, X: x, Rhs: rhs}, nil
}

// unknownFunction picks the function to solve for.
func unknownFunction(src, of string) (fn, x string, err error) {
	if m := applyRe.FindStringSubmatch(of); m != nil && m[0] == of && m[2] == "" {
		return m[1], m[3], nil
	}
	for _, m := range applyRe.FindAllStringSubmatch(src, -1) {
		if functions[m[1]] || m[1] == "D" || m[1] == "Derivative" || m[1] == "Eq" {
			continue
		}
		if of != "" && m[3] != of {
			continue
		}
		return m[1], m[3], nil
	}
	if of == "" {
		return "", "", errorf(ErrValue, "no unknown function in %s", src)
	}
	return "", "", errorf(ErrValue, "no unknown function of %s in %s", of, src)
}

func placeholder(k int) string { return "_d" + strconv.Itoa(k) }

// substituteDerivatives rewrites f(x) and its derivatives as the symbols
// _d0, _d1, ... and returns the highest order seen.
func substituteDerivatives(src, fn, x string) (string, int, error) {
	app := regexp.QuoteMeta(fn) + `\(\s*` + regexp.QuoteMeta(x) + `\s*\)`
	derivRe := regexp.MustCompile(`\b(?:D|Derivative)\(\s*` + app + `\s*((?:,[^(),]*)*)\)`)
	primeRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(fn) + `('+)\(\s*` + regexp.QuoteMeta(x) + `\s*\)`)
	plainRe := regexp.MustCompile(`\b` + app)

	order := 0
	var bad error
	src = derivRe.ReplaceAllStringFunc(src, func(s string) string {
		n, err := derivativeOrder(derivRe.FindStringSubmatch(s)[1], x)
		if err != nil {
			bad = err
			return s
		}
		order = max(order, n)
		return placeholder(n)
	})
	if bad != nil {
		return "", 0, bad
	}
	src = primeRe.ReplaceAllStringFunc(src, func(s string) string {
		n := len(primeRe.FindStringSubmatch(s)[1])
		order = max(order, n)
		return placeholder(n)
	})
	return plainRe.ReplaceAllString(src, placeholder(0)), order, nil
}

// derivativeOrder reads the variable list of D(f(x), ...): x, x, x or x, 3.
func derivativeOrder(tail, x string) (int, error) {
	n := 0
	for _, part := range strings.Split(tail, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == x:
			n++
		default:
			k, err := strconv.Atoi(part)
			if err != nil || k < 1 || n == 0 {
				return 0, errorf(ErrValue, "cannot differentiate with respect to %s", part)
			}
			n += k - 1
		}
	}
	return max(n, 1), nil
}

// linearODE splits e into derivative coefficients. The highest-order
// coefficient is nonzero.
func linearODE(e Expr, x string, order int) (ode, error) {
	e = Expand(e)
	a := make([]Expr, order+1)
	rest := e
	for k := range a {
		c, err := coeffs(e, placeholder(k))
		if err != nil || len(c) > 2 {
			return ode{}, fmt.Errorf("the equation is not linear")
		}
		a[k] = Zero
		if len(c) == 2 {
			a[k] = c[1]
		}
		rest = Subs(rest, placeholder(k), Zero)
	}
	for _, c := range append(a, rest) {
		for k := range a {
			if !FreeOf(c, placeholder(k)) {
				return ode{}, fmt.Errorf("the equation is not linear")
			}
		}
	}
	for len(a) > 1 && isNum(a[len(a)-1], 0) {
		a = a[:len(a)-1]
	}
	return ode{x: x, a: a, rest: rest}, nil
}

// firstOrder solves a1*f' + a0*f + rest = 0 with the integrating factor
// exp(P), P the antiderivative of a0/a1.
func (o ode) firstOrder() (Expr, error) {
	p := Cancel(Div(o.a[0], o.a[1]))
	q := Cancel(Div(Neg(o.rest), o.a[1]))
	P, err := Integrate(p, o.x)
	if err != nil {
		return nil, err
	}
	c1 := Symbol("C1")
	if isNum(q, 0) {
		return NewMul(c1, NewPow(E, Neg(P))), nil
	}
	iq, err := Integrate(Expand(NewMul(q, NewPow(E, P))), o.x)
	if err != nil {
		return nil, err
	}
	return Expand(NewMul(NewPow(E, Neg(P)), NewAdd(c1, iq))), nil
}

// constantCoefficients builds the homogeneous solution from the roots of
// the characteristic polynomial, pairing conjugate roots into sin and cos.
func (o ode) constantCoefficients() (Expr, error) {
	for _, c := range o.a {
		if !FreeOf(c, o.x) {
			return nil, errorf(ErrNotImplemented, "cannot solve equations of order %d with coefficients in %s", len(o.a)-1, o.x)
		}
	}
	roots, err := polyRoots(o.a)
	if err != nil {
		return nil, err
	}
	xs := Symbol(o.x)
	var basis []Expr
	for _, r := range roots {
		if FreeOf(r.value, I.Name) {
			for j := 0; j < r.mult; j++ {
				basis = append(basis, NewMul(NewPow(xs, NewInt(int64(j))), NewPow(E, NewMul(r.value, xs))))
			}
			continue
		}
		re := Expand(Subs(r.value, I.Name, Zero))
		im := Expand(Div(Sub(r.value, re), I))
		v, err := Eval(im, nil)
		if err != nil {
			return nil, errorf(ErrNotImplemented, "cannot order the root %s", r.value)
		}
		if real(v) < 0 {
			continue
		}
		damp := NewPow(E, NewMul(re, xs))
		for j := 0; j < r.mult; j++ {
			xj := NewPow(xs, NewInt(int64(j)))
			basis = append(basis,
				NewMul(xj, damp, NewCall("sin", NewMul(im, xs))),
				NewMul(xj, damp, NewCall("cos", NewMul(im, xs))))
		}
	}
	if len(basis) != len(o.a)-1 {
		return nil, errorf(ErrNotImplemented, "cannot find every root of the characteristic polynomial")
	}
	terms := make([]Expr, 0, len(basis)+1)
	for i, b := range basis {
		terms = append(terms, NewMul(Symbol("C"+strconv.Itoa(i+1)), b))
	}
	if g := Neg(o.rest); !isNum(g, 0) {
		if !FreeOf(g, o.x) || isNum(o.a[0], 0) {
			return nil, errorf(ErrNotImplemented, "cannot find a particular solution for %s", g)
		}
		terms = append(terms, Div(g, o.a[0]))
	}
	return NewAdd(terms...), nil
}
