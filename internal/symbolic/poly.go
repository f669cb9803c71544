package symbolic

import (
	"math/big"
	"sort"
)

// maxDivisorSearch bounds the integers whose divisors are enumerated when
// looking for rational roots.
const maxDivisorSearch = 1_000_000_000_000

// coeffs returns the coefficients of e as a polynomial in x, lowest degree
// first. The coefficients may be arbitrary expressions free of x.
func coeffs(e Expr, x string) ([]Expr, error) {
	byDeg := map[int][]Expr{}
	maxDeg := 0
	var terms []Expr
	if a, ok := Expand(e).(Add); ok {
		terms = a.Terms
	} else {
		terms = []Expr{Expand(e)}
	}
	for _, t := range terms {
		var factors []Expr
		if m, ok := t.(Mul); ok {
			factors = m.Factors
		} else {
			factors = []Expr{t}
		}
		deg := 0
		var rest []Expr
		for _, f := range factors {
			if FreeOf(f, x) {
				rest = append(rest, f)
				continue
			}
			if s, ok := f.(Sym); ok && s.Name == x {
				deg++
				continue
			}
			if p, ok := f.(Pow); ok {
				if s, ok := p.Base.(Sym); ok && s.Name == x {
					if n, ok := p.Exp.(Num); ok && n.IsInt() && n.Sign() > 0 && n.v.Num().IsInt64() {
						deg += int(n.v.Num().Int64())
						continue
					}
				}
			}
			return nil, errorf(ErrNotPolynomial, "%s is not a polynomial in %s", e, x)
		}
		byDeg[deg] = append(byDeg[deg], NewMul(rest...))
		maxDeg = max(maxDeg, deg)
	}
	out := make([]Expr, maxDeg+1)
	for d := range out {
		out[d] = NewAdd(byDeg[d]...)
	}
	return trimExpr(out), nil
}

func trimExpr(c []Expr) []Expr {
	for len(c) > 1 && isNum(c[len(c)-1], 0) {
		c = c[:len(c)-1]
	}
	return c
}

// poly is a univariate polynomial with rational coefficients, lowest degree
// first. The zero polynomial is poly{0}.
type poly []*big.Rat

// ratPoly converts expression coefficients to a rational polynomial.
func ratPoly(c []Expr) (poly, bool) {
	p := make(poly, len(c))
	for i, e := range c {
		n, ok := e.(Num)
		if !ok {
			return nil, false
		}
		p[i] = n.Rat()
	}
	return p.trim(), true
}

// polyOf converts e into a rational polynomial in x.
func polyOf(e Expr, x string) (poly, error) {
	c, err := coeffs(e, x)
	if err != nil {
		return nil, err
	}
	p, ok := ratPoly(c)
	if !ok {
		return nil, errorf(ErrNotPolynomial, "%s has non-rational coefficients in %s", e, x)
	}
	return p, nil
}

func constPoly(r *big.Rat) poly { return poly{new(big.Rat).Set(r)} }

func (p poly) trim() poly {
	for len(p) > 1 && p[len(p)-1].Sign() == 0 {
		p = p[:len(p)-1]
	}
	if len(p) == 0 {
		return poly{new(big.Rat)}
	}
	return p
}

func (p poly) deg() int {
	if len(p) == 1 && p[0].Sign() == 0 {
		return -1
	}
	return len(p) - 1
}

func (p poly) isZero() bool { return p.deg() < 0 }

func (p poly) lead() *big.Rat { return p[len(p)-1] }

func (p poly) eval(x *big.Rat) *big.Rat {
	acc := new(big.Rat)
	for i := len(p) - 1; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Add(acc, p[i])
	}
	return acc
}

func (p poly) add(q poly) poly {
	out := make(poly, max(len(p), len(q)))
	for i := range out {
		out[i] = new(big.Rat)
		if i < len(p) {
			out[i].Add(out[i], p[i])
		}
		if i < len(q) {
			out[i].Add(out[i], q[i])
		}
	}
	return out.trim()
}

func (p poly) scale(c *big.Rat) poly {
	out := make(poly, len(p))
	for i, v := range p {
		out[i] = new(big.Rat).Mul(v, c)
	}
	return out.trim()
}

func (p poly) sub(q poly) poly { return p.add(q.scale(big.NewRat(-1, 1))) }

func (p poly) mul(q poly) poly {
	out := make(poly, len(p)+len(q)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	for i, a := range p {
		for j, b := range q {
			out[i+j].Add(out[i+j], new(big.Rat).Mul(a, b))
		}
	}
	return out.trim()
}

func (p poly) pow(k int) poly {
	out := constPoly(one)
	for range k {
		out = out.mul(p)
	}
	return out
}

// divmod returns the quotient and remainder of p / q. q must be non-zero.
func (p poly) divmod(q poly) (poly, poly) {
	if p.deg() < q.deg() {
		return constPoly(new(big.Rat)), p
	}
	r := append(poly(nil), p...)
	quo := make(poly, p.deg()-q.deg()+1)
	for i := range quo {
		quo[i] = new(big.Rat)
	}
	lead := q.lead()
	for r.deg() >= q.deg() {
		shift := r.deg() - q.deg()
		c := new(big.Rat).Quo(r.lead(), lead)
		quo[shift] = c
		term := make(poly, shift+1)
		for i := range term {
			term[i] = new(big.Rat)
		}
		term[shift] = c
		r = r.sub(q.mul(term))
	}
	return quo.trim(), r
}

// monic scales p so that its leading coefficient is one.
func (p poly) monic() poly {
	if p.isZero() {
		return p
	}
	return p.scale(new(big.Rat).Inv(p.lead()))
}

func (p poly) gcd(q poly) poly {
	a, b := p, q
	for !b.isZero() {
		_, r := a.divmod(b)
		a, b = b, r
	}
	if a.isZero() {
		return constPoly(one)
	}
	return a.monic()
}

func (p poly) derivative() poly {
	if len(p) == 1 {
		return constPoly(new(big.Rat))
	}
	out := make(poly, len(p)-1)
	for i := 1; i < len(p); i++ {
		out[i-1] = new(big.Rat).Mul(p[i], new(big.Rat).SetInt64(int64(i)))
	}
	return out.trim()
}

// expr converts p back to a canonical expression in x.
func (p poly) expr(x string) Expr {
	terms := make([]Expr, 0, len(p))
	for i, c := range p {
		if c.Sign() == 0 {
			continue
		}
		terms = append(terms, NewMul(numOf(c), NewPow(Symbol(x), NewInt(int64(i)))))
	}
	return NewAdd(terms...)
}

// primitive splits p into a rational content and a primitive integer
// polynomial with positive leading coefficient.
func (p poly) primitive() (*big.Rat, poly) {
	if p.isZero() {
		return new(big.Rat), p
	}
	lcm := big.NewInt(1)
	for _, c := range p {
		d := c.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}
	ints := make([]*big.Int, len(p))
	g := new(big.Int)
	for i, c := range p {
		v := new(big.Rat).Mul(c, new(big.Rat).SetInt(lcm))
		ints[i] = new(big.Int).Set(v.Num())
		g.GCD(nil, nil, g, new(big.Int).Abs(ints[i]))
	}
	if p.lead().Sign() < 0 {
		g.Neg(g)
	}
	out := make(poly, len(p))
	for i, v := range ints {
		out[i] = new(big.Rat).SetInt(new(big.Int).Quo(v, g))
	}
	content := new(big.Rat).SetFrac(g, lcm)
	return content, out
}

// root is a root together with its multiplicity.
type root struct {
	value Expr
	mult  int
}

// rationalRoots finds the rational roots of p and returns them with the
// polynomial left after dividing them out.
func rationalRoots(p poly) ([]root, poly) {
	var out []root
	if p.deg() < 1 {
		return nil, p
	}
	zeros := 0
	for len(p) > 1 && p[0].Sign() == 0 {
		p = p[1:]
		zeros++
	}
	if zeros > 0 {
		out = append(out, root{value: Zero, mult: zeros})
	}
	if p.deg() < 1 {
		return out, p
	}
	_, prim := p.primitive()
	a0 := new(big.Int).Abs(prim[0].Num())
	an := new(big.Int).Abs(prim.lead().Num())
	if a0.Cmp(big.NewInt(maxDivisorSearch)) > 0 || an.Cmp(big.NewInt(maxDivisorSearch)) > 0 {
		return out, p
	}
	for _, num := range divisors(a0.Int64()) {
		for _, den := range divisors(an.Int64()) {
			if new(big.Int).GCD(nil, nil, big.NewInt(num), big.NewInt(den)).Int64() != 1 {
				continue
			}
			for _, sign := range []int64{1, -1} {
				r := big.NewRat(sign*num, den)
				m := 0
				for p.deg() >= 1 && p.eval(r).Sign() == 0 {
					p, _ = p.divmod(poly{new(big.Rat).Neg(r), big.NewRat(1, 1)})
					m++
				}
				if m > 0 {
					out = append(out, root{value: numOf(r), mult: m})
				}
			}
		}
	}
	return out, p
}

func divisors(n int64) []int64 {
	var small, large []int64
	for d := int64(1); d*d <= n; d++ {
		if n%d != 0 {
			continue
		}
		small = append(small, d)
		if d != n/d {
			large = append(large, n/d)
		}
	}
	for i := len(large) - 1; i >= 0; i-- {
		small = append(small, large[i])
	}
	return small
}

// polyRoots returns every root of the polynomial given by c, with
// multiplicity, sorted by real part then imaginary part. Polynomials that
// are neither rational-rooted, quadratic nor biquadratic are rejected.
func polyRoots(c []Expr) ([]root, error) {
	c = trimExpr(c)
	if len(c) == 1 {
		return nil, nil
	}
	var roots []root
	if p, ok := ratPoly(c); ok {
		rs, rest := rationalRoots(p)
		roots = append(roots, rs...)
		more, err := irrationalRoots(rest)
		if err != nil {
			return nil, err
		}
		roots = append(roots, more...)
	} else {
		switch len(c) {
		case 2:
			roots = append(roots, root{value: Neg(Div(c[0], c[1])), mult: 1})
		case 3:
			roots = append(roots, quadratic(c[2], c[1], c[0])...)
		default:
			return nil, errorf(ErrNotImplemented, "cannot solve a degree %d polynomial with symbolic coefficients", len(c)-1)
		}
	}
	sortRoots(roots)
	return roots, nil
}

// irrationalRoots handles what is left after rational roots are removed.
func irrationalRoots(p poly) ([]root, error) {
	switch p.deg() {
	case -1, 0:
		return nil, nil
	case 1:
		return []root{{value: numOf(new(big.Rat).Neg(new(big.Rat).Quo(p[0], p[1]))), mult: 1}}, nil
	case 2:
		return quadratic(numOf(p[2]), numOf(p[1]), numOf(p[0])), nil
	case 4:
		if p[1].Sign() == 0 && p[3].Sign() == 0 {
			var out []root
			for _, y := range quadratic(numOf(p[4]), numOf(p[2]), numOf(p[0])) {
				s := NewPow(y.value, Half)
				out = append(out, root{value: Neg(s), mult: y.mult}, root{value: s, mult: y.mult})
			}
			return out, nil
		}
	}
	// Repeated irreducible factors: solve the square-free part.
	if g := p.gcd(p.derivative()); g.deg() > 0 {
		sf, _ := p.divmod(g)
		rs, err := irrationalRoots(sf)
		if err != nil {
			return nil, err
		}
		for i := range rs {
			rs[i].mult += multiplicity(p, sf)
		}
		return rs, nil
	}
	return nil, errorf(ErrNotImplemented, "cannot find exact roots of a degree %d polynomial", p.deg())
}

// multiplicity counts how many extra times f divides p beyond once.
func multiplicity(p, f poly) int {
	n := 0
	q, _ := p.divmod(f)
	for {
		next, r := q.divmod(f)
		if !r.isZero() || q.deg() < f.deg() {
			return n
		}
		q = next
		n++
	}
}

// quadratic applies the quadratic formula to a*x**2 + b*x + c.
func quadratic(a, b, c Expr) []root {
	disc := Sub(NewPow(b, NewInt(2)), NewMul(NewInt(4), a, c))
	if isNum(disc, 0) {
		return []root{{value: Div(Neg(b), NewMul(NewInt(2), a)), mult: 2}}
	}
	s := sqrtContent(disc)
	den := NewMul(NewInt(2), a)
	return []root{
		{value: Expand(Div(Sub(Neg(b), s), den)), mult: 1},
		{value: Expand(Div(NewAdd(Neg(b), s), den)), mult: 1},
	}
}

// sqrtContent takes the square root of e with the rational content of its
// terms pulled out, so that sqrt(4*y) becomes 2*sqrt(y).
func sqrtContent(e Expr) Expr {
	if _, ok := e.(Num); ok {
		return NewPow(e, Half)
	}
	terms := []Expr{e}
	if a, ok := e.(Add); ok {
		terms = a.Terms
	}
	num, den := new(big.Int), big.NewInt(1)
	for _, t := range terms {
		c, _ := splitCoeff(t)
		num.GCD(nil, nil, num, new(big.Int).Abs(c.v.Num()))
		d := c.v.Denom()
		den.Mul(den, new(big.Int).Quo(d, new(big.Int).GCD(nil, nil, den, d)))
	}
	content := Num{v: new(big.Rat).SetFrac(num, den)}
	if content.IsZero() || content.IsOne() {
		return NewPow(e, Half)
	}
	return NewMul(NewPow(content, Half), NewPow(Expand(Div(e, content)), Half))
}

func sortRoots(roots []root) {
	key := func(e Expr) (float64, float64) {
		v, err := Eval(e, nil)
		if err != nil {
			return 0, 0
		}
		return real(v), imag(v)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		ri, ii := key(roots[i].value)
		rj, ij := key(roots[j].value)
		if ri != rj {
			return ri < rj
		}
		return ii < ij
	})
}
