package symbolic

import (
	"math/big"
	"sort"
)

// maxIntPow bounds exact integer exponentiation so that user input such as
// 10**10**10 cannot exhaust memory.
const maxIntPow = 4096

// NewAdd returns the canonical sum of terms: nested sums are flattened, like
// terms are collected and numbers are folded.
func NewAdd(terms ...Expr) Expr {
	type group struct {
		coeff *big.Rat
		rest  Expr
	}
	var flat []Expr
	for _, t := range terms {
		if a, ok := t.(Add); ok {
			flat = append(flat, a.Terms...)
			continue
		}
		flat = append(flat, t)
	}

	sum := new(big.Rat)
	groups := map[string]*group{}
	var order []string
	var zoo, posInf, negInf bool
	for _, t := range flat {
		if isNan(t) {
			return Nan
		}
		if isZoo(t) {
			zoo = true
			continue
		}
		c, rest := splitCoeff(t)
		if rest == Expr(Oo) {
			posInf = posInf || c.Sign() > 0
			negInf = negInf || c.Sign() < 0
		}
		if isNum(rest, 1) {
			sum.Add(sum, c.v)
			continue
		}
		k := rest.String()
		g, ok := groups[k]
		if !ok {
			g = &group{coeff: new(big.Rat), rest: rest}
			groups[k] = g
			order = append(order, k)
		}
		g.coeff.Add(g.coeff, c.v)
	}

	switch {
	case zoo && (posInf || negInf), posInf && negInf:
		return Nan
	case zoo:
		return Zoo
	}

	var out []Expr
	for _, k := range order {
		g := groups[k]
		if g.coeff.Sign() == 0 {
			continue
		}
		out = append(out, withCoeff(numOf(g.coeff), g.rest))
	}
	if sum.Sign() != 0 {
		out = append(out, numOf(sum))
	}
	switch len(out) {
	case 0:
		return Zero
	case 1:
		return out[0]
	}
	sortTerms(out)
	return Add{Terms: out}
}

// NewMul returns the canonical product of factors: numbers are folded into a
// single leading coefficient and powers of the same base are combined. A
// numeric coefficient times a single sum is distributed.
func NewMul(factors ...Expr) Expr {
	type group struct {
		base Expr
		exps []Expr
	}
	var flat []Expr
	for _, f := range factors {
		if m, ok := f.(Mul); ok {
			flat = append(flat, m.Factors...)
			continue
		}
		flat = append(flat, f)
	}

	coeff := big.NewRat(1, 1)
	zero, zoo, inf := false, false, false
	groups := map[string]*group{}
	var order []string
	for _, f := range flat {
		if isNan(f) {
			return Nan
		}
		if isZoo(f) {
			zoo = true
			continue
		}
		if f == Expr(Oo) {
			inf = true
		}
		if n, ok := f.(Num); ok {
			if n.IsZero() {
				zero = true
			}
			coeff.Mul(coeff, n.v)
			continue
		}
		b, e := asPow(f)
		k := b.String()
		g, ok := groups[k]
		if !ok {
			g = &group{base: b}
			groups[k] = g
			order = append(order, k)
		}
		g.exps = append(g.exps, e)
	}
	switch {
	case zero && (zoo || inf):
		return Nan
	case zero:
		return Zero
	case zoo:
		return Zoo
	}

	var rest []Expr
	changed := false
	for _, k := range order {
		g := groups[k]
		p := NewPow(g.base, NewAdd(g.exps...))
		switch pv := p.(type) {
		case Num:
			coeff.Mul(coeff, pv.v)
		case Mul:
			changed = true
			for _, f := range pv.Factors {
				if n, ok := f.(Num); ok {
					coeff.Mul(coeff, n.v)
					continue
				}
				rest = append(rest, f)
			}
		default:
			if isZoo(p) {
				return Zoo
			}
			rest = append(rest, p)
		}
	}
	if coeff.Sign() == 0 {
		return Zero
	}
	if changed {
		return NewMul(append([]Expr{numOf(coeff)}, rest...)...)
	}
	if len(rest) == 0 {
		return numOf(coeff)
	}
	sortFactors(rest)
	if coeff.Cmp(one) == 0 {
		if len(rest) == 1 {
			return rest[0]
		}
		return Mul{Factors: rest}
	}
	if len(rest) == 1 {
		if a, ok := rest[0].(Add); ok {
			terms := make([]Expr, len(a.Terms))
			for i, t := range a.Terms {
				terms[i] = NewMul(numOf(coeff), t)
			}
			return NewAdd(terms...)
		}
	}
	return Mul{Factors: append([]Expr{numOf(coeff)}, rest...)}
}

// NewPow returns the canonical form of b**e.
func NewPow(b, e Expr) Expr {
	if isNan(b) || isNan(e) {
		return Nan
	}
	if isZoo(b) || isZoo(e) {
		return Zoo
	}
	en, eNum := e.(Num)
	if eNum && en.IsZero() {
		return One
	}
	if eNum && en.IsOne() {
		return b
	}
	if bn, ok := b.(Num); ok {
		switch {
		case bn.IsOne():
			return One
		case bn.IsZero():
			if !eNum {
				return Pow{Base: b, Exp: e}
			}
			if en.Sign() > 0 {
				return Zero
			}
			return Zoo
		case eNum:
			return numPow(bn, en)
		}
		return Pow{Base: b, Exp: e}
	}
	if s, ok := b.(Sym); ok && s == I && eNum && en.IsInt() {
		k := new(big.Int).Mod(en.v.Num(), big.NewInt(4)).Int64()
		switch k {
		case 0:
			return One
		case 1:
			return I
		case 2:
			return MinusOne
		default:
			return Mul{Factors: []Expr{MinusOne, I}}
		}
	}
	if eNum && en.IsInt() {
		switch bv := b.(type) {
		case Pow:
			return NewPow(bv.Base, NewMul(bv.Exp, e))
		case Mul:
			parts := make([]Expr, len(bv.Factors))
			for i, f := range bv.Factors {
				parts[i] = NewPow(f, e)
			}
			return NewMul(parts...)
		}
	}
	if s, ok := b.(Sym); ok && s == E {
		c, rest := splitCoeff(e)
		if l, ok := rest.(Call); ok && l.Fn == "log" {
			return NewPow(l.Arg, c)
		}
	}
	return Pow{Base: b, Exp: e}
}

// NewCall applies an elementary function, evaluating it at the few points
// where the result is exact.
func NewCall(fn string, arg Expr) Expr {
	if isNan(arg) {
		return Nan
	}
	if isZoo(arg) {
		return Zoo
	}
	switch fn {
	case "exp":
		return NewPow(E, arg)
	case "sqrt":
		return NewPow(arg, Half)
	case "sin", "tan":
		if isNum(arg, 0) || equal(arg, Pi) {
			return Zero
		}
		if c, _ := splitCoeff(arg); c.Sign() < 0 {
			return NewMul(MinusOne, NewCall(fn, Neg(arg)))
		}
	case "cos":
		if isNum(arg, 0) {
			return One
		}
		if equal(arg, Pi) {
			return MinusOne
		}
		if c, _ := splitCoeff(arg); c.Sign() < 0 {
			return NewCall(fn, Neg(arg))
		}
	case "log":
		if isNum(arg, 1) {
			return Zero
		}
		if equal(arg, E) {
			return One
		}
		if n, ok := arg.(Num); ok && n.IsZero() {
			return Zoo
		}
		if p, ok := arg.(Pow); ok && equal(p.Base, E) {
			return p.Exp
		}
	case "abs":
		if n, ok := arg.(Num); ok {
			return n.abs()
		}
		if c, _ := splitCoeff(arg); c.Sign() < 0 {
			return NewCall(fn, Neg(arg))
		}
	}
	return Call{Fn: fn, Arg: arg}
}

// Neg returns -e.
func Neg(e Expr) Expr { return NewMul(MinusOne, e) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return NewAdd(a, Neg(b)) }

// Div returns a / b.
func Div(a, b Expr) Expr { return NewMul(a, NewPow(b, MinusOne)) }

// splitCoeff separates the numeric coefficient from the rest of a term.
func splitCoeff(e Expr) (Num, Expr) {
	switch v := e.(type) {
	case Num:
		return v, One
	case Mul:
		if n, ok := v.Factors[0].(Num); ok {
			rest := v.Factors[1:]
			if len(rest) == 1 {
				return n, rest[0]
			}
			return n, Mul{Factors: rest}
		}
	}
	return One, e
}

// withCoeff is the inverse of splitCoeff for a rest without a coefficient.
func withCoeff(c Num, rest Expr) Expr {
	if c.IsOne() {
		return rest
	}
	if isNum(rest, 1) {
		return c
	}
	if m, ok := rest.(Mul); ok {
		return Mul{Factors: append([]Expr{c}, m.Factors...)}
	}
	return Mul{Factors: []Expr{c, rest}}
}

func asPow(e Expr) (Expr, Expr) {
	if p, ok := e.(Pow); ok {
		return p.Base, p.Exp
	}
	return e, One
}

// numPow evaluates b**e for rational b and e, keeping irrational roots
// symbolic with square factors pulled out.
func numPow(b, e Num) Expr {
	if e.IsInt() {
		k := e.v.Num()
		if !k.IsInt64() || abs64(k.Int64()) > maxIntPow {
			return Pow{Base: b, Exp: e}
		}
		return ratPow(b, k.Int64())
	}
	// e = whole + frac with 0 < frac < 1
	whole := new(big.Int).Div(e.v.Num(), e.v.Denom())
	frac := new(big.Rat).Sub(e.v, new(big.Rat).SetInt(whole))
	if !whole.IsInt64() || abs64(whole.Int64()) > maxIntPow {
		return Pow{Base: b, Exp: e}
	}
	root := ratRoot(b, numOf(frac))
	if whole.Sign() == 0 {
		return root
	}
	return NewMul(ratPow(b, whole.Int64()), root)
}

func ratPow(b Num, k int64) Num {
	n := new(big.Int).Exp(b.v.Num(), big.NewInt(abs64(k)), nil)
	d := new(big.Int).Exp(b.v.Denom(), big.NewInt(abs64(k)), nil)
	r := new(big.Rat).SetFrac(n, d)
	if k < 0 {
		r.Inv(r)
	}
	return Num{v: r}
}

// ratRoot evaluates b**f for 0 < f < 1.
func ratRoot(b, f Num) Expr {
	q := f.v.Denom()
	if !q.IsInt64() || q.Int64() > 64 {
		return Pow{Base: b, Exp: f}
	}
	if b.Sign() < 0 {
		if f.v.Cmp(big.NewRat(1, 2)) == 0 {
			return NewMul(I, ratRoot(b.neg(), f))
		}
		return Pow{Base: b, Exp: f}
	}
	qi := q.Int64()
	n, okN := intRoot(b.v.Num(), qi)
	d, okD := intRoot(b.v.Denom(), qi)
	if okN && okD {
		return ratPow(Num{v: new(big.Rat).SetFrac(n, d)}, f.v.Num().Int64())
	}
	if f.v.Cmp(big.NewRat(1, 2)) != 0 {
		return Pow{Base: b, Exp: f}
	}
	// sqrt(n/d) = sqrt(n*d)/d = s*sqrt(m)/d
	nd := new(big.Int).Mul(b.v.Num(), b.v.Denom())
	s, m, ok := squareSplit(nd)
	if !ok {
		return Pow{Base: b, Exp: f}
	}
	coeff := new(big.Rat).SetFrac(s, b.v.Denom())
	if m.Cmp(big.NewInt(1)) == 0 {
		return Num{v: coeff}
	}
	radical := Pow{Base: Num{v: new(big.Rat).SetInt(m)}, Exp: Half}
	if coeff.Cmp(one) == 0 {
		return radical
	}
	return Mul{Factors: []Expr{Num{v: coeff}, radical}}
}

// intRoot returns the exact k-th root of a non-negative n, if there is one.
func intRoot(n *big.Int, k int64) (*big.Int, bool) {
	if n.Sign() == 0 {
		return new(big.Int), true
	}
	if k == 2 {
		r := new(big.Int).Sqrt(n)
		return r, new(big.Int).Mul(r, r).Cmp(n) == 0
	}
	lo, hi := big.NewInt(0), new(big.Int).Add(n, big.NewInt(1))
	kk := big.NewInt(k)
	for new(big.Int).Sub(hi, lo).Cmp(big.NewInt(1)) > 0 {
		mid := new(big.Int).Rsh(new(big.Int).Add(lo, hi), 1)
		if new(big.Int).Exp(mid, kk, nil).Cmp(n) <= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, new(big.Int).Exp(lo, kk, nil).Cmp(n) == 0
}

// squareSplit writes n = s*s*m with m square-free, by trial division. It
// gives up on numbers with large prime factors.
func squareSplit(n *big.Int) (s, m *big.Int, ok bool) {
	if !n.IsInt64() {
		return nil, nil, false
	}
	v := n.Int64()
	sq := int64(1)
	for p := int64(2); p*p <= v; p++ {
		if p > 1_000_000 {
			return nil, nil, false
		}
		for v%(p*p) == 0 {
			v /= p * p
			sq *= p
		}
	}
	return big.NewInt(sq), big.NewInt(v), true
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// termDegree is the total degree of a term in its symbols, used for ordering.
func termDegree(e Expr) float64 {
	switch v := e.(type) {
	case Sym:
		if isConstant(v) {
			return 0
		}
		return 1
	case Pow:
		if n, ok := v.Exp.(Num); ok {
			f, _ := n.v.Float64()
			return termDegree(v.Base) * f
		}
		return termDegree(v.Base)
	case Mul:
		d := 0.0
		for _, f := range v.Factors {
			d += termDegree(f)
		}
		return d
	case Add:
		d := 0.0
		for _, t := range v.Terms {
			d = max(d, termDegree(t))
		}
		return d
	case Call:
		return 0.5
	}
	return 0
}

func sortTerms(terms []Expr) {
	sort.SliceStable(terms, func(i, j int) bool {
		_, ni := terms[i].(Num)
		_, nj := terms[j].(Num)
		if ni != nj {
			return nj
		}
		_, ri := splitCoeff(terms[i])
		_, rj := splitCoeff(terms[j])
		di, dj := termDegree(ri), termDegree(rj)
		if di != dj {
			return di > dj
		}
		return ri.String() < rj.String()
	})
}

func factorRank(e Expr) int {
	switch v := e.(type) {
	case Sym:
		if v == I {
			return 4
		}
		if isConstant(v) {
			return 0
		}
		return 1
	case Pow:
		if _, ok := v.Base.(Num); ok {
			return 0
		}
		if _, ok := v.Base.(Add); ok {
			return 3
		}
		if s, ok := v.Base.(Sym); ok && s == E {
			return 2
		}
		return 1
	case Call:
		return 2
	case Add:
		return 3
	}
	return 0
}

func sortFactors(factors []Expr) {
	sort.SliceStable(factors, func(i, j int) bool {
		ri, rj := factorRank(factors[i]), factorRank(factors[j])
		if ri != rj {
			return ri < rj
		}
		return factors[i].String() < factors[j].String()
	})
}
