package symbolic

import (
	"math/big"
	"sort"
)

const (
	// maxExpandPow bounds the integer powers of sums that Expand multiplies out.
	maxExpandPow = 64
	// maxExpandTerms bounds the number of terms of an expanded product.
	maxExpandTerms = 4096
)

// Expand distributes products over sums and multiplies out integer powers
// of sums.
func Expand(e Expr) Expr {
	switch v := e.(type) {
	case Add:
		terms := make([]Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = Expand(t)
		}
		return NewAdd(terms...)
	case Mul:
		acc := []Expr{One}
		for _, f := range v.Factors {
			acc = collect(distribute(acc, Expand(f)))
			if len(acc) > maxExpandTerms {
				return e
			}
		}
		return NewAdd(acc...)
	case Pow:
		b, x := Expand(v.Base), Expand(v.Exp)
		n, ok := x.(Num)
		if _, isAdd := b.(Add); !isAdd || !ok || !n.IsInt() || !n.v.Num().IsInt64() {
			return NewPow(b, x)
		}
		k := n.v.Num().Int64()
		if abs64(k) > maxExpandPow {
			return NewPow(b, x)
		}
		acc := []Expr{One}
		for range abs64(k) {
			acc = collect(distribute(acc, b))
			if len(acc) > maxExpandTerms {
				return NewPow(b, x)
			}
		}
		if k < 0 {
			return NewPow(NewAdd(acc...), MinusOne)
		}
		return NewAdd(acc...)
	case Call:
		return NewCall(v.Fn, Expand(v.Arg))
	}
	return e
}

// distribute multiplies the sum of terms by f, returning the terms of the
// product.
func distribute(terms []Expr, f Expr) []Expr {
	var fs []Expr
	if a, ok := f.(Add); ok {
		fs = a.Terms
	} else {
		fs = []Expr{f}
	}
	out := make([]Expr, 0, len(terms)*len(fs))
	for _, t := range terms {
		for _, g := range fs {
			p := NewMul(t, g)
			if a, ok := p.(Add); ok {
				out = append(out, a.Terms...)
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

// collect combines like terms.
func collect(terms []Expr) []Expr {
	sum := NewAdd(terms...)
	if a, ok := sum.(Add); ok {
		return a.Terms
	}
	return []Expr{sum}
}

// Together writes e as a single fraction and returns its numerator and
// denominator.
func Together(e Expr) (num, den Expr) {
	switch v := e.(type) {
	case Num:
		return numOf(new(big.Rat).SetInt(v.v.Num())), numOf(new(big.Rat).SetInt(v.v.Denom()))
	case Add:
		num, den = Zero, One
		for _, t := range v.Terms {
			n, d := Together(t)
			if equal(d, den) {
				num = NewAdd(num, n)
				continue
			}
			num = Expand(NewAdd(NewMul(num, d), NewMul(n, den)))
			den = Expand(NewMul(den, d))
		}
		return num, den
	case Mul:
		nums, dens := []Expr{}, []Expr{}
		for _, f := range v.Factors {
			n, d := Together(f)
			nums = append(nums, n)
			dens = append(dens, d)
		}
		return NewMul(nums...), NewMul(dens...)
	case Pow:
		if n, ok := v.Exp.(Num); ok && n.IsInt() {
			bn, bd := Together(v.Base)
			if n.Sign() < 0 {
				k := n.neg()
				return NewPow(bd, k), NewPow(bn, k)
			}
			return NewPow(bn, n), NewPow(bd, n)
		}
		if c, _ := splitCoeff(v.Exp); c.Sign() < 0 {
			return One, NewPow(v.Base, Neg(v.Exp))
		}
	}
	return e, One
}

// Cancel writes e as a reduced fraction p/q. For a single variable the
// common polynomial factors of p and q are removed.
func Cancel(e Expr) Expr {
	num, den := Together(e)
	num, den = Expand(num), Expand(den)
	if isNum(den, 1) {
		return num
	}
	syms := Symbols(NewAdd(num, den))
	if len(syms) == 1 {
		x := syms[0]
		p, errP := polyOf(num, x)
		q, errQ := polyOf(den, x)
		if errP == nil && errQ == nil && !q.isZero() {
			return cancelPoly(p, q, x)
		}
	}
	if d, ok := den.(Num); ok {
		return NewMul(num, NewPow(d, MinusOne))
	}
	return NewMul(num, NewPow(den, MinusOne))
}

func cancelPoly(p, q poly, x string) Expr {
	g := p.gcd(q)
	p, _ = p.divmod(g)
	q, _ = q.divmod(g)
	cp, pp := p.primitive()
	cq, pq := q.primitive()
	k := new(big.Rat).Quo(cp, cq)
	if pq.deg() == 0 {
		return NewMul(numOf(k), pp.expr(x))
	}
	if pp.isZero() {
		return Zero
	}
	return NewMul(numOf(k), pp.expr(x), NewPow(pq.expr(x), MinusOne))
}

// Factor factors e over the rationals. Univariate polynomials are split into
// linear factors for their rational roots; other expressions have their
// common monomial factor pulled out. The result is a display form and is not
// re-canonicalised.
func Factor(e Expr) Expr {
	num, den := Together(e)
	num, den = Expand(num), Expand(den)
	fn := factorPoly(num)
	if isNum(den, 1) {
		return fn
	}
	fd := factorPoly(den)
	return joinFactors(fn, fd)
}

// joinFactors builds the raw product n * d**-1, keeping factored forms.
func joinFactors(n, d Expr) Expr {
	cn, rn := splitCoeff(n)
	cd, rd := splitCoeff(d)
	c := numOf(new(big.Rat).Quo(cn.v, cd.v))
	var factors []Expr
	if !c.IsOne() {
		factors = append(factors, c)
	}
	factors = append(factors, rawFactors(rn)...)
	for _, f := range rawFactors(rd) {
		b, x := asPow(f)
		factors = append(factors, Pow{Base: b, Exp: NewMul(MinusOne, x)})
	}
	switch len(factors) {
	case 0:
		return One
	case 1:
		if _, ok := factors[0].(Pow); !ok {
			return factors[0]
		}
	}
	return Mul{Factors: factors}
}

func rawFactors(e Expr) []Expr {
	if isNum(e, 1) {
		return nil
	}
	if m, ok := e.(Mul); ok {
		return m.Factors
	}
	return []Expr{e}
}

func factorPoly(e Expr) Expr {
	syms := Symbols(e)
	if len(syms) == 1 {
		if p, err := polyOf(e, syms[0]); err == nil && p.deg() >= 1 {
			return factorUnivariate(p, syms[0])
		}
	}
	return factorCommon(e)
}

func factorUnivariate(p poly, x string) Expr {
	content, prim := p.primitive()
	roots, rest := rationalRoots(prim)
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].value.(Num).v.Cmp(roots[j].value.(Num).v) > 0
	})
	var factors []Expr
	for _, r := range roots {
		rv := r.value.(Num).v
		lin := NewAdd(NewMul(numOf(new(big.Rat).SetInt(rv.Denom())), Symbol(x)), numOf(new(big.Rat).SetInt(new(big.Int).Neg(rv.Num()))))
		factors = append(factors, NewPow(lin, NewInt(int64(r.mult))))
	}
	// The scale of rest cancels the denominators of the roots (Gauss's lemma).
	_, restPrim := rest.primitive()
	if restPrim.deg() > 0 {
		factors = append(factors, restPrim.expr(x))
	}
	sortFactorList(factors)
	if content.Cmp(one) != 0 {
		factors = append([]Expr{numOf(content)}, factors...)
	}
	switch len(factors) {
	case 0:
		return numOf(content)
	case 1:
		return factors[0]
	}
	return Mul{Factors: factors}
}

// sortFactorList orders factors by degree with a bare variable first,
// keeping the root order for ties.
func sortFactorList(factors []Expr) {
	sort.SliceStable(factors, func(i, j int) bool {
		bi, _ := asPow(factors[i])
		bj, _ := asPow(factors[j])
		if di, dj := termDegree(bi), termDegree(bj); di != dj {
			return di < dj
		}
		_, si := bi.(Sym)
		_, sj := bj.(Sym)
		return si && !sj
	})
}

// factorCommon pulls the rational content and the lowest power of each
// symbol out of a sum.
func factorCommon(e Expr) Expr {
	a, ok := e.(Add)
	if !ok {
		return e
	}
	type powers map[string]Expr
	var g *big.Rat
	common := powers{}
	first := true
	for _, t := range a.Terms {
		c, rest := splitCoeff(t)
		if g == nil {
			g = c.abs().Rat()
		} else {
			g = ratGCD(g, c.abs().v)
		}
		here := powers{}
		for _, f := range rawFactors(rest) {
			b, x := asPow(f)
			n, ok := x.(Num)
			if !ok || !n.IsInt() || n.Sign() <= 0 {
				continue
			}
			here[b.String()] = f
		}
		if first {
			common = here
			first = false
			continue
		}
		for k, f := range common {
			h, ok := here[k]
			if !ok {
				delete(common, k)
				continue
			}
			_, ef := asPow(f)
			_, eh := asPow(h)
			if eh.(Num).v.Cmp(ef.(Num).v) < 0 {
				common[k] = h
			}
		}
	}
	if c, _ := splitCoeff(a.Terms[0]); c.Sign() < 0 {
		g.Neg(g)
	}
	var pulled []Expr
	pulled = append(pulled, numOf(g))
	keys := make([]string, 0, len(common))
	for k := range common {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pulled = append(pulled, common[k])
	}
	outside := NewMul(pulled...)
	if isNum(outside, 1) {
		return e
	}
	inside := Expand(Div(e, outside))
	factors := append([]Expr{}, rawFactors(outside)...)
	return Mul{Factors: append(factors, inside)}
}

func ratGCD(a, b *big.Rat) *big.Rat {
	n := new(big.Int).GCD(nil, nil, a.Num(), b.Num())
	d := new(big.Int).Mul(a.Denom(), b.Denom())
	d.Quo(d, new(big.Int).GCD(nil, nil, a.Denom(), b.Denom()))
	return new(big.Rat).SetFrac(n, d)
}

// Simplify returns the smallest of several equivalent forms of e.
func Simplify(e Expr) Expr {
	best := e
	for _, c := range []Expr{trigSimp(e), Expand(e), Cancel(e), Factor(e), Cancel(trigSimp(e))} {
		if size(c) < size(best) {
			best = c
		}
	}
	return best
}

// trigSimp rewrites c*sin(u)**2 + c*cos(u)**2 as c, recursively.
func trigSimp(e Expr) Expr {
	switch v := e.(type) {
	case Add:
		terms := make([]Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = trigSimp(t)
		}
		return pythagoras(terms)
	case Mul:
		fs := make([]Expr, len(v.Factors))
		for i, f := range v.Factors {
			fs[i] = trigSimp(f)
		}
		return NewMul(fs...)
	case Pow:
		return NewPow(trigSimp(v.Base), trigSimp(v.Exp))
	case Call:
		return NewCall(v.Fn, trigSimp(v.Arg))
	}
	return e
}

func pythagoras(terms []Expr) Expr {
	used := make([]bool, len(terms))
	var out []Expr
	for i, t := range terms {
		if used[i] {
			continue
		}
		c, arg, ok := squaredTrig(t, "sin")
		if !ok {
			continue
		}
		for j, u := range terms {
			if used[j] || j == i {
				continue
			}
			c2, arg2, ok := squaredTrig(u, "cos")
			if ok && equal(c, c2) && equal(arg, arg2) {
				used[i], used[j] = true, true
				out = append(out, c)
				break
			}
		}
	}
	for i, t := range terms {
		if !used[i] {
			out = append(out, t)
		}
	}
	return NewAdd(out...)
}

// squaredTrig matches c*fn(u)**2 and returns c and u.
func squaredTrig(t Expr, fn string) (Expr, Expr, bool) {
	var rest []Expr
	var arg Expr
	for _, f := range append([]Expr{}, rawFactors(t)...) {
		if p, ok := f.(Pow); ok && isNum(p.Exp, 2) && arg == nil {
			if c, ok := p.Base.(Call); ok && c.Fn == fn {
				arg = c.Arg
				continue
			}
		}
		rest = append(rest, f)
	}
	if arg == nil {
		return nil, nil, false
	}
	return NewMul(rest...), arg, true
}
