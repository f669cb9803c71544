package symbolic

import "math/big"

// pfTerm is coeff / (x - root)**power.
type pfTerm struct {
	root  Expr
	power int
	coeff *big.Rat
}

// fractions is the partial fraction decomposition of p/q: a polynomial
// quotient, terms for every rational root of q, and remNum/remDen for the
// factor of q without rational roots.
type fractions struct {
	quotient poly
	linear   []pfTerm
	remNum   poly
	remDen   poly
}

func partialFractions(p, q poly) (fractions, error) {
	if q.isZero() {
		return fractions{}, errorf(ErrValue, "division by zero")
	}
	quo, rem := p.divmod(q)
	out := fractions{quotient: quo, remNum: constPoly(new(big.Rat)), remDen: constPoly(one)}
	if rem.isZero() {
		return out, nil
	}
	roots, irreducible := rationalRoots(q)
	// linearPart is the product of (x - r)**m over every rational root.
	linearPart := constPoly(one)
	for _, r := range roots {
		linearPart = linearPart.mul(linFactor(r.value).pow(r.mult))
	}
	for _, r := range roots {
		rv := r.value.(Num).v
		// g = rem / (q / (x - r)**m), expanded as a Taylor series at r.
		others, _ := q.divmod(linFactor(r.value).pow(r.mult))
		gn, gd := rem, others
		fact := big.NewRat(1, 1)
		for j := 0; j < r.mult; j++ {
			if j > 0 {
				fact.Mul(fact, new(big.Rat).SetInt64(int64(j)))
			}
			v := new(big.Rat).Quo(gn.eval(rv), gd.eval(rv))
			v.Quo(v, fact)
			if v.Sign() != 0 {
				out.linear = append(out.linear, pfTerm{root: r.value, power: r.mult - j, coeff: v})
			}
			gn, gd = gn.derivative().mul(gd).sub(gn.mul(gd.derivative())), gd.mul(gd)
		}
	}
	if irreducible.deg() > 0 {
		// rem = Σ c * q/(x - r)**k + N * linearPart
		acc := rem
		for _, t := range out.linear {
			part, _ := q.divmod(linFactor(t.root).pow(t.power))
			acc = acc.sub(part.scale(t.coeff))
		}
		n, _ := acc.divmod(linearPart)
		out.remNum, out.remDen = n, irreducible
	}
	return out, nil
}

func linFactor(r Expr) poly {
	return poly{new(big.Rat).Neg(r.(Num).v), big.NewRat(1, 1)}
}

// Apart returns the partial fraction decomposition of a rational function
// of x. Expressions that are not rational in x are returned cancelled.
func Apart(e Expr, x string) (Expr, error) {
	num, den := Together(e)
	p, errP := polyOf(num, x)
	q, errQ := polyOf(den, x)
	if errP != nil || errQ != nil {
		return nil, errorf(ErrNotPolynomial, "%s is not a rational function of %s", e, x)
	}
	pf, err := partialFractions(p, q)
	if err != nil {
		return nil, err
	}
	xs := Symbol(x)
	terms := []Expr{pf.quotient.expr(x)}
	for _, t := range pf.linear {
		terms = append(terms, NewMul(numOf(t.coeff), NewPow(NewAdd(xs, Neg(t.root)), NewInt(-int64(t.power)))))
	}
	if !pf.remNum.isZero() {
		c, prim := pf.remDen.primitive()
		terms = append(terms, NewMul(Div(pf.remNum.expr(x), numOf(c)), NewPow(prim.expr(x), MinusOne)))
	}
	return NewAdd(terms...), nil
}
