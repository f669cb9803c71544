package symbolic

import (
	"math"
	"sort"
	"strings"
)

// Set is a solution set in display form: {a, b}, EmptySet, Reals,
// Complexes, intervals and unions of them.
type Set struct {
	text string
}

func (s Set) String() string { return s.text }

var (
	EmptySet  = Set{text: "EmptySet"}
	Reals     = Set{text: "Reals"}
	Complexes = Set{text: "Complexes"}
)

func finiteSet(values []Expr) Set {
	if len(values) == 0 {
		return EmptySet
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return Set{text: "{" + strings.Join(parts, ", ") + "}"}
}

// Solve returns the complex solutions of e = 0 for x.
func Solve(e Expr, x string) (Set, error) {
	num, den := Together(e)
	num = Expand(num)
	if isNum(num, 0) {
		return Complexes, nil
	}
	c, err := coeffs(num, x)
	if err != nil {
		return Set{}, errorf(ErrNotImplemented, "cannot solve %s = 0 for %s", e, x)
	}
	roots, err := polyRoots(c)
	if err != nil {
		return Set{}, err
	}
	var values []Expr
	for _, r := range roots {
		if isNum(Cancel(Subs(den, x, r.value)), 0) {
			continue
		}
		values = append(values, r.value)
	}
	return finiteSet(values), nil
}

// Roots returns the roots of the polynomial e in x, each repeated by its
// multiplicity. An empty result means no exact roots could be found.
func Roots(e Expr, x string) ([]Expr, error) {
	c, err := coeffs(e, x)
	if err != nil {
		return nil, err
	}
	if len(c) == 1 && isNum(c[0], 0) {
		return nil, errorf(ErrNotPolynomial, "roots of the zero polynomial are undefined")
	}
	roots, err := polyRoots(c)
	if err != nil {
		return nil, nil
	}
	var out []Expr
	for _, r := range roots {
		for range r.mult {
			out = append(out, r.value)
		}
	}
	return out, nil
}

// realPoint is a real critical point of an inequality.
type realPoint struct {
	exact Expr
	value float64
	pole  bool
}

// SolveReal returns the real solutions of the relation r for x, where the
// two sides are rational functions of x. A relation without an operator is
// read as lhs = 0.
func SolveReal(r Relation, x string) (Set, error) {
	f := Sub(r.Lhs, r.Rhs)
	num, den := Together(f)
	num, den = Expand(num), Expand(den)
	nc, err := coeffs(num, x)
	if err != nil {
		return Set{}, errorf(ErrNotImplemented, "cannot solve %s over the reals", r)
	}
	dc, err := coeffs(den, x)
	if err != nil {
		return Set{}, errorf(ErrNotImplemented, "cannot solve %s over the reals", r)
	}
	zeros, err := polyRoots(nc)
	if err != nil {
		return Set{}, err
	}
	poles, err := polyRoots(dc)
	if err != nil {
		return Set{}, err
	}

	var points []realPoint
	add := func(roots []root, pole bool) {
		for _, rt := range roots {
			z, err := Eval(rt.value, nil)
			if err != nil || math.Abs(imag(z)) > 1e-12 {
				continue
			}
			seen := false
			for i, p := range points {
				if math.Abs(p.value-real(z)) < 1e-12 {
					points[i].pole = points[i].pole || pole
					seen = true
				}
			}
			if !seen {
				points = append(points, realPoint{exact: rt.value, value: real(z), pole: pole})
			}
		}
	}
	add(zeros, false)
	add(poles, true)
	sort.Slice(points, func(i, j int) bool { return points[i].value < points[j].value })

	holds := func(at float64, onZero bool) bool {
		if onZero {
			switch r.Op {
			case "", "==", "<=", ">=":
				return true
			}
			return false
		}
		s, err := realSign(f, x, at)
		if err != nil {
			return false
		}
		switch r.Op {
		case "<", "<=":
			return s < 0
		case ">", ">=":
			return s > 0
		case "!=":
			return s != 0
		}
		return s == 0
	}

	// Alternate open segments and points: seg0, pt0, seg1, ..., segN.
	var pieces []piece
	for i := 0; i <= len(points); i++ {
		lo, hi := math.Inf(-1), math.Inf(1)
		if i > 0 {
			lo = points[i-1].value
		}
		if i < len(points) {
			hi = points[i].value
		}
		pieces = append(pieces, piece{ok: holds(sample(lo, hi), false)})
		if i < len(points) {
			p := points[i]
			pieces = append(pieces, piece{ok: !p.pole && holds(p.value, true), point: true, at: p.exact})
		}
	}
	return intervals(pieces), nil
}

// piece is an open segment between critical points, or a critical point.
type piece struct {
	ok    bool
	point bool
	at    Expr
}

func sample(lo, hi float64) float64 {
	switch {
	case math.IsInf(lo, -1) && math.IsInf(hi, 1):
		return 0
	case math.IsInf(lo, -1):
		return hi - 1
	case math.IsInf(hi, 1):
		return lo + 1
	}
	return (lo + hi) / 2
}

// intervals merges runs of satisfied pieces into a set.
func intervals(pieces []piece) Set {
	var parts []string
	var isolated []Expr
	for i := 0; i < len(pieces); {
		if !pieces[i].ok {
			i++
			continue
		}
		j := i
		for j+1 < len(pieces) && pieces[j+1].ok {
			j++
		}
		start, end := pieces[i], pieces[j]
		switch {
		case i == j && start.point:
			isolated = append(isolated, start.at)
		default:
			var left, right Expr
			leftOpen, rightOpen := !start.point, !end.point
			switch {
			case start.point:
				left = start.at
			case i == 0:
				left = Neg(Oo)
			default:
				left = pieces[i-1].at
			}
			switch {
			case end.point:
				right = end.at
			case j == len(pieces)-1:
				right = Oo
			default:
				right = pieces[j+1].at
			}
			parts = append(parts, interval(left, right, leftOpen, rightOpen))
		}
		i = j + 1
	}
	if len(isolated) > 0 {
		parts = append(parts, finiteSet(isolated).text)
	}
	switch len(parts) {
	case 0:
		return EmptySet
	case 1:
		if parts[0] == "Interval(-oo, oo)" {
			return Reals
		}
		return Set{text: parts[0]}
	}
	return Set{text: "Union(" + strings.Join(parts, ", ") + ")"}
}

// interval names an interval the way it is conventionally printed: infinite
// ends are always open and only mentioned when the finite end is open too.
func interval(left, right Expr, leftOpen, rightOpen bool) string {
	leftInf, rightInf := !finite(left), !finite(right)
	name := ".Ropen"
	switch {
	case leftInf && rightInf:
		name = ""
	case leftInf && !rightOpen:
		name = ""
	case rightInf && !leftOpen:
		name = ""
	case !leftOpen && !rightOpen:
		name = ""
	case leftOpen && rightOpen:
		name = ".open"
	case leftOpen:
		name = ".Lopen"
	}
	return "Interval" + name + "(" + left.String() + ", " + right.String() + ")"
}
