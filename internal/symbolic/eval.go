package symbolic

import (
	"math"
	"math/cmplx"
)

// Eval evaluates e numerically. Symbols other than the constants must be
// bound in env.
func Eval(e Expr, env map[string]complex128) (complex128, error) {
	switch v := e.(type) {
	case Num:
		f, _ := v.v.Float64()
		return complex(f, 0), nil
	case Sym:
		switch v {
		case Pi:
			return complex(math.Pi, 0), nil
		case E:
			return complex(math.E, 0), nil
		case I:
			return 1i, nil
		case Oo:
			return complex(math.Inf(1), 0), nil
		case Zoo:
			return cmplx.Inf(), nil
		case Nan:
			return cmplx.NaN(), nil
		}
		if z, ok := env[v.Name]; ok {
			return z, nil
		}
		return 0, errorf(ErrValue, "symbol %s has no value", v.Name)
	case Add:
		var sum complex128
		for _, t := range v.Terms {
			z, err := Eval(t, env)
			if err != nil {
				return 0, err
			}
			sum += z
		}
		return sum, nil
	case Mul:
		prod := complex(1, 0)
		for _, f := range v.Factors {
			z, err := Eval(f, env)
			if err != nil {
				return 0, err
			}
			prod *= z
		}
		return prod, nil
	case Pow:
		b, err := Eval(v.Base, env)
		if err != nil {
			return 0, err
		}
		x, err := Eval(v.Exp, env)
		if err != nil {
			return 0, err
		}
		// Keep real roots of negative reals real for odd denominators.
		if n, ok := v.Exp.(Num); ok && imag(b) == 0 && real(b) < 0 && !n.IsInt() && n.v.Denom().Bit(0) == 1 {
			f, _ := n.v.Float64()
			return complex(-math.Pow(-real(b), f), 0), nil
		}
		return cmplx.Pow(b, x), nil
	case Call:
		z, err := Eval(v.Arg, env)
		if err != nil {
			return 0, err
		}
		switch v.Fn {
		case "sin":
			return cmplx.Sin(z), nil
		case "cos":
			return cmplx.Cos(z), nil
		case "tan":
			return cmplx.Tan(z), nil
		case "atan":
			return cmplx.Atan(z), nil
		case "log":
			return cmplx.Log(z), nil
		case "abs":
			return complex(cmplx.Abs(z), 0), nil
		case "sign":
			switch {
			case real(z) > 0:
				return 1, nil
			case real(z) < 0:
				return -1, nil
			}
			return 0, nil
		}
		return 0, errorf(ErrNotImplemented, "cannot evaluate %s", v.Fn)
	}
	return 0, errorf(ErrValue, "cannot evaluate %s", e)
}

// realSign evaluates e at x = at and reports the sign of its real part.
func realSign(e Expr, x string, at float64) (int, error) {
	z, err := Eval(e, map[string]complex128{x: complex(at, 0)})
	if err != nil {
		return 0, err
	}
	switch r := real(z); {
	case math.IsNaN(r):
		return 0, errorf(ErrValue, "%s is undefined at %s = %g", e, x, at)
	case r > 0:
		return 1, nil
	case r < 0:
		return -1, nil
	}
	return 0, nil
}
