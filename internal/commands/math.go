package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/feynmanium/feynmanium/internal/symbolic"
)

const mathGroup = "Math"

// prettyEq renders "lhs = rhs" in a code block.
func prettyEq(lhs, rhs string) []Reply {
	return Text(fmt.Sprintf("```\n%s = %s\n```", lhs, rhs))
}

var (
	exprOption = Option{Name: "expr", Description: "Expression", Kind: KindString, Required: true, Rest: true}
	varOption  = Option{Name: "var", Description: "Variable", Kind: KindString, Default: "x", Accept: IsVariable}
)

var applicationRe = regexp.MustCompile(`^[A-Za-z_]\w*\(\s*[A-Za-z_]\w*\s*\)$`)

// isUnknown accepts a variable or an applied function such as f(x).
func isUnknown(tok, rest string) bool {
	if applicationRe.MatchString(strings.Trim(tok, "`")) {
		tok = "x"
	}
	return IsVariable(tok, rest)
}

func exprCommand(name string, aliases []string, desc string, op func(symbolic.Expr) (symbolic.Expr, error)) Command {
	return Func{
		Desc: Descriptor{Name: name, Aliases: aliases, Group: mathGroup, Description: desc, Options: []Option{exprOption}},
		Run: func(_ context.Context, req *Request) ([]Reply, error) {
			raw := req.Args.String("expr")
			e, err := symbolic.Parse(raw)
			if err != nil {
				return nil, err
			}
			out, err := op(e)
			if err != nil {
				return nil, err
			}
			return prettyEq(symbolic.Clean(raw), out.String()), nil
		},
	}
}

// calculusCommand parses var and expr, then applies op.
func calculusCommand(d Descriptor, op func(req *Request, raw string, e symbolic.Expr, x string) ([]Reply, error)) Command {
	d.Group = mathGroup
	return Func{
		Desc: d,
		Run: func(_ context.Context, req *Request) ([]Reply, error) {
			x, err := symbolic.ParseSymbol(req.Args.String("var"))
			if err != nil {
				return nil, err
			}
			raw := req.Args.String("expr")
			e, err := symbolic.Parse(raw)
			if err != nil {
				return nil, err
			}
			return op(req, symbolic.Clean(raw), e, x)
		},
	}
}

// MathCommands returns every symbolic-math command.
func MathCommands() []Command {
	return []Command{
		exprCommand("simplify", []string{"simpl"}, "Simplify an expression.", func(e symbolic.Expr) (symbolic.Expr, error) {
			return symbolic.Simplify(e), nil
		}),
		exprCommand("expand", []string{"expn"}, "Expand an expression.", func(e symbolic.Expr) (symbolic.Expr, error) {
			return symbolic.Expand(e), nil
		}),
		exprCommand("factor", []string{"fact"}, "Factor an expression.", func(e symbolic.Expr) (symbolic.Expr, error) {
			return symbolic.Factor(e), nil
		}),
		calculusCommand(Descriptor{
			Name:        "apart",
			Description: "Decompose a rational function into partial fractions.",
			Options:     []Option{varOption, exprOption},
		}, func(_ *Request, raw string, e symbolic.Expr, x string) ([]Reply, error) {
			out, err := symbolic.Apart(e, x)
			if err != nil {
				return nil, err
			}
			return prettyEq(raw, out.String()), nil
		}),
		calculusCommand(Descriptor{
			Name:        "diff",
			Description: "Take the derivative of an expression.",
			Options:     []Option{varOption, exprOption},
		}, func(_ *Request, raw string, e symbolic.Expr, x string) ([]Reply, error) {
			lhs := fmt.Sprintf("Derivative(%s, %s)", raw, x)
			return prettyEq(lhs, symbolic.Diff(e, x).String()), nil
		}),
		calculusCommand(Descriptor{
			Name:        "integrate",
			Aliases:     []string{"adiff"},
			Description: "Find an antiderivative of an expression.",
			Options:     []Option{varOption, exprOption},
		}, func(_ *Request, raw string, e symbolic.Expr, x string) ([]Reply, error) {
			out, err := symbolic.Integrate(e, x)
			if err != nil {
				return nil, err
			}
			return prettyEq(fmt.Sprintf("Integral(%s, %s)", raw, x), out.String()), nil
		}),
		calculusCommand(Descriptor{
			Name:        "limit",
			Description: "Compute the limit of an expression.",
			Options: []Option{
				{Name: "pos", Description: "Point to approach", Kind: KindString, Required: true},
				varOption, exprOption,
			},
		}, func(req *Request, raw string, e symbolic.Expr, x string) ([]Reply, error) {
			pos, err := symbolic.Parse(req.Args.String("pos"))
			if err != nil {
				return nil, err
			}
			out, err := symbolic.Limit(e, x, pos)
			if err != nil {
				return nil, err
			}
			lhs := fmt.Sprintf("Limit(%s, %s, %s)", raw, x, symbolic.Clean(req.Args.String("pos")))
			return prettyEq(lhs, out.String()), nil
		}),
		relationCommand(Descriptor{
			Name:        "solve",
			Description: "Solve an equation.",
			Options:     []Option{varOption, exprOption},
		}, func(raw string, rel symbolic.Relation, x string) ([]Reply, error) {
			var lhs string
			switch rel.Op {
			case "":
				lhs = fmt.Sprintf("ConditionSet(%s, Eq(%s, 0))", x, raw)
			case "==":
				lhs = fmt.Sprintf("ConditionSet(%s, %s)", x, rel)
			default:
				return nil, usageErrorf(BadArgument, "solve", "solve expects an equation, use ineq for %s", rel)
			}
			set, err := symbolic.Solve(rel.Expr(), x)
			if err != nil {
				return nil, err
			}
			return prettyEq(lhs, set.String()), nil
		}),
		relationCommand(Descriptor{
			Name:        "ineq",
			Description: "Solve an inequality over the reals.",
			Options:     []Option{varOption, exprOption},
		}, func(raw string, rel symbolic.Relation, x string) ([]Reply, error) {
			set, err := symbolic.SolveReal(rel, x)
			if err != nil {
				return nil, err
			}
			return prettyEq(fmt.Sprintf("ConditionSet(%s, %s, Reals)", x, raw), set.String()), nil
		}),
		Func{
			Desc: Descriptor{
				Name:        "dsolve",
				Aliases:     []string{"dsolv"},
				Group:       mathGroup,
				Description: "Solve an ordinary differential equation.",
				Options: []Option{
					{Name: "var", Description: "Variable or unknown function", Kind: KindString, Default: "x", Accept: isUnknown},
					exprOption,
				},
			},
			Run: func(_ context.Context, req *Request) ([]Reply, error) {
				raw := symbolic.Clean(req.Args.String("expr"))
				sol, err := symbolic.Dsolve(raw, symbolic.Clean(req.Args.String("var")))
				if err != nil {
					return nil, err
				}
				return Text(fmt.Sprintf("Solving for `%s` in `%s` gives\n```\n%s\n```", sol.Func(), raw, sol)), nil
			},
		},
		calculusCommand(Descriptor{
			Name:        "roots",
			Description: "Find the roots of a polynomial.",
			Options:     []Option{varOption, exprOption},
		}, func(req *Request, raw string, e symbolic.Expr, x string) ([]Reply, error) {
			rawVar := symbolic.Clean(req.Args.String("var"))
			roots, err := symbolic.Roots(e, x)
			if err != nil {
				return nil, err
			}
			if len(roots) == 0 {
				return Text(fmt.Sprintf("Cannot find roots of `%s` on `%s`", rawVar, raw)), nil
			}
			replies := Text(fmt.Sprintf("The roots of `%s` on `%s` are", rawVar, raw))
			for _, r := range roots {
				replies = append(replies, Reply{Content: "```\n" + r.String() + "\n```"})
			}
			return replies, nil
		}),
	}
}

func relationCommand(d Descriptor, op func(raw string, rel symbolic.Relation, x string) ([]Reply, error)) Command {
	d.Group = mathGroup
	return Func{
		Desc: d,
		Run: func(_ context.Context, req *Request) ([]Reply, error) {
			x, err := symbolic.ParseSymbol(req.Args.String("var"))
			if err != nil {
				return nil, err
			}
			raw := req.Args.String("expr")
			rel, err := symbolic.ParseRelation(raw)
			if err != nil {
				return nil, err
			}
			return op(strings.TrimSpace(symbolic.Clean(raw)), rel, x)
		},
	}
}
