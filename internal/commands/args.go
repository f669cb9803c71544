package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Args holds bound option values: string, int64 or bool.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Has reports whether the option was given or has a default.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(v)
}

// IsIdentifier accepts tokens that look like a variable name.
func IsIdentifier(tok string) bool {
	tok = strings.Trim(tok, "`")
	if tok == "" {
		return false
	}
	for i, r := range tok {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// IsVariable accepts an identifier unless the text after it continues an
// expression, as in "x + 1" or "x > 0".
func IsVariable(tok, rest string) bool {
	if !IsIdentifier(tok) {
		return false
	}
	rest = strings.TrimLeft(strings.TrimSpace(rest), "`")
	return rest == "" || !strings.ContainsRune("+-*/^<>=!%),.", rune(rest[0]))
}

// ParseText binds the argument text of a text invocation to the options of
// d. Tokens are separated by whitespace; a Rest option takes the remainder
// of the line verbatim.
func ParseText(d Descriptor, text string) (Args, error) {
	args := Args{}
	rest := strings.TrimSpace(text)
	for i, o := range d.Options {
		if rest == "" {
			break
		}
		if o.Rest {
			v, err := convert(d.Name, o, rest)
			if err != nil {
				return nil, err
			}
			args[o.Name] = v
			rest = ""
			break
		}
		tok, after := nextToken(rest)
		if !o.Required && skipOptional(d.Options[i+1:], o, tok, after) {
			continue
		}
		v, err := convert(d.Name, o, tok)
		if err != nil {
			return nil, err
		}
		args[o.Name] = v
		rest = after
	}
	if rest != "" {
		return nil, usageErrorf(TooManyArgs, d.Name, "Too many arguments passed to %s", d.Name)
	}
	return finish(d, args)
}

// skipOptional decides whether tok should be left for the options after o.
func skipOptional(later []Option, o Option, tok, after string) bool {
	if o.Accept != nil && !o.Accept(tok, after) {
		return true
	}
	required := 0
	for _, l := range later {
		if l.Required {
			required++
		}
	}
	return countTokens(after) < required
}

func nextToken(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimLeftFunc(s[end:], unicode.IsSpace)
}

func countTokens(s string) int { return len(strings.Fields(s)) }

// Bind validates option values that arrive already typed, as they do from
// slash commands. Integers may be given as any Go integer or float kind.
func Bind(d Descriptor, values map[string]any) (Args, error) {
	args := Args{}
	for _, o := range d.Options {
		raw, ok := values[o.Name]
		if !ok || raw == nil {
			continue
		}
		var v any
		switch x := raw.(type) {
		case string:
			var err error
			if v, err = convert(d.Name, o, x); err != nil {
				return nil, err
			}
		case float64:
			v = int64(x)
		case int:
			v = int64(x)
		case int64:
			v = x
		case bool:
			v = x
		default:
			return nil, usageErrorf(BadArgument, d.Name, "Unsupported value for %s", o.Name)
		}
		if o.Kind == KindInteger {
			n, ok := v.(int64)
			if !ok {
				return nil, usageErrorf(BadArgument, d.Name, "Converting to \"int\" failed for parameter %q.", o.Name)
			}
			if err := checkRange(d.Name, o, n); err != nil {
				return nil, err
			}
		}
		args[o.Name] = v
	}
	return finish(d, args)
}

func finish(d Descriptor, args Args) (Args, error) {
	for _, o := range d.Options {
		if _, ok := args[o.Name]; ok {
			continue
		}
		if o.Required {
			return nil, usageErrorf(MissingArgument, d.Name, "%s is a required argument that is missing.", o.Name)
		}
		if o.Default != nil {
			args[o.Name] = o.Default
		}
	}
	return args, nil
}

func convert(cmd string, o Option, s string) (any, error) {
	switch o.Kind {
	case KindInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, usageErrorf(BadArgument, cmd, "Converting to \"int\" failed for parameter %q.", o.Name)
		}
		if err := checkRange(cmd, o, n); err != nil {
			return nil, err
		}
		return n, nil
	case KindBoolean:
		switch strings.ToLower(s) {
		case "yes", "y", "true", "t", "1", "enable", "on":
			return true, nil
		case "no", "n", "false", "f", "0", "disable", "off":
			return false, nil
		}
		return nil, usageErrorf(BadArgument, cmd, "%s is not a recognised boolean option", s)
	}
	return s, nil
}

func checkRange(cmd string, o Option, n int64) error {
	if o.HasRange && (n < o.Min || n > o.Max) {
		return usageErrorf(RangeError, cmd, "Parameter %q must be between %d and %d, not %d.", o.Name, o.Min, o.Max, n)
	}
	return nil
}
