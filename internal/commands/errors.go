package commands

import (
	"errors"
	"fmt"
	"reflect"
)

// Usage error kinds, named the way they are shown to users.
const (
	MissingArgument = "MissingRequiredArgument"
	BadArgument     = "BadArgument"
	RangeError      = "RangeError"
	TooManyArgs     = "TooManyArguments"
)

// UsageError reports a malformed invocation.
type UsageError struct {
	Kind    string
	Command string
	Msg     string
}

func (e *UsageError) Error() string { return e.Msg }
func (e *UsageError) Name() string  { return e.Kind }

func usageErrorf(kind, cmd, format string, args ...any) *UsageError {
	return &UsageError{Kind: kind, Command: cmd, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown command.
type NotFoundError struct {
	Command string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("Command %q is not found", e.Command) }
func (e *NotFoundError) Name() string  { return "CommandNotFound" }

// ErrorName returns the user-facing type name of err: the Name() of the
// first error in the chain that has one, otherwise the Go type name of the
// innermost error.
func ErrorName(err error) string {
	var named interface{ Name() string }
	if errors.As(err, &named) {
		return named.Name()
	}
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(err) {
		err = inner
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}
