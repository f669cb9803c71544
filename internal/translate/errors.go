package translate

import "fmt"

// Error is a translation failure with a user-facing type name.
type Error struct {
	name string
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Name() string  { return e.name }

func valueErrorf(format string, args ...any) error {
	return &Error{name: "ValueError", msg: fmt.Sprintf(format, args...)}
}

func backendErrorf(format string, args ...any) error {
	return &Error{name: "TranslationError", msg: fmt.Sprintf(format, args...)}
}
