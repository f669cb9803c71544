package symbolic

import "fmt"

// Error is returned for every failure of the engine. Name reports the error
// class shown to users, and errors.Is matches on the class.
type Error struct {
	name string
	msg  string
}

var (
	ErrParse          = &Error{name: "SympifyError", msg: "cannot parse expression"}
	ErrNotPolynomial  = &Error{name: "PolynomialError", msg: "not a polynomial"}
	ErrNotImplemented = &Error{name: "NotImplementedError", msg: "not implemented"}
	ErrValue          = &Error{name: "ValueError", msg: "invalid value"}
)

func (e *Error) Error() string { return e.msg }

// Name returns the error class, e.g. PolynomialError.
func (e *Error) Name() string { return e.name }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.name == e.name
}

func errorf(class *Error, format string, args ...any) error {
	return &Error{name: class.name, msg: fmt.Sprintf(format, args...)}
}
