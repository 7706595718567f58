package boundary

import (
	"errors"
	"fmt"
)

// Code is the coarse result vocabulary that crosses the trust boundary.
type Code uint32

const (
	CodeSuccess       Code = 0x00000000
	CodeGeneric       Code = 0xFFFF0000
	CodeBadParameters Code = 0xFFFF0006
	CodeBadState      Code = 0xFFFF0007
	CodeItemNotFound  Code = 0xFFFF0008
)

// Hex renders the code the way it is written on the wire.
func (c Code) Hex() string {
	return fmt.Sprintf("0x%08x", uint32(c))
}

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeGeneric:
		return "generic"
	case CodeBadParameters:
		return "bad_parameters"
	case CodeBadState:
		return "bad_state"
	case CodeItemNotFound:
		return "item_not_found"
	default:
		return c.Hex()
	}
}

// Error pairs a wire code with the finer-grained cause. Callers match the
// cause with errors.Is while the boundary only ever sees Code.
type Error struct {
	Code Code
	Err  error
}

// Wrap attaches code to err. A nil err yields nil.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Errorf formats a cause with fmt.Errorf semantics and wraps it with code.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf maps err onto the boundary vocabulary.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeGeneric
}
