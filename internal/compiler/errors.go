package compiler

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a declaration that could not be turned into a definition
// row. Field is a dotted path such as "relation.order-invoice.to".
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Field, e.Message)
}

// Code returns the load error code the error is reported under.
func (e *CompileError) Code() string {
	return MapFieldToErrorCode(e.Field, e.Message)
}

// cueError converts an evaluation error from the CUE API into a
// CompileError positioned at its first reported location. Further errors
// are counted in the message.
func cueError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	msg := errs[0].Error()
	if n := len(errs) - 1; n > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n)
	}
	ce := &CompileError{Field: "cue", Message: msg}
	if pos := cueerrors.Positions(errs[0]); len(pos) > 0 {
		ce.Pos = pos[0]
	}
	return ce
}
