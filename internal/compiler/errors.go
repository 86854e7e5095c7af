package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Compile error codes (E2xx). The CLI prints them; tests match on them.
const (
	ErrCodeMethodName     = "E201" // name does not start with a known operation
	ErrCodeEntity         = "E202" // no entity or more than one entity matches
	ErrCodeParamCount     = "E203" // parameters do not line up with the name
	ErrCodeIdentity       = "E204" // insertOrUpdate cannot derive an identity
	ErrCodeCustomQuery    = "E205" // custom query has the wrong shape
	ErrCodeInvalidQuery   = "E206" // compiled query fails validation
	ErrCodeSignature      = "E207" // bound function has an unsupported signature
	ErrCodeDeclaration    = "E210" // malformed CUE declaration
	ErrCodeCUE            = "E211" // CUE evaluation error
	ErrCodeUnknownFeature = "E212" // unknown key in a declaration
)

// CompileError reports a method or declaration that cannot be compiled.
// Pos is set when the method came from a CUE declaration.
type CompileError struct {
	Code    string
	Method  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	subject := e.Method
	if e.Field != "" {
		if subject != "" {
			subject += "." + e.Field
		} else {
			subject = e.Field
		}
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, subject, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, subject, e.Message)
}

func newError(code, method, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Method: method, Message: fmt.Sprintf(format, args...)}
}

// formatCUEError extracts the first error and its position from a CUE error.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ce := &CompileError{Code: ErrCodeCUE, Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
