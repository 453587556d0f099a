// Package domainerrors carries the error codes the login hook reports to the host.
//
// Services return *Error values (optionally wrapping an infrastructure cause);
// transport code maps the code to an HTTP status and the host-facing envelope.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, host-facing error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeInternal           Code = "internal_error"
	CodeRedirectNotAllowed Code = "redirect_not_allowed"

	// Verification taxonomy.
	CodeInvalidCredential    Code = "invalid_credential"
	CodeMissingExchangeToken Code = "missing_exchange_token"
	CodeIdentityMismatch     Code = "identity_mismatch"
	CodeResultExpired        Code = "result_expired"
	CodeVerificationFlagged  Code = "verification_flagged"
	CodeRemote               Code = "remote_error"
	CodePersistence          Code = "persistence_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first coded error in the chain, or
// CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the host-safe message of a coded error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
