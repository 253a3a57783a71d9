// Package domainerrors carries transport-agnostic error codes from stores and
// services up to the HTTP layer, which is the only place they become statuses.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code names what went wrong in business terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"

	// Field encryption and key material.
	CodeCrypto        Code = "crypto_error"        // encrypt/decrypt failed
	CodeConfiguration Code = "configuration_error" // missing or malformed key material

	// GDPR outcomes. Services report these as booleans and the handlers
	// turn them into errors.
	CodeNotEligible   Code = "not_eligible"   // active contracts or open claims
	CodeConsentExists Code = "consent_exists" // active consent already recorded
	CodeNoConsent     Code = "no_consent"     // nothing active to revoke
)

// Opaque reports whether messages under this code must stay server-side.
// Crypto and configuration messages can describe key material.
func (c Code) Opaque() bool {
	switch c {
	case CodeInternal, CodeCrypto, CodeConfiguration:
		return true
	}
	return false
}

// Error is a coded failure with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, New(code, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches msg and code to err. A code already present in err wins,
// so a not_found from a store survives being wrapped as internal.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		code = existing.Code
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether the outermost domain error in err has code.
// Errors without a domain error never match.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
