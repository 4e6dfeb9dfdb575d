package apperr

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers map these to HTTP statuses; anything
// else is treated as an internal error and not leaked to clients.

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// AuthenticationError covers webhook signature mismatches and bad
// credentials. Logged as a security event at the boundary.
type AuthenticationError struct {
	Msg string
}

func (e *AuthenticationError) Error() string { return e.Msg }

func Authentication(msg string) error {
	return &AuthenticationError{Msg: msg}
}

// DisbursementSubmissionError means the whole transfer batch was rejected
// or never reached the provider. Bundle state is unaffected; retry is an
// operator action, never automatic.
type DisbursementSubmissionError struct {
	BundleID uint
	Err      error
}

func (e *DisbursementSubmissionError) Error() string {
	return fmt.Sprintf("disbursement submission failed for bundle %d: %v", e.BundleID, e.Err)
}

func (e *DisbursementSubmissionError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
