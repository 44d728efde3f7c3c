package common

import (
	"errors"
	"fmt"
)

// TransientError wraps a failure that is worth retrying: network
// timeouts, rate limits, upstream 5xx responses.
type TransientError struct {
	Code string
	Op   string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure (%s): %v", e.Op, e.Code, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError wraps a failure that retrying cannot fix: missing
// sources, malformed URLs, client errors.
type PermanentError struct {
	Code string
	Op   string
	Err  error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: permanent failure (%s): %v", e.Op, e.Code, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Transient builds a TransientError with the given classification code
func Transient(op string, code string, err error) error {
	return &TransientError{Code: code, Op: op, Err: err}
}

// Permanent builds a PermanentError with the given classification code
func Permanent(op string, code string, err error) error {
	return &PermanentError{Code: code, Op: op, Err: err}
}

// IsTransient reports whether err is retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is a terminal failure
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
