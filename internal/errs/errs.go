package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured       = errors.New("not configured")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
)

// NotConfigured reports a missing credential, e.g. NotConfigured("FAL_KEY")
// reads "FAL_KEY not configured".
func NotConfigured(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotConfigured)
}

func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

func UpstreamStatus(op string, status int) error {
	return fmt.Errorf("%s: %w: status %d", op, ErrUpstreamUnavailable, status)
}

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

type upstreamError struct {
	msg string
}

func (e *upstreamError) Error() string { return e.msg }

func (e *upstreamError) Unwrap() error { return ErrUpstreamUnavailable }

// UpstreamMessage is an ErrUpstreamUnavailable whose text is exactly the
// formatted message, for errors that are shown to clients verbatim.
func UpstreamMessage(format string, args ...any) error {
	return &upstreamError{msg: fmt.Sprintf(format, args...)}
}
