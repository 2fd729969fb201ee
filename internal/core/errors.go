package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP boundary can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is the single error type handler steps return.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "paypal.create_payment"
	Msg  string // safe to show to the caller
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Op != "":
		return e.Op + ": " + e.Msg
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func InvalidInput(op, msg string) *Error { return E(KindInvalidInput, op, msg, nil) }

func Unauthorized(op, msg string) *Error { return E(KindUnauthorized, op, msg, nil) }

func Forbidden(op, msg string) *Error { return E(KindForbidden, op, msg, nil) }

func Upstream(op, msg string, err error) *Error { return E(KindUpstream, op, msg, err) }

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Msg != "" {
		return ce.Msg
	}
	return "internal error"
}
