// Package errors is the coded error type shared by every tenantd package.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes. The status table in kit/transport/http maps each one.
const (
	EInternal         = "internal error"
	ENotImplemented   = "not implemented"
	ENotFound         = "not found"
	EConflict         = "conflict"
	EInvalid          = "invalid"
	EEmptyValue       = "empty value"
	EUnavailable      = "unavailable"
	EForbidden        = "forbidden"
	ETooManyRequests  = "too many requests"
	EUnauthorized     = "unauthorized"
	EMethodNotAllowed = "method not allowed"
)

const internalMessage = "An internal error has occurred."

// Error carries a machine-readable Code for handlers, a Msg for operators,
// and the Op that failed. Err chains the cause.
//
//	&Error{
//	    Code: ENotFound,
//	    Op:   "tenant/FindTenantByID",
//	    Msg:  "tenant not found",
//	}
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

// Unwrap exposes Err to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithErrorOp sets Op. It is the option ErrInternalServiceError takes.
func WithErrorOp(op string) func(*Error) {
	return func(e *Error) {
		e.Op = op
	}
}

// first walks the chain from the outermost *Error and returns the first
// non-empty value get finds. fallback is used when the chain has no *Error
// or no value.
func first(err error, get func(*Error) string, fallback string) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return fallback
	}
	if e == nil {
		return ""
	}
	if v := get(e); v != "" {
		return v
	}
	if e.Err != nil {
		return first(e.Err, get, fallback)
	}
	return fallback
}

// ErrorCode returns the first code in the chain, EInternal for uncoded
// errors and "" for nil.
func ErrorCode(err error) string {
	return first(err, func(e *Error) string { return e.Code }, EInternal)
}

// ErrorOp returns the first op in the chain.
func ErrorOp(err error) string {
	return first(err, func(e *Error) string { return e.Op }, "")
}

// ErrorMessage returns the first message in the chain. Uncoded errors get a
// generic message so internals never reach a client.
func ErrorMessage(err error) string {
	return first(err, func(e *Error) string { return e.Msg }, internalMessage)
}

// ErrInternalServiceError codes err as EInternal unless it already has a
// code, and applies options. Nil stays nil, so it fits deferred returns.
// An error that already names its Op is returned as is.
func ErrInternalServiceError(err error, options ...func(*Error)) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		if e.Op != "" {
			return e
		}
		// sentinels are shared; decorate a copy
		c := *e
		for _, o := range options {
			o(&c)
		}
		return &c
	}

	ie := &Error{Code: EInternal, Err: err}
	for _, o := range options {
		o(ie)
	}
	return ie
}

type wireError struct {
	Code string          `json:"code"`
	Msg  string          `json:"message,omitempty"`
	Op   string          `json:"op,omitempty"`
	Err  json.RawMessage `json:"error,omitempty"`
}

// MarshalJSON encodes the chain. Causes that are not *Error become strings.
func (e *Error) MarshalJSON() ([]byte, error) {
	w := wireError{Code: e.Code, Msg: e.Msg, Op: e.Op}
	if e.Err != nil {
		var cause interface{} = e.Err.Error()
		if inner, ok := e.Err.(*Error); ok {
			cause = inner
		}
		raw, err := json.Marshal(cause)
		if err != nil {
			return nil, err
		}
		w.Err = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a chain written by MarshalJSON.
func (e *Error) UnmarshalJSON(b []byte) error {
	var w wireError
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Error{Code: w.Code, Msg: w.Msg, Op: w.Op}
	if len(w.Err) == 0 || string(w.Err) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(w.Err, &s); err == nil {
		e.Err = errors.New(s)
		return nil
	}
	inner := &Error{}
	if err := inner.UnmarshalJSON(w.Err); err != nil {
		return err
	}
	e.Err = inner
	return nil
}

// HTTPErrorHandler writes err to w.
type HTTPErrorHandler interface {
	HandleHTTPError(ctx context.Context, err error, w http.ResponseWriter)
}
