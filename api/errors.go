// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-nio.

package api

import (
	"errors"
	"fmt"
)

// Buffer bookkeeping errors. Every buffer failure unwraps to one of these.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOverflow        = errors.New("buffer overflow")
	ErrUnderflow       = errors.New("buffer underflow")
	ErrInvalidState    = errors.New("invalid state")
)

// Channel and selector errors.
var (
	ErrWouldBlock          = errors.New("operation would block")
	ErrClosed              = errors.New("channel is closed")
	ErrNotSupported        = errors.New("operation not supported")
	ErrIllegalBlockingMode = errors.New("channel is in blocking mode")
	ErrCancelledKey        = errors.New("selection key is cancelled")
	ErrNotConnected        = errors.New("channel is not connected")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeOverflow
	ErrCodeUnderflow
	ErrCodeInvalidState
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeOverflow:
		return "overflow"
	case ErrCodeUnderflow:
		return "underflow"
	case ErrCodeInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code to its sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeOverflow:
		return ErrOverflow
	case ErrCodeUnderflow:
		return ErrUnderflow
	case ErrCodeInvalidState:
		return ErrInvalidState
	}
	return nil
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code carried by err, or ErrCodeInternal when err is not
// an *Error. A nil error yields ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
