// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package ipamerrors defines the tagged-union error type shared by every
// core package. Errors carry a stable numeric code and a structured
// context map instead of an open string, so callers can match on Code
// programmatically while still getting an actionable message.
package ipamerrors

import "fmt"

// Code identifies an error family. Ranges: 1xxx general, 2xxx config,
// 3xxx CIDR/allocation, 4xxx I/O, 5xxx provider.
type Code int

const (
	CodeInvalidOperation     Code = 1001
	CodeConfigurationError   Code = 2001
	CodeInvalidCidrFormat    Code = 3001
	CodeInvalidPrefix        Code = 3002
	CodeCidrAlreadyAllocated Code = 3003
	CodeInsufficientSpace    Code = 3004
	CodeIOError              Code = 4001
	CodeProviderUnknown      Code = 5001
)

func (c Code) String() string {
	switch c {
	case CodeInvalidOperation:
		return "InvalidOperation"
	case CodeConfigurationError:
		return "ConfigurationError"
	case CodeInvalidCidrFormat:
		return "InvalidCidrFormat"
	case CodeInvalidPrefix:
		return "InvalidPrefix"
	case CodeCidrAlreadyAllocated:
		return "CidrAlreadyAllocated"
	case CodeInsufficientSpace:
		return "InsufficientSpace"
	case CodeIOError:
		return "IOError"
	case CodeProviderUnknown:
		return "ProviderUnknown"
	default:
		return "Unknown"
	}
}

// Error is the tagged-union error type used across the engine.
type Error struct {
	Code    Code
	Message string
	Context map[string]string
	Wrapped error
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", e.Code, e.Message, e.Context)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// With returns a copy of e with the given context key set. Safe on a nil
// Context map.
func (e *Error) With(key, value string) *Error {
	ctx := make(map[string]string, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx, Wrapped: e.Wrapped}
}

// New constructs an Error with the given code, message, and optional
// context pairs (must be supplied as alternating key, value strings).
func New(code Code, message string, kv ...string) *Error {
	var ctx map[string]string
	if len(kv) > 0 {
		ctx = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ctx[kv[i]] = kv[i+1]
		}
	}
	return &Error{Code: code, Message: message, Context: ctx}
}

// Wrap is like New but preserves an underlying error for errors.Is/As.
func Wrap(code Code, message string, err error, kv ...string) *Error {
	e := New(code, message, kv...)
	e.Wrapped = err
	return e
}

// Is reports whether err is an *Error with the given code, so callers can
// write `errors.Is`-style checks: `ipamerrors.Is(err, ipamerrors.CodeInsufficientSpace)`.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
