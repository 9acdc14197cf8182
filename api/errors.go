// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hiosock.

package api

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrClosed          = fmt.Errorf("socket is closed")
	ErrTimeout         = fmt.Errorf("operation timeout")
)

// Category is the coarse class every socket failure is reported under.
// Categories are errors themselves, so errors.Is(err, ConnectionTimeoutError)
// matches any report of that category.
type Category int

const (
	CategoryNone Category = iota
	SocketCreationError
	ConnectionError
	ConnectionTimeoutError
	BindError
	IOError
)

func (c Category) String() string {
	switch c {
	case SocketCreationError:
		return "SocketCreationError"
	case ConnectionError:
		return "ConnectionError"
	case ConnectionTimeoutError:
		return "ConnectionTimeoutError"
	case BindError:
		return "BindError"
	case IOError:
		return "IOError"
	default:
		return "None"
	}
}

// Error implements the error interface.
func (c Category) Error() string { return c.String() }

// SocketError is the error report produced whenever a system call fails.
type SocketError struct {
	Category Category
	// Op is the short operation name: "socket", "connect", "bind", ...
	Op string
	// Endpoint is set for operations that target an address.
	Endpoint *Endpoint
	// Code is the raw platform error code (errno or WSA error).
	Code int
	Err  error
}

// Error implements the error interface.
func (e *SocketError) Error() string {
	var b strings.Builder
	b.WriteString(e.Category.String())
	b.WriteString(": ")
	b.WriteString(e.Op)
	if e.Endpoint != nil {
		b.WriteByte(' ')
		b.WriteString(e.Endpoint.String())
	}
	fmt.Fprintf(&b, ": system error %d", e.Code)
	if e.Err != nil {
		b.WriteString(" (")
		b.WriteString(e.Err.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying platform error.
func (e *SocketError) Unwrap() error { return e.Err }

// Is matches the report's category.
func (e *SocketError) Is(target error) bool {
	c, ok := target.(Category)
	return ok && c == e.Category
}

// Timeout reports whether the failure is a connect timeout.
func (e *SocketError) Timeout() bool { return e.Category == ConnectionTimeoutError }

// NewSocketError creates a report. A nil endpoint omits the address from the
// message.
func NewSocketError(cat Category, op string, ep *Endpoint, code int, err error) *SocketError {
	return &SocketError{Category: cat, Op: op, Endpoint: ep, Code: code, Err: err}
}

// CategoryOf returns the category of err, or CategoryNone.
func CategoryOf(err error) Category {
	var se *SocketError
	if errors.As(err, &se) {
		return se.Category
	}
	return CategoryNone
}

// ErrnoOf extracts the raw platform code from err. It returns 0 when err
// carries no syscall.Errno.
func ErrnoOf(err error) int {
	var se *SocketError
	if errors.As(err, &se) {
		return se.Code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
