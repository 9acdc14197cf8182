// File: api/platform.go
// Author: momentics <momentics@gmail.com>
//
// Platform socket contract. One implementation exists per target OS and is
// selected by build tags; the operations layer is written only against this
// interface.

package api

import "time"

// Platform is the compatibility shim over the native socket subsystem.
// Methods return raw platform errors; categorizing them is the caller's job.
type Platform interface {
	// Init performs one-time subsystem startup. Safe to call repeatedly.
	Init() error

	// Socket creates a blocking stream/IPv4/TCP socket.
	Socket() (Handle, error)

	// SetNonBlocking toggles the non-blocking mode of h.
	SetNonBlocking(h Handle, on bool) error

	// Connect starts (non-blocking) or performs (blocking) a connect.
	Connect(h Handle, ep Endpoint) error

	// InProgress reports whether a connect error only means "not yet".
	InProgress(err error) bool

	// WaitWritable blocks until h becomes writable or the timeout elapses.
	WaitWritable(h Handle, timeout time.Duration) (ready bool, err error)

	// PendingError returns the socket's pending error (SO_ERROR), nil if none.
	// err is set when the query itself fails.
	PendingError(h Handle) (pending error, err error)

	Bind(h Handle, ep Endpoint) error
	Listen(h Handle, backlog int) error
	Accept(h Handle) (Handle, Endpoint, error)

	LocalEndpoint(h Handle) (Endpoint, error)
	RemoteEndpoint(h Handle) (Endpoint, error)

	// Send performs a single send call.
	Send(h Handle, b []byte) (int, error)

	// Recv performs a single receive call; peek leaves the data queued.
	Recv(h Handle, b []byte, peek bool) (int, error)

	Shutdown(h Handle, dir Direction) error

	// NotConnected reports whether err is the platform's "not connected".
	NotConnected(err error) bool

	Close(h Handle) error

	// Errno extracts the raw platform error code from err.
	Errno(err error) int

	// Name identifies the implementation ("unix", "windows", "fake").
	Name() string
}
