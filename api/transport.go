// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the stream abstraction (NetConn) built on top of a raw socket
// handle.

package api

// NetConn abstracts a full-duplex connected stream over a socket handle.
type NetConn interface {
	// Read reads into a preallocated buffer; io.EOF on orderly shutdown.
	Read(p []byte) (n int, err error)

	// Write writes the whole buffer, chunking as needed.
	Write(p []byte) (n int, err error)

	// CloseRead shuts the input direction. Idempotent.
	CloseRead() error

	// CloseWrite shuts the output direction. Idempotent.
	CloseWrite() error

	// Close releases the handle.
	Close() error

	// Handle returns the underlying OS-level socket.
	Handle() Handle
}
