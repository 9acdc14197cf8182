// File: stream/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/socket"
	"github.com/pkg/errors"
)

// Conn is a connected stream. Read and Write may run concurrently with each
// other; concurrent Reads or concurrent Writes are the caller's to serialize.
type Conn struct {
	l       *socket.Layer
	h       api.Handle
	local   api.Endpoint
	remote  api.Endpoint
	bufSize int

	readShut  atomic.Bool
	writeShut atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ api.NetConn = (*Conn)(nil)

func newConn(o options, h api.Handle, local, remote api.Endpoint) *Conn {
	return &Conn{l: o.layer, h: h, local: local, remote: remote, bufSize: o.bufferSize}
}

// Handle returns the underlying socket.
func (c *Conn) Handle() api.Handle { return c.h }

// LocalEndpoint returns the endpoint recorded when the stream was set up.
func (c *Conn) LocalEndpoint() api.Endpoint { return c.local }

// RemoteEndpoint returns the peer endpoint.
func (c *Conn) RemoteEndpoint() api.Endpoint { return c.remote }

// Read performs one receive of at most the buffer size. It returns io.EOF
// once the peer has shut down or after CloseRead.
func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, errors.Wrap(api.ErrClosed, "read")
	}
	if c.readShut.Load() {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > c.bufSize {
		p = p[:c.bufSize]
	}
	n, err := c.l.Recv(c.h, p, false)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Peek returns queued bytes without consuming them.
func (c *Conn) Peek(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, errors.Wrap(api.ErrClosed, "peek")
	}
	if len(p) > c.bufSize {
		p = p[:c.bufSize]
	}
	return c.l.Recv(c.h, p, true)
}

// Write sends all of p in chunks no larger than the buffer size.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, errors.Wrap(api.ErrClosed, "write")
	}
	if c.writeShut.Load() {
		return 0, errors.Wrap(api.ErrClosed, "write after CloseWrite")
	}
	written := 0
	for written < len(p) {
		chunk := p[written:]
		if len(chunk) > c.bufSize {
			chunk = chunk[:c.bufSize]
		}
		n, err := c.l.Send(c.h, chunk)
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

// CloseRead shuts the input direction. Only the first call reaches the
// socket.
func (c *Conn) CloseRead() error {
	if c.closed.Load() || !c.readShut.CompareAndSwap(false, true) {
		return nil
	}
	return c.l.ShutdownInput(c.h)
}

// CloseWrite shuts the output direction, sending FIN to the peer. Only the
// first call reaches the socket.
func (c *Conn) CloseWrite() error {
	if c.closed.Load() || !c.writeShut.CompareAndSwap(false, true) {
		return nil
	}
	return c.l.ShutdownOutput(c.h)
}

// Close releases the handle. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.l.Close(c.h)
	})
	return c.closeErr
}
