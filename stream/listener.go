// File: stream/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/socket"
	"github.com/pkg/errors"
)

// DefaultBacklog is used when Listen is given a non-positive backlog.
const DefaultBacklog = 50

// Listener accepts connections on a bound, listening handle.
type Listener struct {
	o        options
	h        api.Handle
	ep       api.Endpoint
	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

// Listen binds ep and starts listening. Port 0 picks an ephemeral port;
// Endpoint reports it.
func Listen(ep api.Endpoint, backlog int, opts ...Option) (*Listener, error) {
	o := newOptions(opts)
	l := o.layer
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	h, err := l.Create()
	if err != nil {
		return nil, err
	}
	if err := l.Bind(h, ep); err != nil {
		_ = l.Close(h)
		return nil, err
	}
	if _, err := l.Listen(h, backlog); err != nil {
		_ = l.Close(h)
		return nil, err
	}
	bound, err := l.LocalEndpoint(h)
	if err != nil {
		_ = l.Close(h)
		return nil, err
	}
	return &Listener{o: o, h: h, ep: bound}, nil
}

// Accept blocks until a peer connects.
func (ln *Listener) Accept() (*Conn, error) {
	if ln.closed.Load() {
		return nil, errors.Wrap(api.ErrClosed, "accept")
	}
	l := ln.o.layer
	h, peer, err := l.Accept(ln.h)
	if err != nil {
		if ln.closed.Load() {
			return nil, errors.Wrap(api.ErrClosed, "accept")
		}
		return nil, err
	}
	local, err := l.LocalEndpoint(h)
	if err != nil {
		_ = l.Close(h)
		return nil, err
	}
	return newConn(ln.o, h, local, peer), nil
}

// Endpoint returns the bound address, with the assigned port.
func (ln *Listener) Endpoint() api.Endpoint { return ln.ep }

// Handle returns the listening socket.
func (ln *Listener) Handle() api.Handle { return ln.h }

// Layer returns the operations layer the listener runs on.
func (ln *Listener) Layer() *socket.Layer { return ln.o.layer }

// Close stops listening. A blocked Accept on unix needs the read side shut
// as well, since closing alone does not wake it.
func (ln *Listener) Close() error {
	ln.once.Do(func() {
		ln.closed.Store(true)
		l := ln.o.layer
		_ = l.ShutdownInput(ln.h)
		ln.closeErr = l.Close(ln.h)
	})
	return ln.closeErr
}
