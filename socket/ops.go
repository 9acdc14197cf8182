// File: socket/ops.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"time"

	"github.com/momentics/hiosock/api"
)

// Init starts the platform socket subsystem. Repeated calls are no-ops.
func (l *Layer) Init() error {
	if err := l.p.Init(); err != nil {
		return l.fail(api.IOError, "init", nil, err)
	}
	return nil
}

// Create returns a new blocking stream/IPv4/TCP handle.
func (l *Layer) Create() (h api.Handle, err error) {
	defer l.track(opCreate, time.Now(), &err)
	if err := l.Init(); err != nil {
		return api.InvalidHandle, err
	}
	h, err = l.p.Socket()
	if err != nil {
		return api.InvalidHandle, l.fail(api.SocketCreationError, "socket", nil, err)
	}
	return h, nil
}

// Bind binds h to ep.
func (l *Layer) Bind(h api.Handle, ep api.Endpoint) (err error) {
	defer l.track(opBind, time.Now(), &err)
	if err := l.p.Bind(h, ep); err != nil {
		return l.fail(api.BindError, "bind", &ep, err)
	}
	return nil
}

// BindAny binds h to 0.0.0.0 and lets the system pick the port.
func (l *Layer) BindAny(h api.Handle) error {
	return l.Bind(h, api.Endpoint{Addr: api.AnyAddr})
}

// Listen marks h as a passive socket. The boolean mirrors the error.
func (l *Layer) Listen(h api.Handle, backlog int) (ok bool, err error) {
	defer l.track(opListen, time.Now(), &err)
	if err := l.p.Listen(h, backlog); err != nil {
		return false, l.fail(api.IOError, "listen", nil, err)
	}
	return true, nil
}

// Accept blocks until a peer connects and returns its handle and endpoint.
func (l *Layer) Accept(h api.Handle) (nh api.Handle, peer api.Endpoint, err error) {
	defer l.track(opAccept, time.Now(), &err)
	nh, peer, err = l.p.Accept(h)
	if err != nil {
		return api.InvalidHandle, api.Endpoint{}, l.fail(api.IOError, "accept", nil, err)
	}
	return nh, peer, nil
}

// LocalEndpoint reports the address h is bound to.
func (l *Layer) LocalEndpoint(h api.Handle) (ep api.Endpoint, err error) {
	defer l.track(opLocal, time.Now(), &err)
	ep, err = l.p.LocalEndpoint(h)
	if err != nil {
		return api.Endpoint{}, l.fail(api.IOError, "getsockname", nil, err)
	}
	return ep, nil
}

// RemoteEndpoint reports the peer of a connected h.
func (l *Layer) RemoteEndpoint(h api.Handle) (ep api.Endpoint, err error) {
	defer l.track(opRemote, time.Now(), &err)
	ep, err = l.p.RemoteEndpoint(h)
	if err != nil {
		return api.Endpoint{}, l.fail(api.IOError, "getpeername", nil, err)
	}
	return ep, nil
}

// LocalAddress is the address half of LocalEndpoint.
func (l *Layer) LocalAddress(h api.Handle) (uint32, error) {
	ep, err := l.LocalEndpoint(h)
	return ep.Addr, err
}

// LocalPort is the port half of LocalEndpoint.
func (l *Layer) LocalPort(h api.Handle) (uint16, error) {
	ep, err := l.LocalEndpoint(h)
	return ep.Port, err
}

// RemoteAddress is the address half of RemoteEndpoint.
func (l *Layer) RemoteAddress(h api.Handle) (uint32, error) {
	ep, err := l.RemoteEndpoint(h)
	return ep.Addr, err
}

// RemotePort is the port half of RemoteEndpoint.
func (l *Layer) RemotePort(h api.Handle) (uint16, error) {
	ep, err := l.RemoteEndpoint(h)
	return ep.Port, err
}

// Send performs a single send call and returns how much the kernel took.
func (l *Layer) Send(h api.Handle, b []byte) (n int, err error) {
	defer l.track(opSend, time.Now(), &err)
	n, err = l.p.Send(h, b)
	if err != nil {
		return 0, l.fail(api.IOError, "send", nil, err)
	}
	return n, nil
}

// Recv performs a single receive call. With peek the data stays queued.
func (l *Layer) Recv(h api.Handle, b []byte, peek bool) (n int, err error) {
	defer l.track(opRecv, time.Now(), &err)
	n, err = l.p.Recv(h, b, peek)
	if err != nil {
		return 0, l.fail(api.IOError, "recv", nil, err)
	}
	return n, nil
}

// ShutdownInput half-closes the read side.
func (l *Layer) ShutdownInput(h api.Handle) error {
	return l.shutdown(h, api.ShutdownRead)
}

// ShutdownOutput half-closes the write side.
func (l *Layer) ShutdownOutput(h api.Handle) error {
	return l.shutdown(h, api.ShutdownWrite)
}

// shutdown treats "not connected" as already shut down.
func (l *Layer) shutdown(h api.Handle, dir api.Direction) (err error) {
	defer l.track(opShutdown, time.Now(), &err)
	if err := l.p.Shutdown(h, dir); err != nil {
		if l.p.NotConnected(err) {
			return nil
		}
		return l.fail(api.IOError, "shutdown "+dir.String(), nil, err)
	}
	return nil
}

// Close releases h. The handle is unusable afterwards even on error.
func (l *Layer) Close(h api.Handle) (err error) {
	defer l.track(opClose, time.Now(), &err)
	if err := l.p.Close(h); err != nil {
		return l.fail(api.IOError, "close", nil, err)
	}
	return nil
}
