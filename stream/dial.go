// File: stream/dial.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"context"
	"time"

	"github.com/containerd/log"
	"github.com/momentics/hiosock/api"
	"github.com/pkg/errors"
)

// Dial connects to ep. A non-positive timeout blocks until the system gives
// up. The handle is closed when the connect fails.
func Dial(ep api.Endpoint, timeout time.Duration, opts ...Option) (*Conn, error) {
	return dial(newOptions(opts), nil, ep, timeout)
}

// DialLocal binds to local before connecting to ep.
func DialLocal(ep, local api.Endpoint, timeout time.Duration, opts ...Option) (*Conn, error) {
	return dial(newOptions(opts), &local, ep, timeout)
}

// DialHost resolves host to one IPv4 address and dials it. Names that do
// not resolve fail with resolve.ErrUnknownHost.
func DialHost(ctx context.Context, host string, port uint16, timeout time.Duration, opts ...Option) (*Conn, error) {
	o := newOptions(opts)
	addr, err := o.resolver.Lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	ep := api.Endpoint{Addr: addr, Port: port}
	log.G(ctx).WithFields(log.Fields{"host": host, "endpoint": ep.String()}).Debug("dialing")
	return dial(o, nil, ep, timeout)
}

func dial(o options, local *api.Endpoint, ep api.Endpoint, timeout time.Duration) (*Conn, error) {
	l := o.layer
	h, err := l.Create()
	if err != nil {
		return nil, err
	}
	if local != nil {
		if err := l.Bind(h, *local); err != nil {
			_ = l.Close(h)
			return nil, err
		}
	}
	if err := l.ConnectWithin(h, ep, timeout); err != nil {
		_ = l.Close(h)
		return nil, err
	}
	bound, err := l.LocalEndpoint(h)
	if err != nil {
		_ = l.Close(h)
		return nil, errors.Wrap(err, "dial")
	}
	return newConn(o, h, bound, ep), nil
}
