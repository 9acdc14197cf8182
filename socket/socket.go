// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"sync"
	"time"

	"github.com/containerd/log"
	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/control"
	"github.com/momentics/hiosock/internal/platform"
)

// Operation names used as the metrics "op" label.
const (
	opCreate         = "create"
	opConnect        = "connect"
	opConnectTimeout = "connect_timeout"
	opBind           = "bind"
	opListen         = "listen"
	opAccept         = "accept"
	opLocal          = "local_endpoint"
	opRemote         = "remote_endpoint"
	opSend           = "send"
	opRecv           = "recv"
	opShutdown       = "shutdown"
	opClose          = "close"
)

// Layer binds the socket operations to one platform implementation. It holds
// no per-handle state and is safe for concurrent use.
type Layer struct {
	p       api.Platform
	logger  *log.Entry
	metrics *control.Metrics
}

// Option customizes a Layer.
type Option func(*Layer)

// WithLogger sets the entry failures are logged through.
func WithLogger(e *log.Entry) Option {
	return func(l *Layer) {
		l.logger = e
	}
}

// WithMetrics records every operation into m.
func WithMetrics(m *control.Metrics) Option {
	return func(l *Layer) {
		l.metrics = m
	}
}

// New creates a Layer over p.
func New(p api.Platform, opts ...Option) *Layer {
	l := &Layer{p: p, logger: log.L}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithField("platform", p.Name())
	return l
}

// Platform returns the underlying implementation.
func (l *Layer) Platform() api.Platform { return l.p }

var (
	defaultOnce  sync.Once
	defaultLayer *Layer
)

// Default returns the process-wide layer over the native platform, recording
// into control.DefaultMetrics.
func Default() *Layer {
	defaultOnce.Do(func() {
		defaultLayer = New(platform.Native(), WithMetrics(control.DefaultMetrics()))
	})
	return defaultLayer
}

// track records one finished operation. It is deferred with a pointer to the
// named error result.
func (l *Layer) track(op string, start time.Time, errp *error) {
	if l.metrics != nil {
		l.metrics.Observe(op, start, *errp)
	}
}

// Init ensures the platform socket subsystem is started.
func Init() error { return Default().Init() }

// Create returns a new stream/IPv4/TCP handle.
func Create() (api.Handle, error) { return Default().Create() }

// Connect performs a blocking connect.
func Connect(h api.Handle, ep api.Endpoint) error { return Default().Connect(h, ep) }

// ConnectTimeout connects with a deadline of timeoutMillis; values <= 0
// block like Connect.
func ConnectTimeout(h api.Handle, ep api.Endpoint, timeoutMillis int) error {
	return Default().ConnectTimeout(h, ep, timeoutMillis)
}

// Bind binds h to ep.
func Bind(h api.Handle, ep api.Endpoint) error { return Default().Bind(h, ep) }

// BindAny binds h to any interface and an ephemeral port.
func BindAny(h api.Handle) error { return Default().BindAny(h) }

// Listen marks h passive.
func Listen(h api.Handle, backlog int) (bool, error) { return Default().Listen(h, backlog) }

// Accept waits for an incoming connection on h.
func Accept(h api.Handle) (api.Handle, api.Endpoint, error) { return Default().Accept(h) }

// LocalAddress returns the IPv4 address h is bound to, in host order.
func LocalAddress(h api.Handle) (uint32, error) { return Default().LocalAddress(h) }

// LocalPort returns the port h is bound to.
func LocalPort(h api.Handle) (uint16, error) { return Default().LocalPort(h) }

// RemoteAddress returns the IPv4 address of the connected peer, in host order.
func RemoteAddress(h api.Handle) (uint32, error) { return Default().RemoteAddress(h) }

// RemotePort returns the port of the connected peer.
func RemotePort(h api.Handle) (uint16, error) { return Default().RemotePort(h) }

// Send hands b to the kernel in one send call.
func Send(h api.Handle, b []byte) (int, error) { return Default().Send(h, b) }

// Recv reads into b in one receive call. 0 means orderly peer shutdown.
func Recv(h api.Handle, b []byte, peek bool) (int, error) { return Default().Recv(h, b, peek) }

// ShutdownInput disables further receives on h.
func ShutdownInput(h api.Handle) error { return Default().ShutdownInput(h) }

// ShutdownOutput disables further sends on h.
func ShutdownOutput(h api.Handle) error { return Default().ShutdownOutput(h) }

// Close releases h.
func Close(h api.Handle) error { return Default().Close(h) }
