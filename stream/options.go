// File: stream/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"github.com/momentics/hiosock/control"
	"github.com/momentics/hiosock/resolve"
	"github.com/momentics/hiosock/socket"
)

// Option customizes dialing and listening.
type Option func(*options)

type options struct {
	layer      *socket.Layer
	bufferSize int
	resolver   *resolve.Resolver
}

func newOptions(opts []Option) options {
	o := options{bufferSize: control.DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.layer == nil {
		o.layer = socket.Default()
	}
	if o.resolver == nil {
		o.resolver = &resolve.Resolver{}
	}
	return o
}

// WithLayer runs the stream over l instead of the native default.
func WithLayer(l *socket.Layer) Option {
	return func(o *options) {
		o.layer = l
	}
}

// WithBufferSize caps the bytes handed to one send or receive call.
// Non-positive values keep the default.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithResolver sets the resolver DialHost uses.
func WithResolver(r *resolve.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithConfig applies buffer size and nameserver from cfg.
func WithConfig(cfg control.Config) Option {
	return func(o *options) {
		if cfg.BufferSize > 0 {
			o.bufferSize = cfg.BufferSize
		}
		o.resolver = &resolve.Resolver{Nameserver: cfg.Nameserver}
	}
}
