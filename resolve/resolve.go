// File: resolve/resolve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package resolve

import (
	"context"
	"encoding/binary"
	"net"
	"strings"
	"time"

	"github.com/containerd/log"
	"github.com/miekg/dns"
	"github.com/momentics/hiosock/api"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single lookup when the Resolver sets none.
const DefaultTimeout = 5 * time.Second

// ErrUnknownHost is returned when a name has no IPv4 address.
var ErrUnknownHost = errors.New("unknown host")

// Resolver looks up IPv4 addresses. The zero value uses the system resolver.
type Resolver struct {
	// Nameserver is "a.b.c.d" or "a.b.c.d:port". Empty means the system
	// resolver.
	Nameserver string
	Timeout    time.Duration
}

// IPv4ForName resolves name with the system resolver and returns 0 when
// that fails.
func IPv4ForName(name string) uint32 {
	return (&Resolver{}).IPv4ForName(name)
}

// IPv4ForName is the best-effort form of Lookup: 0 on any failure.
func (r *Resolver) IPv4ForName(name string) uint32 {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()
	addr, err := r.Lookup(ctx, name)
	if err != nil {
		log.G(ctx).WithError(err).WithField("name", name).Debug("resolve failed")
		return 0
	}
	return addr
}

// Lookup returns the first IPv4 address of name. Dotted quads are parsed
// without a query.
func (r *Resolver) Lookup(ctx context.Context, name string) (uint32, error) {
	if addr, err := api.ParseAddr(name); err == nil {
		return addr, nil
	}
	if name == "" {
		return 0, errors.Wrap(ErrUnknownHost, "empty name")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout())
		defer cancel()
	}
	if r.Nameserver == "" {
		return lookupSystem(ctx, name)
	}
	ns, err := ParseNameserver(r.Nameserver)
	if err != nil {
		return 0, err
	}
	return lookupDNS(ctx, ns, name)
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// ParseNameserver accepts "a.b.c.d" (port 53) or "a.b.c.d:port".
func ParseNameserver(s string) (api.Endpoint, error) {
	if !strings.Contains(s, ":") {
		addr, err := api.ParseAddr(s)
		if err != nil {
			return api.Endpoint{}, errors.Wrapf(err, "nameserver %q", s)
		}
		return api.Endpoint{Addr: addr, Port: 53}, nil
	}
	ep, err := api.ParseEndpoint(s)
	if err != nil {
		return api.Endpoint{}, errors.Wrapf(err, "nameserver %q", s)
	}
	return ep, nil
}

func lookupSystem(ctx context.Context, name string) (uint32, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", name)
	if err != nil {
		return 0, errors.Wrapf(ErrUnknownHost, "%s: %v", name, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return binary.BigEndian.Uint32(ip4), nil
		}
	}
	return 0, errors.Wrap(ErrUnknownHost, name)
}

func lookupDNS(ctx context.Context, ns api.Endpoint, name string) (uint32, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.RecursionDesired = true

	c := new(dns.Client)
	in, rtt, err := c.ExchangeContext(ctx, m, ns.String())
	if err != nil {
		return 0, errors.Wrapf(err, "query %s for %s", ns, name)
	}
	log.G(ctx).WithFields(log.Fields{
		"name":       name,
		"nameserver": ns.String(),
		"rcode":      dns.RcodeToString[in.Rcode],
		"rtt":        rtt,
	}).Debug("dns answer")

	if in.Rcode != dns.RcodeSuccess {
		return 0, errors.Wrapf(ErrUnknownHost, "%s: %s", name, dns.RcodeToString[in.Rcode])
	}
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			if ip4 := a.A.To4(); ip4 != nil {
				return binary.BigEndian.Uint32(ip4), nil
			}
		}
	}
	return 0, errors.Wrapf(ErrUnknownHost, "%s: no A record", name)
}
