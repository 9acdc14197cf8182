// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants: socket handles,
// IPv4 endpoints and half-close directions.

package api

import (
	"fmt"
	"net/netip"
	"strconv"
)

// Handle is an opaque platform socket identifier: a file descriptor on
// unix, a SOCKET on Windows. The caller owns it.
type Handle uintptr

// InvalidHandle is distinct from every valid handle. It is -1 as a file
// descriptor and INVALID_SOCKET (~0) on Windows.
const InvalidHandle = ^Handle(0)

// Well-known IPv4 addresses in host byte order.
const (
	AnyAddr      uint32 = 0
	LoopbackAddr uint32 = 0x7f000001
)

// Endpoint is an IPv4 address and TCP port, both in host byte order.
type Endpoint struct {
	Addr uint32
	Port uint16
}

// NewEndpoint builds an endpoint from dotted-quad octets.
func NewEndpoint(a, b, c, d byte, port uint16) Endpoint {
	return Endpoint{Addr: uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d), Port: port}
}

// String renders the endpoint as "a.b.c.d:port".
func (e Endpoint) String() string {
	return FormatAddr(e.Addr) + ":" + strconv.Itoa(int(e.Port))
}

// IsAny reports whether the address is the wildcard address.
func (e Endpoint) IsAny() bool { return e.Addr == AnyAddr }

// AddrPort converts the endpoint to a netip.AddrPort.
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(e.Octets()), e.Port)
}

// Octets returns the address in network byte order.
func (e Endpoint) Octets() [4]byte {
	return [4]byte{byte(e.Addr >> 24), byte(e.Addr >> 16), byte(e.Addr >> 8), byte(e.Addr)}
}

// FormatAddr renders a host-order IPv4 address in dotted-decimal form.
func FormatAddr(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}

// ParseAddr parses a dotted-decimal IPv4 address into host byte order.
func ParseAddr(s string) (uint32, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !ip.Is4() {
		return 0, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidArgument, s)
	}
	o := ip.As4()
	return uint32(o[0])<<24 | uint32(o[1])<<16 | uint32(o[2])<<8 | uint32(o[3]), nil
}

// ParseEndpoint parses "a.b.c.d:port".
func ParseEndpoint(s string) (Endpoint, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if !ap.Addr().Is4() {
		return Endpoint{}, fmt.Errorf("%w: %s is not an IPv4 endpoint", ErrInvalidArgument, s)
	}
	o := ap.Addr().As4()
	return NewEndpoint(o[0], o[1], o[2], o[3], ap.Port()), nil
}

// Direction selects which half of a stream a shutdown closes.
type Direction int

const (
	ShutdownRead Direction = iota
	ShutdownWrite
)

func (d Direction) String() string {
	switch d {
	case ShutdownRead:
		return "input"
	case ShutdownWrite:
		return "output"
	default:
		return "unknown"
	}
}
