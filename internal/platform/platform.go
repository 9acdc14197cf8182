// Package platform
// Author: momentics <momentics@gmail.com>
//
// Platform-independent helpers shared by the native implementations.

package platform

import (
	"errors"
	"syscall"

	"github.com/momentics/hiosock/api"
)

// Native returns the socket implementation for the host platform.
func Native() api.Platform {
	return native
}

// toOctets converts a host-order endpoint address to the network-order
// bytes carried in sockaddr_in. Every byte-order conversion in the module
// goes through this function and fromOctets.
func toOctets(ep api.Endpoint) [4]byte {
	return ep.Octets()
}

// fromOctets is the inverse of toOctets. The port arrives from x/sys
// already converted to host order.
func fromOctets(addr [4]byte, port int) api.Endpoint {
	return api.NewEndpoint(addr[0], addr[1], addr[2], addr[3], uint16(port))
}

// portFromNetwork decodes a sin_port read straight out of a raw sockaddr.
func portFromNetwork(p [2]byte) int {
	return int(p[0])<<8 | int(p[1])
}

// errnoOf extracts the platform error number, 0 if err carries none.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
