// internal/platform/platform_unix.go
//go:build unix

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BSD sockets implementation (Linux, macOS, BSDs) over golang.org/x/sys/unix.

package platform

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/hiosock/api"
	"golang.org/x/sys/unix"
)

type unixPlatform struct{}

var native api.Platform = unixPlatform{}

func (unixPlatform) Name() string { return "unix" }

// Init is a no-op: BSD sockets need no subsystem startup.
func (unixPlatform) Init() error { return nil }

func (unixPlatform) Socket() (api.Handle, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return api.InvalidHandle, err
	}
	unix.CloseOnExec(fd)
	return api.Handle(fd), nil
}

func (unixPlatform) SetNonBlocking(h api.Handle, on bool) error {
	return unix.SetNonblock(int(h), on)
}

func (unixPlatform) Connect(h api.Handle, ep api.Endpoint) error {
	return unix.Connect(int(h), toSockaddr(ep))
}

// InProgress treats EINTR like EINPROGRESS: an interrupted connect keeps
// going asynchronously in the kernel.
func (unixPlatform) InProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS) || errors.Is(err, unix.EALREADY) || errors.Is(err, unix.EINTR)
}

func (unixPlatform) WaitWritable(h api.Handle, timeout time.Duration) (bool, error) {
	return waitWritable(int(h), timeout)
}

func (unixPlatform) PendingError(h api.Handle) (error, error) {
	v, err := unix.GetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return nil, err
	}
	if v != 0 {
		return unix.Errno(v), nil
	}
	return nil, nil
}

func (unixPlatform) Bind(h api.Handle, ep api.Endpoint) error {
	return unix.Bind(int(h), toSockaddr(ep))
}

func (unixPlatform) Listen(h api.Handle, backlog int) error {
	return unix.Listen(int(h), backlog)
}

func (unixPlatform) Accept(h api.Handle) (api.Handle, api.Endpoint, error) {
	var (
		nfd int
		sa  unix.Sockaddr
		err error
	)
	for {
		nfd, sa, err = unix.Accept(int(h))
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return api.InvalidHandle, api.Endpoint{}, err
	}
	unix.CloseOnExec(nfd)
	ep, err := fromSockaddr(sa)
	if err != nil {
		_ = unix.Close(nfd)
		return api.InvalidHandle, api.Endpoint{}, err
	}
	return api.Handle(nfd), ep, nil
}

func (unixPlatform) LocalEndpoint(h api.Handle) (api.Endpoint, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return api.Endpoint{}, err
	}
	return fromSockaddr(sa)
}

func (unixPlatform) RemoteEndpoint(h api.Handle) (api.Endpoint, error) {
	sa, err := unix.Getpeername(int(h))
	if err != nil {
		return api.Endpoint{}, err
	}
	return fromSockaddr(sa)
}

func (unixPlatform) Send(h api.Handle, b []byte) (int, error) {
	for {
		n, err := unix.SendmsgN(int(h), b, nil, nil, sendFlags)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (unixPlatform) Recv(h api.Handle, b []byte, peek bool) (int, error) {
	flags := 0
	if peek {
		flags = unix.MSG_PEEK
	}
	for {
		n, _, err := unix.Recvfrom(int(h), b, flags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (unixPlatform) Shutdown(h api.Handle, dir api.Direction) error {
	how := unix.SHUT_RD
	if dir == api.ShutdownWrite {
		how = unix.SHUT_WR
	}
	return unix.Shutdown(int(h), how)
}

func (unixPlatform) NotConnected(err error) bool {
	return errors.Is(err, unix.ENOTCONN)
}

func (unixPlatform) Close(h api.Handle) error {
	return unix.Close(int(h))
}

func (unixPlatform) Errno(err error) int {
	return errnoOf(err)
}

func toSockaddr(ep api.Endpoint) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(ep.Port), Addr: toOctets(ep)}
}

func fromSockaddr(sa unix.Sockaddr) (api.Endpoint, error) {
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return api.Endpoint{}, fmt.Errorf("unexpected socket address %T: %w", sa, unix.EAFNOSUPPORT)
	}
	return fromOctets(in4.Addr, in4.Port), nil
}
