// File: internal/platform/platform_windows.go
//go:build windows
// +build windows

//
// Winsock implementation over golang.org/x/sys/windows. Calls the x/sys
// package does not wrap (ioctlsocket, select, accept) go through lazy
// ws2_32.dll procs.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package platform

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"unsafe"

	"github.com/momentics/hiosock/api"
	"golang.org/x/sys/windows"
)

// Native WSAE* codes; these differ from the POSIX-style values Go invents.
const (
	wsaeIntr        windows.Errno = 10004
	wsaeInval       windows.Errno = 10022
	wsaeWouldBlock  windows.Errno = 10035
	wsaeInProgress  windows.Errno = 10036
	wsaeAlready     windows.Errno = 10037
	wsaeAFNoSupport windows.Errno = 10047
	wsaeNotConn     windows.Errno = 10057
)

const (
	fionbio       = 0x8004667e
	solSocket     = 0xffff
	soError       = 0x1007
	sdReceive     = 0
	sdSend        = 1
	msgPeek       = 0x2
	invalidSocket = ^uintptr(0)
	fdSetLimit    = 64
)

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procSelect      = modws2_32.NewProc("select")
	procAccept      = modws2_32.NewProc("accept")
)

// fdSet mirrors the Winsock fd_set: a counted array, not a bitmap.
type fdSet struct {
	count uint32
	array [fdSetLimit]windows.Handle
}

type windowsPlatform struct {
	mu          sync.Mutex
	initialized bool
}

var native api.Platform = &windowsPlatform{}

func (*windowsPlatform) Name() string { return "windows" }

// Init runs WSAStartup 2.2 once per process. A failed startup leaves the
// flag unset so a later call retries.
func (p *windowsPlatform) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	var data windows.WSAData
	if err := windows.WSAStartup(uint32(0x0202), &data); err != nil {
		return err
	}
	if byte(data.Version) != 2 || byte(data.Version>>8) != 2 {
		windows.WSACleanup()
		return fmt.Errorf("WSAStartup negotiated version %d.%d: %w", byte(data.Version), byte(data.Version>>8), api.ErrNotSupported)
	}
	p.initialized = true
	return nil
}

func (*windowsPlatform) Socket() (api.Handle, error) {
	s, err := windows.Socket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return api.InvalidHandle, err
	}
	return api.Handle(s), nil
}

func (*windowsPlatform) SetNonBlocking(h api.Handle, on bool) error {
	var mode uint32
	if on {
		mode = 1
	}
	r1, _, e1 := procIoctlsocket.Call(uintptr(h), uintptr(fionbio), uintptr(unsafe.Pointer(&mode)))
	if int32(r1) == -1 {
		return lastError(e1)
	}
	return nil
}

func (*windowsPlatform) Connect(h api.Handle, ep api.Endpoint) error {
	return windows.Connect(windows.Handle(h), toSockaddr(ep))
}

func (*windowsPlatform) InProgress(err error) bool {
	return errors.Is(err, wsaeWouldBlock) || errors.Is(err, wsaeInProgress) || errors.Is(err, wsaeAlready)
}

// WaitWritable selects on the write and exception sets. Winsock reports a
// failed non-blocking connect only in the exception set.
func (*windowsPlatform) WaitWritable(h api.Handle, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		wset := fdSet{count: 1}
		wset.array[0] = windows.Handle(h)
		eset := wset
		// Timeval fields are 32-bit here.
		tv := windows.NsecToTimeval(min(timeout, math.MaxInt32*time.Second).Nanoseconds())
		r1, _, e1 := procSelect.Call(0, 0,
			uintptr(unsafe.Pointer(&wset)),
			uintptr(unsafe.Pointer(&eset)),
			uintptr(unsafe.Pointer(&tv)))
		if int32(r1) == -1 {
			err := lastError(e1)
			if errors.Is(err, wsaeIntr) {
				if timeout = time.Until(deadline); timeout < 0 {
					timeout = 0
				}
				continue
			}
			return false, err
		}
		return wset.count > 0 || eset.count > 0, nil
	}
}

func (*windowsPlatform) PendingError(h api.Handle) (error, error) {
	v, err := windows.GetsockoptInt(windows.Handle(h), solSocket, soError)
	if err != nil {
		return nil, err
	}
	if v != 0 {
		return windows.Errno(v), nil
	}
	return nil, nil
}

func (*windowsPlatform) Bind(h api.Handle, ep api.Endpoint) error {
	return windows.Bind(windows.Handle(h), toSockaddr(ep))
}

func (*windowsPlatform) Listen(h api.Handle, backlog int) error {
	return windows.Listen(windows.Handle(h), backlog)
}

func (*windowsPlatform) Accept(h api.Handle) (api.Handle, api.Endpoint, error) {
	var rsa windows.RawSockaddrInet4
	size := int32(unsafe.Sizeof(rsa))
	r1, _, e1 := procAccept.Call(uintptr(h), uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&size)))
	if r1 == invalidSocket {
		return api.InvalidHandle, api.Endpoint{}, lastError(e1)
	}
	if rsa.Family != windows.AF_INET {
		windows.Closesocket(windows.Handle(r1))
		return api.InvalidHandle, api.Endpoint{}, wsaeAFNoSupport
	}
	port := portFromNetwork(*(*[2]byte)(unsafe.Pointer(&rsa.Port)))
	return api.Handle(r1), fromOctets(rsa.Addr, port), nil
}

func (*windowsPlatform) LocalEndpoint(h api.Handle) (api.Endpoint, error) {
	sa, err := windows.Getsockname(windows.Handle(h))
	if err != nil {
		return api.Endpoint{}, err
	}
	return fromSockaddr(sa)
}

func (*windowsPlatform) RemoteEndpoint(h api.Handle) (api.Endpoint, error) {
	sa, err := windows.Getpeername(windows.Handle(h))
	if err != nil {
		return api.Endpoint{}, err
	}
	return fromSockaddr(sa)
}

func (*windowsPlatform) Send(h api.Handle, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
	var sent uint32
	err := windows.WSASend(windows.Handle(h), &buf, 1, &sent, 0, nil, nil)
	return int(sent), err
}

func (*windowsPlatform) Recv(h api.Handle, b []byte, peek bool) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
	var recvd, flags uint32
	if peek {
		flags = msgPeek
	}
	if err := windows.WSARecv(windows.Handle(h), &buf, 1, &recvd, &flags, nil, nil); err != nil {
		return 0, err
	}
	return int(recvd), nil
}

func (*windowsPlatform) Shutdown(h api.Handle, dir api.Direction) error {
	how := sdReceive
	if dir == api.ShutdownWrite {
		how = sdSend
	}
	return windows.Shutdown(windows.Handle(h), how)
}

func (*windowsPlatform) NotConnected(err error) bool {
	return errors.Is(err, wsaeNotConn)
}

func (*windowsPlatform) Close(h api.Handle) error {
	return windows.Closesocket(windows.Handle(h))
}

func (*windowsPlatform) Errno(err error) int {
	return errnoOf(err)
}

// lastError normalizes the error returned by LazyProc.Call, which is the
// thread's last error (WSAGetLastError) and never nil.
func lastError(e error) error {
	var errno windows.Errno
	if errors.As(e, &errno) && errno != 0 {
		return errno
	}
	return wsaeInval
}

func toSockaddr(ep api.Endpoint) *windows.SockaddrInet4 {
	return &windows.SockaddrInet4{Port: int(ep.Port), Addr: toOctets(ep)}
}

func fromSockaddr(sa windows.Sockaddr) (api.Endpoint, error) {
	in4, ok := sa.(*windows.SockaddrInet4)
	if !ok {
		return api.Endpoint{}, fmt.Errorf("unexpected socket address %T: %w", sa, wsaeAFNoSupport)
	}
	return fromOctets(in4.Addr, in4.Port), nil
}
