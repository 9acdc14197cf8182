// internal/platform/wait_unix.go
//go:build unix

//
// Author: momentics <momentics@gmail.com>
//
// Writability multiplexing for the connect-with-timeout protocol.

package platform

import (
	"math"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdSetSize is FD_SETSIZE for the host libc layout.
var fdSetSize = len(unix.FdSet{}.Bits) * 8 * int(unsafe.Sizeof(unix.FdSet{}.Bits[0]))

// maxSelectWait is the longest timeval every unix select(2) accepts;
// Darwin rejects more than 1e8 seconds with EINVAL.
const maxSelectWait = 100000000 * time.Second

// pollMillis converts d to a poll(2) timeout, rounding up so a positive
// wait never becomes a zero-timeout poll.
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

// waitWritable selects on fd for writability. The timeout is handed to the
// kernel as seconds+microseconds. select(2) is never restarted after a
// signal, so EINTR re-arms the wait with the remaining time.
func waitWritable(fd int, timeout time.Duration) (bool, error) {
	if fd >= fdSetSize {
		return pollWritable(fd, timeout)
	}
	deadline := time.Now().Add(timeout)
	for {
		var wset unix.FdSet
		wset.Zero()
		wset.Set(fd)
		tv := unix.NsecToTimeval(min(timeout, maxSelectWait).Nanoseconds())
		n, err := unix.Select(fd+1, nil, &wset, nil, &tv)
		if err == unix.EINTR {
			if timeout = time.Until(deadline); timeout < 0 {
				timeout = 0
			}
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && wset.IsSet(fd), nil
	}
}

// pollWritable covers descriptors that do not fit in an fd_set.
func pollWritable(fd int, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, pollMillis(timeout))
		if err == unix.EINTR {
			if timeout = time.Until(deadline); timeout < 0 {
				timeout = 0
			}
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0 && fds[0].Revents&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) != 0, nil
	}
}
