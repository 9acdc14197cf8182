// File: socket/connect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking connect and connect-with-timeout. BSD sockets have no connect
// deadline, so the timed variant starts a non-blocking connect, puts the
// handle back into blocking mode and waits for writability.

package socket

import (
	"fmt"
	"math"
	"time"

	"github.com/momentics/hiosock/api"
)

// Connect performs a blocking connect to ep.
func (l *Layer) Connect(h api.Handle, ep api.Endpoint) (err error) {
	defer l.track(opConnect, time.Now(), &err)
	return l.connect(h, ep)
}

func (l *Layer) connect(h api.Handle, ep api.Endpoint) error {
	if err := l.p.Connect(h, ep); err != nil {
		return l.fail(api.ConnectionError, "connect", &ep, err)
	}
	return nil
}

// maxTimeoutMillis is the longest timeout a time.Duration can carry.
const maxTimeoutMillis = math.MaxInt64 / int64(time.Millisecond)

// ConnectTimeout connects h to ep, giving up after timeoutMillis. A timeout
// of zero or less is a plain blocking Connect. Timeouts beyond what a
// time.Duration holds are clamped, not wrapped.
func (l *Layer) ConnectTimeout(h api.Handle, ep api.Endpoint, timeoutMillis int) error {
	ms := int64(timeoutMillis)
	if ms > maxTimeoutMillis {
		ms = maxTimeoutMillis
	}
	return l.ConnectWithin(h, ep, time.Duration(ms)*time.Millisecond)
}

// ConnectWithin is ConnectTimeout with a time.Duration. The handle is in
// blocking mode whenever this returns, except when restoring the mode is
// itself the failure reported.
func (l *Layer) ConnectWithin(h api.Handle, ep api.Endpoint, timeout time.Duration) (err error) {
	if timeout <= 0 {
		return l.Connect(h, ep)
	}
	defer l.track(opConnectTimeout, time.Now(), &err)

	if err := l.p.SetNonBlocking(h, true); err != nil {
		return l.fail(api.IOError, "set non-blocking mode", nil, err)
	}

	cerr := l.p.Connect(h, ep)
	if cerr != nil && !l.p.InProgress(cerr) {
		// The connect failure wins over a failed restore.
		_ = l.p.SetNonBlocking(h, false)
		return l.fail(api.ConnectionError, "connect", &ep, cerr)
	}

	// Blocking mode goes back before the wait.
	if err := l.p.SetNonBlocking(h, false); err != nil {
		return l.fail(api.IOError, "set blocking mode", nil, err)
	}
	if cerr == nil {
		return nil
	}

	ready, err := l.p.WaitWritable(h, timeout)
	if err != nil {
		return l.fail(api.IOError, "select", nil, err)
	}
	if !ready {
		return l.fail(api.ConnectionTimeoutError, "connect", &ep,
			fmt.Errorf("%w after %s", api.ErrTimeout, timeout))
	}

	// A refused connect also turns writable; SO_ERROR tells them apart.
	pending, err := l.p.PendingError(h)
	if err != nil {
		return l.fail(api.IOError, "getsockopt SO_ERROR", nil, err)
	}
	if pending != nil {
		return l.fail(api.ConnectionError, "connect", &ep, pending)
	}
	return nil
}
