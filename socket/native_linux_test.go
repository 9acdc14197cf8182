package socket

import (
	"errors"
	"testing"
	"time"

	"github.com/momentics/hiosock/api"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

// TestConnectTimeoutElapsesOnFullBacklog fills a zero-backlog listener that
// never accepts. Once its queue is full the kernel drops further SYNs, so
// the next connect hangs until the timeout fires.
func TestConnectTimeoutElapsesOnFullBacklog(t *testing.T) {
	l := nativeLayer()
	_, port := listener(t, l, 0)
	ep := api.Endpoint{Addr: api.LoopbackAddr, Port: port}

	for i := 0; i < 16; i++ {
		h := create(t, l)
		start := time.Now()
		err := l.ConnectTimeout(h, ep, 200)
		elapsed := time.Since(start)
		if err == nil {
			continue
		}
		assert.Assert(t, errors.Is(err, api.ConnectionTimeoutError), "attempt %d: %v", i, err)
		assert.Check(t, elapsed >= 150*time.Millisecond, "timed out after %s", elapsed)
		assert.Check(t, elapsed <= 500*time.Millisecond, "timed out after %s", elapsed)

		flags, err := unix.FcntlInt(uintptr(h), unix.F_GETFL, 0)
		assert.NilError(t, err)
		assert.Check(t, flags&unix.O_NONBLOCK == 0, "handle left non-blocking")
		return
	}
	t.Skip("kernel accepted every connect; backlog overflow not observable")
}
