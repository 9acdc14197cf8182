package socket

import (
	"errors"
	"math"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/fake"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/skip"
)

var target = api.NewEndpoint(10, 1, 2, 3, 8080)

func newFakeLayer(t *testing.T) (*Layer, *fake.Platform, api.Handle) {
	t.Helper()
	p := fake.NewPlatform()
	l := New(p)
	h, err := l.Create()
	assert.NilError(t, err)
	return l, p, h
}

// opsAfterCreate drops the init/socket calls Create makes.
func opsAfterCreate(p *fake.Platform) []string {
	return p.Ops()[2:]
}

func TestConnectTimeoutNonPositiveIsPlainConnect(t *testing.T) {
	for _, timeout := range []int{0, -1, -1000} {
		l, p, h := newFakeLayer(t)
		assert.NilError(t, l.ConnectTimeout(h, target, timeout))
		assert.DeepEqual(t, opsAfterCreate(p), []string{fake.OpConnect})

		l, p, h = newFakeLayer(t)
		p.Fail(fake.OpConnect, syscall.ECONNREFUSED)
		err := l.ConnectTimeout(h, target, timeout)
		assert.Check(t, errors.Is(err, api.ConnectionError))

		lc, pc, hc := newFakeLayer(t)
		pc.Fail(fake.OpConnect, syscall.ECONNREFUSED)
		errc := lc.Connect(hc, target)
		assert.Equal(t, err.Error(), errc.Error())
	}
}

func TestConnectTimeoutInProgressThenWritable(t *testing.T) {
	l, p, h := newFakeLayer(t)

	assert.NilError(t, l.ConnectTimeout(h, target, 250))
	assert.Check(t, !p.IsNonBlocking(h))

	want := []fake.Call{
		{Op: fake.OpSetNonBlocking, Handle: h, Arg: true},
		{Op: fake.OpConnect, Handle: h, Arg: target},
		{Op: fake.OpSetNonBlocking, Handle: h, Arg: false},
		{Op: fake.OpWait, Handle: h, Arg: 250 * time.Millisecond},
		{Op: fake.OpPendingError, Handle: h},
	}
	if diff := cmp.Diff(want, p.Calls()[2:]); diff != "" {
		t.Fatalf("call sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectTimeoutImmediateSuccessSkipsWait(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Script(fake.OpConnect, fake.Outcome{})

	assert.NilError(t, l.ConnectTimeout(h, target, 250))
	assert.DeepEqual(t, opsAfterCreate(p), []string{fake.OpSetNonBlocking, fake.OpConnect, fake.OpSetNonBlocking})
	assert.Check(t, !p.IsNonBlocking(h))
}

func TestConnectTimeoutModeSwitchFails(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Fail(fake.OpSetNonBlocking, syscall.EBADF)

	err := l.ConnectTimeout(h, target, 250)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.Equal(api.ErrnoOf(err), int(syscall.EBADF)))
	assert.Check(t, is.ErrorContains(err, "set non-blocking mode"))
	assert.DeepEqual(t, opsAfterCreate(p), []string{fake.OpSetNonBlocking})
}

func TestConnectTimeoutRefusedRestoresBlocking(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Fail(fake.OpConnect, syscall.ECONNREFUSED)

	err := l.ConnectTimeout(h, target, 250)
	assert.Check(t, errors.Is(err, api.ConnectionError))
	assert.Check(t, errors.Is(err, syscall.ECONNREFUSED))
	assert.Check(t, is.ErrorContains(err, "connect 10.1.2.3:8080"))
	assert.DeepEqual(t, opsAfterCreate(p), []string{fake.OpSetNonBlocking, fake.OpConnect, fake.OpSetNonBlocking})
	assert.Check(t, !p.IsNonBlocking(h))
}

func TestConnectTimeoutRefusedIgnoresRestoreFailure(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Fail(fake.OpConnect, syscall.ENETUNREACH)
	p.Script(fake.OpSetNonBlocking, fake.Outcome{}, fake.Outcome{Err: syscall.EBADF})

	err := l.ConnectTimeout(h, target, 250)
	assert.Check(t, errors.Is(err, api.ConnectionError))
	assert.Check(t, is.Equal(api.ErrnoOf(err), int(syscall.ENETUNREACH)))
}

func TestConnectTimeoutRestoreFails(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Script(fake.OpSetNonBlocking, fake.Outcome{}, fake.Outcome{Err: syscall.EBADF})

	err := l.ConnectTimeout(h, target, 250)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.ErrorContains(err, "set blocking mode"))
	assert.DeepEqual(t, opsAfterCreate(p), []string{fake.OpSetNonBlocking, fake.OpConnect, fake.OpSetNonBlocking})
}

func TestConnectTimeoutWaitFails(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Fail(fake.OpWait, syscall.EINVAL)

	err := l.ConnectTimeout(h, target, 250)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.ErrorContains(err, "select"))
	assert.Check(t, !p.IsNonBlocking(h))
}

func TestConnectTimeoutElapses(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Script(fake.OpWait, fake.Outcome{Ready: false})

	err := l.ConnectTimeout(h, target, 200)
	assert.Check(t, errors.Is(err, api.ConnectionTimeoutError))
	assert.Check(t, errors.Is(err, api.ErrTimeout))
	assert.Check(t, is.Equal(api.ErrnoOf(err), 0))

	var se *api.SocketError
	assert.Assert(t, errors.As(err, &se))
	assert.Check(t, se.Timeout())
	assert.Check(t, is.Equal(*se.Endpoint, target))
	assert.Check(t, is.ErrorContains(err, "ConnectionTimeoutError: connect 10.1.2.3:8080"))
	assert.Check(t, !p.IsNonBlocking(h))
}

func TestConnectTimeoutPendingError(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Script(fake.OpPendingError, fake.Outcome{Pending: syscall.ECONNREFUSED})

	err := l.ConnectTimeout(h, target, 200)
	assert.Check(t, errors.Is(err, api.ConnectionError))
	assert.Check(t, is.Equal(api.ErrnoOf(err), int(syscall.ECONNREFUSED)))
}

func TestConnectTimeoutPendingQueryFails(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Fail(fake.OpPendingError, syscall.ENOTSOCK)

	err := l.ConnectTimeout(h, target, 200)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.ErrorContains(err, "SO_ERROR"))
}

// waitArg returns the timeout handed to the platform wait.
func waitArg(t *testing.T, p *fake.Platform) time.Duration {
	t.Helper()
	for _, c := range p.Calls() {
		if c.Op == fake.OpWait {
			return c.Arg.(time.Duration)
		}
	}
	t.Fatal("no wait recorded")
	return 0
}

func TestConnectTimeoutHugeDeadlineIsClamped(t *testing.T) {
	skip.If(t, strconv.IntSize < 64, "int cannot hold these timeouts")
	longest := time.Duration(maxTimeoutMillis) * time.Millisecond
	for _, millis := range []int64{18446744073710, maxTimeoutMillis + 1, math.MaxInt64} {
		l, p, h := newFakeLayer(t)
		assert.NilError(t, l.ConnectTimeout(h, target, int(millis)))
		assert.Check(t, is.Contains(opsAfterCreate(p), fake.OpSetNonBlocking), "millis=%d", millis)
		assert.Check(t, is.Equal(waitArg(t, p), longest), "millis=%d", millis)
	}

	l, p, h := newFakeLayer(t)
	exact := maxTimeoutMillis
	assert.NilError(t, l.ConnectTimeout(h, target, int(exact)))
	assert.Check(t, is.Equal(waitArg(t, p), longest))
}
