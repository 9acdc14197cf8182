package socket

import (
	"errors"
	"syscall"
	"testing"

	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/control"
	"github.com/momentics/hiosock/fake"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestCreateFailures(t *testing.T) {
	p := fake.NewPlatform()
	l := New(p)

	p.Fail(fake.OpInit, syscall.EPROTONOSUPPORT)
	_, err := l.Create()
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.ErrorContains(err, "init"))

	p.Fail(fake.OpSocket, syscall.EMFILE)
	h, err := l.Create()
	assert.Check(t, errors.Is(err, api.SocketCreationError))
	assert.Check(t, is.Equal(h, api.InvalidHandle))
	assert.Check(t, is.Equal(api.ErrnoOf(err), int(syscall.EMFILE)))

	h, err = l.Create()
	assert.NilError(t, err)
	assert.Check(t, h != api.InvalidHandle)
}

func TestBindReportsEndpoint(t *testing.T) {
	l, p, h := newFakeLayer(t)
	ep := api.NewEndpoint(127, 0, 0, 1, 80)
	p.Fail(fake.OpBind, syscall.EACCES)

	err := l.Bind(h, ep)
	assert.Check(t, errors.Is(err, api.BindError))
	assert.Check(t, is.ErrorContains(err, "BindError: bind 127.0.0.1:80: system error 13"))

	assert.NilError(t, l.Bind(h, ep))
	local, err := l.LocalEndpoint(h)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(local, ep))
}

func TestBindAnyAssignsPort(t *testing.T) {
	l, _, h := newFakeLayer(t)
	assert.NilError(t, l.BindAny(h))

	addr, err := l.LocalAddress(h)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(addr, api.AnyAddr))
	port, err := l.LocalPort(h)
	assert.NilError(t, err)
	assert.Check(t, port != 0)
}

func TestListenAndAccept(t *testing.T) {
	l, p, h := newFakeLayer(t)
	assert.NilError(t, l.BindAny(h))

	p.Fail(fake.OpListen, syscall.EADDRINUSE)
	ok, err := l.Listen(h, 5)
	assert.Check(t, !ok)
	assert.Check(t, errors.Is(err, api.IOError))

	ok, err = l.Listen(h, 5)
	assert.NilError(t, err)
	assert.Check(t, ok)

	peer := api.NewEndpoint(192, 168, 1, 7, 51000)
	p.Script(fake.OpAccept, fake.Outcome{Endpoint: peer})
	nh, got, err := l.Accept(h)
	assert.NilError(t, err)
	assert.Check(t, nh != h)
	assert.Check(t, is.Equal(got, peer))

	raddr, err := l.RemoteAddress(nh)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(raddr, peer.Addr))
	rport, err := l.RemotePort(nh)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(rport, peer.Port))

	p.Fail(fake.OpAccept, syscall.EINVAL)
	_, _, err = l.Accept(h)
	assert.Check(t, errors.Is(err, api.IOError))
}

func TestEndpointQueriesFailIndependently(t *testing.T) {
	l, p, h := newFakeLayer(t)

	_, err := l.RemotePort(h)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.ErrorContains(err, "getpeername"))

	p.Fail(fake.OpLocal, syscall.EBADF)
	_, err = l.LocalPort(h)
	assert.Check(t, is.ErrorContains(err, "getsockname"))
	_, err = l.LocalPort(h)
	assert.NilError(t, err)
}

func TestSendRecvPeek(t *testing.T) {
	l, p, h := newFakeLayer(t)
	p.Feed(h, []byte("hello world"))

	buf := make([]byte, 5)
	n, err := l.Recv(h, buf, true)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(buf[:n]), "hello"))
	n, err = l.Recv(h, buf, false)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(buf[:n]), "hello"))

	p.Script(fake.OpSend, fake.Outcome{N: 3})
	n, err = l.Send(h, []byte("abcdef"))
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 3))
	assert.Check(t, is.Equal(string(p.Sent(h)), "abc"))

	p.Fail(fake.OpSend, syscall.EPIPE)
	_, err = l.Send(h, []byte("x"))
	assert.Check(t, errors.Is(err, api.IOError))
	p.Fail(fake.OpRecv, syscall.ECONNRESET)
	_, err = l.Recv(h, buf, false)
	assert.Check(t, errors.Is(err, syscall.ECONNRESET))
}

func TestShutdownSwallowsNotConnected(t *testing.T) {
	l, p, h := newFakeLayer(t)
	for i := 0; i < 2; i++ {
		assert.NilError(t, l.ShutdownInput(h))
		assert.NilError(t, l.ShutdownOutput(h))
	}

	p.Fail(fake.OpShutdown, syscall.EBADF)
	err := l.ShutdownOutput(h)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.ErrorContains(err, "shutdown output"))
}

func TestCloseTwiceReports(t *testing.T) {
	l, p, h := newFakeLayer(t)
	assert.NilError(t, l.Close(h))
	assert.Check(t, p.IsClosed(h))

	err := l.Close(h)
	assert.Check(t, errors.Is(err, api.IOError))
	assert.Check(t, is.Equal(api.ErrnoOf(err), int(syscall.EBADF)))
}

func TestFailuresAreRecorded(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	m := control.NewMetrics()

	p := fake.NewPlatform()
	l := New(p, WithLogger(logrus.NewEntry(logger)), WithMetrics(m))
	h, err := l.Create()
	assert.NilError(t, err)

	p.Fail(fake.OpBind, syscall.EADDRINUSE)
	ep := api.NewEndpoint(127, 0, 0, 1, 9000)
	assert.Check(t, l.Bind(h, ep) != nil)
	assert.NilError(t, l.Bind(h, ep))

	entry := hook.LastEntry()
	assert.Assert(t, entry != nil)
	assert.Check(t, is.Equal(entry.Level, logrus.DebugLevel))
	assert.Check(t, is.Equal(entry.Data["op"], "bind"))
	assert.Check(t, is.Equal(entry.Data["category"], "BindError"))
	assert.Check(t, is.Equal(entry.Data["endpoint"], "127.0.0.1:9000"))
	assert.Check(t, is.Equal(entry.Data["code"], int(syscall.EADDRINUSE)))
	assert.Check(t, is.Equal(entry.Data["platform"], "fake"))

	snap := m.Snapshot()
	assert.Check(t, is.Equal(snap["ops.create"], int64(1)))
	assert.Check(t, is.Equal(snap["ops.bind"], int64(2)))
	assert.Check(t, is.Equal(snap["failures.bind.BindError"], int64(1)))
}
