package stream

import (
	"bytes"
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/momentics/hiosock/api"
	"github.com/momentics/hiosock/fake"
	"github.com/momentics/hiosock/socket"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func fakeConn(t *testing.T, bufSize int) (*Conn, *fake.Platform) {
	t.Helper()
	p := fake.NewPlatform()
	c, err := Dial(api.NewEndpoint(10, 0, 0, 1, 80), time.Second,
		WithLayer(socket.New(p)), WithBufferSize(bufSize))
	assert.NilError(t, err)
	return c, p
}

func count(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestDialRecordsEndpoints(t *testing.T) {
	c, p := fakeConn(t, 0)
	assert.Check(t, is.Equal(c.RemoteEndpoint().String(), "10.0.0.1:80"))
	assert.Check(t, c.LocalEndpoint().Port != 0)
	assert.Check(t, !p.IsNonBlocking(c.Handle()))
}

func TestDialClosesHandleOnFailure(t *testing.T) {
	p := fake.NewPlatform()
	p.Fail(fake.OpConnect, syscall.ECONNREFUSED)
	_, err := Dial(api.NewEndpoint(10, 0, 0, 1, 80), time.Second, WithLayer(socket.New(p)))
	assert.Check(t, errors.Is(err, api.ConnectionError))
	assert.Check(t, is.Equal(count(p.Ops(), fake.OpClose), 1))

	p = fake.NewPlatform()
	p.Fail(fake.OpBind, syscall.EADDRINUSE)
	_, err = DialLocal(api.NewEndpoint(10, 0, 0, 1, 80), api.NewEndpoint(127, 0, 0, 1, 4000), 0, WithLayer(socket.New(p)))
	assert.Check(t, errors.Is(err, api.BindError))
	assert.Check(t, is.Equal(count(p.Ops(), fake.OpConnect), 0))
	assert.Check(t, is.Equal(count(p.Ops(), fake.OpClose), 1))
}

func TestWriteChunksByBufferSize(t *testing.T) {
	c, p := fakeConn(t, 4)
	payload := []byte("0123456789")

	n, err := c.Write(payload)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, len(payload)))
	assert.Check(t, is.Equal(string(p.Sent(c.Handle())), string(payload)))

	var sizes []int
	for _, call := range p.Calls() {
		if call.Op == fake.OpSend {
			sizes = append(sizes, call.Arg.(int))
		}
	}
	assert.Check(t, is.DeepEqual(sizes, []int{4, 4, 2}))
}

func TestWriteContinuesAfterShortSend(t *testing.T) {
	c, p := fakeConn(t, 0)
	p.Script(fake.OpSend, fake.Outcome{N: 3}, fake.Outcome{N: 2})

	n, err := c.Write([]byte("abcdefgh"))
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 8))
	assert.Check(t, is.Equal(string(p.Sent(c.Handle())), "abcdefgh"))

	p.Fail(fake.OpSend, syscall.EPIPE)
	n, err = c.Write([]byte("x"))
	assert.Check(t, is.Equal(n, 0))
	assert.Check(t, errors.Is(err, api.IOError))
}

func TestReadPeekAndEOF(t *testing.T) {
	c, p := fakeConn(t, 0)
	p.Feed(c.Handle(), []byte("hello"))

	buf := make([]byte, 3)
	n, err := c.Peek(buf)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(buf[:n]), "hel"))

	got, err := io.ReadAll(c)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(got), "hello"))

	_, err = c.Read(buf)
	assert.Check(t, is.Equal(err, io.EOF))
}

func TestReadCappedByBufferSize(t *testing.T) {
	c, p := fakeConn(t, 2)
	p.Feed(c.Handle(), []byte("abcdef"))

	n, err := c.Read(make([]byte, 64))
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 2))
}

func TestHalfCloseOnce(t *testing.T) {
	c, p := fakeConn(t, 0)
	for i := 0; i < 3; i++ {
		assert.NilError(t, c.CloseRead())
		assert.NilError(t, c.CloseWrite())
	}
	assert.Check(t, is.Equal(count(p.Ops(), fake.OpShutdown), 2))

	_, err := c.Read(make([]byte, 1))
	assert.Check(t, is.Equal(err, io.EOF))
	_, err = c.Write([]byte("x"))
	assert.Check(t, errors.Is(err, api.ErrClosed))
}

func TestCloseOnce(t *testing.T) {
	c, p := fakeConn(t, 0)
	assert.NilError(t, c.Close())
	assert.NilError(t, c.Close())
	assert.Check(t, is.Equal(count(p.Ops(), fake.OpClose), 1))
	assert.Check(t, p.IsClosed(c.Handle()))

	_, err := c.Write([]byte("x"))
	assert.Check(t, errors.Is(err, api.ErrClosed))
	_, err = c.Read(make([]byte, 1))
	assert.Check(t, errors.Is(err, api.ErrClosed))
	assert.NilError(t, c.CloseWrite())
}

func TestListenerOverFake(t *testing.T) {
	p := fake.NewPlatform()
	ln, err := Listen(api.Endpoint{}, 0, WithLayer(socket.New(p)))
	assert.NilError(t, err)
	assert.Check(t, ln.Endpoint().Port != 0)

	var backlog any
	for _, call := range p.Calls() {
		if call.Op == fake.OpListen {
			backlog = call.Arg
		}
	}
	assert.Check(t, is.Equal(backlog, DefaultBacklog))

	peer := api.NewEndpoint(127, 0, 0, 1, 61000)
	p.Script(fake.OpAccept, fake.Outcome{Endpoint: peer})
	c, err := ln.Accept()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(c.RemoteEndpoint(), peer))
	assert.Check(t, is.Equal(c.LocalEndpoint(), ln.Endpoint()))

	assert.NilError(t, ln.Close())
	assert.NilError(t, ln.Close())
	_, err = ln.Accept()
	assert.Check(t, errors.Is(err, api.ErrClosed))
}

func TestListenBindFailureClosesHandle(t *testing.T) {
	p := fake.NewPlatform()
	p.Fail(fake.OpBind, syscall.EADDRINUSE)
	_, err := Listen(api.Endpoint{Port: 80}, 5, WithLayer(socket.New(p)))
	assert.Check(t, errors.Is(err, api.BindError))
	assert.Check(t, bytes.Contains([]byte(err.Error()), []byte("0.0.0.0:80")))
	assert.Check(t, is.Equal(count(p.Ops(), fake.OpClose), 1))
}
