// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the platform contract,
// including failures a real kernel will not produce on demand.

package fake

import (
	"errors"
	"sync"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hiosock/api"
)

// Primitive names used for scripting and in the call log.
const (
	OpInit           = "init"
	OpSocket         = "socket"
	OpSetNonBlocking = "nonblock"
	OpConnect        = "connect"
	OpWait           = "wait"
	OpPendingError   = "pending"
	OpBind           = "bind"
	OpListen         = "listen"
	OpAccept         = "accept"
	OpLocal          = "local"
	OpRemote         = "remote"
	OpSend           = "send"
	OpRecv           = "recv"
	OpShutdown       = "shutdown"
	OpClose          = "close"
)

// Errors the fake reports for its default behavior. Scripted outcomes may
// return anything.
var (
	ErrInProgress   = syscall.EINPROGRESS
	ErrNotConnected = syscall.ENOTCONN
	ErrBadHandle    = syscall.EBADF
)

// Outcome is one scripted result for a primitive.
type Outcome struct {
	Err      error
	N        int
	Ready    bool
	Pending  error
	Handle   api.Handle
	Endpoint api.Endpoint
}

// Call records one primitive invocation.
type Call struct {
	Op     string
	Handle api.Handle
	Arg    any
}

// Platform is an in-memory api.Platform.
type Platform struct {
	mu          sync.Mutex
	next        api.Handle
	nextPort    uint16
	script      map[string]*queue.Queue
	calls       []Call
	nonBlocking map[api.Handle]bool
	closed      map[api.Handle]bool
	local       map[api.Handle]api.Endpoint
	remote      map[api.Handle]api.Endpoint
	inbox       map[api.Handle][]byte
	sent        map[api.Handle][]byte
}

// NewPlatform creates a fake platform with nothing scripted.
func NewPlatform() *Platform {
	return &Platform{
		next:        3,
		nextPort:    40000,
		script:      make(map[string]*queue.Queue),
		nonBlocking: make(map[api.Handle]bool),
		closed:      make(map[api.Handle]bool),
		local:       make(map[api.Handle]api.Endpoint),
		remote:      make(map[api.Handle]api.Endpoint),
		inbox:       make(map[api.Handle][]byte),
		sent:        make(map[api.Handle][]byte),
	}
}

// Script queues outcomes for op, consumed one per call in order. Once the
// queue is empty the default behavior applies again.
func (p *Platform) Script(op string, outs ...Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.script[op]
	if !ok {
		q = queue.New()
		p.script[op] = q
	}
	for _, o := range outs {
		q.Add(o)
	}
}

// Fail scripts a single failure for op.
func (p *Platform) Fail(op string, err error) {
	p.Script(op, Outcome{Err: err})
}

// Calls returns a copy of the call log.
func (p *Platform) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Ops returns just the primitive names from the call log.
func (p *Platform) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.Op
	}
	return out
}

// IsNonBlocking reports the current mode of h.
func (p *Platform) IsNonBlocking(h api.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonBlocking[h]
}

// IsClosed reports whether h has been closed.
func (p *Platform) IsClosed(h api.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed[h]
}

// Feed queues bytes to be received on h.
func (p *Platform) Feed(h api.Handle, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbox[h] = append(p.inbox[h], data...)
}

// Sent returns everything sent on h.
func (p *Platform) Sent(h api.Handle) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.sent[h]...)
}

// record logs the call and pops a scripted outcome if one is queued.
// Callers hold p.mu.
func (p *Platform) record(op string, h api.Handle, arg any) (Outcome, bool) {
	p.calls = append(p.calls, Call{Op: op, Handle: h, Arg: arg})
	q, ok := p.script[op]
	if !ok || q.Length() == 0 {
		return Outcome{}, false
	}
	return q.Remove().(Outcome), true
}

func (p *Platform) Name() string { return "fake" }

func (p *Platform) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpInit, api.InvalidHandle, nil); ok {
		return o.Err
	}
	return nil
}

func (p *Platform) Socket() (api.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpSocket, api.InvalidHandle, nil); ok && o.Err != nil {
		return api.InvalidHandle, o.Err
	}
	h := p.next
	p.next++
	return h, nil
}

func (p *Platform) SetNonBlocking(h api.Handle, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpSetNonBlocking, h, on); ok && o.Err != nil {
		return o.Err
	}
	p.nonBlocking[h] = on
	return nil
}

// Connect succeeds immediately in blocking mode and reports ErrInProgress
// in non-blocking mode. A scripted outcome overrides both: its Err is
// returned, and a nil Err completes the connect at once.
func (p *Platform) Connect(h api.Handle, ep api.Endpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, scripted := p.record(OpConnect, h, ep)
	if scripted && o.Err != nil {
		return o.Err
	}
	p.remote[h] = ep
	if _, bound := p.local[h]; !bound {
		p.local[h] = api.Endpoint{Addr: api.LoopbackAddr, Port: p.allocPort()}
	}
	if p.nonBlocking[h] && !scripted {
		return ErrInProgress
	}
	return nil
}

func (p *Platform) InProgress(err error) bool {
	return errors.Is(err, ErrInProgress)
}

func (p *Platform) WaitWritable(h api.Handle, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpWait, h, timeout); ok {
		return o.Ready, o.Err
	}
	return true, nil
}

func (p *Platform) PendingError(h api.Handle) (error, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpPendingError, h, nil); ok {
		return o.Pending, o.Err
	}
	return nil, nil
}

func (p *Platform) Bind(h api.Handle, ep api.Endpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpBind, h, ep); ok && o.Err != nil {
		return o.Err
	}
	if ep.Port == 0 {
		ep.Port = p.allocPort()
	}
	p.local[h] = ep
	return nil
}

func (p *Platform) Listen(h api.Handle, backlog int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpListen, h, backlog); ok && o.Err != nil {
		return o.Err
	}
	return nil
}

// Accept hands out a fresh handle; the scripted Endpoint, if any, becomes
// the peer.
func (p *Platform) Accept(h api.Handle) (api.Handle, api.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	peer := api.Endpoint{Addr: api.LoopbackAddr, Port: 50000}
	if o, ok := p.record(OpAccept, h, nil); ok {
		if o.Err != nil {
			return api.InvalidHandle, api.Endpoint{}, o.Err
		}
		peer = o.Endpoint
	}
	nh := p.next
	p.next++
	p.local[nh] = p.local[h]
	p.remote[nh] = peer
	return nh, peer, nil
}

func (p *Platform) LocalEndpoint(h api.Handle) (api.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpLocal, h, nil); ok && o.Err != nil {
		return api.Endpoint{}, o.Err
	}
	return p.local[h], nil
}

func (p *Platform) RemoteEndpoint(h api.Handle) (api.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpRemote, h, nil); ok && o.Err != nil {
		return api.Endpoint{}, o.Err
	}
	ep, ok := p.remote[h]
	if !ok {
		return api.Endpoint{}, ErrNotConnected
	}
	return ep, nil
}

// Send accepts at most a scripted N bytes when one is given, otherwise all.
func (p *Platform) Send(h api.Handle, b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(b)
	if o, ok := p.record(OpSend, h, len(b)); ok {
		if o.Err != nil {
			return 0, o.Err
		}
		if o.N > 0 && o.N < n {
			n = o.N
		}
	}
	p.sent[h] = append(p.sent[h], b[:n]...)
	return n, nil
}

// Recv drains the data fed to h; an empty inbox reads as orderly shutdown.
func (p *Platform) Recv(h api.Handle, b []byte, peek bool) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpRecv, h, peek); ok && o.Err != nil {
		return 0, o.Err
	}
	n := copy(b, p.inbox[h])
	if !peek {
		p.inbox[h] = p.inbox[h][n:]
	}
	return n, nil
}

func (p *Platform) Shutdown(h api.Handle, dir api.Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpShutdown, h, dir); ok && o.Err != nil {
		return o.Err
	}
	if _, ok := p.remote[h]; !ok {
		return ErrNotConnected
	}
	return nil
}

func (p *Platform) NotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

func (p *Platform) Close(h api.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.record(OpClose, h, nil); ok && o.Err != nil {
		return o.Err
	}
	if p.closed[h] {
		return ErrBadHandle
	}
	p.closed[h] = true
	return nil
}

func (p *Platform) Errno(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

func (p *Platform) allocPort() uint16 {
	port := p.nextPort
	p.nextPort++
	return port
}
