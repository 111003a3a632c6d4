package realtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/pulse/pkg/realtime"
)

type frame struct {
	event string
	topic string
}

// fakeConn is an in-memory Conn. Tests push messages with deliver and end
// the connection with drop.
type fakeConn struct {
	incoming  chan realtime.Message
	dropped   chan error
	closed    chan struct{}
	emitErr   error
	frames    []frame
	closeOnce sync.Once
	mu        sync.Mutex
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan realtime.Message, 16),
		dropped:  make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) Emit(_ context.Context, event, topic string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emitErr != nil {
		return c.emitErr
	}
	c.frames = append(c.frames, frame{event: event, topic: topic})
	return nil
}

func (c *fakeConn) Receive(_ context.Context) (realtime.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case err := <-c.dropped:
		return realtime.Message{}, err
	case <-c.closed:
		return realtime.Message{}, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) deliver(msg realtime.Message) { c.incoming <- msg }

func (c *fakeConn) drop(err error) { c.dropped <- err }

func (c *fakeConn) sent() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.frames...)
}

func (c *fakeConn) count(event, topic string) int {
	n := 0
	for _, f := range c.sent() {
		if f.event == event && f.topic == topic {
			n++
		}
	}
	return n
}

// fakeDialer fails the next failures dials (forever when negative) and then
// hands out fakeConns. prepare, when set, configures each new conn.
type fakeDialer struct {
	prepare  func(*fakeConn)
	conns    []*fakeConn
	failures int
	dials    atomic.Int32
	mu       sync.Mutex
}

func (d *fakeDialer) Dial(ctx context.Context) (realtime.Conn, error) {
	d.dials.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failures != 0 {
		if d.failures > 0 {
			d.failures--
		}
		return nil, errors.New("connection refused")
	}

	c := newFakeConn()
	if d.prepare != nil {
		d.prepare(c)
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setFailures(n int) {
	d.mu.Lock()
	d.failures = n
	d.mu.Unlock()
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}
