package live

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mychess/internal/core"
)

var errDial = errors.New("connection refused")

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clk     *fakeClock
	at      time.Time
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clk: c, at: c.now.Add(d), d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// Advance moves time forward and runs every timer that comes due, including
// timers armed by the callbacks themselves
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(c.now) {
				due = append(due, t)
			}
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		if len(due) == 0 {
			c.mu.Unlock()
			return
		}
		next := due[0]
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// armed lists the durations of timers that have not fired or been stopped
func (c *fakeClock) armed() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.d)
		}
	}
	return out
}

type fakeTransport struct {
	mu    sync.Mutex
	fail  int // upcoming dials that fail; negative fails forever
	dials int
	conns []*fakeConn
}

func (t *fakeTransport) Dial(_ context.Context, rx Receiver) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.fail != 0 {
		if t.fail > 0 {
			t.fail--
		}
		return nil, errDial
	}
	c := &fakeConn{rx: rx}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) setFail(n int) {
	t.mu.Lock()
	t.fail = n
	t.mu.Unlock()
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

type fakeConn struct {
	mu       sync.Mutex
	rx       Receiver
	sent     []core.Frame
	closed   bool
	failSend bool
}

func (c *fakeConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.failSend {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// drop simulates the transport reporting a closed socket
func (c *fakeConn) drop() {
	c.rx.Closed(errors.New("unexpected EOF"))
}

func (c *fakeConn) frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.sent...)
}

// framesOf filters out heartbeats
func (c *fakeConn) framesOf(types ...core.FrameType) []core.Frame {
	var out []core.Frame
	for _, f := range c.frames() {
		for _, t := range types {
			if f.Type == t {
				out = append(out, f)
			}
		}
	}
	return out
}

type noticeLog struct {
	mu  sync.Mutex
	log []string
}

func (n *noticeLog) add(notice Notice) {
	n.mu.Lock()
	n.log = append(n.log, notice.Message)
	n.mu.Unlock()
}

func (n *noticeLog) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.log...)
}
