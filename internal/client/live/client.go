package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mychess/internal/core"
)

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateStale // connected, but no inbound traffic within the stale threshold
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateStale:
		return "stale"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Online reports whether frames can be written right now
func (s State) Online() bool {
	return s == StateConnected || s == StateStale
}

// Notice messages
const (
	MsgConnected          = "Connected to the server."
	MsgRestored           = "Connection restored."
	MsgReconnecting       = "Trying to reconnect..."
	MsgReconnectionFailed = "Reconnection failed."
	MsgDisconnected       = "Disconnected from the server."
	MsgStale              = "Connection seems idle."
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level   NoticeLevel
	Message string
}

// Transport opens one realtime connection. Inbound frames and the eventual
// close are reported to rx, possibly from another goroutine.
type Transport interface {
	Dial(ctx context.Context, rx Receiver) (Conn, error)
}

type Receiver interface {
	Receive(f core.Frame)
	Closed(err error)
}

type Conn interface {
	Send(f core.Frame) error
	Close() error
}

// Handler receives the body of each message published on a topic
type Handler func(body json.RawMessage)

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(clk Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithNotices registers the sink for user-facing connection notices
func WithNotices(fn func(Notice)) Option {
	return func(c *Client) {
		c.onNotice = fn
	}
}

type pending struct {
	dest string
	body json.RawMessage
}

// Client is the reconnecting realtime channel. Outgoing messages are queued
// while offline and flushed in order once a connection is established.
type Client struct {
	cfg       Config
	transport Transport
	clock     Clock
	log       *zap.Logger
	onNotice  func(Notice)

	mu            sync.Mutex
	state         State
	active        bool
	everConnected bool
	exhausted     bool
	flushing      bool
	attempts      int
	lastDelay     time.Duration
	gen           uint64
	conn          Conn
	retry         Timer
	tick          Timer
	lastInbound   time.Time
	queue         []pending
	subs          map[string]Handler
	listeners     map[int]func(State)
	nextListener  int
}

func New(cfg Config, transport Transport, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("live: transport is required")
	}
	c := &Client{
		cfg:       cfg,
		transport: transport,
		clock:     realClock{},
		log:       zap.NewNop(),
		state:     StateDisconnected,
		subs:      make(map[string]Handler),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect starts connecting in the background. It is a no-op while a
// connection or retry is already in flight.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.everConnected = false
	c.exhausted = false
	c.attempts = 0
	c.lastDelay = 0
	emit := c.setStateLocked(StateConnecting)
	c.scheduleLocked(0)
	c.mu.Unlock()
	emit()
}

// Reconnect forces a fresh attempt now, superseding any pending retry.
// It keeps the queue and subscriptions, so it recovers from an exhausted
// retry budget.
func (c *Client) Reconnect() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		c.Connect()
		return
	}
	c.exhausted = false
	c.attempts = 0
	c.lastDelay = 0
	c.dropConnLocked()
	next := StateConnecting
	if c.everConnected {
		next = StateReconnecting
	}
	emit := c.setStateLocked(next)
	c.scheduleLocked(0)
	c.mu.Unlock()
	emit()
}

// Disconnect tears the channel down for good: the queue and subscriptions
// are cleared and no retry is attempted.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.active && c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.gen++
	c.stopTimersLocked()
	c.dropConnLocked()
	c.queue = nil
	c.subs = make(map[string]Handler)
	emit := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	emit()
	c.notify(NoticeInfo, MsgDisconnected)
	c.log.Info("realtime channel closed by caller")
}

// Send publishes body to dest, or queues it while offline
func (c *Client) Send(dest string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", dest, err)
	}

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return core.ErrNotConnected
	}
	if !c.state.Online() || c.conn == nil || c.flushing {
		c.queue = append(c.queue, pending{dest: dest, body: raw})
		c.mu.Unlock()
		c.log.Debug("queued outbound message", zap.String("dest", dest))
		return nil
	}
	conn, gen := c.conn, c.gen
	c.mu.Unlock()

	if err := conn.Send(core.Frame{Type: core.FrameSend, Topic: dest, Body: raw}); err != nil {
		c.mu.Lock()
		c.queue = append(c.queue, pending{dest: dest, body: raw})
		c.mu.Unlock()
		c.lost(gen, err)
	}
	return nil
}

// Subscribe registers h for topic and keeps it across reconnects until the
// returned cancel func is called
func (c *Client) Subscribe(topic string, h Handler) (cancel func()) {
	c.mu.Lock()
	c.subs[topic] = h
	conn := c.onlineConnLocked()
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Send(core.Frame{Type: core.FrameSubscribe, Topic: topic}); err != nil {
			c.log.Warn("subscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(topic) })
	}
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	delete(c.subs, topic)
	conn := c.onlineConnLocked()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Send(core.Frame{Type: core.FrameUnsubscribe, Topic: topic})
	}
}

// OnStateChange registers fn for every state transition
func (c *Client) OnStateChange(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts is the number of consecutive failed connection attempts
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// LastDelay is the backoff chosen for the most recent retry
func (c *Client) LastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDelay
}

// Exhausted reports that the attempt ceiling stopped automatic retries
func (c *Client) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

func (c *Client) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// CheckLiveness flags a connected channel as stale once the last inbound
// frame is older than the stale threshold. It never closes the connection.
func (c *Client) CheckLiveness() State {
	c.mu.Lock()
	stale := c.state == StateConnected && c.clock.Now().Sub(c.lastInbound) > c.cfg.StaleAfter
	emit := func() {}
	if stale {
		emit = c.setStateLocked(StateStale)
	}
	state := c.state
	c.mu.Unlock()

	if stale {
		emit()
		c.notify(NoticeWarning, MsgStale)
		c.log.Warn("no inbound heartbeat", zap.Duration("threshold", c.cfg.StaleAfter))
	}
	return state
}

// scheduleLocked arms the single retry timer, replacing any earlier one
func (c *Client) scheduleLocked(d time.Duration) {
	if c.retry != nil {
		c.retry.Stop()
	}
	c.gen++
	gen := c.gen
	c.retry = c.clock.AfterFunc(d, func() { c.attempt(gen) })
}

func (c *Client) attempt(gen uint64) {
	c.mu.Lock()
	if !c.active || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()

	conn, err := c.transport.Dial(ctx, &session{client: c, gen: gen})
	if err != nil {
		c.log.Debug("dial failed", zap.Error(err))
		c.lost(gen, err)
		return
	}
	c.opened(gen, conn)
}

func (c *Client) opened(gen uint64, conn Conn) {
	c.mu.Lock()
	if !c.active || gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}

	restored := c.everConnected
	c.conn = conn
	c.everConnected = true
	c.exhausted = false
	c.attempts = 0
	c.lastDelay = 0
	c.lastInbound = c.clock.Now()

	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.flushing = true
	queued := len(c.queue)

	emit := c.setStateLocked(StateConnected)
	c.armTickLocked(gen)
	c.mu.Unlock()

	emit()
	if restored {
		c.notify(NoticeSuccess, MsgRestored)
	} else {
		c.notify(NoticeSuccess, MsgConnected)
	}
	c.log.Info("realtime channel connected", zap.Bool("restored", restored), zap.Int("queued", queued))

	for _, topic := range topics {
		if err := conn.Send(core.Frame{Type: core.FrameSubscribe, Topic: topic}); err != nil {
			c.lost(gen, err)
			return
		}
	}
	c.flush(gen, conn)
}

// flush drains the queue in order; sends made meanwhile join its tail
func (c *Client) flush(gen uint64, conn Conn) {
	for {
		c.mu.Lock()
		if !c.active || gen != c.gen || len(c.queue) == 0 {
			c.flushing = false
			c.mu.Unlock()
			return
		}
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()

		for i, msg := range batch {
			if err := conn.Send(core.Frame{Type: core.FrameSend, Topic: msg.dest, Body: msg.body}); err != nil {
				c.requeue(batch[i:])
				c.lost(gen, err)
				return
			}
		}
	}
}

// requeue puts unsent messages back ahead of anything queued since
func (c *Client) requeue(msgs []pending) {
	if len(msgs) == 0 {
		return
	}
	c.mu.Lock()
	c.queue = append(append([]pending{}, msgs...), c.queue...)
	c.mu.Unlock()
}

// lost handles a failed dial or a dropped connection of generation gen
func (c *Client) lost(gen uint64, cause error) {
	c.mu.Lock()
	if !c.active || gen != c.gen {
		c.mu.Unlock()
		return
	}
	wasOnline := c.state.Online()
	c.flushing = false
	c.dropConnLocked()
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}

	next := StateConnecting
	if c.everConnected {
		next = StateReconnecting
	}
	emit := c.setStateLocked(next)

	var notices []Notice
	if wasOnline {
		notices = append(notices, Notice{Level: NoticeWarning, Message: MsgReconnecting})
	}

	if c.attempts >= c.cfg.MaxAttempts {
		if !c.exhausted {
			notices = append(notices, Notice{Level: NoticeError, Message: MsgReconnectionFailed})
		}
		c.exhausted = true
		if c.cfg.StopOnCeiling {
			c.gen++
			c.mu.Unlock()
			emit()
			c.notifyAll(notices)
			c.log.Error("reconnect ceiling reached", zap.Int("attempts", c.cfg.MaxAttempts), zap.Error(cause))
			return
		}
	}

	delay := c.cfg.Delay(c.attempts)
	c.attempts++
	c.lastDelay = delay
	attempts := c.attempts
	c.scheduleLocked(delay)
	c.mu.Unlock()

	emit()
	c.notifyAll(notices)
	c.log.Warn("realtime channel lost", zap.Error(cause), zap.Int("attempt", attempts), zap.Duration("delay", delay))
}

func (c *Client) received(gen uint64, f core.Frame) {
	c.mu.Lock()
	if !c.active || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.lastInbound = c.clock.Now()
	emit := func() {}
	if c.state == StateStale {
		emit = c.setStateLocked(StateConnected)
	}
	var h Handler
	if f.Type == core.FrameMessage {
		h = c.subs[f.Topic]
	}
	c.mu.Unlock()

	emit()
	if h != nil {
		h(f.Body)
	}
}

// armTickLocked schedules the heartbeat and liveness cycle for gen
func (c *Client) armTickLocked(gen uint64) {
	if c.tick != nil {
		c.tick.Stop()
	}
	c.tick = c.clock.AfterFunc(c.cfg.HeartbeatInterval, func() {
		c.mu.Lock()
		if !c.active || gen != c.gen || !c.state.Online() {
			c.mu.Unlock()
			return
		}
		conn := c.conn
		c.armTickLocked(gen)
		c.mu.Unlock()

		if err := conn.Send(core.Frame{Type: core.FrameHeartbeat}); err != nil {
			c.lost(gen, err)
			return
		}
		c.CheckLiveness()
	})
}

func (c *Client) onlineConnLocked() Conn {
	if c.state.Online() {
		return c.conn
	}
	return nil
}

func (c *Client) dropConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) stopTimersLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
}

// setStateLocked returns the listener fan-out to run after unlocking
func (c *Client) setStateLocked(s State) func() {
	if c.state == s {
		return func() {}
	}
	c.state = s
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(s)
		}
	}
}

func (c *Client) notify(level NoticeLevel, msg string) {
	if c.onNotice != nil {
		c.onNotice(Notice{Level: level, Message: msg})
	}
}

func (c *Client) notifyAll(notices []Notice) {
	for _, n := range notices {
		c.notify(n.Level, n.Message)
	}
}

// session ties transport callbacks to the attempt that opened them
type session struct {
	client *Client
	gen    uint64
}

func (s *session) Receive(f core.Frame) {
	s.client.received(s.gen, f)
}

func (s *session) Closed(err error) {
	s.client.lost(s.gen, err)
}
