// Package notify holds the short-lived messages shown to the player:
// connection notices, rejected moves and room announcements.
package notify

import (
	"sync"
	"time"

	"mychess/internal/core"
)

type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

const (
	DefaultMaxVisible = 3
	DefaultDuration   = 5 * time.Second
	DefaultFade       = 300 * time.Millisecond
)

type Config struct {
	MaxVisible      int           `validate:"min=1,max=50"`
	DefaultDuration time.Duration `validate:"gt=0"`
	Fade            time.Duration `validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		MaxVisible:      DefaultMaxVisible,
		DefaultDuration: DefaultDuration,
		Fade:            DefaultFade,
	}
}

func (c Config) Validate() error {
	return core.ValidateStruct(c)
}

// Clock schedules expiry and fade timers
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Toast is one message as the renderer sees it. A dismissed toast stays in
// the list with Visible false until its fade completes.
type Toast struct {
	ID        int
	Message   string
	Variant   Variant
	Duration  time.Duration
	CreatedAt time.Time
	Paused    bool
	Visible   bool
}

type entry struct {
	Toast
	remaining time.Duration
	started   time.Time
	expire    Timer
	remove    Timer
}

type Option func(*Queue)

func WithClock(clk Clock) Option {
	return func(q *Queue) {
		if clk != nil {
			q.clock = clk
		}
	}
}

// WithListener is called with every toast as it is enqueued
func WithListener(fn func(Toast)) Option {
	return func(q *Queue) {
		q.onShow = fn
	}
}

// Queue owns the toast list and its timers. Newest toasts come first.
type Queue struct {
	cfg    Config
	clock  Clock
	onShow func(Toast)

	mu     sync.Mutex
	toasts []*entry
	nextID int
}

func New(cfg Config, opts ...Option) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	q := &Queue{cfg: cfg, clock: realClock{}}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue shows message for duration, or the configured default when
// duration is not positive, and returns the toast id
func (q *Queue) Enqueue(message string, variant Variant, duration time.Duration) int {
	if variant == "" {
		variant = VariantDefault
	}
	if duration <= 0 {
		duration = q.cfg.DefaultDuration
	}

	q.mu.Lock()
	q.nextID++
	now := q.clock.Now()
	e := &entry{
		Toast: Toast{
			ID:        q.nextID,
			Message:   message,
			Variant:   variant,
			Duration:  duration,
			CreatedAt: now,
			Visible:   true,
		},
		remaining: duration,
		started:   now,
	}
	q.toasts = append([]*entry{e}, q.toasts...)
	q.armLocked(e)

	shown := 0
	for _, t := range q.toasts {
		if !t.Visible {
			continue
		}
		shown++
		if shown > q.cfg.MaxVisible {
			q.dismissLocked(t)
		}
	}
	toast := e.Toast
	q.mu.Unlock()

	if q.onShow != nil {
		q.onShow(toast)
	}
	return toast.ID
}

func (q *Queue) Success(message string) int { return q.Enqueue(message, VariantSuccess, 0) }
func (q *Queue) Error(message string) int   { return q.Enqueue(message, VariantError, 0) }
func (q *Queue) Warning(message string) int { return q.Enqueue(message, VariantWarning, 0) }
func (q *Queue) Info(message string) int    { return q.Enqueue(message, VariantInfo, 0) }

// Pause freezes the remaining display time of a visible toast
func (q *Queue) Pause(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.findLocked(id)
	if e == nil || !e.Visible || e.Paused {
		return
	}
	e.remaining -= q.clock.Now().Sub(e.started)
	if e.remaining < 0 {
		e.remaining = 0
	}
	if e.expire != nil {
		e.expire.Stop()
		e.expire = nil
	}
	e.Paused = true
}

func (q *Queue) Resume(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.findLocked(id)
	if e == nil || !e.Visible || !e.Paused {
		return
	}
	e.Paused = false
	e.started = q.clock.Now()
	q.armLocked(e)
}

// Dismiss hides a toast now and drops it once the fade has run
func (q *Queue) Dismiss(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e := q.findLocked(id); e != nil {
		q.dismissLocked(e)
	}
}

// Visible lists the toasts still on screen, newest first
func (q *Queue) Visible() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []Toast{}
	for _, e := range q.toasts {
		if e.Visible {
			out = append(out, e.Toast)
		}
	}
	return out
}

// All includes toasts that are fading out
func (q *Queue) All() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, 0, len(q.toasts))
	for _, e := range q.toasts {
		out = append(out, e.Toast)
	}
	return out
}

func (q *Queue) armLocked(e *entry) {
	id := e.ID
	e.expire = q.clock.AfterFunc(e.remaining, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		// a paused toast has its timer stopped, but a racing fire must not win
		if cur := q.findLocked(id); cur == e && !e.Paused {
			q.dismissLocked(e)
		}
	})
}

func (q *Queue) dismissLocked(e *entry) {
	if !e.Visible {
		return
	}
	e.Visible = false
	if e.expire != nil {
		e.expire.Stop()
		e.expire = nil
	}
	e.remove = q.clock.AfterFunc(q.cfg.Fade, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.removeLocked(e)
	})
}

func (q *Queue) removeLocked(e *entry) {
	for i, t := range q.toasts {
		if t == e {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			break
		}
	}
	if len(q.toasts) == 0 {
		q.nextID = 0
	}
}

func (q *Queue) findLocked(id int) *entry {
	for _, e := range q.toasts {
		if e.ID == id {
			return e
		}
	}
	return nil
}
