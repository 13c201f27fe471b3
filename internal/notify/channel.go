// Package notify holds the single visible user notice. A new notice
// replaces the visible one and every notice is retracted after its display
// duration.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultDuration is how long a notice stays visible.
const DefaultDuration = 4 * time.Second

const sinkTimeout = 5 * time.Second

// Kind classifies a notice.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one user-facing message.
type Notice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	PostedAt  time.Time `json:"posted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sink receives a copy of every posted notice.
type Sink interface {
	Publish(ctx context.Context, n Notice) error
}

// Poster is the emitting side of a channel.
type Poster interface {
	Post(message string, kind Kind) Notice
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) { c.now = now }
}

// WithSink adds a fan-out sink.
func WithSink(s Sink) Option {
	return func(c *Channel) { c.sinks = append(c.sinks, s) }
}

// Channel keeps at most one visible notice.
type Channel struct {
	duration time.Duration
	logger   zerolog.Logger
	now      func() time.Time
	sinks    []Sink

	mu      sync.Mutex
	current *Notice
	timer   *time.Timer
	wg      sync.WaitGroup
}

// NewChannel builds a channel. A non-positive duration uses DefaultDuration.
func NewChannel(duration time.Duration, logger zerolog.Logger, opts ...Option) *Channel {
	if duration <= 0 {
		duration = DefaultDuration
	}
	c := &Channel{duration: duration, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post makes message the visible notice, replacing any current one.
func (c *Channel) Post(message string, kind Kind) Notice {
	now := c.now()
	n := Notice{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		PostedAt:  now,
		ExpiresAt: now.Add(c.duration),
	}

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.current = &n
	id := n.ID
	c.timer = time.AfterFunc(c.duration, func() { c.retract(id) })
	c.mu.Unlock()

	c.logger.Debug().Str("notice_id", n.ID).Str("kind", string(kind)).Str("message", message).Msg("notice posted")
	c.fanOut(n)
	return n
}

// Current returns the visible notice, if any.
func (c *Channel) Current() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Notice{}, false
	}
	if !c.now().Before(c.current.ExpiresAt) {
		c.current = nil
		return Notice{}, false
	}
	return *c.current, true
}

// Dismiss retracts the visible notice when its id matches.
func (c *Channel) Dismiss(id string) bool {
	return c.retract(id)
}

// Close stops the retraction timer and waits for sink deliveries.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Channel) retract(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != id {
		return false
	}
	c.current = nil
	return true
}

func (c *Channel) fanOut(n Notice) {
	for _, sink := range c.sinks {
		c.wg.Add(1)
		go func(sink Sink) {
			defer c.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()
			if err := sink.Publish(ctx, n); err != nil {
				c.logger.Warn().Err(err).Str("notice_id", n.ID).Msg("notice sink publish failed")
			}
		}(sink)
	}
}
