// Package events binds the server-sent event channel of one job to the
// dashboard log.
package events

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/knx2openhab/dashboard/internal/models"
)

// DoneEvent is the named event terminating a job stream.
const DoneEvent = "done"

// DefaultReconnectDelay is used after a dropped stream when the server
// did not send a retry hint.
const DefaultReconnectDelay = 3 * time.Second

// ErrClosed is returned when the subscription was closed before the stream
// could be (re)opened.
var ErrClosed = errors.New("subscription closed")

// Source opens the event body of a job.
type Source interface {
	Events(ctx context.Context, jobID string) (io.ReadCloser, error)
}

// Handler receives the output of a subscription. OnMessage runs while the
// subscription is held open and must not call Close or Start. OnDone and
// OnError run after the subscription has been closed and detached.
type Handler struct {
	OnMessage func(jobID string, entry models.LogEntry)
	OnDone    func(jobID string)
	OnError   func(jobID string, err error)
}

// Controller keeps at most one live subscription.
type Controller struct {
	source         Source
	handler        Handler
	now            func() time.Time
	reconnectDelay time.Duration

	mu      sync.Mutex
	current *Subscription
}

// NewController creates a controller reading from source.
func NewController(source Source, handler Handler) *Controller {
	return &Controller{
		source:         source,
		handler:        handler,
		now:            time.Now,
		reconnectDelay: DefaultReconnectDelay,
	}
}

// SetReconnectDelay overrides the delay before reopening a dropped stream.
func (c *Controller) SetReconnectDelay(d time.Duration) {
	c.mu.Lock()
	c.reconnectDelay = d
	c.mu.Unlock()
}

// Start closes any live subscription and opens the stream of jobID.
func (c *Controller) Start(ctx context.Context, jobID string) (*Subscription, error) {
	c.Stop()

	sctx, cancel := context.WithCancel(ctx)
	body, err := c.source.Events(sctx, jobID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		jobID:    jobID,
		ctx:      sctx,
		cancel:   cancel,
		body:     body,
		finished: make(chan struct{}),
	}

	c.mu.Lock()
	prev := c.current
	c.current = sub
	delay := c.reconnectDelay
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	log.Printf("[Stream] Subscribed to job %s", jobID)
	go c.run(sub, delay)
	return sub, nil
}

// Stop closes the live subscription, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	sub := c.current
	c.current = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// Active returns the live subscription or nil.
func (c *Controller) Active() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ActiveJob returns the job id of the live subscription.
func (c *Controller) ActiveJob() (string, bool) {
	sub := c.Active()
	if sub == nil {
		return "", false
	}
	return sub.jobID, true
}

func (c *Controller) detach(sub *Subscription) {
	c.mu.Lock()
	if c.current == sub {
		c.current = nil
	}
	c.mu.Unlock()
}

func (c *Controller) run(sub *Subscription, delay time.Duration) {
	defer close(sub.finished)

	body := sub.body
	for {
		retry, err := c.consume(sub, body)
		if err == nil {
			// done event or closed
			return
		}
		if sub.isClosed() {
			return
		}

		if retry > 0 {
			delay = retry
		}
		log.Printf("[Stream] Job %s stream dropped: %v, reconnecting in %s", sub.jobID, err, delay)
		body, err = c.reopen(sub, delay)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			log.Printf("[Stream] Job %s stream failed: %v", sub.jobID, err)
			if !sub.markClosed() {
				return
			}
			c.detach(sub)
			if c.handler.OnError != nil {
				c.handler.OnError(sub.jobID, err)
			}
			return
		}
	}
}

// consume reads body until the done event, a read error or close. It
// returns a nil error when reading should stop for good.
func (c *Controller) consume(sub *Subscription, body io.ReadCloser) (time.Duration, error) {
	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if err != nil {
			_ = body.Close()
			if sub.isClosed() {
				return 0, nil
			}
			return dec.Retry(), err
		}

		if ev.Name == DoneEvent {
			if !sub.markClosed() {
				return 0, nil
			}
			c.detach(sub)
			log.Printf("[Stream] Job %s finished", sub.jobID)
			if c.handler.OnDone != nil {
				c.handler.OnDone(sub.jobID)
			}
			return 0, nil
		}
		if ev.Name != "" && ev.Name != "message" {
			continue
		}

		entry := Entry(ev.Data, c.now())
		if !sub.deliver(func() {
			if c.handler.OnMessage != nil {
				c.handler.OnMessage(sub.jobID, entry)
			}
		}) {
			return 0, nil
		}
	}
}

func (c *Controller) reopen(sub *Subscription, delay time.Duration) (io.ReadCloser, error) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-sub.ctx.Done():
		return nil, ErrClosed
	case <-t.C:
	}

	body, err := c.source.Events(sub.ctx, sub.jobID)
	if err != nil {
		if sub.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}
	if !sub.swapBody(body) {
		_ = body.Close()
		return nil, ErrClosed
	}
	return body, nil
}

// Subscription is one open event channel.
type Subscription struct {
	jobID  string
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	body     io.ReadCloser
	closed   bool
	finished chan struct{}
}

// JobID returns the job the subscription is bound to.
func (s *Subscription) JobID() string {
	return s.jobID
}

// Close stops delivery. No OnMessage call begins after Close returns; a
// call already in progress completes before Close returns.
func (s *Subscription) Close() {
	if !s.markClosed() {
		return
	}
	log.Printf("[Stream] Closed subscription for job %s", s.jobID)
}

// Done is closed once the reader goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.finished
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// markClosed flips the closed flag and releases the stream. It reports
// false if the subscription was already closed.
func (s *Subscription) markClosed() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	body := s.body
	s.mu.Unlock()

	s.cancel()
	if body != nil {
		_ = body.Close()
	}
	return true
}

func (s *Subscription) deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *Subscription) swapBody(body io.ReadCloser) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.body = body
	return true
}
