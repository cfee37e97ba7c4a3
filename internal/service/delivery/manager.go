// Package delivery owns the dispatch loop that fans captured items out to sinks.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"autosendpic/internal/apperr"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
	"autosendpic/internal/service/queue"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("delivery: manager already started")
	// ErrStopped is returned when Start is called after Stop.
	ErrStopped = errors.New("delivery: manager stopped")
	// ErrNoSinks is returned when Start is called without sinks.
	ErrNoSinks = errors.New("delivery: no sinks registered")
	// ErrNotRunning is returned by callers that need a running manager.
	ErrNotRunning = errors.New("delivery: not running")
)

// Manager drains the delivery queue and hands every item to each registered
// sink, in registration order. It never retries and never re-enqueues.
type Manager struct {
	queue  *queue.Queue
	sinks  []Sink
	logger *logger.Logger
	clock  clock.Clock
	report func(Report)

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
	done     chan struct{}
}

type Option func(*Manager)

// WithReporter sets the callback receiving every sink outcome. It runs on the
// dispatch goroutine and should return quickly.
func WithReporter(fn func(Report)) Option {
	return func(m *Manager) { m.report = fn }
}

// WithClock replaces the clock used to time deliveries.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// NewManager creates a manager with its own empty queue.
func NewManager(logger *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		queue:  queue.New(),
		logger: logger,
		clock:  clock.New(),
		report: func(Report) {},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start registers sinks and launches the dispatch loop.
func (m *Manager) Start(sinks ...Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.stopped:
		return ErrStopped
	case m.started:
		return ErrAlreadyStarted
	case len(sinks) == 0:
		return ErrNoSinks
	}

	m.sinks = append([]Sink(nil), sinks...)
	m.started = true

	go m.dispatchLoop()

	m.logger.Info("🚚 Delivery manager started with sinks %v", m.SinkNames())
	return nil
}

// Enqueue hands an item to the dispatch loop. It never blocks and reports
// false once the manager is stopped.
func (m *Manager) Enqueue(item *model.CapturedItem) bool {
	return m.queue.Enqueue(item)
}

// Pending returns the number of items waiting for dispatch.
func (m *Manager) Pending() int {
	return m.queue.Len()
}

// SinkNames returns the registered sink names in dispatch order.
func (m *Manager) SinkNames() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Stop lets the current item finish, terminates the loop and releases the
// sinks. It blocks until the loop has exited and is safe to call repeatedly.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		started := m.started
		m.mu.Unlock()

		pending := m.queue.Close()
		if len(pending) > 0 {
			m.logger.Warning("🛑 Delivery stopped with %d undelivered item(s) discarded", len(pending))
		}

		if started {
			<-m.done
		}

		if err := m.releaseSinks(); err != nil {
			m.logger.Error("Error releasing sinks: %v", err)
		}
		m.logger.Info("🛑 Delivery manager stopped")
	})
}

func (m *Manager) releaseSinks() error {
	var errs error
	for _, s := range m.sinks {
		if c, ok := s.(io.Closer); ok {
			errs = multierr.Append(errs, c.Close())
		}
	}
	return errs
}

// dispatchLoop runs until the queue is closed.
func (m *Manager) dispatchLoop() {
	defer close(m.done)

	for {
		item, err := m.queue.Dequeue()
		if err != nil {
			return
		}
		m.dispatch(item)
	}
}

// dispatch invokes every sink once for item; outcomes are independent.
func (m *Manager) dispatch(item *model.CapturedItem) {
	ctx := context.Background()

	for _, s := range m.sinks {
		started := m.clock.Now()
		err := m.deliverSafely(ctx, s, item)

		r := Report{
			ItemID:    item.ID,
			Sink:      s.Name(),
			Status:    StatusOf(err),
			Err:       err,
			StartedAt: started,
			Duration:  m.clock.Since(started),
		}

		switch r.Status {
		case StatusSucceeded:
		case StatusExpired:
			m.logger.Warning("Item %s expired before delivery to %s: %v", item.ID, r.Sink, err)
		default:
			m.logger.Error("Item %s failed on %s: %v", item.ID, r.Sink, err)
		}

		m.report(r)
	}
}

// deliverSafely turns a panicking sink into an ordinary failure.
func (m *Manager) deliverSafely(ctx context.Context, s Sink, item *model.CapturedItem) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = apperr.Wrap(apperr.KindSinkFailure, "delivery.dispatch", "sink panicked", fmt.Errorf("%v", rec))
		}
	}()
	return s.Deliver(ctx, item)
}
