package capture

import (
	"sync"
	"time"

	"autosendpic/internal/logger"

	"github.com/benbjohnson/clock"
)

// Armer receives capture requests from the trigger.
type Armer interface {
	Arm()
}

// Availability reports whether a capture source is ready.
type Availability interface {
	Available() bool
}

// Trigger arms its target immediately on Start and then once per interval,
// as long as delivery is enabled and the camera is available.
type Trigger struct {
	state  *State
	camera Availability
	target Armer
	clock  clock.Clock
	logger *logger.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

type TriggerOption func(*Trigger)

func WithTriggerClock(c clock.Clock) TriggerOption {
	return func(t *Trigger) { t.clock = c }
}

func NewTrigger(state *State, camera Availability, target Armer, logger *logger.Logger, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		state:  state,
		camera: camera,
		target: target,
		clock:  clock.New(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start replaces any running schedule with a new one firing every interval.
func (t *Trigger) Start(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	t.fire()

	ticker := t.clock.Ticker(interval)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(ticker, t.stop, t.done)

	t.logger.Info("⏱️ Capture trigger started, interval %s", interval)
}

// Stop cancels the schedule. After Stop returns the target is not armed again.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopLocked() {
		t.logger.Info("⏱️ Capture trigger stopped")
	}
}

func (t *Trigger) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Trigger) stopLocked() bool {
	if t.stop == nil {
		return false
	}
	close(t.stop)
	<-t.done
	t.stop, t.done = nil, nil
	return true
}

func (t *Trigger) run(ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.fire()
		}
	}
}

func (t *Trigger) fire() {
	if t.state.DeliveryEnabled() && t.camera.Available() {
		t.target.Arm()
	}
}
