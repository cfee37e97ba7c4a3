package upload

import (
	"context"
	"net/http"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"
	"autosendpic/internal/service/storage"

	"github.com/benbjohnson/clock"
)

const maxRetryDelay = 30 * time.Second

// Sink posts items to the configured URL, one Job per attempt.
type Sink struct {
	cfg    Config
	namer  *storage.Namer
	client *http.Client
	clock  clock.Clock
	logger *logger.Logger
}

type Option func(*Sink)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

func WithClock(c clock.Clock) Option {
	return func(s *Sink) { s.clock = c }
}

func NewSink(cfg Config, namer *storage.Namer, logger *logger.Logger, opts ...Option) *Sink {
	s := &Sink{
		cfg:    cfg,
		namer:  namer,
		client: newHTTPClient(),
		clock:  clock.New(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Name() string {
	return "http"
}

// NewJob creates a pending job for item that expires at deadline.
func (s *Sink) NewJob(item *model.CapturedItem, deadline time.Time) *Job {
	return &Job{
		item:     item,
		deadline: deadline,
		filename: s.namer.Render(item.CapturedAt),
		cfg:      s.cfg,
		client:   s.client,
		clock:    s.clock,
		state:    StatePending,
	}
}

// Deliver runs a job for item and, when retries are configured, further jobs
// with exponentially growing waits until one succeeds, the item expires or
// the retries run out.
func (s *Sink) Deliver(ctx context.Context, item *model.CapturedItem) error {
	deadline := item.CapturedAt.Add(s.cfg.Expiry)
	wait := s.cfg.RetryDelay

	for attempt := 0; ; attempt++ {
		err := s.NewJob(item, deadline).Run(ctx)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("📤 Uploaded %s after %d retries", item.ID, attempt)
			}
			return nil
		}
		if attempt >= s.cfg.Retries || apperr.IsKind(err, apperr.KindExpired) {
			return err
		}
		if !s.clock.Now().Add(wait).Before(deadline) {
			return err
		}

		s.logger.Warning("Upload of %s failed (%v), retrying in %s", item.ID, err, wait)

		timer := s.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		wait *= 2
		if wait > maxRetryDelay {
			wait = maxRetryDelay
		}
	}
}
