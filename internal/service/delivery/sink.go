package delivery

import (
	"context"
	"errors"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/model"
)

// Sink is a destination that accepts captured items.
//
// Deliver returns nil on success. Failures should be *apperr.Error values so
// the manager can tell expiry from other failures. A Sink that also implements
// io.Closer is closed when the manager stops.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, item *model.CapturedItem) error
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Report is the outcome of one sink for one item.
type Report struct {
	ItemID    string
	Sink      string
	Status    Status
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// StatusOf maps a Deliver result to its report status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case apperr.IsKind(err, apperr.KindExpired):
		return StatusExpired
	default:
		return StatusFailed
	}
}

// Category returns the error category used for notifications.
func (r Report) Category() string {
	if r.Err == nil {
		return ""
	}
	if kind := apperr.KindOf(r.Err); kind != apperr.KindUnknown {
		return string(kind)
	}
	return string(apperr.KindSinkFailure)
}

// TimedOut reports whether the failure was caused by an attempt timeout.
func (r Report) TimedOut() bool {
	return errors.Is(r.Err, apperr.ErrTimeout)
}
