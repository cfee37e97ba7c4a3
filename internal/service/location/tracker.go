// Package location keeps the last position reported by the host.
package location

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"autosendpic/internal/model"

	"github.com/benbjohnson/clock"
)

var ErrInvalidFix = errors.New("location: invalid fix")

// Tracker stores the most recent fix. The zero fix is returned until the
// first update.
type Tracker struct {
	last  atomic.Pointer[model.Location]
	clock clock.Clock
}

func NewTracker(c clock.Clock) *Tracker {
	if c == nil {
		c = clock.New()
	}
	return &Tracker{clock: c}
}

// Update replaces the last fix. A fix without a time is stamped with now.
func (t *Tracker) Update(loc model.Location) error {
	if err := validate(loc); err != nil {
		return err
	}
	if loc.Time.IsZero() {
		loc.Time = t.clock.Now()
	}
	t.last.Store(&loc)
	return nil
}

func (t *Tracker) Last() model.Location {
	if loc := t.last.Load(); loc != nil {
		return *loc
	}
	return model.Location{}
}

// HasFix reports whether any fix was received.
func (t *Tracker) HasFix() bool {
	return t.last.Load() != nil
}

func validate(loc model.Location) error {
	for name, v := range map[string]float64{
		"accuracy":  loc.Accuracy,
		"altitude":  loc.Altitude,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"speed":     loc.Speed,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a number", ErrInvalidFix, name)
		}
	}

	switch {
	case loc.Latitude < -90 || loc.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidFix, loc.Latitude)
	case loc.Longitude < -180 || loc.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidFix, loc.Longitude)
	case loc.Accuracy < 0:
		return fmt.Errorf("%w: negative accuracy", ErrInvalidFix)
	case loc.Speed < 0:
		return fmt.Errorf("%w: negative speed", ErrInvalidFix)
	}
	return nil
}
