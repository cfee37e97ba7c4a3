package capture

import "sync/atomic"

// State holds the pipeline flags shared by the timer, the frame callback and
// the control surface. The zero value has everything disabled.
type State struct {
	delivery atomic.Bool
	flash    atomic.Bool
}

func (s *State) EnableDelivery() {
	s.delivery.Store(true)
}

func (s *State) DisableDelivery() {
	s.delivery.Store(false)
}

func (s *State) DeliveryEnabled() bool {
	return s.delivery.Load()
}

func (s *State) SetFlash(on bool) {
	s.flash.Store(on)
}

func (s *State) FlashEnabled() bool {
	return s.flash.Load()
}

// ToggleFlash flips the illumination flag and returns the new value.
func (s *State) ToggleFlash() bool {
	for {
		old := s.flash.Load()
		if s.flash.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Reset disables delivery and illumination.
func (s *State) Reset() {
	s.delivery.Store(false)
	s.flash.Store(false)
}
