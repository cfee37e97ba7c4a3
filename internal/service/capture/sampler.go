package capture

import (
	"context"
	"fmt"
	"sync/atomic"

	"autosendpic/internal/apperr"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// LocationSource returns the last known position.
type LocationSource interface {
	Last() model.Location
}

// PictureTaker takes one-shot full resolution pictures.
type PictureTaker interface {
	TakePicture(ctx context.Context, quality int) ([]byte, error)
}

// Sampler encodes the first frame that arrives after each Arm and hands the
// result to the delivery queue.
type Sampler struct {
	requested atomic.Bool

	enqueue   func(*model.CapturedItem) bool
	locations LocationSource
	clock     clock.Clock
	report    func(error)
	logger    *logger.Logger
}

type SamplerOption func(*Sampler)

func WithSamplerClock(c clock.Clock) SamplerOption {
	return func(s *Sampler) { s.clock = c }
}

// WithErrorReporter receives capture errors in addition to the log.
func WithErrorReporter(fn func(error)) SamplerOption {
	return func(s *Sampler) { s.report = fn }
}

// NewSampler creates a sampler that pushes items through enqueue.
func NewSampler(enqueue func(*model.CapturedItem) bool, locations LocationSource, logger *logger.Logger, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		enqueue:   enqueue,
		locations: locations,
		clock:     clock.New(),
		report:    func(error) {},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm requests a capture of the next frame. Arming twice before a frame
// arrives still produces one capture.
func (s *Sampler) Arm() {
	s.requested.Store(true)
}

// Armed reports whether a capture is pending.
func (s *Sampler) Armed() bool {
	return s.requested.Load()
}

// OnFrame is called for every live frame. Unless armed it returns at once.
func (s *Sampler) OnFrame(frame Frame) {
	if !s.requested.CompareAndSwap(true, false) {
		return
	}

	data, err := s.encode(frame)
	if err != nil {
		s.fail(apperr.Wrap(apperr.KindCapture, "capture.sample", "error encoding frame", err))
		return
	}
	s.push(data)
}

func (s *Sampler) encode(frame Frame) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panicked: %v", r)
		}
	}()
	return frame.Encode(frame.Bounds(), SampleQuality)
}

// Snapshot takes a full resolution picture outside the periodic schedule and
// queues it like a sampled frame.
func (s *Sampler) Snapshot(ctx context.Context, camera PictureTaker) (*model.CapturedItem, error) {
	data, err := camera.TakePicture(ctx, PictureQuality)
	if err != nil {
		err = apperr.Wrap(apperr.KindCapture, "capture.snapshot", "error taking picture", err)
		s.fail(err)
		return nil, err
	}
	return s.push(data), nil
}

func (s *Sampler) push(data []byte) *model.CapturedItem {
	item := &model.CapturedItem{
		ID:         uuid.NewString(),
		Data:       data,
		CapturedAt: s.clock.Now(),
		Location:   s.locations.Last(),
	}

	if !s.enqueue(item) {
		s.logger.Warning("Delivery is stopped, picture %s dropped", item.ID)
	}
	return item
}

func (s *Sampler) fail(err error) {
	s.logger.Error("Capture failed: %v", err)
	s.report(err)
}
