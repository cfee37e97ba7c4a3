package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"autosendpic/internal/apperr"
	"autosendpic/internal/config"
	"autosendpic/internal/logger"
	"autosendpic/internal/model"

	"github.com/benbjohnson/clock"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	l := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs")})
	t.Cleanup(l.Close)
	return l
}

type fixedLocation model.Location

func (l fixedLocation) Last() model.Location { return model.Location(l) }

// fakeFrame records how it was encoded.
type fakeFrame struct {
	encodes atomic.Int32
	quality atomic.Int32
	region  image.Rectangle
	err     error
}

func (f *fakeFrame) Bounds() image.Rectangle { return image.Rect(0, 0, 64, 48) }

func (f *fakeFrame) Encode(region image.Rectangle, quality int) ([]byte, error) {
	f.encodes.Add(1)
	f.quality.Store(int32(quality))
	f.region = region
	if f.err != nil {
		return nil, f.err
	}
	return []byte("jpeg"), nil
}

// fakeSource is a Source driven by the test.
type fakeSource struct {
	mu       sync.Mutex
	onFrame  func(Frame)
	started  int
	stopped  int
	light    bool
	lightErr error
	quality  int
}

func (s *fakeSource) Start(onFrame func(Frame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = onFrame
	s.started++
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = nil
	s.stopped++
	return nil
}

func (s *fakeSource) TakePicture(ctx context.Context, quality int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quality = quality
	return []byte("full-resolution"), nil
}

func (s *fakeSource) SetIllumination(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lightErr != nil {
		return s.lightErr
	}
	s.light = on
	return nil
}

type collector struct {
	mu    sync.Mutex
	items []*model.CapturedItem
	open  bool
}

func (c *collector) enqueue(item *model.CapturedItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return c.open
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type availability bool

func (a availability) Available() bool { return bool(a) }

type countingArmer struct {
	armed chan struct{}
}

func (a *countingArmer) Arm() { a.armed <- struct{}{} }

func TestState(t *testing.T) {
	var s State

	if s.DeliveryEnabled() || s.FlashEnabled() {
		t.Fatal("Zero state should have everything disabled")
	}

	s.EnableDelivery()
	if !s.DeliveryEnabled() {
		t.Error("Expected delivery enabled")
	}
	if !s.ToggleFlash() || !s.FlashEnabled() {
		t.Error("Expected flash on after toggle")
	}
	if s.ToggleFlash() {
		t.Error("Expected flash off after second toggle")
	}

	s.SetFlash(true)
	s.Reset()
	if s.DeliveryEnabled() || s.FlashEnabled() {
		t.Error("Reset should disable everything")
	}
}

func TestSampler_IgnoresFramesUntilArmed(t *testing.T) {
	c := &collector{open: true}
	s := NewSampler(c.enqueue, fixedLocation{}, newTestLogger(t))
	frame := &fakeFrame{}

	for i := 0; i < 10; i++ {
		s.OnFrame(frame)
	}
	if frame.encodes.Load() != 0 || c.len() != 0 {
		t.Fatalf("Unarmed sampler encoded %d frames", frame.encodes.Load())
	}

	s.Arm()
	s.Arm()
	s.OnFrame(frame)
	s.OnFrame(frame)

	if c.len() != 1 {
		t.Fatalf("Expected one capture per arm, got %d", c.len())
	}
	if frame.quality.Load() != SampleQuality {
		t.Errorf("Expected quality %d, got %d", SampleQuality, frame.quality.Load())
	}
	if frame.region != frame.Bounds() {
		t.Errorf("Expected full frame region, got %v", frame.region)
	}
}

func TestSampler_ItemContents(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	loc := model.Location{Latitude: 50.06, Longitude: 19.94, Provider: "gps"}

	c := &collector{open: true}
	s := NewSampler(c.enqueue, fixedLocation(loc), newTestLogger(t), WithSamplerClock(mock))

	s.Arm()
	s.OnFrame(&fakeFrame{})

	item := c.items[0]
	if item.ID == "" {
		t.Error("Expected item ID")
	}
	if !item.CapturedAt.Equal(mock.Now()) {
		t.Errorf("Expected capture time %v, got %v", mock.Now(), item.CapturedAt)
	}
	if item.Location != loc {
		t.Errorf("Expected location %+v, got %+v", loc, item.Location)
	}
	if string(item.Data) != "jpeg" {
		t.Errorf("Unexpected data %q", item.Data)
	}
}

func TestSampler_EncodeFailure(t *testing.T) {
	var reported []error
	c := &collector{open: true}
	s := NewSampler(c.enqueue, fixedLocation{}, newTestLogger(t),
		WithErrorReporter(func(err error) { reported = append(reported, err) }))

	frame := &fakeFrame{err: errors.New("bad pixel format")}
	s.Arm()
	s.OnFrame(frame)
	s.OnFrame(frame)

	if len(reported) != 1 || !apperr.IsKind(reported[0], apperr.KindCapture) {
		t.Fatalf("Expected one capture error, got %v", reported)
	}
	if s.Armed() {
		t.Error("Failed encode must not re-arm the sampler")
	}
	if frame.encodes.Load() != 1 || c.len() != 0 {
		t.Errorf("Expected a single encode attempt and no item, got %d encodes, %d items", frame.encodes.Load(), c.len())
	}
}

type panickingFrame struct{ fakeFrame }

func (f *panickingFrame) Encode(image.Rectangle, int) ([]byte, error) { panic("codec crashed") }

func TestSampler_EncoderPanic(t *testing.T) {
	var reported atomic.Int32
	c := &collector{open: true}
	s := NewSampler(c.enqueue, fixedLocation{}, newTestLogger(t),
		WithErrorReporter(func(error) { reported.Add(1) }))

	s.Arm()
	s.OnFrame(&panickingFrame{})

	if reported.Load() != 1 || c.len() != 0 {
		t.Errorf("Expected panic reported as capture error, got %d reports", reported.Load())
	}
}

func TestSampler_ConcurrentArmAndFrames(t *testing.T) {
	const rounds = 500
	const callbacks = 8

	c := &collector{open: true}
	s := NewSampler(c.enqueue, fixedLocation{}, newTestLogger(t))
	frame := &fakeFrame{}

	for i := 0; i < rounds; i++ {
		s.Arm()

		var wg sync.WaitGroup
		start := make(chan struct{})
		for j := 0; j < callbacks; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				s.OnFrame(frame)
			}()
		}
		close(start)
		wg.Wait()

		if got := c.len(); got != i+1 {
			t.Fatalf("Round %d: expected %d captures, got %d", i, i+1, got)
		}
	}
}

func TestSampler_Snapshot(t *testing.T) {
	src := &fakeSource{}
	cam := NewCamera(src, newTestLogger(t))
	c := &collector{open: true}
	s := NewSampler(c.enqueue, fixedLocation{}, newTestLogger(t))

	if _, err := s.Snapshot(context.Background(), cam); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Expected ErrNoSource on closed camera, got %v", err)
	}

	if err := cam.Open(s.OnFrame); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	item, err := s.Snapshot(context.Background(), cam)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if string(item.Data) != "full-resolution" || src.quality != PictureQuality {
		t.Errorf("Expected full resolution picture at quality %d, got %q at %d", PictureQuality, item.Data, src.quality)
	}
	if c.len() != 1 {
		t.Errorf("Expected snapshot to be queued, got %d items", c.len())
	}
	if s.Armed() {
		t.Error("Snapshot must not arm the sampler")
	}
}

func TestCamera_Lifecycle(t *testing.T) {
	src := &fakeSource{}
	cam := NewCamera(src, newTestLogger(t))

	if cam.Available() {
		t.Fatal("New camera should not be available")
	}
	if err := cam.SetIllumination(true); err != nil || src.light {
		t.Fatalf("Light on a closed camera should be a no-op, got %v", err)
	}

	if err := cam.Open(func(Frame) {}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := cam.Open(func(Frame) {}); err != nil {
		t.Fatalf("Second open failed: %v", err)
	}
	if src.started != 1 || !cam.Available() {
		t.Errorf("Expected a single start, got %d", src.started)
	}

	if err := cam.SetIllumination(true); err != nil || !src.light {
		t.Errorf("Expected light on, got %v", err)
	}

	if err := cam.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
	if src.stopped != 1 || cam.Available() {
		t.Errorf("Expected a single stop, got %d", src.stopped)
	}
}

func TestCamera_IlluminationUnsupported(t *testing.T) {
	cam := NewCamera(&fakeSource{lightErr: ErrIlluminationUnsupported}, newTestLogger(t))
	if err := cam.Open(func(Frame) {}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := cam.SetIllumination(true); err != nil {
		t.Errorf("Missing light should only be logged, got %v", err)
	}
}

func TestCamera_NoSource(t *testing.T) {
	cam := NewCamera(nil, newTestLogger(t))
	if err := cam.Open(func(Frame) {}); !apperr.IsKind(err, apperr.KindCapture) {
		t.Errorf("Expected capture error, got %v", err)
	}
}

func waitArmed(t *testing.T, a *countingArmer) {
	t.Helper()

	select {
	case <-a.armed:
	case <-time.After(time.Second):
		t.Fatal("Trigger did not fire")
	}
}

func expectNotArmed(t *testing.T, a *countingArmer) {
	t.Helper()

	select {
	case <-a.armed:
		t.Fatal("Trigger fired unexpectedly")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestTrigger_FiresImmediatelyAndPeriodically(t *testing.T) {
	mock := clock.NewMock()
	state := &State{}
	state.EnableDelivery()
	armer := &countingArmer{armed: make(chan struct{}, 16)}

	trigger := NewTrigger(state, availability(true), armer, newTestLogger(t), WithTriggerClock(mock))
	trigger.Start(time.Second)
	defer trigger.Stop()

	waitArmed(t, armer)

	for i := 0; i < 3; i++ {
		mock.Add(time.Second)
		waitArmed(t, armer)
	}
	expectNotArmed(t, armer)
}

func TestTrigger_Conditions(t *testing.T) {
	tests := []struct {
		name      string
		delivery  bool
		available bool
		wantArmed bool
	}{
		{"enabled and available", true, true, true},
		{"delivery disabled", false, true, false},
		{"no camera", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := clock.NewMock()
			state := &State{}
			if tt.delivery {
				state.EnableDelivery()
			}
			armer := &countingArmer{armed: make(chan struct{}, 16)}

			trigger := NewTrigger(state, availability(tt.available), armer, newTestLogger(t), WithTriggerClock(mock))
			trigger.Start(time.Second)
			defer trigger.Stop()

			if tt.wantArmed {
				waitArmed(t, armer)
			} else {
				expectNotArmed(t, armer)
				mock.Add(time.Second)
				expectNotArmed(t, armer)
			}
		})
	}
}

func TestTrigger_StopAndRestart(t *testing.T) {
	mock := clock.NewMock()
	state := &State{}
	state.EnableDelivery()
	armer := &countingArmer{armed: make(chan struct{}, 16)}

	trigger := NewTrigger(state, availability(true), armer, newTestLogger(t), WithTriggerClock(mock))

	trigger.Stop()
	if trigger.Running() {
		t.Fatal("Stop on an idle trigger should do nothing")
	}

	trigger.Start(time.Second)
	waitArmed(t, armer)

	trigger.Start(5 * time.Second)
	waitArmed(t, armer)

	mock.Add(time.Second)
	expectNotArmed(t, armer)
	mock.Add(4 * time.Second)
	waitArmed(t, armer)

	trigger.Stop()
	trigger.Stop()
	if trigger.Running() {
		t.Error("Trigger should not be running after Stop")
	}
	mock.Add(10 * time.Second)
	expectNotArmed(t, armer)
}

func TestPatternSource_Frames(t *testing.T) {
	mock := clock.NewMock()
	src := NewPatternSource(32, 24, 64, 48, 10, WithPatternClock(mock))

	frames := make(chan []byte, 4)
	if err := src.Start(func(f Frame) {
		data, err := f.Encode(f.Bounds(), SampleQuality)
		if err != nil {
			t.Errorf("Encode failed: %v", err)
			return
		}
		frames <- data
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Start(func(Frame) {}); err == nil {
		t.Error("Expected error on second start")
	}

	mock.Add(100 * time.Millisecond)

	select {
	case data := <-frames:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Frame is not a JPEG: %v", err)
		}
		if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
			t.Errorf("Unexpected frame size %v", img.Bounds())
		}
	case <-time.After(time.Second):
		t.Fatal("No frame received")
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Second stop failed: %v", err)
	}
}

func TestPatternSource_TakePicture(t *testing.T) {
	src := NewPatternSource(32, 24, 64, 48, 10)
	_ = src.SetIllumination(true)

	data, err := src.TakePicture(context.Background(), PictureQuality)
	if err != nil {
		t.Fatalf("TakePicture failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Picture is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("Unexpected picture size %v", img.Bounds())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.TakePicture(ctx, PictureQuality); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestImageFrame_RegionOutsideFrame(t *testing.T) {
	f := NewImageFrame(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if _, err := f.Encode(image.Rect(4, 4, 16, 16), SampleQuality); err == nil {
		t.Error("Expected error for region outside frame")
	}
}
