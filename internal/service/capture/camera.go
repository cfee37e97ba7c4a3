package capture

import (
	"context"
	"errors"
	"sync"

	"autosendpic/internal/apperr"
	"autosendpic/internal/logger"
)

// Camera serializes every operation on a Source behind one mutex.
type Camera struct {
	mu     sync.Mutex
	source Source
	open   bool
	logger *logger.Logger
}

func NewCamera(source Source, logger *logger.Logger) *Camera {
	return &Camera{
		source: source,
		logger: logger,
	}
}

// Open starts the live feed. Opening an open camera does nothing.
func (c *Camera) Open(onFrame func(Frame)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return nil
	}
	if c.source == nil {
		return apperr.Wrap(apperr.KindCapture, "capture.open", "no camera configured", ErrNoSource)
	}
	if err := c.source.Start(onFrame); err != nil {
		return apperr.Wrap(apperr.KindCapture, "capture.open", "error opening camera", err)
	}

	c.open = true
	c.logger.Info("📷 Camera opened")
	return nil
}

// Close stops the live feed. Closing a closed camera does nothing.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}
	c.open = false

	if err := c.source.Stop(); err != nil {
		return apperr.Wrap(apperr.KindCapture, "capture.close", "error closing camera", err)
	}
	c.logger.Info("📷 Camera closed")
	return nil
}

// Available reports whether the live feed is running.
func (c *Camera) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetIllumination switches the light. A source without a light is not an error.
func (c *Camera) SetIllumination(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}

	err := c.source.SetIllumination(on)
	if errors.Is(err, ErrIlluminationUnsupported) {
		c.logger.Warning("Camera has no light, flash setting ignored")
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindCapture, "capture.illumination", "error switching light", err)
	}
	return nil
}

// TakePicture captures one full resolution picture.
func (c *Camera) TakePicture(ctx context.Context, quality int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, apperr.Wrap(apperr.KindCapture, "capture.picture", "camera is closed", ErrNoSource)
	}

	data, err := c.source.TakePicture(ctx, quality)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCapture, "capture.picture", "error taking picture", err)
	}
	return data, nil
}
